package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hubctl/hubctl/internal/hub"
	"github.com/hubctl/hubctl/internal/journal"
)

// Hub methods used for scenario sync.
const (
	MethodList   = "scenario.list"
	MethodGet    = "scenario.get"
	MethodUpdate = "scenario.update"
)

// Caller performs hub RPC calls.
type Caller interface {
	Call(ctx context.Context, method string, params interface{}) (*hub.Response, error)
}

// Confirmer asks a yes/no question and reports the answer.
type Confirmer func(prompt string) bool

// Action is what a sync operation did to one scenario.
type Action string

const (
	ActionPulled    Action = "pulled"
	ActionPushed    Action = "pushed"
	ActionRestored  Action = "restored"
	ActionUnchanged Action = "unchanged"
	ActionSkipped   Action = "skipped"
)

// Result describes the outcome for one scenario.
type Result struct {
	Index  string `json:"index"`
	Name   string `json:"name,omitempty"`
	Type   string `json:"type"`
	Dir    string `json:"dir"`
	Action Action `json:"action"`
}

// State is the local status of an extracted directory.
type State string

const (
	StateUnchanged State = "unchanged"
	StateModified  State = "modified"
	StateUntracked State = "untracked"
	StateBroken    State = "broken"
)

// StatusEntry is the status of one extracted directory.
type StatusEntry struct {
	Dir   string `json:"dir"`
	Index string `json:"index,omitempty"`
	Name  string `json:"name,omitempty"`
	State State  `json:"state"`
	Error string `json:"error,omitempty"`
}

// PullOptions controls Pull.
type PullOptions struct {
	All    bool
	Legacy bool
}

// Syncer moves scenarios between the hub and extracted directories under
// Root. Scenarios are processed one at a time and the first error stops
// the batch.
type Syncer struct {
	Remote  Caller
	Root    string
	Profile string
	// Journal is optional; without it nothing is recorded and every
	// directory reports as untracked.
	Journal *journal.Journal
	// Confirm is asked before local or remote content is overwritten. A
	// nil Confirm declines.
	Confirm Confirmer
	Force   bool
	Logger  *slog.Logger
	Now     func() time.Time
}

// Pull fetches scenarios and extracts them. With opts.All every scenario on
// the hub is pulled, otherwise the given indexes.
func (s *Syncer) Pull(ctx context.Context, indexes []string, opts PullOptions) ([]Result, error) {
	format := FormatCurrent
	if opts.Legacy {
		format = FormatLegacy
	}

	var results []Result
	pull := func(remote *Scenario, raw []byte) error {
		res, err := s.pullOne(remote, raw, format)
		if err != nil {
			return err
		}
		results = append(results, res)
		return nil
	}

	if opts.All {
		scenarios, raws, err := s.List(ctx)
		if err != nil {
			return nil, err
		}
		for i, remote := range scenarios {
			if err := pull(remote, raws[i]); err != nil {
				return results, err
			}
		}
		return results, nil
	}

	if len(indexes) == 0 {
		return nil, fmt.Errorf("no scenarios given: pass indexes or --all")
	}
	for _, index := range indexes {
		remote, raw, err := s.Fetch(ctx, IndexParam(index))
		if err != nil {
			return results, err
		}
		if err := pull(remote, raw); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (s *Syncer) pullOne(remote *Scenario, raw []byte, format Format) (Result, error) {
	dir, err := Dir(s.Root, remote)
	if err != nil {
		return Result{}, err
	}
	res := resultFor(remote, dir)

	if HasExtractedCode(dir) {
		local, err := Inject(dir)
		if err == nil && Compare(local, remote) {
			if DetectFormat(dir) == format {
				res.Action = ActionUnchanged
				return res, s.record(remote, dir, ActionPulled, raw)
			}
		} else {
			if err != nil {
				s.logger().Warn("local scenario cannot be read", "dir", dir, "error", err)
			}
			if !s.confirm(fmt.Sprintf("Overwrite local changes to %s in %s?", remote.Label(), dir)) {
				res.Action = ActionSkipped
				return res, nil
			}
		}
	}

	if err := Extract(remote, dir, format); err != nil {
		return res, err
	}
	s.logger().Debug("pulled scenario", "index", remote.Index(), "dir", dir, "format", format.String())
	res.Action = ActionPulled
	return res, s.record(remote, dir, ActionPulled, raw)
}

// Push uploads the given extracted directories. A scenario equal to its
// remote copy is not uploaded. After a successful upload the directory is
// refreshed from the hub.
func (s *Syncer) Push(ctx context.Context, dirs []string) ([]Result, error) {
	var results []Result
	for _, dir := range dirs {
		res, err := s.pushOne(ctx, dir)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Syncer) pushOne(ctx context.Context, dir string) (Result, error) {
	local, err := Inject(dir)
	if err != nil {
		return Result{}, err
	}
	res := resultFor(local, dir)

	remote, _, err := s.Fetch(ctx, json.RawMessage(local.IndexKey()))
	if err != nil {
		return res, err
	}
	if Compare(local, remote) {
		res.Action = ActionUnchanged
		return res, nil
	}
	if !s.confirm(fmt.Sprintf("Push %s to the hub?", local.Label())) {
		res.Action = ActionSkipped
		return res, nil
	}

	resp, err := s.Remote.Call(ctx, MethodUpdate, map[string]interface{}{"scenario": local})
	if err != nil {
		return res, err
	}
	if err := resp.Err(MethodUpdate); err != nil {
		return res, err
	}
	s.logger().Debug("pushed scenario", "index", local.Index(), "dir", dir)

	fresh, raw, err := s.Fetch(ctx, json.RawMessage(local.IndexKey()))
	if err != nil {
		return res, err
	}
	if err := Extract(fresh, dir, DetectFormat(dir)); err != nil {
		return res, err
	}
	res.Action = ActionPushed
	return res, s.record(fresh, dir, ActionPushed, raw)
}

// Diff compares an extracted directory with its remote scenario.
func (s *Syncer) Diff(ctx context.Context, dir string) (*DiffReport, error) {
	local, err := Inject(dir)
	if err != nil {
		return nil, err
	}
	remote, _, err := s.Fetch(ctx, json.RawMessage(local.IndexKey()))
	if err != nil {
		return nil, err
	}
	return Diff(local, remote), nil
}

// Status reports every extracted directory under Root against the journal.
// It does not contact the hub.
func (s *Syncer) Status() ([]StatusEntry, error) {
	dirs, err := FindDirs(s.Root)
	if err != nil {
		return nil, err
	}

	entries := make([]StatusEntry, 0, len(dirs))
	for _, dir := range dirs {
		entry := StatusEntry{Dir: dir}
		local, err := Inject(dir)
		if err != nil {
			entry.State = StateBroken
			entry.Error = err.Error()
			if meta, metaErr := ReadMetadata(dir); metaErr == nil {
				entry.Index, entry.Name = meta.Index(), meta.Name()
			}
			entries = append(entries, entry)
			continue
		}
		entry.Index, entry.Name = local.Index(), local.Name()

		entry.State = StateUntracked
		if s.Journal != nil {
			rec, err := s.Journal.Get(s.Profile, local.IndexKey())
			switch {
			case errors.Is(err, journal.ErrNotFound):
			case err != nil:
				return nil, err
			case rec.Hash == Fingerprint(local):
				entry.State = StateUnchanged
			default:
				entry.State = StateModified
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Restore re-extracts dir from a fresh copy of its scenario, or with
// offline set from the snapshot recorded in the journal. The directory
// keeps its format.
func (s *Syncer) Restore(ctx context.Context, dir string, offline bool) (Result, error) {
	meta, err := ReadMetadata(dir)
	if err != nil {
		return Result{}, err
	}
	format := DetectFormat(dir)

	var remote *Scenario
	var raw []byte
	if offline {
		if s.Journal == nil {
			return Result{}, fmt.Errorf("no journal available for offline restore")
		}
		rec, err := s.Journal.Get(s.Profile, meta.IndexKey())
		if err != nil {
			return Result{}, err
		}
		if raw, err = rec.Document(); err != nil {
			return Result{}, err
		}
		if remote, err = Parse(raw); err != nil {
			return Result{}, err
		}
	} else if remote, raw, err = s.Fetch(ctx, json.RawMessage(meta.IndexKey())); err != nil {
		return Result{}, err
	}

	if err := Extract(remote, dir, format); err != nil {
		return Result{}, err
	}
	res := resultFor(remote, dir)
	res.Action = ActionRestored
	if offline {
		return res, nil
	}
	return res, s.record(remote, dir, ActionRestored, raw)
}

// Fetch gets one scenario by its JSON index value. The raw document is
// returned alongside the parsed one.
func (s *Syncer) Fetch(ctx context.Context, index json.RawMessage) (*Scenario, []byte, error) {
	resp, err := s.Remote.Call(ctx, MethodGet, map[string]json.RawMessage{"index": index})
	if err != nil {
		return nil, nil, err
	}
	if err := resp.Err(MethodGet); err != nil {
		return nil, nil, err
	}
	sc, err := Parse(resp.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", MethodGet, index, err)
	}
	return sc, resp.Data, nil
}

// List gets every scenario on the hub.
func (s *Syncer) List(ctx context.Context) ([]*Scenario, [][]byte, error) {
	resp, err := s.Remote.Call(ctx, MethodList, nil)
	if err != nil {
		return nil, nil, err
	}
	if err := resp.Err(MethodList); err != nil {
		return nil, nil, err
	}
	var items []json.RawMessage
	if err := resp.Decode(&items); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", MethodList, err)
	}

	scenarios := make([]*Scenario, 0, len(items))
	raws := make([][]byte, 0, len(items))
	for _, item := range items {
		sc, err := Parse(item)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", MethodList, err)
		}
		scenarios = append(scenarios, sc)
		raws = append(raws, item)
	}
	return scenarios, raws, nil
}

func (s *Syncer) record(sc *Scenario, dir string, action Action, raw []byte) error {
	if s.Journal == nil {
		return nil
	}
	entry := journal.Entry{
		Index:    sc.IndexKey(),
		Type:     sc.RawType(),
		Name:     sc.Name(),
		Dir:      dir,
		Hash:     Fingerprint(sc),
		Action:   string(action),
		SyncedAt: s.now(),
	}
	return s.Journal.Record(s.Profile, entry, raw)
}

func (s *Syncer) confirm(prompt string) bool {
	if s.Force {
		return true
	}
	if s.Confirm == nil {
		return false
	}
	return s.Confirm(prompt)
}

func (s *Syncer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Syncer) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func resultFor(sc *Scenario, dir string) Result {
	return Result{Index: sc.Index(), Name: sc.Name(), Type: sc.RawType(), Dir: dir}
}
