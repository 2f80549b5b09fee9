package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hubctl/hubctl/internal/hub"
	"github.com/hubctl/hubctl/internal/journal"
	"github.com/hubctl/hubctl/internal/scenario"
	"github.com/hubctl/hubctl/internal/ui"
)

// scenarioFlags are shared by the scenarios subcommands.
type scenarioFlags struct {
	dir   string
	force bool
}

type remoteScenario struct {
	Index string `json:"index"`
	Name  string `json:"name,omitempty"`
	Type  string `json:"type"`
	Dir   string `json:"dir,omitempty"`
	Local bool   `json:"local"`
}

func (a *App) scenariosCommand() *cobra.Command {
	flags := &scenarioFlags{}
	cmd := &cobra.Command{
		Use:     "scenarios",
		Aliases: []string{"sc"},
		Short:   "Sync hub scenarios with local files",
		Long: `Scenarios are pulled into <scenarios_dir>/<type>/<index>/ as editable files:
metadata.json, code.js for LOGIC and GLOBAL scenarios, data.json plus one
block-<id>.js per code block for BLOCK scenarios, and backup.json with the
document as the hub returned it.

Batches run one scenario at a time and stop at the first failure.`,
		Args: cobra.NoArgs,
	}
	cmd.PersistentFlags().StringVar(&flags.dir, "dir", "", "Scenario directory (default: scenarios_dir from config)")

	cmd.AddCommand(
		a.scenariosListCommand(flags),
		a.scenariosPullCommand(flags),
		a.scenariosPushCommand(flags),
		a.scenariosDiffCommand(flags),
		a.scenariosStatusCommand(flags),
		a.scenariosRestoreCommand(flags),
	)
	return cmd
}

func (a *App) scenarioRoot(flags *scenarioFlags) string {
	if flags.dir != "" {
		return flags.dir
	}
	return a.opts.Config.ScenariosRoot()
}

// withSyncer runs fn with a syncer for the selected profile. With remote
// set the syncer gets a hub client, closed when fn returns.
func (a *App) withSyncer(flags *scenarioFlags, remote bool, fn func(s *scenario.Syncer) error) error {
	profile, err := a.resolveProfile("")
	if err != nil {
		return err
	}

	j, err := journal.Open(filepath.Join(a.opts.DataDir, journal.FileName))
	if err != nil {
		return err
	}
	defer j.Close()

	syncer := &scenario.Syncer{
		Root:    a.scenarioRoot(flags),
		Profile: profile,
		Journal: j,
		Confirm: a.confirm,
		Force:   flags.force,
		Logger:  a.opts.Logger.With("component", "scenario", "profile", profile),
		Now:     a.now,
	}
	if !remote {
		return fn(syncer)
	}

	client, err := a.dial(profile)
	if err != nil {
		return err
	}
	defer client.Close()
	syncer.Remote = client
	return fn(syncer)
}

func (a *App) scenariosListCommand(flags *scenarioFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the scenarios on the hub",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSyncer(flags, true, func(s *scenario.Syncer) error {
				stop := a.spin("Listing scenarios")
				scenarios, _, err := s.List(cmd.Context())
				stop()
				if err != nil {
					return err
				}
				items := make([]remoteScenario, 0, len(scenarios))
				for _, sc := range scenarios {
					item := remoteScenario{Index: sc.Index(), Name: sc.Name(), Type: sc.RawType()}
					if dir, err := scenario.Dir(s.Root, sc); err == nil {
						item.Dir = dir
						_, statErr := os.Stat(filepath.Join(dir, scenario.FileMetadata))
						item.Local = statErr == nil
					}
					items = append(items, item)
				}
				return a.emit(result{
					Data: items,
					Meta: &Meta{Count: len(items), Method: scenario.MethodList},
					Human: func(w io.Writer) {
						table := ui.NewTable(4)
						for _, item := range items {
							local := ui.Muted.Render("-")
							if item.Local {
								local = item.Dir
							}
							table.AddRow(ui.Bold.Render(item.Index), item.Type, item.Name, local)
						}
						fmt.Fprint(w, table.String())
					},
				})
			})
		},
	}
}

func (a *App) scenariosPullCommand(flags *scenarioFlags) *cobra.Command {
	var opts scenario.PullOptions
	cmd := &cobra.Command{
		Use:   "pull [index...]",
		Short: "Fetch scenarios from the hub into local files",
		Long: `Fetches scenarios and extracts them. A local copy that differs from the
hub is only overwritten after confirmation, or with --force.`,
		Example: `  hubctl scenarios pull 3 7
  hubctl scenarios pull --all --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.All && len(args) > 0 {
				return &inputError{msg: "pass scenario indexes or --all, not both"}
			}
			if !opts.All && len(args) == 0 {
				return &inputError{msg: "no scenarios given: pass indexes or --all"}
			}
			return a.withSyncer(flags, true, func(s *scenario.Syncer) error {
				results, err := s.Pull(cmd.Context(), args, opts)
				return a.emitResults(results, err)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.All, "all", false, "Pull every scenario on the hub")
	cmd.Flags().BoolVar(&opts.Legacy, "legacy", false, "Write the legacy placeholder format")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Overwrite local changes without asking")
	return cmd
}

func (a *App) scenariosPushCommand(flags *scenarioFlags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "push [dir...]",
		Short: "Upload edited scenarios to the hub",
		Long: `Reassembles each directory and uploads it when it differs from the hub.
Each upload is confirmed unless --force is given; the directory is then
refreshed from the hub.`,
		Example: `  hubctl scenarios push scenarios/logic/7
  hubctl scenarios push --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return &inputError{msg: "pass directories or --all, not both"}
			}
			return a.withSyncer(flags, true, func(s *scenario.Syncer) error {
				dirs := args
				if all {
					found, err := scenario.FindDirs(s.Root)
					if err != nil {
						return err
					}
					dirs = found
				}
				if len(dirs) == 0 {
					return &inputError{msg: "no scenario directories given: pass directories or --all"}
				}
				results, err := s.Push(cmd.Context(), dirs)
				return a.emitResults(results, err)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Push every directory under the scenario directory")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Upload without asking")
	return cmd
}

func (a *App) scenariosDiffCommand(flags *scenarioFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <dir>",
		Short: "Show how a local scenario differs from the hub",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSyncer(flags, true, func(s *scenario.Syncer) error {
				stop := a.spin("Comparing " + args[0])
				report, err := s.Diff(cmd.Context(), args[0])
				stop()
				if err != nil {
					return err
				}
				return a.emit(result{
					Data:  report,
					Human: func(w io.Writer) { printDiff(w, report) },
				})
			})
		},
	}
}

func (a *App) scenariosStatusCommand(flags *scenarioFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which local scenarios changed since they were synced",
		Long: `Compares every local scenario with the content recorded when it was last
pulled or pushed. The hub is not contacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSyncer(flags, false, func(s *scenario.Syncer) error {
				entries, err := s.Status()
				if err != nil {
					return err
				}
				return a.emit(result{
					Data: entries,
					Meta: &Meta{Count: len(entries)},
					Human: func(w io.Writer) {
						if len(entries) == 0 {
							fmt.Fprintln(w, ui.Hint("No scenarios under "+s.Root))
							return
						}
						table := ui.NewTable(3)
						for _, e := range entries {
							table.AddRow(stateLabel(e.State), e.Dir, e.Name)
						}
						fmt.Fprint(w, table.String())
						for _, e := range entries {
							if e.Error != "" {
								fmt.Fprintln(w, ui.Warningf("%s: %s", e.Dir, e.Error))
							}
						}
					},
				})
			})
		},
	}
}

func (a *App) scenariosRestoreCommand(flags *scenarioFlags) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "restore <dir...>",
		Short: "Discard local edits and re-extract scenarios",
		Long: `Rewrites each directory from a fresh copy on the hub, or with --offline from
the copy recorded at the last pull or push. Local edits are lost.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSyncer(flags, !offline, func(s *scenario.Syncer) error {
				var results []scenario.Result
				for _, dir := range args {
					res, err := s.Restore(cmd.Context(), dir, offline)
					if err != nil {
						return a.emitResults(results, err)
					}
					results = append(results, res)
				}
				return a.emitResults(results, nil)
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Restore from the local journal without contacting the hub")
	return cmd
}

// emitResults writes the results of a batch. When the batch failed the
// results so far travel with the error.
func (a *App) emitResults(results []scenario.Result, err error) error {
	if err != nil {
		return &batchError{Results: results, Err: err}
	}

	var warnings []Warning
	for _, res := range results {
		if res.Action == scenario.ActionSkipped {
			warnings = append(warnings, Warning{
				Code:    WarnSkipped,
				Message: fmt.Sprintf("%s skipped: not confirmed (use --force)", res.Dir),
			})
		}
	}
	return a.emit(result{
		Data:     results,
		Meta:     &Meta{Count: len(results)},
		Warnings: warnings,
		Human:    func(w io.Writer) { printResults(w, results) },
	})
}

func printResults(w io.Writer, results []scenario.Result) {
	for _, res := range results {
		label := res.Index
		if res.Name != "" {
			label = fmt.Sprintf("%s (%s)", res.Name, res.Index)
		}
		switch res.Action {
		case scenario.ActionUnchanged:
			fmt.Fprintln(w, ui.Hint(fmt.Sprintf("  %s unchanged", label)))
		case scenario.ActionSkipped:
			fmt.Fprintln(w, ui.Warningf("%s skipped", label))
		default:
			fmt.Fprintln(w, ui.Successf("%s %s %s", res.Action, label, ui.FilePath(res.Dir)))
		}
	}
}

func printDiff(w io.Writer, report *scenario.DiffReport) {
	label := report.Index
	if report.Name != "" {
		label = fmt.Sprintf("%s (%s)", report.Name, report.Index)
	}
	if report.Equal {
		fmt.Fprintln(w, ui.Success(label+" matches the hub"))
		return
	}
	fmt.Fprintln(w, ui.Header(label+" differs from the hub"))
	for _, field := range report.Fields {
		fmt.Fprintf(w, "  %s\n", ui.Bold.Render(field.Field))
		if field.Field == "data" && len(report.Blocks) > 0 {
			continue
		}
		fmt.Fprintf(w, "    local:  %s\n", preview(field.Local))
		fmt.Fprintf(w, "    remote: %s\n", preview(field.Remote))
	}
	for _, id := range report.Blocks {
		fmt.Fprintf(w, "    block %s\n", id)
	}
}

// preview shortens a JSON value to one line.
func preview(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ui.Muted.Render("(absent)")
	}
	const limit = 72
	text := string(raw)
	if runes := []rune(text); len(runes) > limit {
		text = string(runes[:limit]) + "…"
	}
	return text
}

func stateLabel(state scenario.State) string {
	switch state {
	case scenario.StateModified:
		return ui.Accent.Render(string(state))
	case scenario.StateBroken:
		return ui.Error(string(state))
	case scenario.StateUntracked:
		return ui.Muted.Render(string(state))
	default:
		return string(state)
	}
}

// Compile-time check that the hub client serves the syncer.
var _ scenario.Caller = (*hub.Client)(nil)
