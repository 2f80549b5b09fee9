package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/hubctl/hubctl/internal/atomicfile"
)

// StateVersion is the state.toml layout this build reads and writes.
const StateVersion = 1

// ErrStateTooNew is returned for a state file written by a newer hubctl.
var ErrStateTooNew = errors.New("state file was written by a newer hubctl")

// State is the machine-local profile selection kept beside config.toml.
// config.toml is shared and hand-edited; state.toml only changes through
// 'hubctl profile use' and 'hubctl profile remove'.
type State struct {
	Version       int    `toml:"version"`
	ActiveProfile string `toml:"active_profile,omitempty"`
}

// ResolveConfigPath returns explicit when set and the default config path
// otherwise.
func ResolveConfigPath(explicit string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	return DefaultPath()
}

// ResolveStatePath picks the state file: the --state flag, then state_file
// from the config resolved against the config's directory, then state.toml
// beside the config.
func ResolveStatePath(explicit, configPath string, cfg *Config) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	dir := filepath.Dir(ResolveConfigPath(configPath))

	var configured string
	if cfg != nil {
		configured = strings.TrimSpace(cfg.StateFile)
	}
	switch {
	case configured == "":
		return filepath.Join(dir, "state.toml")
	case filepath.IsAbs(configured), strings.HasPrefix(filepath.ToSlash(configured), "/"):
		// A slash-rooted state_file is absolute on every OS.
		return filepath.Clean(filepath.FromSlash(configured))
	default:
		return filepath.Join(dir, filepath.FromSlash(configured))
	}
}

// LoadState reads the state file at path. A missing file is an empty state.
func LoadState(path string) (*State, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("state path is required")
	}

	state := &State{Version: StateVersion}
	if _, err := toml.DecodeFile(path, state); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &State{Version: StateVersion}, nil
		}
		return nil, fmt.Errorf("failed to parse state %s: %w", path, err)
	}
	if state.Version > StateVersion {
		return nil, fmt.Errorf("%s: %w (version %d)", path, ErrStateTooNew, state.Version)
	}
	state.Version = StateVersion
	state.ActiveProfile = strings.TrimSpace(state.ActiveProfile)
	return state, nil
}

// SaveState writes state to path atomically.
func SaveState(path string, state *State) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("state path is required")
	}
	out := State{Version: StateVersion}
	if state != nil {
		out.ActiveProfile = strings.TrimSpace(state.ActiveProfile)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write state %s: %w", path, err)
	}
	return nil
}

// UseProfile records name as the active profile in the state file at path.
func UseProfile(path, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("profile name is required")
	}
	_, err := updateState(path, func(s *State) bool {
		if s.ActiveProfile == name {
			return false
		}
		s.ActiveProfile = name
		return true
	})
	return err
}

// ForgetProfile clears the active profile when it is name and reports
// whether it was. Other selections are left alone.
func ForgetProfile(path, name string) (bool, error) {
	return updateState(path, func(s *State) bool {
		if s.ActiveProfile == "" || s.ActiveProfile != strings.TrimSpace(name) {
			return false
		}
		s.ActiveProfile = ""
		return true
	})
}

// updateState loads the state at path, applies change and saves the result
// when change reports a modification.
func updateState(path string, change func(*State) bool) (bool, error) {
	state, err := LoadState(path)
	if err != nil {
		return false, err
	}
	if !change(state) {
		return false, nil
	}
	if err := SaveState(path, state); err != nil {
		return false, err
	}
	return true, nil
}
