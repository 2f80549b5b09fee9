package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrNoProfile is returned when no profile is selected and none can be
// inferred.
var ErrNoProfile = errors.New("no profile configured")

// ProfileNotFoundError names a profile missing from the config.
type ProfileNotFoundError struct {
	Name string
}

func (e *ProfileNotFoundError) Error() string {
	return fmt.Sprintf("profile '%s' not found in config", e.Name)
}

// ResolveProfileName picks the profile to use with precedence:
//  1. explicit (--profile)
//  2. active profile from state.toml
//  3. default_profile from config.toml
//  4. the only configured profile
func ResolveProfileName(explicit string, cfg *Config, state *State) (string, error) {
	candidates := []string{explicit}
	if state != nil {
		candidates = append(candidates, state.ActiveProfile)
	}
	if cfg != nil {
		candidates = append(candidates, cfg.DefaultProfile)
	}

	for _, name := range candidates {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if cfg == nil || cfg.Profiles == nil {
			return "", &ProfileNotFoundError{Name: name}
		}
		if _, ok := cfg.Profiles[name]; !ok {
			return "", &ProfileNotFoundError{Name: name}
		}
		return name, nil
	}

	if cfg != nil && len(cfg.Profiles) == 1 {
		for name := range cfg.Profiles {
			return name, nil
		}
	}
	if cfg != nil && len(cfg.Profiles) > 1 {
		return "", fmt.Errorf("%w: several profiles exist, pass --profile or run 'hubctl profile use'", ErrNoProfile)
	}
	return "", fmt.Errorf("%w: run 'hubctl profile add'", ErrNoProfile)
}

// ProfileNames returns the configured profile names in lexical order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
