// Package config handles global hubctl configuration: hub profiles, output
// and logging preferences, and where local state lives.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultCallTimeout bounds one RPC call when rpc.call_timeout is unset.
const DefaultCallTimeout = 30 * time.Second

// DefaultScenariosDir is the scenario working directory when scenarios_dir
// is unset. Relative paths resolve against the current directory.
const DefaultScenariosDir = "scenarios"

// Config represents the global hubctl configuration.
type Config struct {
	// DefaultProfile is the profile used when neither --profile nor the
	// active profile in state.toml selects one.
	DefaultProfile string `toml:"default_profile"`

	// Output is the default result format: json, yaml or table.
	Output string `toml:"output"`

	// ScenariosDir is the root of extracted scenario directories.
	ScenariosDir string `toml:"scenarios_dir"`

	// StateFile overrides the location of state.toml.
	StateFile string `toml:"state_file"`

	// Profiles maps profile names to hub connection settings.
	Profiles map[string]Profile `toml:"profiles"`

	Log LogConfig `toml:"log"`
	RPC RPCConfig `toml:"rpc"`
	UI  UIConfig  `toml:"ui"`
}

// Profile holds the non-secret connection settings of one hub. The
// password lives in the encrypted credential store.
type Profile struct {
	WSURL  string `toml:"ws_url"`
	Email  string `toml:"email"`
	Serial string `toml:"serial"`
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level"`
	// Format is text or json; empty picks text on a terminal, json otherwise.
	Format string `toml:"format"`
}

// RPCConfig tunes the hub RPC client.
type RPCConfig struct {
	// CallTimeout is a Go duration string such as "30s".
	CallTimeout string `toml:"call_timeout"`
}

// UIConfig represents optional CLI theming preferences.
type UIConfig struct {
	// Accent is an optional accent color for CLI output and markdown rendering.
	// Supported values are ANSI color codes ("0" to "255"), hex colors ("#RRGGBB" or "#RGB")
	// and "none" or "off" to drop the accent. Anything else keeps the default.
	Accent string `toml:"accent"`

	// CodeTheme sets the Glamour/Chroma theme used for rendered markdown code blocks.
	CodeTheme string `toml:"code_theme"`
}

// Timeout returns the configured RPC call timeout.
func (c *Config) Timeout() (time.Duration, error) {
	raw := strings.TrimSpace(c.RPC.CallTimeout)
	if raw == "" {
		return DefaultCallTimeout, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("rpc.call_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("rpc.call_timeout must be positive, got %s", raw)
	}
	return d, nil
}

// ScenariosRoot returns the scenario working directory.
func (c *Config) ScenariosRoot() string {
	if dir := strings.TrimSpace(c.ScenariosDir); dir != "" {
		return dir
	}
	return DefaultScenariosDir
}

// Validate checks every profile for the settings a connection needs.
func (c *Config) Validate() error {
	for name, p := range c.Profiles {
		if strings.TrimSpace(p.WSURL) == "" {
			return fmt.Errorf("profile '%s': ws_url is required", name)
		}
		if !strings.HasPrefix(p.WSURL, "ws://") && !strings.HasPrefix(p.WSURL, "wss://") {
			return fmt.Errorf("profile '%s': ws_url must start with ws:// or wss://", name)
		}
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	return nil
}

// Load loads the configuration from the default location.
// Returns a default config if the file doesn't exist.
func Load() (*Config, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom loads the configuration from a specific path.
// Returns a default config if the file doesn't exist.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Config{}, nil
	}

	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &config, nil
}

// DefaultPath returns the default config file path.
// Checks ~/.config/hubctl/config.toml first (XDG style),
// then falls back to OS-specific location.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "hubctl", "config.toml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "hubctl", "config.toml")
	}

	return filepath.Join(".", "config.toml")
}

// DataDir returns the directory holding local data next to the config file:
// credentials, the schema cache and the sync journal.
func DataDir(configPath string) string {
	return filepath.Dir(ResolveConfigPath(configPath))
}
