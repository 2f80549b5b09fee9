package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/hubctl/hubctl/internal/atomicfile"
)

type persistedConfig struct {
	DefaultProfile *string            `toml:"default_profile,omitempty"`
	Output         *string            `toml:"output,omitempty"`
	ScenariosDir   *string            `toml:"scenarios_dir,omitempty"`
	StateFile      *string            `toml:"state_file,omitempty"`
	Log            *persistedLog      `toml:"log,omitempty"`
	RPC            *persistedRPC      `toml:"rpc,omitempty"`
	UI             *persistedUI       `toml:"ui,omitempty"`
	Profiles       map[string]Profile `toml:"profiles,omitempty"`
}

type persistedLog struct {
	Level  *string `toml:"level,omitempty"`
	Format *string `toml:"format,omitempty"`
}

type persistedRPC struct {
	CallTimeout *string `toml:"call_timeout,omitempty"`
}

type persistedUI struct {
	Accent    *string `toml:"accent,omitempty"`
	CodeTheme *string `toml:"code_theme,omitempty"`
}

func nonEmptyPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// SaveTo writes the global config to a specific path atomically. Unset
// settings are omitted so the file stays minimal.
func SaveTo(path string, cfg *Config) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	out := persistedConfig{
		DefaultProfile: nonEmptyPtr(cfg.DefaultProfile),
		Output:         nonEmptyPtr(cfg.Output),
		ScenariosDir:   nonEmptyPtr(cfg.ScenariosDir),
		StateFile:      nonEmptyPtr(cfg.StateFile),
	}
	if len(cfg.Profiles) > 0 {
		out.Profiles = cfg.Profiles
	}

	if level, format := nonEmptyPtr(cfg.Log.Level), nonEmptyPtr(cfg.Log.Format); level != nil || format != nil {
		out.Log = &persistedLog{Level: level, Format: format}
	}
	if timeout := nonEmptyPtr(cfg.RPC.CallTimeout); timeout != nil {
		out.RPC = &persistedRPC{CallTimeout: timeout}
	}
	if accent, theme := nonEmptyPtr(cfg.UI.Accent), nonEmptyPtr(cfg.UI.CodeTheme); accent != nil || theme != nil {
		out.UI = &persistedUI{Accent: accent, CodeTheme: theme}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}

	return nil
}
