package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
// - Default (white/black): Primary text
// - Accent (soft purple #A78BFA, or the configured accent): Highlights, paths, names
// - Muted (gray): Secondary info, hints
// - No colored success/error/warning - use unicode symbols only

const defaultAccent = "#A78BFA"

var (
	// Accent style for file paths, method names, highlights
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color(defaultAccent))

	// Muted style for secondary info and hints
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))

	// Bold style for emphasis
	Bold = lipgloss.NewStyle().Bold(true)

	// accentColor is the configured accent, empty when disabled.
	accentColor = defaultAccent
)

// accentOff lists the [ui] accent values that turn the accent off.
var accentOff = map[string]bool{"none": true, "off": true, "false": true}

// ConfigureTheme applies the [ui] accent setting. An empty or unrecognized
// value keeps the default accent; "none" and "off" turn it off.
func ConfigureTheme(accent string) {
	setAccent(resolveAccent(accent))
}

// AccentColor returns the active accent color.
func AccentColor() (string, bool) {
	return accentColor, accentColor != ""
}

func resolveAccent(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if accentOff[v] {
		return ""
	}
	if color, ok := parseColor(v); ok {
		return color
	}
	return defaultAccent
}

func setAccent(color string) {
	accentColor = color
	if color == "" {
		Accent = lipgloss.NewStyle()
		return
	}
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// parseColor accepts ANSI codes 0-255 and #RGB or #RRGGBB hex.
func parseColor(v string) (string, bool) {
	if hex, ok := strings.CutPrefix(v, "#"); ok {
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return "", false
		}
		if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
			return "", false
		}
		return "#" + hex, true
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 255 {
		return "", false
	}
	return strconv.Itoa(n), true
}
