package ui

import (
	"regexp"
	"strings"
	"testing"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

const methodDoc = "# device.set\n\nChanges the state of a **device**.\n\n" +
	"## Usage\n\n```sh\nhubctl device set <id> --on\n```\n\n" +
	"## Flags\n\n| Flag | Type | Description |\n|---|---|---|\n| `--on` | bool | Switch on |\n"

func TestRenderMarkdownMethodDoc(t *testing.T) {
	out, err := RenderMarkdown(methodDoc, 80)
	if err != nil {
		t.Fatalf("RenderMarkdown() error = %v", err)
	}
	plain := ansiEscape.ReplaceAllString(out, "")
	for _, want := range []string{"device.set", "Changes the state of a device.", "hubctl device set <id> --on", "--on", "Switch on"} {
		if !strings.Contains(plain, want) {
			t.Errorf("rendered doc is missing %q:\n%s", want, plain)
		}
	}
	if !strings.HasSuffix(out, "\n") || strings.HasSuffix(out, "\n\n") {
		t.Errorf("expected a single trailing newline, got %q", out[max(0, len(out)-10):])
	}
}

func TestRenderMarkdownDefaultsWidth(t *testing.T) {
	long := strings.Repeat("scenario ", 40)
	out, err := RenderMarkdown(long, 0)
	if err != nil {
		t.Fatalf("RenderMarkdown() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(ansiEscape.ReplaceAllString(out, "")), "\n")
	if len(lines) < 3 {
		t.Fatalf("expected the paragraph to wrap, got %d lines", len(lines))
	}
	limit := DefaultTermWidth + 2*MarkdownRenderMargin
	for _, line := range lines {
		if n := len(strings.TrimRight(line, " ")); n > limit {
			t.Fatalf("line of %d columns exceeds %d: %q", n, limit, line)
		}
	}
}

func TestConfigureMarkdownCodeTheme(t *testing.T) {
	tests := []struct {
		name  string
		theme string
		want  string
	}{
		{name: "unset", theme: "", want: defaultCodeTheme},
		{name: "known theme", theme: "dracula", want: "dracula"},
		{name: "case and spacing", theme: " GitHub ", want: "github"},
		{name: "unknown falls back", theme: "hub-dark", want: defaultCodeTheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := markdownCodeTheme
			t.Cleanup(func() { markdownCodeTheme = orig })

			ConfigureMarkdownCodeTheme(tt.theme)
			if got := markdownStyle().CodeBlock.Theme; got != tt.want {
				t.Fatalf("code block theme = %q, want %q", got, tt.want)
			}
			if _, err := RenderMarkdown("```sh\nhubctl scenarios pull --all\n```", 80); err != nil {
				t.Fatalf("RenderMarkdown() error = %v", err)
			}
		})
	}
}
