package schema

import (
	"errors"
	"strings"
	"testing"
)

func TestBundled(t *testing.T) {
	doc, err := Bundled()
	if err != nil {
		t.Fatalf("Bundled: %v", err)
	}
	for _, name := range []string{"hub.info", "device.get", "scenario.list"} {
		if _, ok := doc.Methods[name]; !ok {
			t.Errorf("bundled schema has no %s", name)
		}
	}
	if invalid := NewIndex(doc).Invalid(); len(invalid) != 0 {
		t.Errorf("bundled schema has invalid methods: %v", invalid)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
		check   func(t *testing.T, doc *Document)
	}{
		{
			name:  "name and category from key",
			input: `{"methods": {"light.toggle": {"description": "Toggles"}}}`,
			check: func(t *testing.T, doc *Document) {
				m := doc.Methods["light.toggle"]
				if m.Name != "light.toggle" || m.Category != "light" || m.Action() != "toggle" {
					t.Errorf("method = %+v", m)
				}
			},
		},
		{
			name:  "explicit category wins",
			input: `{"methods": {"light.toggle": {"category": "lamps"}}}`,
			check: func(t *testing.T, doc *Document) {
				if got := doc.Methods["light.toggle"].Category; got != "lamps" {
					t.Errorf("category = %q", got)
				}
			},
		},
		{
			name:  "null method",
			input: `{"version": "7", "methods": {"hub.ping": null}}`,
			check: func(t *testing.T, doc *Document) {
				if doc.Version != "7" || doc.Methods["hub.ping"] == nil || doc.Methods["hub.ping"].Name != "hub.ping" {
					t.Errorf("doc = %+v", doc)
				}
			},
		},
		{name: "no methods", input: `{"version": "7"}`, wantErr: "no methods"},
		{name: "empty methods", input: `{"version": "7", "methods": {}}`, wantErr: "no methods"},
		{name: "not json", input: `methods:`, wantErr: "failed to parse schema"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.input))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Parse error = %v, want %q", err, tt.wantErr)
				}
				if !errors.Is(err, ErrInvalidSchema) {
					t.Errorf("Parse error %v does not wrap ErrInvalidSchema", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			tt.check(t, doc)
		})
	}
}
