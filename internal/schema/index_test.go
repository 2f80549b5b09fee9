package schema

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseDefaultsNameAndCategory(t *testing.T) {
	doc, err := Parse([]byte(`{"methods": {"device.get": {"description": "Get"}, "ping": {}}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	method := doc.Methods["device.get"]
	if method.Name != "device.get" || method.Category != "device" {
		t.Errorf("got name=%q category=%q", method.Name, method.Category)
	}
	if method.Action() != "get" {
		t.Errorf("Action() = %q, want get", method.Action())
	}
	if doc.Methods["ping"].Category != "ping" {
		t.Errorf("category = %q, want ping", doc.Methods["ping"].Category)
	}
}

func TestParseRejectsMissingMethods(t *testing.T) {
	if _, err := Parse([]byte(`{"version": "1"}`)); err == nil {
		t.Fatal("expected error for document without methods")
	}
	if _, err := Parse([]byte(`{`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestIndex(t *testing.T) {
	doc, err := Parse([]byte(`{"methods": {
		"device.set": {"params": {"type": "object", "properties": {"id": {"type": "string"}}}},
		"device.get": {},
		"hub.info": {},
		"hub.broken": {"params": {"type": "string", "properties": {"x": {"type": "string"}}}}
	}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	idx := NewIndex(doc)

	if got, want := idx.Categories(), []string{"device", "hub"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Categories() = %v, want %v", got, want)
	}

	var names []string
	for _, m := range idx.MethodsByCategory("device") {
		names = append(names, m.Name)
	}
	if want := []string{"device.get", "device.set"}; !reflect.DeepEqual(names, want) {
		t.Errorf("MethodsByCategory(device) = %v, want %v", names, want)
	}

	if _, err := idx.Method("device.set"); err != nil {
		t.Errorf("Method(device.set): %v", err)
	}
	if _, err := idx.Method("device.nope"); !errors.Is(err, ErrMethodNotFound) {
		t.Errorf("expected ErrMethodNotFound, got %v", err)
	}

	invalid := idx.Invalid()
	if _, ok := invalid["hub.broken"]; !ok {
		t.Errorf("expected hub.broken to be rejected, got %v", invalid)
	}
	if idx.Len() != 3 {
		t.Errorf("Len() = %d, want 3", idx.Len())
	}
}

func TestShapeValidate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"object", `{"type": "object", "properties": {"a": {"type": "string"}}, "required": ["a"]}`, false},
		{"leaf with properties", `{"type": "object", "properties": {"a": {"type": "string", "properties": {"b": {"type": "string"}}}}}`, true},
		{"missing type", `{"type": "object", "properties": {"a": {}}}`, true},
		{"unknown required", `{"type": "object", "properties": {"a": {"type": "string"}}, "required": ["b"]}`, true},
		{"free-form object", `{"type": "object", "required": ["anything"]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mustShape(t, tt.raw).Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBundledSchema(t *testing.T) {
	doc, err := Bundled()
	if err != nil {
		t.Fatalf("Bundled(): %v", err)
	}
	idx := NewIndex(doc)
	if len(idx.Invalid()) != 0 {
		t.Errorf("bundled schema has invalid methods: %v", idx.Invalid())
	}
	if _, err := idx.Method("scenario.get"); err != nil {
		t.Errorf("bundled schema missing scenario.get: %v", err)
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Returns the **scenario** with the given index.", "Returns the scenario with the given index."},
		{"Replaces a scenario.\n\nThe `index` field selects it.", "Replaces a scenario."},
		{"Spans\ntwo lines.", "Spans two lines."},
		{"# Heading only", "Heading only"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Summary(tt.in); got != tt.want {
			t.Errorf("Summary(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
