package params

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hubctl/hubctl/internal/schema"
)

func mustMethod(t *testing.T, raw string) *schema.Method {
	t.Helper()
	var shape schema.Shape
	if err := json.Unmarshal([]byte(raw), &shape); err != nil {
		t.Fatalf("failed to parse shape: %v", err)
	}
	return &schema.Method{Name: "test.method", Category: "test", Params: &shape}
}

func asJSON(t *testing.T, v interface{}) string {
	t.Helper()
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(out)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "params.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestBuildPrecedence(t *testing.T) {
	method := mustMethod(t, `{
		"type": "object",
		"properties": {"a": {"type": "integer"}, "b": {"type": "integer"}}
	}`)

	got, err := Build(Options{
		Params: `{"a": 1, "b": 2}`,
		File:   writeFile(t, `{"b": 3}`),
		Flags:  map[string]Flag{"a": {Name: "a", Value: "9"}},
	}, method, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := `{"a":9,"b":3}`; asJSON(t, got) != want {
		t.Errorf("got %s, want %s", asJSON(t, got), want)
	}
}

func TestBuildFileOverridesInlineAtTopLevelOnly(t *testing.T) {
	method := mustMethod(t, `{"type": "object", "properties": {}}`)

	got, err := Build(Options{
		Params: `{"state": {"on": true, "level": 10}, "id": "x"}`,
		File:   writeFile(t, "{\n  // comments are allowed\n  \"state\": {\"level\": 20},\n}"),
	}, method, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := `{"id":"x","state":{"level":20}}`; asJSON(t, got) != want {
		t.Errorf("got %s, want %s", asJSON(t, got), want)
	}
}

func TestBuildFlagsOverrideAtLeafLevel(t *testing.T) {
	method := mustMethod(t, `{
		"type": "object",
		"properties": {
			"state": {
				"type": "object",
				"properties": {"on": {"type": "boolean"}, "level": {"type": "integer"}}
			}
		}
	}`)

	got, err := Build(Options{
		Params: `{"state": {"on": false, "level": 10, "extra": "kept"}}`,
		Flags: map[string]Flag{
			"state.on":    {Name: "on", Value: true},
			"state.level": {Name: "level", Value: "42"},
		},
	}, method, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := `{"state":{"extra":"kept","level":42,"on":true}}`; asJSON(t, got) != want {
		t.Errorf("got %s, want %s", asJSON(t, got), want)
	}
}

func TestBuildPositionalMapping(t *testing.T) {
	method := mustMethod(t, `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"scenario": {
				"type": "object",
				"properties": {
					"run": {
						"type": "object",
						"properties": {"index": {"type": "number"}},
						"required": ["index"]
					}
				}
			}
		},
		"required": ["name"]
	}`)

	got, err := Build(Options{}, method, []string{"abc", "5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got["name"] != "abc" {
		t.Errorf("name = %v, want abc", got["name"])
	}
	run := got["scenario"].(map[string]interface{})["run"].(map[string]interface{})
	if run["index"] != int64(5) {
		t.Errorf("scenario.run.index = %#v, want int64(5)", run["index"])
	}
}

func TestBuildPositionalOverridesFlagsAndJSON(t *testing.T) {
	method := mustMethod(t, `{
		"type": "object",
		"properties": {"id": {"type": "string"}},
		"required": ["id"]
	}`)

	got, err := Build(Options{Params: `{"id": "from-json"}`}, method, []string{"from-arg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["id"] != "from-arg" {
		t.Errorf("id = %v, want from-arg", got["id"])
	}
}

func TestBuildErrors(t *testing.T) {
	method := mustMethod(t, `{
		"type": "object",
		"properties": {"count": {"type": "integer"}, "index": {"type": "integer"}},
		"required": ["index"]
	}`)

	tests := []struct {
		name      string
		opts      Options
		args      []string
		wantParam string
	}{
		{name: "malformed inline JSON", opts: Options{Params: `{"a":`}, wantParam: "--params"},
		{name: "inline JSON not an object", opts: Options{Params: `[1, 2]`}, wantParam: "--params"},
		{name: "missing file", opts: Options{File: filepath.Join(t.TempDir(), "missing.json")}, wantParam: "--file"},
		{name: "malformed file", opts: Options{File: writeFile(t, `nope`)}, wantParam: "--file"},
		{name: "non-numeric flag", opts: Options{Flags: map[string]Flag{"count": {Name: "count", Value: "ten"}}}, wantParam: "--count"},
		{name: "non-numeric positional", args: []string{"x"}, wantParam: "index"},
		{name: "too many positional", args: []string{"1", "2"}, wantParam: "arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.opts, method, tt.args)
			var inputErr *InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("expected InputError, got %v", err)
			}
			if inputErr.Param != tt.wantParam {
				t.Errorf("Param = %q, want %q", inputErr.Param, tt.wantParam)
			}
			if !strings.Contains(err.Error(), tt.wantParam) {
				t.Errorf("error %q does not name %q", err.Error(), tt.wantParam)
			}
		})
	}
}

func TestBuildSkeleton(t *testing.T) {
	method := mustMethod(t, `{
		"type": "object",
		"properties": {
			"filter": {
				"type": "object",
				"properties": {
					"range": {"type": "object"},
					"optional": {"type": "object"},
					"label": {"type": "string"}
				},
				"required": ["range", "label"]
			},
			"options": {"type": "object"},
			"mode": {"type": "boolean"}
		},
		"required": ["filter", "mode"]
	}`)

	got, err := Build(Options{}, method, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := `{"filter":{"range":{}}}`; asJSON(t, got) != want {
		t.Errorf("got %s, want %s", asJSON(t, got), want)
	}
}

func TestBuildWithoutParams(t *testing.T) {
	got, err := Build(Options{}, &schema.Method{Name: "hub.info"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty params, got %v", got)
	}
}

func TestBuildKeepsLargeIntegers(t *testing.T) {
	method := mustMethod(t, `{"type": "object", "properties": {}}`)
	got, err := Build(Options{Params: `{"id": 9007199254740993}`}, method, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := `{"id":9007199254740993}`; asJSON(t, got) != want {
		t.Errorf("got %s, want %s", asJSON(t, got), want)
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		raw     string
		typ     schema.ParamType
		want    interface{}
		wantErr bool
	}{
		{"42", schema.TypeInteger, int64(42), false},
		{"-7", schema.TypeNumber, int64(-7), false},
		{"1.5", schema.TypeNumber, 1.5, false},
		{"1.5", schema.TypeInteger, nil, true},
		{"abc", schema.TypeNumber, nil, true},
		{"hello", schema.TypeString, "hello", false},
		{"true", schema.TypeBoolean, true, false},
	}

	for _, tt := range tests {
		got, err := Coerce(tt.raw, tt.typ)
		if (err != nil) != tt.wantErr {
			t.Errorf("Coerce(%q, %s) error = %v, wantErr %v", tt.raw, tt.typ, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("Coerce(%q, %s) = %#v, want %#v", tt.raw, tt.typ, got, tt.want)
		}
	}
}
