package cli

import (
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/hubctl/hubctl/internal/schemacache"
	"github.com/hubctl/hubctl/internal/testutil"
)

const gardenSchema = `{
  "version": "garden-1",
  "methods": {
    "garden.water": {
      "description": "Waters a zone.\n\nRuns the valve for the given number of minutes.",
      "params": {
        "type": "object",
        "properties": {
          "zone": {"type": "string", "description": "Zone name", "enum": ["north", "south"]},
          "minutes": {"type": "integer", "description": "Run time"}
        },
        "required": ["zone"]
      }
    },
    "profile.reset": {
      "description": "Resets the hub user profile."
    },
    "garden.broken": {
      "params": {"type": "object", "properties": {"a": {"type": "string"}, "x": {"type": "object", "properties": {"a": {"type": "string"}}}, "x-a": {"type": "string"}}}
    }
  }
}`

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func serveSchema(h *harness) {
	h.hub.Handle("rpc.schema", func(json.RawMessage) (interface{}, error) {
		return json.RawMessage(gardenSchema), nil
	})
}

func TestSchemaRefreshReplacesBundledSchema(t *testing.T) {
	h := newHarness(t)
	serveSchema(h)
	h.hub.Handle("garden.water", func(json.RawMessage) (interface{}, error) {
		return map[string]bool{"started": true}, nil
	})

	// The bundled schema has no garden category.
	h.json("garden", "water", "north").MustFail(t, ErrInvalidInput)

	data := h.json("schema", "refresh").MustSucceed(t).DataMap(t)
	if data["profile"] != "home" || data["version"] != "garden-1" || data["methods"] != float64(3) {
		t.Errorf("refresh data = %v", data)
	}

	cache, err := schemacache.Open(filepath.Join(h.dir, schemacache.FileName))
	if err != nil {
		t.Fatal(err)
	}
	entry, err := cache.Load("home")
	cache.Close()
	if err != nil || entry.Document.Version != "garden-1" {
		t.Fatalf("cached entry = %+v, %v", entry, err)
	}

	h.json("garden", "water", "north", "--minutes", "15").MustSucceed(t)
	testutil.AssertJSONEqual(t, string(h.hub.CallsTo("garden.water")[0].Params),
		`{"zone":"north","minutes":15}`)

	// The bundled device category is gone with the hub's own schema.
	h.json("device", "get", "x").MustFail(t, ErrInvalidInput)

	h.json("schema", "clear").MustSucceed(t)
	h.json("garden", "water", "north").MustFail(t, ErrInvalidInput)
}

func TestShadowedAndRejectedMethods(t *testing.T) {
	h := newHarness(t)
	serveSchema(h)
	h.json("schema", "refresh").MustSucceed(t)

	res := h.json("schema", "categories").MustSucceed(t)
	var shadowed bool
	for _, w := range res.Warnings {
		if w.Code == WarnCategoryShadow && strings.Contains(w.Message, "profile") {
			shadowed = true
		}
		if w.Code == WarnBundledSchema {
			t.Errorf("unexpected bundled schema warning with a cached schema")
		}
	}
	if !shadowed {
		t.Errorf("warnings = %v, want a shadowed profile category", res.Warnings)
	}

	// The built-in profile command still wins.
	h.json("profile", "list").MustSucceed(t)

	h.hub.Handle("profile.reset", func(json.RawMessage) (interface{}, error) {
		return map[string]bool{"reset": true}, nil
	})
	h.json("call", "profile.reset").MustSucceed(t)

	methods := h.json("schema", "methods", "garden").MustSucceed(t)
	var rejected bool
	for _, w := range methods.Warnings {
		if w.Code == WarnMethodRejected && strings.Contains(w.Message, "garden.broken") {
			rejected = true
		}
	}
	if !rejected {
		t.Errorf("warnings = %v, want garden.broken rejected", methods.Warnings)
	}

	detail := h.json("schema", "show", "garden.broken").MustSucceed(t).DataMap(t)
	if detail["rejected"] == nil {
		t.Errorf("detail = %v, want a rejection reason", detail)
	}
}

func TestSchemaBundledWarning(t *testing.T) {
	h := newHarness(t)
	res := h.json("schema", "categories").MustSucceed(t)
	if len(res.Warnings) != 1 || res.Warnings[0].Code != WarnBundledSchema {
		t.Errorf("warnings = %v", res.Warnings)
	}
	names := map[string]bool{}
	for _, item := range res.DataList(t) {
		names[item.(map[string]interface{})["name"].(string)] = true
	}
	for _, want := range []string{"device", "hub", "scenario"} {
		if !names[want] {
			t.Errorf("category %s missing from %v", want, names)
		}
	}
}

func TestSchemaShow(t *testing.T) {
	h := newHarness(t)

	detail := h.json("schema", "show", "device.set").MustSucceed(t).DataMap(t)
	if detail["usage"] != "hubctl device set <id>" {
		t.Errorf("usage = %v", detail["usage"])
	}
	args, _ := detail["args"].([]interface{})
	if len(args) != 1 {
		t.Errorf("args = %v", detail["args"])
	}

	out, _, code := h.run("schema", "show", "device.set")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	out = ansiEscape.ReplaceAllString(out, "")
	for _, want := range []string{"device.set", "Changes", "brightness"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered output missing %q:\n%s", want, out)
		}
	}

	h.json("schema", "show", "device.explode").MustFail(t, ErrMethodNotFound)
	h.json("schema", "methods", "nowhere").MustFail(t, ErrMethodNotFound)
}

func TestSchemaRefreshRejectsEmptySchema(t *testing.T) {
	h := newHarness(t)
	h.hub.Handle("rpc.schema", func(json.RawMessage) (interface{}, error) {
		return json.RawMessage(`{"version": "empty", "methods": {}}`), nil
	})

	h.json("schema", "refresh").MustFail(t, ErrSchemaInvalid)

	// The bundled method commands survive.
	h.hub.Handle("device.get", func(json.RawMessage) (interface{}, error) {
		return map[string]string{"id": "x"}, nil
	})
	h.json("device", "get", "x").MustSucceed(t)
	res := h.json("schema", "categories").MustSucceed(t)
	if len(res.Warnings) != 1 || res.Warnings[0].Code != WarnBundledSchema {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestSchemaRefreshNeedsProfile(t *testing.T) {
	h := newHarness(t)
	h.writeConfig("")
	h.json("schema", "refresh").MustFail(t, ErrProfileNotFound)
}
