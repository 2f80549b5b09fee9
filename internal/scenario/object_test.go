package scenario

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestObjectKeepsOrder(t *testing.T) {
	obj, err := ParseObject([]byte(`{"z": 1, "a": {"nested": [1, 2]}, "m": "<b>&</b>"}`))
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"z", "a", "m"}; !reflect.DeepEqual(obj.Keys(), want) {
		t.Errorf("Keys = %v, want %v", obj.Keys(), want)
	}

	out, err := obj.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"z":1,"a":{"nested":[1,2]},"m":"<b>&</b>"}`; string(out) != want {
		t.Errorf("MarshalJSON = %s, want %s", out, want)
	}
}

func TestObjectEditing(t *testing.T) {
	obj := NewObject()
	obj.Set("a", json.RawMessage("1"))
	obj.SetString("b", "two")
	obj.Set("c", json.RawMessage("3"))
	obj.Set("a", json.RawMessage("10"))
	obj.Delete("b")
	obj.Delete("missing")

	clone := obj.Clone()
	clone.Set("d", json.RawMessage("4"))

	out, _ := obj.MarshalJSON()
	if string(out) != `{"a":10,"c":3}` {
		t.Errorf("obj = %s", out)
	}
	if !clone.Has("d") || obj.Has("d") {
		t.Error("clone should not share state")
	}
}

func TestParseObjectRejects(t *testing.T) {
	for _, input := range []string{`[]`, `"x"`, `{"a":1} {"b":2}`, `{"a":}`, ``} {
		if _, err := ParseObject([]byte(input)); err == nil {
			t.Errorf("ParseObject(%q) should fail", input)
		}
	}
}

func TestParseScenario(t *testing.T) {
	s, err := Parse([]byte(`{"index":"porch","name":"Porch","type":"GLOBAL","data":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Index() != "porch" || s.IndexKey() != `"porch"` || s.Label() != "Porch (porch)" {
		t.Errorf("index=%q key=%q label=%q", s.Index(), s.IndexKey(), s.Label())
	}
	if typ, err := s.Type(); err != nil || typ != TypeGlobal {
		t.Errorf("Type = %v, %v", typ, err)
	}

	if _, err := Parse([]byte(`{"name":"no index"}`)); err == nil {
		t.Error("scenario without index should fail")
	}
}

func TestIndexParam(t *testing.T) {
	tests := map[string]string{
		"3":         `3`,
		" 12 ":      `12`,
		"porch":     `"porch"`,
		`"3"`:       `"3"`,
		"front <1>": `"front <1>"`,
	}
	for input, want := range tests {
		if got := string(IndexParam(input)); got != want {
			t.Errorf("IndexParam(%q) = %s, want %s", input, got, want)
		}
	}
}
