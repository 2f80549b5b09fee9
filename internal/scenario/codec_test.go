package scenario

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const blockData = `{"targets":[{"type":"code","blockId":1,"code":"if (t > 20) { fan.on(); }"},{"type":"device","id":5},{"type":"code","blockId":2,"code":"log(\"done\");"}],"layout":{"zoom":1.5}}`

func newScenario(t *testing.T, index, typ, data string) *Scenario {
	t.Helper()
	obj := NewObject()
	obj.Set("index", json.RawMessage(index))
	obj.SetString("name", "Evening fan")
	obj.SetString("type", typ)
	obj.SetString("data", data)
	obj.Set("active", json.RawMessage("true"))
	obj.Set("onStart", json.RawMessage("false"))
	s, err := FromObject(obj)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func extractTo(t *testing.T, s *Scenario, format Format) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "scenario")
	if err := Extract(s, dir, format); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return dir
}

func marshal(t *testing.T, s *Scenario) string {
	t.Helper()
	out, err := s.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}

func readDir(t *testing.T, dir string) map[string]string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[string]string)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		out[e.Name()] = string(data)
	}
	return out
}

func TestTextualRoundTrip(t *testing.T) {
	code := "// lights\nif (lux < 40 && home) {\n  light.on();\n}\n"
	for _, typ := range []string{"LOGIC", "GLOBAL"} {
		for _, format := range []Format{FormatCurrent, FormatLegacy} {
			t.Run(typ+"/"+format.String(), func(t *testing.T) {
				s := newScenario(t, "3", typ, code)
				dir := extractTo(t, s, format)

				files := readDir(t, dir)
				if files[FileCode] != code {
					t.Errorf("code.js = %q", files[FileCode])
				}
				if _, ok := files[FileData]; ok {
					t.Error("textual scenario should not have data.json")
				}
				if _, ok := files[FileBackup]; !ok {
					t.Error("missing backup.json")
				}

				got, err := Inject(dir)
				if err != nil {
					t.Fatalf("Inject: %v", err)
				}
				if marshal(t, got) != marshal(t, s) {
					t.Errorf("round trip changed scenario:\ngot  %s\nwant %s", marshal(t, got), marshal(t, s))
				}
				if DetectFormat(dir) != format {
					t.Errorf("DetectFormat = %v, want %v", DetectFormat(dir), format)
				}
			})
		}
	}
}

func TestMetadataPlaceholders(t *testing.T) {
	tests := []struct {
		typ    string
		data   string
		format Format
		want   string
	}{
		{typ: "LOGIC", data: "x()", format: FormatCurrent, want: `"data": {
    "$extracted": "code"
  }`},
		{typ: "LOGIC", data: "x()", format: FormatLegacy, want: `"data": "__CODE__"`},
		{typ: "BLOCK", data: blockData, format: FormatCurrent, want: `"$extracted": "data"`},
		{typ: "BLOCK", data: blockData, format: FormatLegacy, want: `"data": "__DATA__"`},
	}
	for _, tt := range tests {
		t.Run(tt.typ+"/"+tt.format.String(), func(t *testing.T) {
			files, err := Files(newScenario(t, "1", tt.typ, tt.data), tt.format)
			if err != nil {
				t.Fatal(err)
			}
			if meta := string(files[FileMetadata]); !strings.Contains(meta, tt.want) {
				t.Errorf("metadata.json missing %s:\n%s", tt.want, meta)
			}
		})
	}
}

func TestBlockExtraction(t *testing.T) {
	s := newScenario(t, "7", "BLOCK", blockData)
	dir := extractTo(t, s, FormatCurrent)
	files := readDir(t, dir)

	if files["block-1.js"] != "if (t > 20) { fan.on(); }" || files["block-2.js"] != `log("done");` {
		t.Errorf("block files = %q, %q", files["block-1.js"], files["block-2.js"])
	}
	var blocks int
	for name := range files {
		if strings.HasPrefix(name, "block-") {
			blocks++
		}
	}
	if blocks != 2 {
		t.Errorf("expected 2 block files, got %d", blocks)
	}

	var data struct {
		Targets []map[string]interface{} `json:"targets"`
	}
	if err := json.Unmarshal([]byte(files[FileData]), &data); err != nil {
		t.Fatalf("data.json: %v", err)
	}
	want := []interface{}{
		map[string]interface{}{"$extracted": "block", "blockId": float64(1)},
		nil,
		map[string]interface{}{"$extracted": "block", "blockId": float64(2)},
	}
	for i, target := range data.Targets {
		if !reflect.DeepEqual(target["code"], want[i]) {
			t.Errorf("target %d code = %#v, want %#v", i, target["code"], want[i])
		}
	}
}

func TestBlockRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatCurrent, FormatLegacy} {
		t.Run(format.String(), func(t *testing.T) {
			s := newScenario(t, "7", "BLOCK", blockData)
			dir := extractTo(t, s, format)

			got, err := Inject(dir)
			if err != nil {
				t.Fatalf("Inject: %v", err)
			}
			data, err := got.DataString()
			if err != nil {
				t.Fatal(err)
			}
			if data != blockData {
				t.Errorf("data:\ngot  %s\nwant %s", data, blockData)
			}
			if !json.Valid([]byte(data)) {
				t.Error("injected data is not valid JSON")
			}
			if !Compare(got, s) {
				t.Error("round trip should compare equal")
			}
		})
	}
}

func TestLegacyBlockFiles(t *testing.T) {
	files, err := Files(newScenario(t, "7", "BLOCK", blockData), FormatLegacy)
	if err != nil {
		t.Fatal(err)
	}
	data := string(files[FileData])
	if !strings.Contains(data, `"__BLOCK_1__"`) || !strings.Contains(data, `"__BLOCK_2__"`) {
		t.Errorf("legacy data.json lacks sentinels:\n%s", data)
	}
}

func TestInjectEditedBlock(t *testing.T) {
	dir := extractTo(t, newScenario(t, "7", "BLOCK", blockData), FormatCurrent)
	if err := os.WriteFile(filepath.Join(dir, "block-2.js"), []byte("notify('<done>');"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Inject(dir)
	if err != nil {
		t.Fatal(err)
	}
	code := blockCode(got)
	if code["2"] != "notify('<done>');" || code["1"] != "if (t > 20) { fan.on(); }" {
		t.Errorf("block code = %v", code)
	}
}

func TestInjectMissingBlockFile(t *testing.T) {
	dir := extractTo(t, newScenario(t, "7", "BLOCK", blockData), FormatCurrent)
	if err := os.Remove(filepath.Join(dir, "block-2.js")); err != nil {
		t.Fatal(err)
	}
	before := readDir(t, dir)

	_, err := Inject(dir)
	var missing *MissingFileError
	if !errors.As(err, &missing) || missing.Name != "block-2.js" {
		t.Fatalf("expected MissingFileError for block-2.js, got %v", err)
	}
	if !strings.Contains(err.Error(), "block-2.js") {
		t.Errorf("error should name the file: %v", err)
	}
	if after := readDir(t, dir); !reflect.DeepEqual(before, after) {
		t.Error("Inject modified the directory")
	}
}

func TestInjectErrors(t *testing.T) {
	t.Run("missing metadata", func(t *testing.T) {
		var missing *MissingFileError
		if _, err := Inject(t.TempDir()); !errors.As(err, &missing) || missing.Name != FileMetadata {
			t.Errorf("expected MissingFileError for metadata.json, got %v", err)
		}
	})

	t.Run("unparsable metadata", func(t *testing.T) {
		dir := t.TempDir()
		os.WriteFile(filepath.Join(dir, FileMetadata), []byte("{not json"), 0o644)
		var integrity *IntegrityError
		if _, err := Inject(dir); !errors.As(err, &integrity) {
			t.Errorf("expected IntegrityError, got %v", err)
		}
	})

	t.Run("mismatched block placeholder", func(t *testing.T) {
		dir := extractTo(t, newScenario(t, "7", "BLOCK", blockData), FormatCurrent)
		data, _ := os.ReadFile(filepath.Join(dir, FileData))
		edited := strings.Replace(string(data), `"blockId": 2
      }`, `"blockId": 9
      }`, 1)
		if edited == string(data) {
			t.Fatalf("test fixture did not match data.json:\n%s", data)
		}
		os.WriteFile(filepath.Join(dir, FileData), []byte(edited), 0o644)

		var integrity *IntegrityError
		if _, err := Inject(dir); !errors.As(err, &integrity) {
			t.Errorf("expected IntegrityError, got %v", err)
		}
	})

	t.Run("broken data.json", func(t *testing.T) {
		dir := extractTo(t, newScenario(t, "7", "BLOCK", blockData), FormatCurrent)
		os.WriteFile(filepath.Join(dir, FileData), []byte(`{"targets": [`), 0o644)
		var integrity *IntegrityError
		if _, err := Inject(dir); !errors.As(err, &integrity) {
			t.Errorf("expected IntegrityError, got %v", err)
		}
	})
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name string
		typ  string
		data string
	}{
		{name: "unsupported type", typ: "SCENE", data: "x"},
		{name: "block data not json", typ: "BLOCK", data: "x()"},
		{name: "targets not array", typ: "BLOCK", data: `{"targets":{"a":1}}`},
		{name: "duplicate block id", typ: "BLOCK", data: `{"targets":[{"type":"code","blockId":1,"code":"a"},{"type":"code","blockId":1,"code":"b"}]}`},
		{name: "code target without id", typ: "BLOCK", data: `{"targets":[{"type":"code","code":"a"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "s")
			if err := Extract(newScenario(t, "1", tt.typ, tt.data), dir, FormatCurrent); err == nil {
				t.Fatal("expected error")
			}
			if _, err := os.Stat(dir); !os.IsNotExist(err) {
				t.Error("failed extract should not create the directory")
			}
		})
	}

	_, err := Files(newScenario(t, "1", "SCENE", "x"), FormatCurrent)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestSentinelTextIsDataInCurrentFormat(t *testing.T) {
	data := `{"targets":[{"type":"text","code":"__BLOCK_1__"},{"type":"code","blockId":4,"code":"__CODE__"}]}`
	s := newScenario(t, "2", "BLOCK", data)
	dir := extractTo(t, s, FormatCurrent)

	got, err := Inject(dir)
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if out, _ := got.DataString(); out != data {
		t.Errorf("data:\ngot  %s\nwant %s", out, data)
	}
}

func TestHasExtractedCode(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  bool
	}{
		{name: "legacy code sentinel", files: map[string]string{FileMetadata: `{"index":1,"type":"LOGIC","data":"__CODE__"}`}, want: true},
		{name: "legacy data sentinel", files: map[string]string{FileMetadata: `{"index":1,"type":"BLOCK","data":"__DATA__"}`}, want: true},
		{name: "tagged placeholder", files: map[string]string{FileMetadata: `{"index":1,"type":"LOGIC","data":{"$extracted":"code"}}`}, want: true},
		{name: "data.json present", files: map[string]string{FileMetadata: `{"index":1,"type":"BLOCK","data":"x"}`, FileData: `{}`}, want: true},
		{name: "ordinary string", files: map[string]string{FileMetadata: `{"index":1,"type":"LOGIC","data":"run()"}`}, want: false},
		{name: "no metadata", files: map[string]string{FileCode: "run()"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			if got := HasExtractedCode(dir); got != tt.want {
				t.Errorf("HasExtractedCode = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInjectInlineData(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, FileMetadata), []byte(`{"index":1,"type":"LOGIC","data":"run()"}`), 0o644)

	got, err := Inject(dir)
	if err != nil {
		t.Fatal(err)
	}
	if data, _ := got.DataString(); data != "run()" {
		t.Errorf("data = %q", data)
	}
}
