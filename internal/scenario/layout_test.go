package scenario

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hubctl/hubctl/internal/testutil"
)

func TestDir(t *testing.T) {
	tests := []struct {
		doc  string
		want string
	}{
		{doc: `{"index":3,"type":"LOGIC","data":""}`, want: filepath.Join("root", "logic", "3")},
		{doc: `{"index":"Front Porch","type":"BLOCK","data":""}`, want: filepath.Join("root", "block", "front-porch")},
		{doc: `{"index":"g1","type":"GLOBAL","data":""}`, want: filepath.Join("root", "global", "g1")},
	}
	for _, tt := range tests {
		got, err := Dir("root", mustParse(t, tt.doc))
		if err != nil {
			t.Fatalf("Dir(%s): %v", tt.doc, err)
		}
		if got != tt.want {
			t.Errorf("Dir(%s) = %s, want %s", tt.doc, got, tt.want)
		}
	}

	if _, err := Dir("root", mustParse(t, `{"index":"..","type":"LOGIC"}`)); err == nil {
		t.Error("expected error for unusable index")
	}
	if _, err := Dir("root", mustParse(t, `{"index":1,"type":"SCENE"}`)); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestFindDirs(t *testing.T) {
	ws := testutil.NewWorkspace(t).
		WithFile("logic/1/metadata.json", `{}`).
		WithFile("logic/1/code.js", "x").
		WithFile("block/7/metadata.json", `{}`).
		WithFile("block/.7.tmp-123/metadata.json", `{}`).
		WithFile("global/notes.txt", "not a scenario").
		Build()

	dirs, err := FindDirs(ws.Path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{ws.Join("block/7"), ws.Join("logic/1")}
	if !reflect.DeepEqual(dirs, want) {
		t.Errorf("FindDirs = %v, want %v", dirs, want)
	}

	missing, err := FindDirs(ws.Join("nope"))
	if err != nil || len(missing) != 0 {
		t.Errorf("FindDirs(missing) = %v, %v", missing, err)
	}
}

func TestExtractReplacesStaleFiles(t *testing.T) {
	ws := testutil.NewWorkspace(t).
		WithFile("block/7/metadata.json", `{"index":7}`).
		WithFile("block/7/block-9.js", "old();").
		WithFile("block/7/notes.txt", "scratch").
		Build()

	if err := Extract(newScenario(t, "7", "BLOCK", blockData), ws.Join("block/7"), FormatLegacy); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	ws.AssertDirExists("block/7")
	ws.AssertFileNotExists("block/7/block-9.js")
	ws.AssertFileNotExists("block/7/notes.txt")
	ws.AssertFileExists("block/7/" + FileBackup)
	ws.AssertFileEquals("block/7/block-2.js", `log("done");`)
	ws.AssertFileContains("block/7/"+FileMetadata, `"__DATA__"`)
	if !ws.FileExists("block/7/block-1.js") {
		t.Error("block-1.js was not written")
	}
}
