package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hubctl/hubctl/internal/config"
	"github.com/hubctl/hubctl/internal/credentials"
)

func TestProfileLifecycle(t *testing.T) {
	h := newHarness(t)
	h.writeConfig("")

	h.stdin = "s3cret\n"
	data := h.json("profile", "add", "cabin",
		"--url", "ws://cabin.local/ws",
		"--email", "me@example.com",
		"--password-file", "-",
	).MustSucceed(t).DataMap(t)
	if data["name"] != "cabin" || data["has_password"] != true || data["default"] != true {
		t.Errorf("add data = %v", data)
	}

	cfg, err := config.LoadFrom(h.configPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Profiles["cabin"].WSURL != "ws://cabin.local/ws" || cfg.DefaultProfile != "cabin" {
		t.Errorf("saved config = %+v", cfg)
	}
	password, err := credentials.NewStore(h.dir).Password("cabin")
	if err != nil || password != "s3cret" {
		t.Errorf("stored password = %q, %v", password, err)
	}

	h.stdin = ""
	h.json("profile", "add", "office", "--url", "ws://office.local/ws").MustSucceed(t)

	list := h.json("profile", "list").MustSucceed(t).DataList(t)
	if len(list) != 2 {
		t.Fatalf("profiles = %v", list)
	}

	h.json("profile", "use", "office").MustSucceed(t)
	state, err := config.LoadState(filepath.Join(h.dir, "state.toml"))
	if err != nil || state.ActiveProfile != "office" {
		t.Errorf("state = %+v, %v", state, err)
	}

	shown := h.json("profile", "show").MustSucceed(t).DataMap(t)
	if shown["name"] != "office" || shown["active"] != true || shown["has_password"] != false {
		t.Errorf("show data = %v", shown)
	}

	removed := h.json("profile", "remove", "cabin").MustSucceed(t).DataMap(t)
	if removed["was_active"] != false {
		t.Errorf("remove data = %v", removed)
	}
	cfg, _ = config.LoadFrom(h.configPath)
	if _, ok := cfg.Profiles["cabin"]; ok || cfg.DefaultProfile != "" {
		t.Errorf("config after remove = %+v", cfg)
	}
	if _, err := credentials.NewStore(h.dir).Password("cabin"); err == nil {
		t.Error("password survived remove")
	}
}

func TestProfileRemoveClearsActiveProfile(t *testing.T) {
	h := newHarness(t)
	statePath := filepath.Join(h.dir, "state.toml")

	h.json("profile", "add", "office", "--url", "ws://office.local/ws").MustSucceed(t)
	h.json("profile", "use", "office").MustSucceed(t)

	removed := h.json("profile", "remove", "office").MustSucceed(t).DataMap(t)
	if removed["removed"] != "office" || removed["was_active"] != true {
		t.Errorf("remove data = %v", removed)
	}
	state, err := config.LoadState(statePath)
	if err != nil || state.ActiveProfile != "" {
		t.Fatalf("state = %+v, %v", state, err)
	}

	// With the stale selection gone the last profile is picked again.
	shown := h.json("profile", "show").MustSucceed(t).DataMap(t)
	if shown["name"] != "home" || shown["active"] != false {
		t.Errorf("show data = %v", shown)
	}
}

func TestProfileUseRejectsNewerState(t *testing.T) {
	h := newHarness(t)
	statePath := filepath.Join(h.dir, "state.toml")
	if err := os.WriteFile(statePath, []byte("version = 9\nactive_profile = \"home\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	h.json("profile", "use", "home").MustFail(t, ErrConfigInvalid)
	data, err := os.ReadFile(statePath)
	if err != nil || !strings.Contains(string(data), "version = 9") {
		t.Errorf("state file was rewritten: %q, %v", data, err)
	}
}

func TestProfileAddUpdatesExisting(t *testing.T) {
	h := newHarness(t)

	data := h.json("profile", "add", "home", "--serial", "Z9").MustSucceed(t).DataMap(t)
	if data["serial"] != "Z9" || data["email"] != "me@example.com" || data["ws_url"] != h.hub.URL {
		t.Errorf("data = %v", data)
	}
}

func TestProfileAddRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing url", []string{"profile", "add", "new"}, "--url"},
		{"bad scheme", []string{"profile", "add", "new", "--url", "http://hub.local"}, "ws://"},
		{"missing password file", []string{"profile", "add", "new", "--url", "ws://x/ws", "--password-file", "/nope"}, "reading password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			res := h.json(tt.args...).MustFail(t, ErrInvalidInput)
			if !strings.Contains(res.Error.Message, tt.want) {
				t.Errorf("message %q does not mention %q", res.Error.Message, tt.want)
			}
			cfg, err := config.LoadFrom(h.configPath)
			if err != nil {
				t.Fatal(err)
			}
			if _, ok := cfg.Profiles["new"]; ok {
				t.Error("rejected profile was saved")
			}
		})
	}
}

func TestProfileUseUnknown(t *testing.T) {
	h := newHarness(t)
	h.json("profile", "use", "nowhere").MustFail(t, ErrProfileNotFound)
	h.json("profile", "remove", "nowhere").MustFail(t, ErrProfileNotFound)
}

func TestProfileListHuman(t *testing.T) {
	h := newHarness(t)
	out, _, code := h.run("profile", "list")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "home") || !strings.Contains(out, h.hub.URL) {
		t.Errorf("output = %q", out)
	}
}
