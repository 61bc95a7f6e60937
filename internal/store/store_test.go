package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kokistudios/cardbox/internal/deck"
	"github.com/kokistudios/cardbox/internal/savefile"
)

func newHome(t *testing.T) string {
	t.Helper()
	home := filepath.Join(t.TempDir(), ".cardbox")
	if err := Init(home, false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return home
}

func TestInit(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".cardbox")

	if err := Init(home, false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(home, "decks"))
	if err != nil {
		t.Error("expected decks directory to exist")
	} else if !info.IsDir() {
		t.Error("expected decks to be a directory")
	}

	if _, err := os.Stat(filepath.Join(home, "config.yaml")); err != nil {
		t.Error("expected config.yaml to exist")
	}

	// Second init should fail without force
	if err := Init(home, false); err == nil {
		t.Error("expected error on duplicate init")
	}

	if err := Init(home, true); err != nil {
		t.Errorf("expected force init to succeed: %v", err)
	}
}

func TestLoad(t *testing.T) {
	home := newHome(t)

	s, err := Load(home)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Home != home {
		t.Errorf("expected Home=%s, got %s", home, s.Home)
	}
	if s.Config.Deck.UndoWindow != 3*time.Second {
		t.Errorf("expected undo window 3s, got %s", s.Config.Deck.UndoWindow)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing home")
	}
}

func TestPath(t *testing.T) {
	s := &Store{Home: "/tmp/.cardbox"}
	got := s.Path("decks", "abc.json")
	want := filepath.Join("/tmp/.cardbox", "decks", "abc.json")
	if got != want {
		t.Errorf("Path() = %s, want %s", got, want)
	}
}

func TestHomeEnvVar(t *testing.T) {
	t.Setenv("CARDBOX_HOME", "/custom/path")
	if got := Home(); got != "/custom/path" {
		t.Errorf("Home() = %s, want /custom/path", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Deck.DefaultCategory != "Hard" {
		t.Errorf("expected default category Hard, got %s", cfg.Deck.DefaultCategory)
	}
	if cfg.Deck.DefaultTitle != "Cards" {
		t.Errorf("expected default title Cards, got %s", cfg.Deck.DefaultTitle)
	}
	if !cfg.Deck.Autosave {
		t.Error("expected autosave on by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	home := newHome(t)
	os.WriteFile(filepath.Join(home, "config.yaml"), []byte("version: \"1\"\ndeck:\n  undo_window: 5s\n"), 0644)

	s, err := Load(home)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Config.Deck.UndoWindow != 5*time.Second {
		t.Errorf("expected undo window from file, got %s", s.Config.Deck.UndoWindow)
	}
	if s.Config.Deck.DefaultTitle != "Cards" {
		t.Errorf("expected default title, got %s", s.Config.Deck.DefaultTitle)
	}
	if s.Config.Serve.Addr != "127.0.0.1:7420" {
		t.Errorf("expected default addr, got %s", s.Config.Serve.Addr)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	home := newHome(t)
	t.Setenv("CARDBOX_DEFAULT_CATEGORY", "Easy")
	t.Setenv("CARDBOX_AUTOSAVE", "false")

	s, err := Load(home)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Config.Deck.DefaultCategory != "Easy" {
		t.Errorf("expected env override, got %s", s.Config.Deck.DefaultCategory)
	}
	if s.Config.Deck.Autosave {
		t.Error("expected autosave disabled by env")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	home := newHome(t)
	os.WriteFile(filepath.Join(home, "config.yaml"), []byte("deck:\n  default_category: Trivial\n"), 0644)

	if _, err := Load(home); err == nil {
		t.Error("expected validation error")
	}
}

func TestSetConfigValue(t *testing.T) {
	home := newHome(t)
	s, _ := Load(home)

	tests := []struct {
		key, value string
		check      func(Config) bool
	}{
		{"deck.default_title", "Spanish", func(c Config) bool { return c.Deck.DefaultTitle == "Spanish" }},
		{"deck.default_category", "medium", func(c Config) bool { return c.Deck.DefaultCategory == "Medium" }},
		{"deck.undo_window", "10s", func(c Config) bool { return c.Deck.UndoWindow == 10*time.Second }},
		{"deck.autosave", "false", func(c Config) bool { return !c.Deck.Autosave }},
		{"display.word_wrap", "100", func(c Config) bool { return c.Display.WordWrap == 100 }},
		{"display.markdown", "false", func(c Config) bool { return !c.Display.Markdown }},
		{"serve.addr", "localhost:9000", func(c Config) bool { return c.Serve.Addr == "localhost:9000" }},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if err := s.SetConfigValue(tt.key, tt.value); err != nil {
				t.Fatal(err)
			}
			if !tt.check(s.Config) {
				t.Errorf("%s not applied", tt.key)
			}
		})
	}

	// Reload and verify persistence
	s2, err := Load(home)
	if err != nil {
		t.Fatal(err)
	}
	if s2.Config.Deck.UndoWindow != 10*time.Second || s2.Config.Display.WordWrap != 100 {
		t.Errorf("config not persisted, got %+v", s2.Config)
	}
}

func TestSetConfigValue_Invalid(t *testing.T) {
	home := newHome(t)
	s, _ := Load(home)

	tests := []struct{ key, value string }{
		{"nonexistent.key", "value"},
		{"deck.default_title", "  "},
		{"deck.default_category", "Trivial"},
		{"deck.undo_window", "soon"},
		{"deck.undo_window", "-1s"},
		{"deck.autosave", "maybe"},
		{"display.word_wrap", "5"},
		{"serve.addr", "not an addr"},
	}
	for _, tt := range tests {
		if err := s.SetConfigValue(tt.key, tt.value); err == nil {
			t.Errorf("expected error for %s=%q", tt.key, tt.value)
		}
	}
	if s.Config != DefaultConfig() {
		t.Errorf("rejected values must not change the config, got %+v", s.Config)
	}
}

func TestResolveDeck(t *testing.T) {
	home := newHome(t)
	s, _ := Load(home)

	existing := filepath.Join(t.TempDir(), "mine.json")
	os.WriteFile(existing, []byte("{}"), 0644)

	tests := []struct {
		arg  string
		want string
	}{
		{existing, existing},
		{"Spanish: verbs", filepath.Join(home, "decks", "Spanish- verbs.json")},
		{"", filepath.Join(home, "decks", "Cards.json")},
		{"other.json", "other.json"},
	}
	for _, tt := range tests {
		if got := s.ResolveDeck(tt.arg); got != tt.want {
			t.Errorf("ResolveDeck(%q) = %s, want %s", tt.arg, got, tt.want)
		}
	}
}

func TestListDecks(t *testing.T) {
	home := newHome(t)
	s, _ := Load(home)

	doc := savefile.Document{BoxTitle: "Bio", Cards: []deck.Card{{ID: "1", Category: deck.Hard}}}
	if err := savefile.WriteFile(s.ResolveDeck("Bio"), doc); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(s.DecksDir(), "broken.json"), []byte("nope"), 0644)

	decks, err := s.ListDecks()
	if err != nil {
		t.Fatal(err)
	}
	if len(decks) != 2 {
		t.Fatalf("expected 2 decks, got %d", len(decks))
	}
	if decks[0].Title != "Bio" || decks[0].Cards != 1 {
		t.Errorf("unexpected first deck %+v", decks[0])
	}
	if decks[1].Err == nil {
		t.Error("expected broken deck to carry an error")
	}
}

func TestCheckHealth(t *testing.T) {
	home := newHome(t)

	issues := CheckHealth(home)
	if len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}

	// Remove a directory to trigger an issue
	os.RemoveAll(filepath.Join(home, "decks"))
	issues = CheckHealth(home)
	if len(issues) == 0 {
		t.Error("expected issues after removing decks dir")
	}
}

func TestCheckDeckIntegrity(t *testing.T) {
	home := newHome(t)

	if issues := CheckDeckIntegrity(home); len(issues) != 0 {
		t.Errorf("expected no issues for empty decks dir, got %v", issues)
	}

	os.WriteFile(filepath.Join(home, "decks", "bad.json"), []byte(`{"boxTitle": "x"}`), 0644)
	issues := CheckDeckIntegrity(home)
	if len(issues) != 1 || issues[0].Severity != "error" {
		t.Errorf("expected one error, got %v", issues)
	}
}

func TestFixIssues(t *testing.T) {
	home := newHome(t)

	os.RemoveAll(filepath.Join(home, "decks"))

	fixed := FixIssues(home)
	if len(fixed) == 0 {
		t.Error("expected at least one fix")
	}
	if _, err := os.Stat(filepath.Join(home, "decks")); err != nil {
		t.Error("decks dir not recreated")
	}

	tmp := filepath.Join(home, "decks", ".Cards.json.123.tmp")
	os.WriteFile(tmp, []byte("partial"), 0644)
	if issues := CheckHealth(home); len(issues) != 1 {
		t.Errorf("expected a temp file warning, got %v", issues)
	}
	FixIssues(home)
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Error("temp file not removed")
	}
}
