package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/kokistudios/cardbox/internal/deck"
	"github.com/kokistudios/cardbox/internal/savefile"
)

// DeckConfig holds defaults for new and opened decks.
type DeckConfig struct {
	DefaultTitle    string        `yaml:"default_title" env:"CARDBOX_DEFAULT_TITLE" validate:"required"`
	DefaultCategory string        `yaml:"default_category" env:"CARDBOX_DEFAULT_CATEGORY" validate:"oneof=Hard Medium Easy"`
	UndoWindow      time.Duration `yaml:"undo_window" env:"CARDBOX_UNDO_WINDOW" validate:"gt=0"`
	Autosave        bool          `yaml:"autosave" env:"CARDBOX_AUTOSAVE"`
}

// DisplayConfig holds terminal rendering settings.
type DisplayConfig struct {
	WordWrap int  `yaml:"word_wrap" env:"CARDBOX_WORD_WRAP" validate:"gte=20,lte=400"`
	Markdown bool `yaml:"markdown" env:"CARDBOX_MARKDOWN"`
}

// ServeConfig holds HTTP API settings.
type ServeConfig struct {
	Addr string `yaml:"addr" env:"CARDBOX_SERVE_ADDR" validate:"required,hostname_port"`
}

// Config holds cardbox configuration.
type Config struct {
	Version string        `yaml:"version"`
	Deck    DeckConfig    `yaml:"deck"`
	Display DisplayConfig `yaml:"display"`
	Serve   ServeConfig   `yaml:"serve"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Version: "1",
		Deck: DeckConfig{
			DefaultTitle:    "Cards",
			DefaultCategory: string(deck.Hard),
			UndoWindow:      deck.DefaultUndoWindow,
			Autosave:        true,
		},
		Display: DisplayConfig{
			WordWrap: 80,
			Markdown: true,
		},
		Serve: ServeConfig{
			Addr: "127.0.0.1:7420",
		},
	}
}

var validate = validator.New()

// Validate checks every value against its allowed range.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config value %s=%v (%s)", fe.Namespace(), fe.Value(), fe.Tag())
		}
		return err
	}
	return nil
}

// DeckOptions translates the config into deck options.
func (c Config) DeckOptions() []deck.Option {
	return []deck.Option{
		deck.WithDefaultCategory(deck.Category(c.Deck.DefaultCategory)),
		deck.WithUndoWindow(c.Deck.UndoWindow),
	}
}

// Store represents a loaded CARDBOX_HOME.
type Store struct {
	Home   string
	Config Config
}

// Issue represents a health check finding.
type Issue struct {
	Severity string // "warning" or "error"
	Message  string
}

// Home returns the CARDBOX_HOME path, respecting the CARDBOX_HOME env var.
func Home() string {
	if h := os.Getenv("CARDBOX_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".cardbox")
	}
	return filepath.Join(home, ".cardbox")
}

// Init creates the CARDBOX_HOME directory structure.
func Init(home string, force bool) error {
	if _, err := os.Stat(home); err == nil && !force {
		return fmt.Errorf("CARDBOX_HOME already exists at %s (use --force to reinitialize)", home)
	}

	if err := os.MkdirAll(filepath.Join(home, "decks"), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", home, err)
	}
	return writeConfig(home, DefaultConfig())
}

func writeConfig(home string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	cfgPath := filepath.Join(home, "config.yaml")
	if err := os.WriteFile(cfgPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Load reads and validates an existing CARDBOX_HOME. Missing config fields
// are filled from defaults and CARDBOX_* environment variables override the
// file.
func Load(home string) (*Store, error) {
	cfgPath := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(cfgPath); err != nil {
		return nil, fmt.Errorf("cannot read CARDBOX_HOME config at %s: %w", cfgPath, err)
	}
	cfg := DefaultConfig()
	if err := cleanenv.ReadConfig(cfgPath, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config.yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{Home: home, Config: cfg}, nil
}

// SaveConfig writes the current config to config.yaml.
func (s *Store) SaveConfig() error {
	return writeConfig(s.Home, s.Config)
}

// ConfigKeys lists the keys accepted by SetConfigValue.
var ConfigKeys = []string{
	"deck.default_title",
	"deck.default_category",
	"deck.undo_window",
	"deck.autosave",
	"display.word_wrap",
	"display.markdown",
	"serve.addr",
}

// SetConfigValue sets a config value by dot-path key (e.g. "deck.autosave").
func (s *Store) SetConfigValue(key, value string) error {
	next := s.Config
	switch key {
	case "deck.default_title":
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("deck.default_title must not be empty")
		}
		next.Deck.DefaultTitle = value
	case "deck.default_category":
		c, err := deck.ParseCategory(value)
		if err != nil {
			return fmt.Errorf("deck.default_category must be one of Hard, Medium, Easy")
		}
		next.Deck.DefaultCategory = string(c)
	case "deck.undo_window":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("deck.undo_window must be a positive duration such as 3s")
		}
		next.Deck.UndoWindow = d
	case "deck.autosave":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("deck.autosave must be true or false")
		}
		next.Deck.Autosave = b
	case "display.word_wrap":
		n, err := strconv.Atoi(value)
		if err != nil || n < 20 || n > 400 {
			return fmt.Errorf("display.word_wrap must be an integer between 20 and 400")
		}
		next.Display.WordWrap = n
	case "display.markdown":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("display.markdown must be true or false")
		}
		next.Display.Markdown = b
	case "serve.addr":
		next.Serve.Addr = value
	default:
		return fmt.Errorf("unknown config key: %s\nValid keys: %s", key, strings.Join(ConfigKeys, ", "))
	}
	if err := next.Validate(); err != nil {
		return err
	}
	s.Config = next
	return s.SaveConfig()
}

// Path resolves a path within CARDBOX_HOME.
func (s *Store) Path(parts ...string) string {
	all := append([]string{s.Home}, parts...)
	return filepath.Join(all...)
}

// DecksDir is where decks created by name live.
func (s *Store) DecksDir() string {
	return s.Path("decks")
}

// ResolveDeck maps a CLI argument to a deck file. An existing path is used as
// is; anything else names a deck inside decks/.
func (s *Store) ResolveDeck(arg string) string {
	if arg == "" {
		arg = s.Config.Deck.DefaultTitle
	}
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return arg
	}
	if strings.ContainsRune(arg, os.PathSeparator) || filepath.Ext(arg) == savefile.Extension {
		return arg
	}
	return filepath.Join(s.DecksDir(), savefile.FileName(arg))
}

// DeckInfo summarises one deck file.
type DeckInfo struct {
	Path  string
	Title string
	Cards int
	Err   error
}

// ListDecks reads every deck in decks/, sorted by file name.
func (s *Store) ListDecks() ([]DeckInfo, error) {
	entries, err := os.ReadDir(s.DecksDir())
	if err != nil {
		return nil, fmt.Errorf("failed to read decks: %w", err)
	}
	var out []DeckInfo
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != savefile.Extension || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(s.DecksDir(), e.Name())
		info := DeckInfo{Path: path}
		doc, err := savefile.ReadFile(path)
		if err != nil {
			info.Err = err
		} else {
			info.Title = doc.BoxTitle
			info.Cards = len(doc.Cards)
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// CheckHealth verifies CARDBOX_HOME structure integrity.
func CheckHealth(home string) []Issue {
	var issues []Issue

	p := filepath.Join(home, "decks")
	info, err := os.Stat(p)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("missing directory: %s", p)})
	} else if !info.IsDir() {
		issues = append(issues, Issue{"error", fmt.Sprintf("expected directory but found file: %s", p)})
	}

	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("cannot read config.yaml: %v", err)})
	} else {
		cfg := DefaultConfig()
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			issues = append(issues, Issue{"error", fmt.Sprintf("config.yaml is not valid YAML: %v", err)})
		} else if err := cfg.Validate(); err != nil {
			issues = append(issues, Issue{"error", fmt.Sprintf("config.yaml: %v", err)})
		}
	}

	for _, tmp := range staleTempFiles(home) {
		issues = append(issues, Issue{"warning", fmt.Sprintf("leftover temp file from an interrupted save: %s", tmp)})
	}

	return issues
}

// CheckDeckIntegrity validates every deck file in decks/.
func CheckDeckIntegrity(home string) []Issue {
	var issues []Issue
	s := &Store{Home: home}
	decks, err := s.ListDecks()
	if err != nil {
		return issues
	}

	titles := make(map[string]string)
	for _, d := range decks {
		name := filepath.Base(d.Path)
		if d.Err != nil {
			issues = append(issues, Issue{"error", fmt.Sprintf("deck %s: %v", name, d.Err)})
			continue
		}
		if prev, ok := titles[d.Title]; ok {
			issues = append(issues, Issue{"warning", fmt.Sprintf("deck %s: same title %q as %s", name, d.Title, prev)})
		} else {
			titles[d.Title] = name
		}
	}
	return issues
}

func staleTempFiles(home string) []string {
	matches, _ := filepath.Glob(filepath.Join(home, "decks", ".*.tmp"))
	return matches
}

// FixIssues attempts to repair simple issues in CARDBOX_HOME.
func FixIssues(home string) []string {
	var fixed []string

	p := filepath.Join(home, "decks")
	if _, err := os.Stat(p); err != nil {
		if err := os.MkdirAll(p, 0755); err == nil {
			fixed = append(fixed, "recreated missing directory: decks")
		}
	}

	cfgPath := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(cfgPath); err != nil {
		if writeConfig(home, DefaultConfig()) == nil {
			fixed = append(fixed, "recreated missing config.yaml with defaults")
		}
	}

	for _, tmp := range staleTempFiles(home) {
		if os.Remove(tmp) == nil {
			fixed = append(fixed, fmt.Sprintf("removed %s", filepath.Base(tmp)))
		}
	}

	return fixed
}
