// Package session binds an open deck file to its in-memory state. The HTTP
// API, the MCP server and the CLI all mutate a deck through a Session.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kokistudios/cardbox/internal/deck"
	"github.com/kokistudios/cardbox/internal/savefile"
	"github.com/kokistudios/cardbox/internal/store"
)

// ErrExists is returned by Create when the target file is already there.
var ErrExists = errors.New("deck file already exists")

type Session struct {
	mu       sync.Mutex
	path     string
	state    *deck.State
	dirty    bool
	autosave bool
	deckOpts []deck.Option
	logger   *log.Logger
}

type CreateOption func(*Session)

// WithAutosave overrides the autosave setting from config.
func WithAutosave(on bool) CreateOption {
	return func(s *Session) {
		s.autosave = on
	}
}

// WithClock is passed through to the deck state.
func WithClock(now func() time.Time) CreateOption {
	return func(s *Session) {
		s.deckOpts = append(s.deckOpts, deck.WithClock(now))
	}
}

// WithIDGenerator is passed through to the deck state.
func WithIDGenerator(newID func() string) CreateOption {
	return func(s *Session) {
		s.deckOpts = append(s.deckOpts, deck.WithIDGenerator(newID))
	}
}

func WithLogger(l *log.Logger) CreateOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func newSession(path string, cfg store.Config, opts []CreateOption) *Session {
	s := &Session{
		path:     path,
		autosave: cfg.Deck.Autosave,
		deckOpts: cfg.DeckOptions(),
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads an existing deck file.
func Open(path string, cfg store.Config, opts ...CreateOption) (*Session, error) {
	s := newSession(path, cfg, opts)
	state, err := s.load(path)
	if err != nil {
		return nil, err
	}
	s.state = state
	s.logger.Debug("Deck opened", "path", path, "cards", state.Len())
	return s, nil
}

// Create writes a new empty deck and opens it. An empty title falls back to
// the configured default.
func Create(path, title string, cfg store.Config, opts ...CreateOption) (*Session, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, path)
	}
	if title == "" {
		title = cfg.Deck.DefaultTitle
	}
	s := newSession(path, cfg, opts)
	s.state = deck.New(title, s.deckOpts...)
	if err := s.saveLocked(); err != nil {
		return nil, err
	}
	s.logger.Debug("Deck created", "path", path, "title", title)
	return s, nil
}

// OpenOrCreate opens path, creating an empty deck when the file is missing.
func OpenOrCreate(path, title string, cfg store.Config, opts ...CreateOption) (*Session, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Create(path, title, cfg, opts...)
	}
	return Open(path, cfg, opts...)
}

func (s *Session) load(path string) (*deck.State, error) {
	doc, err := savefile.ReadFile(path)
	if err != nil {
		return nil, err
	}
	state, err := doc.State(s.deckOpts...)
	if err != nil {
		return nil, &savefile.ParseError{Path: path, Err: err}
	}
	return state, nil
}

// Path is the file the deck is saved to.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Dirty reports unsaved changes.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Snapshot returns a copy of the current state that later mutations do not
// affect.
func (s *Session) Snapshot() *deck.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Apply runs fn against a copy of the state and installs the copy only when
// fn succeeds. With autosave on, the result is written to disk, and a failed
// write puts the previous state back.
func (s *Session) Apply(fn func(*deck.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(fn, s.autosave)
}

// ApplySave is Apply with the write forced regardless of autosave. Servers
// use it so every acknowledged change is on disk.
func (s *Session) ApplySave(fn func(*deck.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(fn, true)
}

func (s *Session) applyLocked(fn func(*deck.State) error, save bool) error {
	next := s.state.Clone()
	if err := fn(next); err != nil {
		return err
	}
	prev, prevDirty := s.state, s.dirty
	s.state = next
	s.dirty = true
	if !save {
		return nil
	}
	if err := s.saveLocked(); err != nil {
		s.state, s.dirty = prev, prevDirty
		return err
	}
	return nil
}

// Save writes the state to the current path.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// SaveAs writes the state to a new path, which becomes the current path.
func (s *Session) SaveAs(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.path
	s.path = path
	if err := s.saveLocked(); err != nil {
		s.path = prev
		return err
	}
	return nil
}

func (s *Session) saveLocked() error {
	if err := savefile.WriteFile(s.path, savefile.FromState(s.state)); err != nil {
		return err
	}
	s.dirty = false
	s.logger.Debug("Deck saved", "path", s.path, "cards", s.state.Len())
	return nil
}

// Reload replaces the whole state with the deck at path. On failure nothing
// changes.
func (s *Session) Reload(path string) error {
	state, err := s.load(path)
	if err != nil {
		return err
	}
	s.install(path, state)
	return nil
}

// OpenWith asks p for a deck file and replaces the state with it. A
// cancelled pick reports false and changes nothing, as does any failure.
func (s *Session) OpenWith(ctx context.Context, p savefile.Picker) (bool, error) {
	loaded, err := savefile.Open(ctx, p)
	if err != nil || loaded == nil {
		return false, err
	}
	state, err := loaded.Document.State(s.deckOpts...)
	if err != nil {
		return false, &savefile.ParseError{Path: loaded.Path, Err: err}
	}
	s.install(loaded.Path, state)
	return true, nil
}

func (s *Session) install(path string, state *deck.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.path = path
	s.dirty = false
	s.logger.Debug("Deck loaded", "path", path, "cards", state.Len())
}
