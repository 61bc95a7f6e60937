// Package deck holds the in-memory state of a card box: the ordered cards,
// which of them are being edited, the filter selection and pending undo
// notifications.
//
// Every mutation replaces State.Cards (and the Editing set) with a freshly
// allocated value instead of writing into the existing one, so a Clone taken
// before a mutation is never affected by it.
package deck

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/kokistudios/cardbox/internal/tags"
)

// DefaultUndoWindow is how long a deleted card can be restored.
const DefaultUndoWindow = 3 * time.Second

type options struct {
	defaultCategory Category
	undoWindow      time.Duration
	now             func() time.Time
	newID           func() string
	cache           *tags.Cache
}

type Option func(*options)

func WithDefaultCategory(c Category) Option {
	return func(o *options) {
		if c.Valid() {
			o.defaultCategory = c
		}
	}
}

func WithUndoWindow(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.undoWindow = d
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithIDGenerator replaces the uuid generator used for cards and notifications.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) {
		o.newID = newID
	}
}

// WithTagCache shares a tag cache between states.
func WithTagCache(c *tags.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

func buildOptions(opts []Option) options {
	o := options{
		defaultCategory: Hard,
		undoWindow:      DefaultUndoWindow,
		now:             time.Now,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cache == nil {
		o.cache = tags.NewCache()
	}
	return o
}

// State is the full application state of one open card box.
type State struct {
	Title     string
	Cards     []Card
	Editing   map[string]bool
	Selection Selection

	pending []Deletion
	opts    options
}

// New returns an empty box with every category and tag selected.
func New(title string, opts ...Option) *State {
	s := &State{
		Title:   title,
		Editing: map[string]bool{},
		opts:    buildOptions(opts),
	}
	s.SelectAll()
	return s
}

// Restore rebuilds a state from persisted data. A nil selection means
// everything is selected. Nothing is in edit mode afterwards.
func Restore(title string, cards []Card, sel *Selection, opts ...Option) (*State, error) {
	s := &State{
		Title:   title,
		Cards:   slices.Clone(cards),
		Editing: map[string]bool{},
		opts:    buildOptions(opts),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if sel == nil {
		s.SelectAll()
	} else {
		s.Selection = sel.clone()
	}
	return s, nil
}

// Clone returns a snapshot that later mutations of s do not change.
func (s *State) Clone() *State {
	c := *s
	c.Selection = s.Selection.clone()
	return &c
}

// Validate checks that ids are unique and categories known.
func (s *State) Validate() error {
	seen := make(map[string]bool, len(s.Cards))
	for i, c := range s.Cards {
		if c.ID == "" {
			return fmt.Errorf("card %d: missing id", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, c.ID)
		}
		seen[c.ID] = true
		if !c.Category.Valid() {
			return fmt.Errorf("card %s: %w: %q", c.ID, ErrUnknownCategory, c.Category)
		}
	}
	return nil
}

func (s *State) Len() int { return len(s.Cards) }

func (s *State) indexOf(id string) int {
	return slices.IndexFunc(s.Cards, func(c Card) bool { return c.ID == id })
}

// Find looks a card up by id.
func (s *State) Find(id string) (Card, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return Card{}, false
	}
	return s.Cards[i], true
}

func (s *State) IsEditing(id string) bool {
	return s.Editing[id]
}

func (s *State) uniqueID() string {
	for {
		id := s.opts.newID()
		if id != "" && s.indexOf(id) < 0 {
			return id
		}
	}
}

// Add appends a blank card in edit mode with the default category.
func (s *State) Add() Card {
	card := Card{ID: s.uniqueID(), Category: s.opts.defaultCategory}
	s.Cards = append(slices.Clip(s.Cards), card)
	s.setEditing(card.ID, true)
	return card
}

// AddCard appends a filled-in card that is not in edit mode.
// An empty category falls back to the default.
func (s *State) AddCard(front, back string, c Category) (Card, error) {
	if c == "" {
		c = s.opts.defaultCategory
	}
	if !c.Valid() {
		return Card{}, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	card := Card{ID: s.uniqueID(), Front: front, Back: back, Category: c}
	s.Cards = append(slices.Clip(s.Cards), card)
	return card, nil
}

// Append adds cards keeping their ids. Cards without an id get a fresh one.
func (s *State) Append(cards ...Card) error {
	next := slices.Clone(s.Cards)
	taken := func(id string) bool {
		return slices.ContainsFunc(next, func(e Card) bool { return e.ID == id })
	}
	for _, c := range cards {
		if c.Category == "" {
			c.Category = s.opts.defaultCategory
		}
		if !c.Category.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, c.Category)
		}
		if c.ID == "" {
			for c.ID == "" || taken(c.ID) {
				c.ID = s.opts.newID()
			}
		} else if taken(c.ID) {
			return fmt.Errorf("%w: %s", ErrDuplicateID, c.ID)
		}
		next = append(next, c)
	}
	s.Cards = next
	return nil
}

func (s *State) update(id string, fn func(*Card)) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrCardNotFound, id)
	}
	cards := slices.Clone(s.Cards)
	fn(&cards[i])
	s.Cards = cards
	return nil
}

func (s *State) SetFront(id, text string) error {
	return s.update(id, func(c *Card) { c.Front = text })
}

func (s *State) SetBack(id, text string) error {
	return s.update(id, func(c *Card) { c.Back = text })
}

func (s *State) SetCategory(id string, category Category) error {
	if !category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return s.update(id, func(c *Card) { c.Category = category })
}

// ToggleEdit flips edit mode for a card and reports the new mode.
func (s *State) ToggleEdit(id string) (bool, error) {
	if s.indexOf(id) < 0 {
		return false, fmt.Errorf("%w: %s", ErrCardNotFound, id)
	}
	editing := !s.Editing[id]
	s.setEditing(id, editing)
	return editing, nil
}

func (s *State) setEditing(id string, editing bool) {
	next := maps.Clone(s.Editing)
	if next == nil {
		next = map[string]bool{}
	}
	if editing {
		next[id] = true
	} else {
		delete(next, id)
	}
	s.Editing = next
}

func (s *State) SetTitle(title string) {
	s.Title = title
}
