// Package savefile reads and writes card boxes as JSON documents.
package savefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kokistudios/cardbox/internal/deck"
)

// Document is the persisted form of a card box. Edit mode is never stored.
type Document struct {
	BoxTitle           string          `json:"boxTitle"`
	Cards              []deck.Card     `json:"cards"`
	SelectedCategories []deck.Category `json:"selectedCategories"`
	SelectedTags       []string        `json:"selectedTags"`
}

// ParseError reports a file that is not a valid card box.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid card box: %v", e.Err)
	}
	return fmt.Sprintf("invalid card box %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// wireDocument uses pointers so that absent fields can be told apart from
// empty ones.
type wireDocument struct {
	BoxTitle           *string    `json:"boxTitle" validate:"required"`
	Cards              []wireCard `json:"cards" validate:"required,dive"`
	SelectedCategories []string   `json:"selectedCategories" validate:"omitempty,dive,oneof=Hard Medium Easy"`
	SelectedTags       []string   `json:"selectedTags"`
}

type wireCard struct {
	ID       *string `json:"id" validate:"required,min=1"`
	Front    *string `json:"front" validate:"required"`
	Back     *string `json:"back" validate:"required"`
	Category *string `json:"category" validate:"omitempty,oneof=Hard Medium Easy"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FromState captures the persisted part of a state.
func FromState(s *deck.State) Document {
	return Document{
		BoxTitle:           s.Title,
		Cards:              append([]deck.Card{}, s.Cards...),
		SelectedCategories: append([]deck.Category{}, s.Selection.CategoryList()...),
		SelectedTags:       append([]string{}, s.SelectedTags()...),
	}
}

// State rebuilds a deck state. A missing selection list selects everything,
// and so does a tag list naming every tag of the deck.
func (d Document) State(opts ...deck.Option) (*deck.State, error) {
	s, err := deck.Restore(d.BoxTitle, d.Cards, nil, opts...)
	if err != nil {
		return nil, err
	}
	if d.SelectedCategories == nil && d.SelectedTags == nil {
		return s, nil
	}
	cats := d.SelectedCategories
	if cats == nil {
		cats = deck.Categories()
	}
	tagNames := d.SelectedTags
	if tagNames == nil {
		tagNames = s.AllTags()
	}
	if err := s.SetSelection(cats, tagNames); err != nil {
		return nil, err
	}
	return s, nil
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc Document) error {
	if doc.Cards == nil {
		doc.Cards = []deck.Card{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

// Decode reads a document, failing with *ParseError on malformed input.
func Decode(r io.Reader) (Document, error) {
	var wire wireDocument
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return Document{}, &ParseError{Err: err}
	}
	if err := validate.Struct(wire); err != nil {
		return Document{}, &ParseError{Err: describe(err)}
	}

	doc := Document{
		BoxTitle:     *wire.BoxTitle,
		Cards:        make([]deck.Card, 0, len(wire.Cards)),
		SelectedTags: wire.SelectedTags,
	}
	seen := make(map[string]bool, len(wire.Cards))
	for i, wc := range wire.Cards {
		if seen[*wc.ID] {
			return Document{}, &ParseError{Err: fmt.Errorf("cards[%d].id: duplicate id %q", i, *wc.ID)}
		}
		seen[*wc.ID] = true

		category := deck.Hard
		if wc.Category != nil && *wc.Category != "" {
			category = deck.Category(*wc.Category)
		}
		doc.Cards = append(doc.Cards, deck.Card{
			ID:       *wc.ID,
			Front:    *wc.Front,
			Back:     *wc.Back,
			Category: category,
		})
	}
	if wire.SelectedCategories != nil {
		doc.SelectedCategories = make([]deck.Category, len(wire.SelectedCategories))
		for i, c := range wire.SelectedCategories {
			doc.SelectedCategories[i] = deck.Category(c)
		}
	}
	return doc, nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+": missing")
		case "min":
			msgs = append(msgs, field+": must not be empty")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s: %q is not one of Hard, Medium, Easy", field, fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
