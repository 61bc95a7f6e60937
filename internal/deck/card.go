package deck

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCardNotFound    = errors.New("card not found")
	ErrDuplicateID     = errors.New("duplicate card id")
	ErrUndoExpired     = errors.New("undo no longer available")
	ErrUnknownCategory = errors.New("unknown category")
)

// Category is the manually assigned difficulty label of a card.
type Category string

const (
	Hard   Category = "Hard"
	Medium Category = "Medium"
	Easy   Category = "Easy"
)

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{Hard, Medium, Easy}
}

func (c Category) Valid() bool {
	switch c {
	case Hard, Medium, Easy:
		return true
	}
	return false
}

// ParseCategory accepts a category name in any case.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q (use Hard, Medium, or Easy)", ErrUnknownCategory, s)
}

// Card holds the persisted fields of a flashcard. UI flags such as editing
// or flip state live outside the card.
type Card struct {
	ID       string   `json:"id"`
	Front    string   `json:"front"`
	Back     string   `json:"back"`
	Category Category `json:"category"`
}
