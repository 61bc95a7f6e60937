package deck

import (
	"fmt"
	"maps"
	"slices"

	"github.com/kokistudios/cardbox/internal/tags"
)

// Selection is the set of categories and tag groups the user wants to see.
// While AllTags is set the tag filter has not been narrowed: every tag group
// passes, including tags that appear after the selection was made.
type Selection struct {
	Categories map[Category]bool
	Tags       map[string]bool
	AllTags    bool
}

// NewSelection builds a selection from lists.
func NewSelection(categories []Category, tagNames []string) Selection {
	sel := Selection{
		Categories: make(map[Category]bool, len(categories)),
		Tags:       make(map[string]bool, len(tagNames)),
	}
	for _, c := range categories {
		sel.Categories[c] = true
	}
	for _, t := range tagNames {
		sel.Tags[t] = true
	}
	return sel
}

func (sel Selection) clone() Selection {
	return Selection{
		Categories: maps.Clone(sel.Categories),
		Tags:       maps.Clone(sel.Tags),
		AllTags:    sel.AllTags,
	}
}

// CategoryList returns the selected categories in display order.
func (sel Selection) CategoryList() []Category {
	var out []Category
	for _, c := range Categories() {
		if sel.Categories[c] {
			out = append(out, c)
		}
	}
	return out
}

// TagList returns the explicitly selected tags sorted.
func (sel Selection) TagList() []string {
	out := make([]string, 0, len(sel.Tags))
	for t, on := range sel.Tags {
		if on {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}

// AllTags lists every tag currently present in the deck in order of first
// appearance, followed by Untagged.
func (s *State) AllTags() []string {
	var out []string
	for _, g := range s.Groups() {
		if g.Tag != tags.Untagged {
			out = append(out, g.Tag)
		}
	}
	return append(out, tags.Untagged)
}

// SelectAll selects every category and every tag, including tags added later.
func (s *State) SelectAll() {
	s.Selection = NewSelection(Categories(), s.AllTags())
	s.Selection.AllTags = true
}

// TagSelected reports whether a tag group passes the tag filter.
func (s *State) TagSelected(tag string) bool {
	return s.Selection.AllTags || s.Selection.Tags[tag]
}

// SelectedTags returns the tag groups that pass the filter, sorted.
func (s *State) SelectedTags() []string {
	if !s.Selection.AllTags {
		return s.Selection.TagList()
	}
	out := s.AllTags()
	slices.Sort(out)
	return out
}

func (s *State) ToggleCategory(c Category) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	next := s.Selection.clone()
	if next.Categories == nil {
		next.Categories = map[Category]bool{}
	}
	if next.Categories[c] {
		delete(next.Categories, c)
	} else {
		next.Categories[c] = true
	}
	s.Selection = next
	return nil
}

// ToggleTag flips one tag group. Toggling narrows a complete selection to
// the tags present right now; selecting every present tag again makes it
// complete.
func (s *State) ToggleTag(tag string) {
	selected := s.SelectedTags()
	if i := slices.Index(selected, tag); i >= 0 {
		selected = slices.Delete(selected, i, i+1)
	} else {
		selected = append(selected, tag)
	}
	s.SetTags(selected)
}

// SetSelection replaces the selection wholesale.
func (s *State) SetSelection(categories []Category, tagNames []string) error {
	if err := s.SetCategories(categories); err != nil {
		return err
	}
	s.SetTags(tagNames)
	return nil
}

// SetCategories replaces the category selection and keeps the tag filter.
func (s *State) SetCategories(categories []Category) error {
	for _, c := range categories {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, c)
		}
	}
	next := s.Selection.clone()
	next.Categories = NewSelection(categories, nil).Categories
	s.Selection = next
	return nil
}

// SetTags replaces the tag selection and keeps the category filter. A list
// naming every tag group of the deck selects all tags.
func (s *State) SetTags(tagNames []string) {
	next := s.Selection.clone()
	next.Tags = NewSelection(nil, tagNames).Tags
	next.AllTags = true
	for _, t := range s.AllTags() {
		if !next.Tags[t] {
			next.AllTags = false
			break
		}
	}
	s.Selection = next
}
