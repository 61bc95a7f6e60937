package deck

import (
	"github.com/kokistudios/cardbox/internal/tags"
)

// CardTags returns the hashtags of a card.
func (s *State) CardTags(c Card) []string {
	return s.opts.cache.ForCard(c.Front, c.Back)
}

// Groups derives the tag groups of the whole deck.
func (s *State) Groups() []tags.Group {
	sources := make([]tags.Source, len(s.Cards))
	for i, c := range s.Cards {
		sources[i] = tags.Source{ID: c.ID, Front: c.Front, Back: c.Back}
	}
	return tags.Groups(sources, s.opts.cache)
}

// IsVisible reports whether a card passes the filters. Cards in edit mode
// are always visible.
func (s *State) IsVisible(c Card) bool {
	if s.Editing[c.ID] {
		return true
	}
	if !s.Selection.Categories[c.Category] {
		return false
	}
	for _, g := range tags.GroupsOf(s.CardTags(c)) {
		if s.TagSelected(g) {
			return true
		}
	}
	return false
}

// Visible returns the cards that pass the filters, in deck order.
func (s *State) Visible() []Card {
	var out []Card
	for _, c := range s.Cards {
		if s.IsVisible(c) {
			out = append(out, c)
		}
	}
	return out
}

// TagCount is the badge of one tag toggle.
type TagCount struct {
	Tag      string `json:"tag"`
	Count    int    `json:"count"`
	Selected bool   `json:"selected"`
}

// CategoryCount is the badge of one category toggle.
type CategoryCount struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
	Selected bool     `json:"selected"`
}

// Counts are the numbers shown next to the filter toggles. They are computed
// over the whole deck, not the visible subset.
type Counts struct {
	Total      int             `json:"total"`
	Visible    int             `json:"visible"`
	Categories []CategoryCount `json:"categories"`
	Tags       []TagCount      `json:"tags"`
}

func (s *State) Counts() Counts {
	byCategory := make(map[Category]int)
	visible := 0
	for _, c := range s.Cards {
		byCategory[c.Category]++
		if s.IsVisible(c) {
			visible++
		}
	}

	out := Counts{Total: len(s.Cards), Visible: visible}
	for _, c := range Categories() {
		out.Categories = append(out.Categories, CategoryCount{
			Category: c,
			Count:    byCategory[c],
			Selected: s.Selection.Categories[c],
		})
	}
	for _, g := range s.Groups() {
		out.Tags = append(out.Tags, TagCount{
			Tag:      g.Tag,
			Count:    len(g.CardIDs),
			Selected: s.TagSelected(g.Tag),
		})
	}
	return out
}
