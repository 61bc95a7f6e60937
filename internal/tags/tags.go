package tags

import (
	"crypto/sha256"
	"regexp"
	"sync"
)

// Untagged is the synthetic group for cards without any hashtag.
const Untagged = "Untagged"

var hashtagPattern = regexp.MustCompile(`#[^\s#!?.,:]+`)

// Extract returns the hashtags found in text in order of first appearance.
// Matching is case sensitive; repeats within the text are collapsed.
func Extract(text string) []string {
	matches := hashtagPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var result []string
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		result = append(result, m)
	}
	return result
}

// ForCard returns the tag set of a card, front tags first.
func ForCard(front, back string) []string {
	result := Extract(front)
	backTags := Extract(back)
	if len(backTags) == 0 {
		return result
	}
	seen := make(map[string]bool, len(result))
	for _, t := range result {
		seen[t] = true
	}
	for _, t := range backTags {
		if !seen[t] {
			seen[t] = true
			result = append(result, t)
		}
	}
	return result
}

// GroupsOf returns the tag groups a card belongs to: its tags, or Untagged.
func GroupsOf(cardTags []string) []string {
	if len(cardTags) == 0 {
		return []string{Untagged}
	}
	return cardTags
}

// Group is one derived tag group.
type Group struct {
	Tag     string
	CardIDs []string
}

// Source is the minimal view of a card needed for grouping.
type Source struct {
	ID    string
	Front string
	Back  string
}

// Groups builds the tag -> cards mapping over the deck. Tags keep the order
// in which they first appear; Untagged comes last and only when non-empty.
// A nil cache scans every card.
func Groups(cards []Source, cache *Cache) []Group {
	index := make(map[string]int)
	var groups []Group
	var untagged []string

	for _, c := range cards {
		var cardTags []string
		if cache != nil {
			cardTags = cache.ForCard(c.Front, c.Back)
		} else {
			cardTags = ForCard(c.Front, c.Back)
		}
		if len(cardTags) == 0 {
			untagged = append(untagged, c.ID)
			continue
		}
		for _, t := range cardTags {
			i, ok := index[t]
			if !ok {
				i = len(groups)
				index[t] = i
				groups = append(groups, Group{Tag: t})
			}
			groups[i].CardIDs = append(groups[i].CardIDs, c.ID)
		}
	}

	if len(untagged) > 0 {
		groups = append(groups, Group{Tag: Untagged, CardIDs: untagged})
	}
	return groups
}

// Cache memoizes per-card tag sets keyed by a hash of the card text.
// It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[[sha256.Size]byte][]string
}

func NewCache() *Cache {
	return &Cache{entries: make(map[[sha256.Size]byte][]string)}
}

// ForCard behaves like the package-level ForCard.
func (c *Cache) ForCard(front, back string) []string {
	key := contentKey(front, back)

	c.mu.Lock()
	cached, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return cached
	}

	result := ForCard(front, back)
	c.mu.Lock()
	c.entries[key] = result
	c.mu.Unlock()
	return result
}

// Len reports the number of cached cards.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func contentKey(front, back string) [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte(front))
	h.Write([]byte{0})
	h.Write([]byte(back))
	var key [sha256.Size]byte
	copy(key[:], h.Sum(nil))
	return key
}
