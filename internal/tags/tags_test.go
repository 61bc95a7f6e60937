package tags

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{"trailing punctuation", "Hello #foo #bar!", []string{"#foo", "#bar"}},
		{"no tags", "just text", nil},
		{"bare hash", "# heading", nil},
		{"question mark", "#why? because", []string{"#why"}},
		{"comma and colon", "#a,#b:#c.", []string{"#a", "#b", "#c"}},
		{"adjacent hashes split", "#one#two", []string{"#one", "#two"}},
		{"case sensitive", "#Go #go", []string{"#Go", "#go"}},
		{"duplicates collapsed", "#x and #x again", []string{"#x"}},
		{"unicode", "#日本語 text", []string{"#日本語"}},
		{"keeps dashes", "#spaced-repetition", []string{"#spaced-repetition"}},
		{"newline ends tag", "#line\nnext", []string{"#line"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Extract(%q) = %v, want %v", tt.text, got, tt.expected)
			}
		})
	}
}

func TestForCard(t *testing.T) {
	got := ForCard("#vocab #french", "bonjour #french #greeting")
	want := []string{"#vocab", "#french", "#greeting"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ForCard() = %v, want %v", got, want)
	}

	if got := ForCard("", ""); len(got) != 0 {
		t.Errorf("expected no tags for empty card, got %v", got)
	}
}

func TestGroupsOf(t *testing.T) {
	if got := GroupsOf(nil); !reflect.DeepEqual(got, []string{Untagged}) {
		t.Errorf("GroupsOf(nil) = %v, want [Untagged]", got)
	}
	if got := GroupsOf([]string{"#a"}); !reflect.DeepEqual(got, []string{"#a"}) {
		t.Errorf("GroupsOf([#a]) = %v", got)
	}
}

func TestGroups(t *testing.T) {
	cards := []Source{
		{ID: "1", Front: "plain", Back: "card"},
		{ID: "2", Front: "#alpha", Back: "#beta"},
		{ID: "3", Front: "x", Back: "#alpha"},
		{ID: "4", Front: "also plain", Back: ""},
	}

	for _, cache := range []*Cache{nil, NewCache()} {
		groups := Groups(cards, cache)
		want := []Group{
			{Tag: "#alpha", CardIDs: []string{"2", "3"}},
			{Tag: "#beta", CardIDs: []string{"2"}},
			{Tag: Untagged, CardIDs: []string{"1", "4"}},
		}
		if !reflect.DeepEqual(groups, want) {
			t.Errorf("Groups() = %+v, want %+v", groups, want)
		}
	}
}

func TestGroups_TaggedCardNeverUntagged(t *testing.T) {
	cards := []Source{{ID: "1", Front: "#a", Back: ""}}
	groups := Groups(cards, nil)
	for _, g := range groups {
		if g.Tag == Untagged {
			t.Fatalf("tagged card should not produce an Untagged group: %+v", groups)
		}
	}
}

func TestCache(t *testing.T) {
	c := NewCache()
	first := c.ForCard("#a", "#b")
	second := c.ForCard("#a", "#b")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached result differs: %v vs %v", first, second)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 cache entry, got %d", c.Len())
	}

	// Field boundary is part of the key.
	c.ForCard("#a#", "b")
	c.ForCard("#a", "#b ")
	if c.Len() != 3 {
		t.Errorf("expected 3 cache entries, got %d", c.Len())
	}
}
