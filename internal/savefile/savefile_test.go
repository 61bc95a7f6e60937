package savefile

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokistudios/cardbox/internal/deck"
	"github.com/kokistudios/cardbox/internal/tags"
)

func TestDecode_Valid(t *testing.T) {
	input := `{
		"boxTitle": "Biology",
		"cards": [
			{"id": "a", "front": "#cell what?", "back": "unit of life", "category": "Easy"},
			{"id": "b", "front": "legacy", "back": "no category"}
		],
		"selectedCategories": ["Easy"],
		"selectedTags": ["#cell"],
		"somethingNew": true
	}`
	doc, err := Decode(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "Biology", doc.BoxTitle)
	assert.Equal(t, []deck.Card{
		{ID: "a", Front: "#cell what?", Back: "unit of life", Category: deck.Easy},
		{ID: "b", Front: "legacy", Back: "no category", Category: deck.Hard},
	}, doc.Cards)
	assert.Equal(t, []deck.Category{deck.Easy}, doc.SelectedCategories)
	assert.Equal(t, []string{"#cell"}, doc.SelectedTags)
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not json", `hello`, "invalid character"},
		{"array", `[]`, "cannot unmarshal"},
		{"missing title", `{"cards": []}`, "boxTitle: missing"},
		{"missing cards", `{"boxTitle": "x"}`, "cards: missing"},
		{"missing id", `{"boxTitle": "x", "cards": [{"front": "", "back": ""}]}`, "cards[0].id: missing"},
		{"empty id", `{"boxTitle": "x", "cards": [{"id": "", "front": "", "back": ""}]}`, "cards[0].id: must not be empty"},
		{"missing back", `{"boxTitle": "x", "cards": [{"id": "1", "front": ""}]}`, "cards[0].back: missing"},
		{"null front", `{"boxTitle": "x", "cards": [{"id": "1", "front": null, "back": ""}]}`, "cards[0].front: missing"},
		{"bad category", `{"boxTitle": "x", "cards": [{"id": "1", "front": "", "back": "", "category": "Trivial"}]}`, `"Trivial" is not one of`},
		{"bad selected category", `{"boxTitle": "x", "cards": [], "selectedCategories": ["Soon"]}`, "selectedCategories[0]"},
		{"duplicate id", `{"boxTitle": "x", "cards": [{"id": "1", "front": "", "back": ""}, {"id": "1", "front": "", "back": ""}]}`, "duplicate id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecode_EmptyTitleAndCards(t *testing.T) {
	doc, err := Decode(strings.NewReader(`{"boxTitle": "", "cards": []}`))
	require.NoError(t, err)
	assert.Empty(t, doc.BoxTitle)
	assert.Empty(t, doc.Cards)

	s, err := doc.State()
	require.NoError(t, err)
	assert.Equal(t, deck.Categories(), s.Selection.CategoryList())
	assert.Equal(t, []string{tags.Untagged}, s.Selection.TagList())
}

func TestState_PartialSelection(t *testing.T) {
	doc := Document{
		BoxTitle:           "x",
		Cards:              []deck.Card{{ID: "1", Front: "#a", Category: deck.Medium}},
		SelectedCategories: []deck.Category{deck.Medium},
	}
	s, err := doc.State()
	require.NoError(t, err)
	assert.Equal(t, []deck.Category{deck.Medium}, s.Selection.CategoryList())
	assert.Equal(t, []string{"#a", tags.Untagged}, s.Selection.TagList())
}

func TestRoundTrip(t *testing.T) {
	s := deck.New("Spanish #1")
	a, err := s.AddCard("hola #greeting", "hello", deck.Easy)
	require.NoError(t, err)
	_, err = s.AddCard("adiós", "bye", deck.Medium)
	require.NoError(t, err)
	editing := s.Add()
	require.NoError(t, s.SetBack(editing.ID, "still typing"))
	s.SelectAll()
	require.NoError(t, s.ToggleCategory(deck.Hard))
	s.ToggleTag(tags.Untagged)
	require.True(t, s.IsEditing(editing.ID))

	path := filepath.Join(t.TempDir(), FileName(s.Title))
	require.NoError(t, WriteFile(path, FromState(s)))

	doc, err := ReadFile(path)
	require.NoError(t, err)
	loaded, err := doc.State()
	require.NoError(t, err)

	assert.Equal(t, s.Title, loaded.Title)
	assert.Equal(t, s.Cards, loaded.Cards)
	assert.Equal(t, s.Selection.CategoryList(), loaded.Selection.CategoryList())
	assert.Equal(t, s.Selection.TagList(), loaded.Selection.TagList())
	assert.Empty(t, loaded.Editing)
	assert.Equal(t, []string{a.ID}, visibleIDs(loaded))
}

func TestRoundTrip_CompleteTagSelection(t *testing.T) {
	s := deck.New("Fresh")
	_, err := s.AddCard("hola #greeting", "hello", deck.Easy)
	require.NoError(t, err)

	doc := FromState(s)
	assert.Equal(t, []string{"#greeting", tags.Untagged}, doc.SelectedTags)

	loaded, err := doc.State()
	require.NoError(t, err)
	assert.True(t, loaded.Selection.AllTags)

	added, err := loaded.AddCard("adios #farewell", "bye", deck.Hard)
	require.NoError(t, err)
	assert.Contains(t, visibleIDs(loaded), added.ID)
}

func visibleIDs(s *deck.State) []string {
	var out []string
	for _, c := range s.Visible() {
		out = append(out, c.ID)
	}
	return out
}

func TestEncode_WireFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Document{BoxTitle: "<b>"}))
	out := buf.String()
	assert.Contains(t, out, `"boxTitle": "<b>"`)
	assert.Contains(t, out, `"cards": []`)
}

func TestWriteFile_ReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "box.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	require.NoError(t, WriteFile(path, Document{BoxTitle: "new", Cards: []deck.Card{}}))

	doc, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", doc.BoxTitle)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "box.json", entries[0].Name())
}

func TestWriteFile_ChmodFailure(t *testing.T) {
	denied := errors.New("chmod denied")
	chmod = func(string, os.FileMode) error { return denied }
	t.Cleanup(func() { chmod = os.Chmod })

	dir := t.TempDir()
	path := filepath.Join(dir, "box.json")
	err := WriteFile(path, Document{BoxTitle: "x", Cards: []deck.Card{}})
	require.ErrorIs(t, err, denied)
	assert.Contains(t, err.Error(), "failed to chmod "+path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file should be removed")
}

func TestReadFile_MissingIsParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.json")
	_, err := ReadFile(path)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, path, pe.Path)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"My Deck", "My Deck.json"},
		{"Bio: cells", "Bio- cells.json"},
		{`a/b\c`, "a-b-c.json"},
		{"a//b", "a-b.json"},
		{"?title?", "title.json"},
		{"  spaced  ", "spaced.json"},
		{"", "Cards.json"},
		{"...", "Cards.json"},
		{"///", "Cards.json"},
		{"CON", "CON-.json"},
		{"lpt1", "lpt1-.json"},
		{"tab\there", "tab-here.json"},
		{strings.Repeat("a", 150), strings.Repeat("a", 100) + ".json"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.title))
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	require.NoError(t, WriteFile(good, Document{BoxTitle: "Good", Cards: []deck.Card{}}))
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"cards": []}`), 0644))

	pick := func(path string, ok bool, err error) Picker {
		return PickerFunc(func(context.Context) (string, bool, error) { return path, ok, err })
	}
	ctx := context.Background()

	t.Run("cancelled", func(t *testing.T) {
		loaded, err := Open(ctx, pick("", false, nil))
		assert.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("picked", func(t *testing.T) {
		loaded, err := Open(ctx, pick(good, true, nil))
		require.NoError(t, err)
		assert.Equal(t, good, loaded.Path)
		assert.Equal(t, "Good", loaded.Document.BoxTitle)
	})

	t.Run("malformed", func(t *testing.T) {
		loaded, err := Open(ctx, pick(bad, true, nil))
		var pe *ParseError
		assert.ErrorAs(t, err, &pe)
		assert.Nil(t, loaded)
	})

	t.Run("picker failure", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Open(ctx, pick("", false, boom))
		assert.ErrorIs(t, err, boom)
	})
}
