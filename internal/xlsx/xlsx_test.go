package xlsx

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kokistudios/cardbox/internal/deck"
)

func sampleDeck(t *testing.T) *deck.State {
	t.Helper()
	s, err := deck.Restore("Bio", []deck.Card{
		{ID: "a", Front: "#cell what is a cell?", Back: "unit of #life", Category: deck.Easy},
		{ID: "b", Front: "mitosis", Back: "division,\n\"quoted\"", Category: deck.Medium},
		{ID: "c", Front: "blank back", Back: "", Category: deck.Hard},
	}, nil)
	require.NoError(t, err)
	return s
}

func TestExportImport_RoundTrip(t *testing.T) {
	for _, name := range []string{"cards.xlsx", "cards.csv"} {
		t.Run(name, func(t *testing.T) {
			s := sampleDeck(t)
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Export(s, path))

			result, err := Import(path, ImportOptions{})
			require.NoError(t, err)
			assert.Empty(t, result.Errors)
			assert.Equal(t, 3, result.TotalProcessed)
			assert.Equal(t, s.Cards, result.Cards)
		})
	}
}

func TestExport_SheetLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.xlsx")
	require.NoError(t, Export(sampleDeck(t), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "#cell #life", rows[1][4])
}

func TestImport_RowHandling(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.csv")
	content := "Front,Back,Difficulty,ID\n" +
		"q1,a1,medium,x\n" +
		",,,\n" +
		"q2,a2,Trivial,x\n" +
		"q3,a3,,taken\n" +
		"q4,a4,easy,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	n := 0
	result, err := Import(path, ImportOptions{
		TakenIDs: []string{"taken"},
		NewID: func() string {
			n++
			return fmt.Sprintf("new-%d", n)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, result.TotalProcessed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, []deck.Card{
		{ID: "x", Front: "q1", Back: "a1", Category: deck.Medium},
		{ID: "new-1", Front: "q2", Back: "a2", Category: deck.Hard},
		{ID: "new-2", Front: "q3", Back: "a3", Category: deck.Hard},
		{ID: "new-3", Front: "q4", Back: "a4", Category: deck.Easy},
	}, result.Cards)
	assert.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Row 4")
}

func TestImport_PositionalWithoutHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]string{"id1", "front", "back", "Easy"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	result, err := Import(path, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, []deck.Card{{ID: "id1", Front: "front", Back: "back", Category: deck.Easy}}, result.Cards)
}

func TestImport_MissingFile(t *testing.T) {
	_, err := Import(filepath.Join(t.TempDir(), "nope.xlsx"), ImportOptions{})
	assert.Error(t, err)
}

func TestImportRows_HeaderDetection(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want int
	}{
		{"named header", [][]string{{"Question", "Answer", "Category"}, {"adios", "bye", "Easy"}}, 1},
		{"data row with column words", [][]string{{"q", "front", "back", "hard"}, {"id2", "adios", "bye", "Easy"}}, 2},
		{"plain data row", [][]string{{"id1", "hola", "hello", "Medium"}, {"id2", "adios", "bye", "Easy"}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ImportRows(tt.rows, ImportOptions{})
			assert.Len(t, result.Cards, tt.want)
			assert.Empty(t, result.Errors)
		})
	}
}
