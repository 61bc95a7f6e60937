// Package xlsx moves cards between a deck and spreadsheets. Files ending in
// .csv are handled as CSV, anything else as an Excel workbook.
package xlsx

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/kokistudios/cardbox/internal/deck"
)

// SheetName is the worksheet cards are written to and read from.
const SheetName = "Cards"

// Header is the first row of an exported sheet.
var Header = []string{"ID", "Front", "Back", "Category", "Tags"}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

func exportRows(s *deck.State) [][]string {
	rows := make([][]string, 0, len(s.Cards))
	for _, c := range s.Cards {
		rows = append(rows, []string{c.ID, c.Front, c.Back, string(c.Category), strings.Join(s.CardTags(c), " ")})
	}
	return rows
}

// Export writes every card of the deck, in deck order.
func Export(s *deck.State, path string) error {
	if isCSV(path) {
		return exportCSV(s, path)
	}
	return exportExcel(s, path)
}

func exportExcel(s *deck.State, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &Header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", "E1", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "B", "C", 48); err != nil {
		return err
	}

	for i, row := range exportRows(s) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func exportCSV(s *deck.State, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(Header); err != nil {
		return err
	}
	if err := w.WriteAll(exportRows(s)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

// ImportOptions controls how rows become cards.
type ImportOptions struct {
	// SheetName defaults to "Cards", falling back to the first sheet.
	SheetName string
	// TakenIDs are ids already in the target deck. Rows reusing them get a
	// fresh id.
	TakenIDs []string
	// NewID defaults to uuid.NewString.
	NewID func() string
}

// ImportResult holds the result of an import operation.
type ImportResult struct {
	Cards          []deck.Card
	TotalProcessed int
	Skipped        int
	Errors         []string
}

// Import reads cards from a spreadsheet. Rows with an empty front and back
// are skipped. Missing or duplicate ids are replaced, unknown categories fall
// back to Hard; both are reported in Errors without failing the import.
func Import(path string, opts ImportOptions) (*ImportResult, error) {
	var rows [][]string
	var err error
	if isCSV(path) {
		rows, err = readCSV(path)
	} else {
		rows, err = readExcel(path, opts.SheetName)
	}
	if err != nil {
		return nil, err
	}
	return ImportRows(rows, opts), nil
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = SheetName
		if !slices.Contains(f.GetSheetList(), sheet) {
			sheet = f.GetSheetName(0)
		}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// columns maps a field to its column index, -1 when absent.
type columns struct {
	id, front, back, category int
}

var positional = columns{id: 0, front: 1, back: 2, category: 3}

// headerColumns recognises a header row by its column names. A row holding
// a category value is card data even if other cells read like names.
func headerColumns(row []string) (columns, bool) {
	cols := columns{id: -1, front: -1, back: -1, category: -1}
	for i, name := range row {
		if _, err := deck.ParseCategory(name); err == nil {
			return cols, false
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "id":
			cols.id = i
		case "front", "question":
			cols.front = i
		case "back", "answer":
			cols.back = i
		case "category", "difficulty":
			cols.category = i
		}
	}
	return cols, cols.front >= 0 && cols.back >= 0
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// ImportRows turns already-read rows into cards. The first row is treated
// as a header when it names the front and back columns.
func ImportRows(rows [][]string, opts ImportOptions) *ImportResult {
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	taken := make(map[string]bool, len(opts.TakenIDs))
	for _, id := range opts.TakenIDs {
		taken[id] = true
	}
	freshID := func() string {
		for {
			if id := newID(); id != "" && !taken[id] {
				return id
			}
		}
	}

	result := &ImportResult{Errors: make([]string, 0)}
	cols := positional
	start := 0
	if len(rows) > 0 {
		if hc, ok := headerColumns(rows[0]); ok {
			cols = hc
			start = 1
		}
	}

	for i := start; i < len(rows); i++ {
		row := rows[i]
		rowNum := i + 1
		front := cell(row, cols.front)
		back := cell(row, cols.back)
		if strings.TrimSpace(front) == "" && strings.TrimSpace(back) == "" {
			result.Skipped++
			continue
		}
		result.TotalProcessed++

		id := strings.TrimSpace(cell(row, cols.id))
		switch {
		case id == "":
			id = freshID()
		case taken[id]:
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: id %s already used, assigned a new one", rowNum, id))
			id = freshID()
		}
		taken[id] = true

		category := deck.Hard
		if raw := strings.TrimSpace(cell(row, cols.category)); raw != "" {
			c, err := deck.ParseCategory(raw)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: unknown category %q, using Hard", rowNum, raw))
			} else {
				category = c
			}
		}

		result.Cards = append(result.Cards, deck.Card{ID: id, Front: front, Back: back, Category: category})
	}
	return result
}
