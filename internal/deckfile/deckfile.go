// Package deckfile reads decks kept as spreadsheets: CSV files or XLSX
// workbooks with one card per row.
//
// The first row is a header naming the columns. id, front and back are
// required; type (default "word") and context_phrase are optional. Column
// names are case-insensitive and unknown columns are ignored.
package deckfile

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/phrazzld/deckstudy/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Column names.
const (
	ColumnID            = "id"
	ColumnType          = "type"
	ColumnFront         = "front"
	ColumnBack          = "back"
	ColumnContextPhrase = "context_phrase"
)

var requiredColumns = []string{ColumnID, ColumnFront, ColumnBack}

// ErrNoCards is returned when a sheet has a header but no card rows.
var ErrNoCards = errors.New("deck file contains no cards")

// Row is one card row. Line is the 1-based spreadsheet row number.
type Row struct {
	Line          int
	ID            string
	Type          string
	Front         string
	Back          string
	ContextPhrase string
}

// ReadCSV reads rows from CSV data.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return parseRecords(records)
}

// ReadXLSX reads rows from an XLSX workbook. An empty sheet name selects the
// first sheet.
func ReadXLSX(r io.Reader, sheet string) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return parseRecords(records)
}

func parseRecords(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, errors.New("deck file is empty")
	}

	index := make(map[string]int)
	for i, name := range records[0] {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	cell := func(record []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []Row
	for n, record := range records[1:] {
		row := Row{
			Line:          n + 2,
			ID:            cell(record, ColumnID),
			Type:          cell(record, ColumnType),
			Front:         cell(record, ColumnFront),
			Back:          cell(record, ColumnBack),
			ContextPhrase: cell(record, ColumnContextPhrase),
		}
		if row == (Row{Line: row.Line}) {
			continue
		}
		if row.Type == "" {
			row.Type = domain.CardTypeWord
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrNoCards
	}
	return rows, nil
}

// Cards turns rows into cards of deckID created at now.
func Cards(rows []Row, deckID string, now time.Time) ([]*domain.Card, error) {
	cards := make([]*domain.Card, 0, len(rows))
	seen := make(map[string]int, len(rows))

	for _, row := range rows {
		if first, dup := seen[row.ID]; dup && row.ID != "" {
			return nil, fmt.Errorf("row %d: %w: card id %q already used on row %d",
				row.Line, domain.ErrValidation, row.ID, first)
		}
		seen[row.ID] = row.Line

		if row.Front == "" || row.Back == "" {
			return nil, fmt.Errorf("row %d: %w: front and back are required", row.Line, domain.ErrValidation)
		}

		content, err := json.Marshal(domain.CardContent{
			Front:         row.Front,
			Back:          row.Back,
			ContextPhrase: row.ContextPhrase,
		})
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row.Line, err)
		}

		card, err := domain.NewCard(row.ID, deckID, row.Type, content, now)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row.Line, err)
		}
		cards = append(cards, card)
	}
	return cards, nil
}
