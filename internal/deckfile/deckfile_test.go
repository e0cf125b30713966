package deckfile

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/deckstudy/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func workbook(t *testing.T, sheet string, rows [][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	if sheet != "Sheet1" {
		require.NoError(t, f.SetSheetName("Sheet1", sheet))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadCSV(t *testing.T) {
	t.Parallel()

	input := "ID,Front,Back,Type,Notes\n" +
		"c1,hola,hello,,greeting\n" +
		",,,,\n" +
		"c2, buenos dias ,good morning,phrase,\n"

	rows, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{Line: 2, ID: "c1", Type: domain.CardTypeWord, Front: "hola", Back: "hello"},
		{Line: 4, ID: "c2", Type: domain.CardTypePhrase, Front: "buenos dias", Back: "good morning"},
	}, rows)
}

func TestReadCSV_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "missing back column", input: "id,front\nc1,hola\n"},
		{name: "header only", input: "id,front,back\n"},
		{name: "unterminated quote", input: "id,front,back\nc1,\"hola,hello\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadCSV(strings.NewReader(tc.input))
			assert.Error(t, err)
		})
	}
}

func TestReadXLSX(t *testing.T) {
	t.Parallel()

	buf := workbook(t, "Cards", [][]any{
		{"id", "type", "front", "back", "context_phrase"},
		{"c1", "word", "gato", "cat", "el gato duerme"},
		{"c2", "", "perro", "dog"},
	})

	tests := []struct {
		name  string
		sheet string
	}{
		{name: "first sheet by default", sheet: ""},
		{name: "named sheet", sheet: "Cards"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rows, err := ReadXLSX(bytes.NewReader(buf.Bytes()), tc.sheet)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, Row{Line: 2, ID: "c1", Type: "word", Front: "gato", Back: "cat", ContextPhrase: "el gato duerme"}, rows[0])
			assert.Equal(t, domain.CardTypeWord, rows[1].Type)
		})
	}

	_, err := ReadXLSX(bytes.NewReader(buf.Bytes()), "Missing")
	assert.Error(t, err)

	_, err = ReadXLSX(strings.NewReader("not a workbook"), "")
	assert.Error(t, err)
}

func TestCards(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{Line: 2, ID: "c1", Type: domain.CardTypeWord, Front: "gato", Back: "cat"},
		{Line: 3, ID: "c2", Type: domain.CardTypePhrase, Front: "buenos dias", Back: "good morning", ContextPhrase: "por la mañana"},
	}

	cards, err := Cards(rows, "deck-1", testNow)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "deck-1", cards[1].DeckID)
	assert.Equal(t, domain.CardTypePhrase, cards[1].Type)
	assert.Equal(t, testNow, cards[1].CreatedAt)

	content, err := cards[1].DecodeContent()
	require.NoError(t, err)
	assert.Equal(t, domain.CardContent{Front: "buenos dias", Back: "good morning", ContextPhrase: "por la mañana"}, content)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(cards[0].Content, &raw))
	assert.NotContains(t, raw, "context_phrase")
}

func TestCards_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rows []Row
		want string
	}{
		{
			name: "duplicate id",
			rows: []Row{
				{Line: 2, ID: "c1", Type: "word", Front: "a", Back: "b"},
				{Line: 5, ID: "c1", Type: "word", Front: "c", Back: "d"},
			},
			want: "row 5",
		},
		{
			name: "missing back",
			rows: []Row{{Line: 3, ID: "c1", Type: "word", Front: "a"}},
			want: "row 3",
		},
		{
			name: "missing id",
			rows: []Row{{Line: 4, Type: "word", Front: "a", Back: "b"}},
			want: "row 4",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Cards(tc.rows, "deck-1", testNow)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
