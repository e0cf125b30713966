package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/phrazzld/deckstudy/internal/api"
	"github.com/phrazzld/deckstudy/internal/api/shared"
	"github.com/phrazzld/deckstudy/internal/deckfile"
	"github.com/phrazzld/deckstudy/internal/domain"
	"github.com/urfave/cli/v3"
)

func cmdImport(g *globals) *cli.Command {
	var opts importOptions

	return &cli.Command{
		Name:      "import",
		Usage:     "Unlock a deck from a JSON, CSV or XLSX file",
		ArgsUsage: "<deck.json|deck.csv|deck.xlsx>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "deck-id",
				Usage:       "Deck ID for spreadsheet files (default: file name)",
				Destination: &opts.DeckID,
			},
			&cli.StringFlag{
				Name:        "title",
				Usage:       "Deck title for spreadsheet files (default: deck ID)",
				Destination: &opts.Title,
			},
			&cli.StringFlag{
				Name:        "sheet",
				Usage:       "Worksheet to read from an XLSX file (default: first sheet)",
				Destination: &opts.Sheet,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			path := c.Args().First()
			if path == "" {
				return errors.New("deck file required")
			}

			deck, cards, err := loadDeckFile(path, opts, time.Now())
			if err != nil {
				return err
			}

			app, err := newApplication(ctx, g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer app.cleanup()

			if err := app.deckService.ImportDeck(ctx, deck, cards); err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.Root().Writer, "imported deck %s with %d cards\n", deck.ID, len(cards))
			return err
		},
	}
}

// importOptions name the deck of a spreadsheet file, which carries only cards.
type importOptions struct {
	DeckID string
	Title  string
	Sheet  string
}

// loadDeckFile reads a deck file, choosing the format by extension.
func loadDeckFile(path string, opts importOptions, now time.Time) (*domain.Deck, []*domain.Card, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open deck file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		deck, cards, err := parseDeck(f, now)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid deck file %s: %w", path, err)
		}
		return deck, cards, nil
	}

	var rows []deckfile.Row
	switch ext {
	case ".csv":
		rows, err = deckfile.ReadCSV(f)
	case ".xlsx":
		rows, err = deckfile.ReadXLSX(f, opts.Sheet)
	default:
		return nil, nil, fmt.Errorf("unsupported deck file type %q", ext)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("invalid deck file %s: %w", path, err)
	}

	deckID := opts.DeckID
	if deckID == "" {
		deckID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	title := opts.Title
	if title == "" {
		title = deckID
	}

	deck, err := domain.NewDeck(deckID, title, now)
	if err != nil {
		return nil, nil, err
	}
	cards, err := deckfile.Cards(rows, deck.ID, now)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid deck file %s: %w", path, err)
	}
	return deck, cards, nil
}

func cmdReset(g *globals) *cli.Command {
	return &cli.Command{
		Name:      "reset",
		Usage:     "Return every card of a deck to New",
		ArgsUsage: "<deck-id>",
		Action: func(ctx context.Context, c *cli.Command) error {
			deckID := c.Args().First()
			if deckID == "" {
				return errors.New("deck id required")
			}

			app, err := newApplication(ctx, g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer app.cleanup()

			n, err := app.deckService.ResetDeck(ctx, deckID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.Root().Writer, "reset %d cards in deck %s\n", n, deckID)
			return err
		},
	}
}

// parseDeck reads a deck file in the same shape as the import endpoint's body.
func parseDeck(r io.Reader, now time.Time) (*domain.Deck, []*domain.Card, error) {
	data, err := io.ReadAll(io.LimitReader(r, shared.MaxRequestBodyBytes+1))
	if err != nil {
		return nil, nil, err
	}
	if len(data) > shared.MaxRequestBodyBytes {
		return nil, nil, errors.New("deck file too large")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var req api.ImportDeckRequest
	if err := dec.Decode(&req); err != nil {
		return nil, nil, err
	}
	if err := shared.ValidateRequest(&req); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrValidation, api.SanitizeValidationError(err))
	}
	return req.ToDomain(now)
}
