package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/phrazzld/deckstudy/internal/domain"
	"github.com/phrazzld/deckstudy/internal/service"
	"github.com/urfave/cli/v3"
)

var ratingColors = map[domain.Rating]*color.Color{
	domain.RatingAgain: color.New(color.FgRed, color.Bold),
	domain.RatingHard:  color.New(color.FgYellow),
	domain.RatingGood:  color.New(color.FgGreen),
	domain.RatingEasy:  color.New(color.FgCyan),
}

func cmdPreview(g *globals) *cli.Command {
	var noColor bool

	return &cli.Command{
		Name:      "preview",
		Aliases:   []string{"p"},
		Usage:     "Show what each rating would do to a card",
		ArgsUsage: "<card-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "no-color",
				Usage:       "Disable colored output",
				Sources:     cli.EnvVars("NO_COLOR"),
				Destination: &noColor,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cardID := c.Args().First()
			if cardID == "" {
				return errors.New("card id required")
			}
			if noColor {
				color.NoColor = true
			}

			app, err := newApplication(ctx, g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer app.cleanup()

			preview, err := app.deckService.PreviewCard(ctx, cardID)
			if err != nil {
				return err
			}
			return renderPreview(c.Root().Writer, preview, time.Now())
		},
	}
}

// renderPreview prints the card's current memory state followed by one line
// per rating.
func renderPreview(w io.Writer, p *service.CardPreview, now time.Time) error {
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	s := p.State
	lines := []string{
		fmt.Sprintf("%s %s (%s) in deck %s", bold("card"), s.ID, s.CardType, s.DeckID),
		fmt.Sprintf("  state %s  reps %d  lapses %d", s.State, s.Reps, s.Lapses),
	}
	if s.State != domain.StateNew {
		lines = append(lines,
			fmt.Sprintf("  stability %.2fd  difficulty %.2f  retrievability %.1f%%",
				s.Stability, s.Difficulty, p.Retrievability*100),
			fmt.Sprintf("  due %s %s", s.Due.UTC().Format(time.RFC3339), faint(relative(s.Due, now))))
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	for _, rating := range domain.Ratings {
		result, ok := p.Outcomes[rating]
		if !ok {
			continue
		}
		next := result.Card
		label := ratingColors[rating].Sprintf("%-5s", rating)
		if _, err := fmt.Fprintf(w, "  %s -> %-10s due %s %s\n",
			label, next.State, next.Due.UTC().Format(time.RFC3339), faint(relative(next.Due, now))); err != nil {
			return err
		}
	}
	return nil
}

// relative formats due relative to now at a coarse resolution.
func relative(due, now time.Time) string {
	d := due.Sub(now)
	if d <= 0 {
		return "(due now)"
	}
	switch {
	case d < time.Hour:
		return fmt.Sprintf("(in %dm)", int(d.Round(time.Minute)/time.Minute))
	case d < 48*time.Hour:
		return fmt.Sprintf("(in %dh)", int(d.Round(time.Hour)/time.Hour))
	default:
		return fmt.Sprintf("(in %dd)", int(d.Round(24*time.Hour)/(24*time.Hour)))
	}
}
