package domain

import (
	"encoding"
	"encoding/json"
	"fmt"
	"time"
)

// Outcome is the binary pass/fail signal a learner gives for a card.
type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeFail Outcome = "fail"
)

// IsValid reports whether o is pass or fail.
func (o Outcome) IsValid() bool {
	return o == OutcomePass || o == OutcomeFail
}

// Rating maps the outcome onto the four-point scheduling scale.
// Pass is Good and Fail is Again.
func (o Outcome) Rating() (Rating, error) {
	switch o {
	case OutcomePass:
		return RatingGood, nil
	case OutcomeFail:
		return RatingAgain, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, string(o))
	}
}

// ParseOutcome converts a string into an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(s)
	if !o.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
	}
	return o, nil
}

// Rating is the four-point recall grade used by the scheduling formulas.
type Rating int

const (
	RatingAgain Rating = iota + 1 // Failed to recall.
	RatingHard                    // Recalled with serious difficulty.
	RatingGood                    // Recalled with some effort.
	RatingEasy                    // Recalled effortlessly.
)

// Ratings lists every rating in ascending order.
var Ratings = [...]Rating{RatingAgain, RatingHard, RatingGood, RatingEasy}

var (
	ratingNames  = [...]string{RatingAgain: "again", RatingHard: "hard", RatingGood: "good", RatingEasy: "easy"}
	ratingByName = map[string]Rating{
		"again": RatingAgain,
		"hard":  RatingHard,
		"good":  RatingGood,
		"easy":  RatingEasy,
	}
)

var (
	_ fmt.Stringer             = Rating(0)
	_ json.Marshaler           = Rating(0)
	_ json.Unmarshaler         = (*Rating)(nil)
	_ encoding.TextMarshaler   = Rating(0)
	_ encoding.TextUnmarshaler = (*Rating)(nil)
)

// IsValid reports whether r is Again through Easy.
func (r Rating) IsValid() bool {
	return r >= RatingAgain && r <= RatingEasy
}

// IsRecall reports whether the rating counts as a successful recall.
func (r Rating) IsRecall() bool {
	return r >= RatingHard && r <= RatingEasy
}

// String returns the lower-case name of the rating.
func (r Rating) String() string {
	if r.IsValid() {
		return ratingNames[r]
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r Rating) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRating, int(r))
	}
	return []byte(ratingNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rating) UnmarshalText(text []byte) error {
	v, ok := ratingByName[string(text)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidRating, text)
	}
	*r = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r Rating) MarshalJSON() ([]byte, error) {
	text, err := r.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Rating) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRating, data)
	}
	return r.UnmarshalText([]byte(s))
}

// ReviewLogEntry records one scheduling decision. The scheduler produces it;
// storage appends it to the card's history alongside the new state.
type ReviewLogEntry struct {
	CardID        string          `json:"card_id"`
	Outcome       Outcome         `json:"outcome,omitempty"`
	Rating        Rating          `json:"rating"`
	State         RepetitionState `json:"state"`
	ElapsedDays   int             `json:"elapsed_days"`
	ScheduledDays int             `json:"scheduled_days"`
	ReviewedAt    time.Time       `json:"reviewed_at"`
}
