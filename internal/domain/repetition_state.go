package domain

import (
	"database/sql"
	"database/sql/driver"
	"encoding"
	"encoding/json"
	"fmt"
)

// RepetitionState is the learning stage of a card.
// The integer values are the storage encoding and must not change.
type RepetitionState int

const (
	StateNew        RepetitionState = iota // Never reviewed.
	StateLearning                          // Reviewed, not yet graduated.
	StateReview                            // In the long-term review cycle.
	StateRelearning                        // Lapsed after graduating.
)

var (
	stateNames  = [...]string{StateNew: "new", StateLearning: "learning", StateReview: "review", StateRelearning: "relearning"}
	stateByName = map[string]RepetitionState{
		"new":        StateNew,
		"learning":   StateLearning,
		"review":     StateReview,
		"relearning": StateRelearning,
	}
)

var (
	_ fmt.Stringer             = RepetitionState(0)
	_ json.Marshaler           = RepetitionState(0)
	_ json.Unmarshaler         = (*RepetitionState)(nil)
	_ encoding.TextMarshaler   = RepetitionState(0)
	_ encoding.TextUnmarshaler = (*RepetitionState)(nil)
	_ driver.Valuer            = RepetitionState(0)
	_ sql.Scanner              = (*RepetitionState)(nil)
)

// IsValid reports whether s is one of the four known states.
func (s RepetitionState) IsValid() bool {
	return s >= StateNew && s <= StateRelearning
}

// String returns the lower-case name of the state.
// For invalid values it returns "RepetitionState(n)".
func (s RepetitionState) String() string {
	if s.IsValid() {
		return stateNames[s]
	}
	return fmt.Sprintf("RepetitionState(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s RepetitionState) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: repetition state %d", ErrInvalidCardState, int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *RepetitionState) UnmarshalText(text []byte) error {
	v, ok := stateByName[string(text)]
	if !ok {
		return fmt.Errorf("%w: repetition state %q", ErrInvalidCardState, text)
	}
	*s = v
	return nil
}

// MarshalJSON implements json.Marshaler. The state serializes as a JSON string.
func (s RepetitionState) MarshalJSON() ([]byte, error) {
	text, err := s.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *RepetitionState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("%w: repetition state %s", ErrInvalidCardState, data)
	}
	return s.UnmarshalText([]byte(str))
}

// Value implements driver.Valuer. States are stored as small integers.
func (s RepetitionState) Value() (driver.Value, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: repetition state %d", ErrInvalidCardState, int(s))
	}
	return int64(s), nil
}

// Scan implements sql.Scanner.
func (s *RepetitionState) Scan(src any) error {
	var n int64
	switch v := src.(type) {
	case int64:
		n = v
	case int32:
		n = int64(v)
	case int:
		n = int64(v)
	case nil:
		*s = StateNew
		return nil
	default:
		return fmt.Errorf("%w: cannot scan %T into repetition state", ErrInvalidCardState, src)
	}

	state := RepetitionState(n)
	if !state.IsValid() {
		return fmt.Errorf("%w: repetition state %d", ErrInvalidCardState, n)
	}
	*s = state
	return nil
}
