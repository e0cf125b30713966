package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeRating(t *testing.T) {
	t.Parallel()

	r, err := OutcomePass.Rating()
	require.NoError(t, err)
	assert.Equal(t, RatingGood, r)

	r, err = OutcomeFail.Rating()
	require.NoError(t, err)
	assert.Equal(t, RatingAgain, r)

	_, err = Outcome("maybe").Rating()
	assert.ErrorIs(t, err, ErrInvalidOutcome)
}

func TestParseOutcome(t *testing.T) {
	t.Parallel()

	o, err := ParseOutcome("pass")
	require.NoError(t, err)
	assert.Equal(t, OutcomePass, o)

	_, err = ParseOutcome("PASS")
	assert.ErrorIs(t, err, ErrInvalidOutcome)
}

func TestRatingEncoding(t *testing.T) {
	t.Parallel()

	for _, r := range Ratings {
		data, err := json.Marshal(r)
		require.NoError(t, err)

		var got Rating
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, r, got)
	}

	assert.False(t, RatingAgain.IsRecall())
	assert.True(t, RatingHard.IsRecall())
	assert.Equal(t, "Rating(0)", Rating(0).String())

	var r Rating
	assert.ErrorIs(t, json.Unmarshal([]byte(`"meh"`), &r), ErrInvalidRating)
	assert.ErrorIs(t, json.Unmarshal([]byte(`3`), &r), ErrInvalidRating)
}
