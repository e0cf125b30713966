package srs

import (
	"math/rand/v2"
	"time"

	"github.com/phrazzld/deckstudy/internal/domain"
)

// memoryUpdate is the stability/difficulty pair produced for one rating.
type memoryUpdate struct {
	stability  float64
	difficulty float64
}

// calculateMemoryUpdate computes the new stability and difficulty of a card
// for a given rating.
//
// Algorithm behavior:
//   - New cards take the initial stability and difficulty for the rating
//   - Learning and Relearning cards reviewed within a day use the short-term
//     stability formula; the same-day retry of a failed card lands here
//   - Every other review evaluates retrievability at the elapsed time and uses
//     the recall formula for Hard/Good/Easy and the forget formula for Again
//   - Stability is computed from the difficulty before the review
func calculateMemoryUpdate(
	card *domain.CardMemoryState,
	rating domain.Rating,
	elapsedDays int,
	params *Params,
) memoryUpdate {
	if card.State == domain.StateNew {
		return memoryUpdate{
			stability:  calculateInitialStability(rating, params),
			difficulty: calculateInitialDifficulty(rating, true, params),
		}
	}

	var stability float64
	sameDayLearning := elapsedDays < 1 &&
		(card.State == domain.StateLearning || card.State == domain.StateRelearning)

	switch {
	case sameDayLearning:
		stability = calculateShortTermStability(card.Stability, rating, params)
	case rating == domain.RatingAgain:
		r := calculateRetrievability(float64(elapsedDays), card.Stability, params)
		stability = calculateForgetStability(card.Difficulty, card.Stability, r, params)
	default:
		r := calculateRetrievability(float64(elapsedDays), card.Stability, params)
		stability = calculateRecallStability(card.Difficulty, card.Stability, r, rating, params)
	}

	return memoryUpdate{
		stability:  stability,
		difficulty: calculateNextDifficulty(card.Difficulty, rating, params),
	}
}

// calculateReviewIntervals computes the intervals of all four ratings for a
// card in the Review state and orders them.
//
// Each rating's interval is derived from its own stability and fuzzed
// independently, drawing from rng in rating order. The results are then
// forced into again < hard < good < easy where the maximum interval allows:
//
//   - hard is at most good
//   - good is at least hard + 1
//   - easy is at least good + 1
//   - again is below good and at least 1
//
// This guarantees that failing a review card always schedules it sooner than
// passing it from the same starting state.
func calculateReviewIntervals(
	card *domain.CardMemoryState,
	elapsedDays int,
	rng *rand.Rand,
	params *Params,
) map[domain.Rating]int {
	raw := make(map[domain.Rating]int, len(domain.Ratings))
	for _, rating := range domain.Ratings {
		update := calculateMemoryUpdate(card, rating, elapsedDays, params)
		raw[rating] = applyFuzz(calculateNextInterval(update.stability, params), rng, params)
	}

	hard := min(raw[domain.RatingHard], raw[domain.RatingGood])
	good := clampInterval(max(raw[domain.RatingGood], hard+1), params)
	easy := clampInterval(max(raw[domain.RatingEasy], good+1), params)
	again := clampInterval(min(raw[domain.RatingAgain], good-1), params)

	return map[domain.Rating]int{
		domain.RatingAgain: again,
		domain.RatingHard:  hard,
		domain.RatingGood:  good,
		domain.RatingEasy:  easy,
	}
}

// calculateNextRepetitionState applies the review-state transition table.
//
//	New        + any      -> Learning
//	Learning   + recall   -> Review
//	Learning   + Again    -> Relearning
//	Relearning + recall   -> Review
//	Relearning + Again    -> Relearning
//	Review     + recall   -> Review
//	Review     + Again    -> Relearning (a lapse)
func calculateNextRepetitionState(state domain.RepetitionState, rating domain.Rating) domain.RepetitionState {
	switch {
	case state == domain.StateNew:
		return domain.StateLearning
	case rating == domain.RatingAgain:
		return domain.StateRelearning
	default:
		return domain.StateReview
	}
}

// calculateNextState creates a new CardMemoryState with updated values based on the rating.
//
// This function orchestrates a full scheduling step and never modifies the
// input card. It coordinates elapsed-time measurement, the memory update, the
// state transition and interval selection.
//
// Parameters:
//   - card: the current, validated memory state
//   - rating: the four-point grade of the review
//   - now: the review instant; it is the only clock the computation reads
//   - params: configuration parameters for the SRS algorithm
//
// Returns the new state and the log entry describing the decision.
//
// Algorithm behavior:
//   - Review cards choose their interval from the ordered set of all four
//     rating intervals; other states use the interval of the new stability
//   - Intervals are whole days in [1, MaximumIntervalDays]
//   - reps grows on every successful recall; lapses grows only when a Review
//     card is failed
//   - due is exactly scheduledDays days after now
func calculateNextState(
	card *domain.CardMemoryState,
	rating domain.Rating,
	now time.Time,
	params *Params,
) (*domain.CardMemoryState, *domain.ReviewLogEntry) {
	now = now.UTC()
	elapsedDays := calculateElapsedDays(card, now)

	var rng *rand.Rand
	if params.EnableFuzz {
		rng = newFuzzSource(card, now)
	}

	update := calculateMemoryUpdate(card, rating, elapsedDays, params)

	var interval int
	if card.State == domain.StateReview {
		interval = calculateReviewIntervals(card, elapsedDays, rng, params)[rating]
	} else {
		interval = applyFuzz(calculateNextInterval(update.stability, params), rng, params)
	}

	next := card.Clone()
	next.State = calculateNextRepetitionState(card.State, rating)
	next.Stability = update.stability
	next.Difficulty = update.difficulty
	next.ElapsedDays = elapsedDays
	next.ScheduledDays = interval
	next.Due = now.AddDate(0, 0, interval)
	next.LastReview = &now

	if rating.IsRecall() {
		next.Reps++
	}
	if card.State == domain.StateReview && rating == domain.RatingAgain {
		next.Lapses++
	}

	log := &domain.ReviewLogEntry{
		CardID:        card.ID,
		Rating:        rating,
		State:         card.State,
		ElapsedDays:   elapsedDays,
		ScheduledDays: interval,
		ReviewedAt:    now,
	}

	return next, log
}
