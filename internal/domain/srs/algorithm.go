package srs

import (
	"math"
	"time"

	"github.com/phrazzld/deckstudy/internal/domain"
)

// Stability floor, in days. Stability is never allowed to reach zero because
// retrievability divides by it.
const minStability = 0.001

// curveDecay returns the decay exponent of the forgetting curve, -w[20].
func curveDecay(params *Params) float64 {
	return -params.Weights[20]
}

// curveFactor returns the curve constant chosen so that retrievability is
// exactly 0.9 when elapsed time equals stability: 0.9^(1/decay) - 1.
func curveFactor(params *Params) float64 {
	return math.Pow(0.9, 1.0/curveDecay(params)) - 1.0
}

// calculateRetrievability returns the probability of recalling a card.
//
// The forgetting curve is a power law:
//
//	R(t, S) = (1 + factor * t / S) ^ decay
//
// Parameters:
//   - elapsedDays: days since the last review, clamped to >= 0 by the caller
//   - stability: the card's stability in days, > 0
//   - params: configuration parameters for the SRS algorithm
//
// Returns a value in (0, 1]; R is 1 at t = 0 and 0.9 at t = S.
func calculateRetrievability(elapsedDays, stability float64, params *Params) float64 {
	if stability <= 0 {
		return 0
	}
	return math.Pow(1+curveFactor(params)*elapsedDays/stability, curveDecay(params))
}

// calculateInitialStability returns the stability of a card after its first
// review: S0(G) = w[G-1].
func calculateInitialStability(rating domain.Rating, params *Params) float64 {
	return clampStability(params.Weights[rating-1])
}

// calculateInitialDifficulty returns the difficulty of a card after its first
// review.
//
//	D0(G) = w[4] - e^(w[5] * (G - 1)) + 1
//
// Ratings map to G = 1 (Again) through G = 4 (Easy). The result is clamped to
// [1, 10] unless clamp is false; the unclamped value for Easy is the target of
// difficulty mean reversion.
func calculateInitialDifficulty(rating domain.Rating, clamp bool, params *Params) float64 {
	w := &params.Weights
	d := w[4] - math.Exp(w[5]*float64(rating-1)) + 1
	if clamp {
		return clampDifficulty(d)
	}
	return d
}

// calculateNextDifficulty determines the new difficulty after a review.
//
// Difficulty moves linearly with the grade and is damped as it approaches the
// upper bound, then pulled slightly back toward the initial difficulty of an
// Easy card:
//
//	ΔD  = -w[6] * (G - 3)
//	D'  = D + (10 - D) * ΔD / 9
//	D'' = w[7] * D0(Easy) + (1 - w[7]) * D'
//
// Parameters:
//   - difficulty: the card's current difficulty
//   - rating: the four-point grade of the review
//   - params: configuration parameters for the SRS algorithm
//
// Returns the new difficulty clamped to [1, 10]. Again raises difficulty,
// Good leaves it almost unchanged and Easy lowers it.
func calculateNextDifficulty(difficulty float64, rating domain.Rating, params *Params) float64 {
	w := &params.Weights
	deltaD := -w[6] * (float64(rating) - 3)
	dPrime := difficulty + (10-difficulty)*deltaD/9
	target := calculateInitialDifficulty(domain.RatingEasy, false, params)
	return clampDifficulty(w[7]*target + (1-w[7])*dPrime)
}

// calculateRecallStability determines stability after a successful recall.
//
//	S' = S * (1 + e^w[8] * (11 - D) * S^-w[9] * (e^((1-R)*w[10]) - 1) * penalty * bonus)
//
// The growth is larger for easy cards (low D), for cards with low stability,
// and for cards reviewed when recall was less likely (low R). Hard applies
// the w[15] penalty and Easy the w[16] bonus.
//
// Parameters:
//   - difficulty: difficulty before the review
//   - stability: stability before the review
//   - retrievability: probability of recall at review time
//   - rating: Hard, Good or Easy
//   - params: configuration parameters for the SRS algorithm
func calculateRecallStability(
	difficulty float64,
	stability float64,
	retrievability float64,
	rating domain.Rating,
	params *Params,
) float64 {
	w := &params.Weights

	hardPenalty := 1.0
	if rating == domain.RatingHard {
		hardPenalty = w[15]
	}
	easyBonus := 1.0
	if rating == domain.RatingEasy {
		easyBonus = w[16]
	}

	growth := math.Exp(w[8]) *
		(11 - difficulty) *
		math.Pow(stability, -w[9]) *
		(math.Exp((1-retrievability)*w[10]) - 1) *
		hardPenalty *
		easyBonus

	return clampStability(stability * (1 + growth))
}

// calculateForgetStability determines stability after a lapse.
//
//	long  = w[11] * D^-w[12] * ((S+1)^w[13] - 1) * e^((1-R)*w[14])
//	short = S / e^(w[17] * w[18])
//	S'    = min(long, short)
//
// Taking the minimum guarantees that forgetting never increases stability.
func calculateForgetStability(difficulty, stability, retrievability float64, params *Params) float64 {
	w := &params.Weights
	long := w[11] *
		math.Pow(difficulty, -w[12]) *
		(math.Pow(stability+1, w[13]) - 1) *
		math.Exp((1-retrievability)*w[14])
	short := stability / math.Exp(w[17]*w[18])
	return clampStability(math.Min(long, short))
}

// calculateShortTermStability determines stability for a same-day review of a
// card that is still learning or relearning.
//
//	SInc = e^(w[17] * (G - 3 + w[18])) * S^-w[19]
//	S'   = S * SInc
//
// For Good and Easy the increase is at least 1, so a successful same-day
// review never lowers stability.
func calculateShortTermStability(stability float64, rating domain.Rating, params *Params) float64 {
	w := &params.Weights
	sInc := math.Exp(w[17]*(float64(rating)-3+w[18])) * math.Pow(stability, -w[19])
	if rating == domain.RatingGood || rating == domain.RatingEasy {
		sInc = math.Max(sInc, 1.0)
	}
	return clampStability(stability * sInc)
}

// calculateNextInterval converts a stability into a review interval.
//
// The interval is the number of days after which retrievability falls to the
// requested retention:
//
//	I = round(S / factor * (r^(1/decay) - 1))
//
// With the default retention of 0.9 this is simply round(S).
//
// Returns an integer number of days clamped to [1, MaximumIntervalDays].
func calculateNextInterval(stability float64, params *Params) int {
	decay := curveDecay(params)
	ivl := stability / curveFactor(params) * (math.Pow(params.RequestedRetention, 1.0/decay) - 1)
	return clampInterval(int(math.Round(ivl)), params)
}

// calculateElapsedDays returns the whole number of days since the card was
// last reviewed, or since it was created when it has never been reviewed.
// A clock that runs backwards yields 0.
func calculateElapsedDays(card *domain.CardMemoryState, now time.Time) int {
	origin := card.CreatedAt
	if card.LastReview != nil {
		origin = *card.LastReview
	}
	if origin.IsZero() || now.Before(origin) {
		return 0
	}
	return int(now.Sub(origin) / (24 * time.Hour))
}

func clampStability(s float64) float64 {
	return math.Max(s, minStability)
}

func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, domain.MinDifficulty), domain.MaxDifficulty)
}

func clampInterval(days int, params *Params) int {
	if days < 1 {
		days = 1
	}
	if days > params.MaximumIntervalDays {
		days = params.MaximumIntervalDays
	}
	return days
}
