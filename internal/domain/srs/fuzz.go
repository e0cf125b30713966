package srs

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"

	"github.com/phrazzld/deckstudy/internal/domain"
)

type fuzzRange struct {
	start, end float64
	factor     float64
}

// Intervals below 2.5 days are never fuzzed; longer ones get a window that
// widens by 15%, 10% and then 5% of each additional day.
var fuzzRanges = []fuzzRange{
	{2.5, 7.0, 0.15},
	{7.0, 20.0, 0.10},
	{20.0, math.Inf(1), 0.05},
}

// newFuzzSource returns the jitter source for one scheduling computation.
// It is seeded from the card identity, the review instant and the repetition
// count, so the same inputs always produce the same jitter.
func newFuzzSource(card *domain.CardMemoryState, now time.Time) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(card.ID))

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(card.Reps))
	_, _ = h.Write(buf[:])

	return rand.New(rand.NewPCG(h.Sum64(), uint64(now.UnixNano())))
}

// calculateFuzzDelta returns the half-width of the fuzz window for an interval.
func calculateFuzzDelta(interval float64) float64 {
	delta := 1.0
	for _, r := range fuzzRanges {
		delta += r.factor * math.Max(math.Min(interval, r.end)-r.start, 0)
	}
	return delta
}

// applyFuzz picks an interval uniformly from the fuzz window around interval.
// The result stays within [2, MaximumIntervalDays] and is returned unchanged
// when fuzz is disabled (rng == nil) or the interval is shorter than 2.5 days.
func applyFuzz(interval int, rng *rand.Rand, params *Params) int {
	if rng == nil || float64(interval) < 2.5 {
		return interval
	}

	ivl := float64(interval)
	delta := calculateFuzzDelta(ivl)

	maxIvl := min(int(math.Round(ivl+delta)), params.MaximumIntervalDays)
	minIvl := min(max(2, int(math.Round(ivl-delta))), maxIvl)

	return minIvl + rng.IntN(maxIvl-minIvl+1)
}
