package srs

import (
	"fmt"
)

// WeightCount is the number of trainable weights in the forgetting-curve model.
const WeightCount = 21

// DefaultWeights are the FSRS-6 default weights.
var DefaultWeights = [WeightCount]float64{
	0.212, 1.2931, 2.3065, 8.2956, // w[0..3]   initial stability per rating
	6.4133, 0.8334, 3.0194, 0.001, // w[4..7]   difficulty
	1.8722, 0.1666, 0.796, 1.4835, // w[8..11]  recall stability / forget stability
	0.0614, 0.2629, 1.6483, 0.6014, // w[12..15] forget stability / hard penalty
	1.8729, 0.5425, 0.0912, 0.0658, // w[16..19] easy bonus / short-term
	0.1542, // w[20] decay
}

// WeightLowerBounds is the minimum allowed value for each weight.
var WeightLowerBounds = [WeightCount]float64{
	0.001, 0.001, 0.001, 0.001,
	1.0, 0.001, 0.001, 0.001,
	0.0, 0.0, 0.001, 0.001,
	0.001, 0.001, 0.0, 0.0,
	1.0, 0.0, 0.0, 0.0,
	0.1,
}

// WeightUpperBounds is the maximum allowed value for each weight.
var WeightUpperBounds = [WeightCount]float64{
	100.0, 100.0, 100.0, 100.0,
	10.0, 4.0, 4.0, 0.75,
	4.5, 0.8, 3.5, 5.0,
	0.25, 0.9, 4.0, 1.0,
	6.0, 2.0, 2.0, 0.8,
	0.8,
}

// Default scheduling targets.
const (
	DefaultRequestedRetention  = 0.9
	DefaultMaximumIntervalDays = 36500
)

// Params defines all configurable parameters for the SRS algorithm.
// A Params value is fixed once a Service has been built from it.
type Params struct {
	// RequestedRetention is the recall probability at which a card falls due.
	RequestedRetention float64

	// MaximumIntervalDays caps every scheduled interval.
	MaximumIntervalDays int

	// EnableFuzz spreads intervals of 3 days or more over a small window so
	// cards learned together do not all fall due on the same day.
	EnableFuzz bool

	// Weights are the forgetting-curve model weights.
	Weights [WeightCount]float64
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the defaults, so fuzz is switched off with DisableFuzz.
type ParamsConfig struct {
	RequestedRetention  float64
	MaximumIntervalDays int
	DisableFuzz         bool
	Weights             *[WeightCount]float64
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		RequestedRetention:  DefaultRequestedRetention,
		MaximumIntervalDays: DefaultMaximumIntervalDays,
		EnableFuzz:          true,
		Weights:             DefaultWeights,
	}
}

// NewParams creates a new Params instance with custom configuration.
// The result is not validated; Service constructors call Validate.
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.RequestedRetention != 0 {
		params.RequestedRetention = config.RequestedRetention
	}
	if config.MaximumIntervalDays != 0 {
		params.MaximumIntervalDays = config.MaximumIntervalDays
	}
	if config.DisableFuzz {
		params.EnableFuzz = false
	}
	if config.Weights != nil {
		params.Weights = *config.Weights
	}

	return params
}

// Validate reports whether the parameters can drive the scheduler.
func (p *Params) Validate() error {
	// Written as a negated range so NaN fails too.
	if !(p.RequestedRetention > 0 && p.RequestedRetention < 1) {
		return fmt.Errorf("%w: requested retention %v must be in (0, 1)",
			ErrInvalidParams, p.RequestedRetention)
	}
	if p.MaximumIntervalDays < 1 {
		return fmt.Errorf("%w: maximum interval %d must be at least 1 day",
			ErrInvalidParams, p.MaximumIntervalDays)
	}
	for i := range WeightCount {
		if !(p.Weights[i] >= WeightLowerBounds[i] && p.Weights[i] <= WeightUpperBounds[i]) {
			return fmt.Errorf("%w: w[%d] = %v, bounds [%v, %v]",
				ErrInvalidParams, i, p.Weights[i], WeightLowerBounds[i], WeightUpperBounds[i])
		}
	}
	return nil
}

// WeightsFromSlice converts a configured weight list into the fixed-size form.
func WeightsFromSlice(w []float64) (*[WeightCount]float64, error) {
	if len(w) != WeightCount {
		return nil, fmt.Errorf("%w: expected %d weights, got %d", ErrInvalidParams, WeightCount, len(w))
	}
	var out [WeightCount]float64
	copy(out[:], w)
	return &out, nil
}
