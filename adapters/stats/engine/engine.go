package engine

import (
	"survkit/adapters/stats/cox"
	"survkit/adapters/stats/estimator"
	"survkit/adapters/stats/logrank"
)

// Config carries the statistical policies surfaced to callers
type Config struct {
	// CoxTolerance is the Newton-Raphson convergence threshold
	CoxTolerance float64
	// CoxMaxIterations bounds the Newton-Raphson loop
	CoxMaxIterations int
	// MinEvents is the minimum pooled event count below which a pair's
	// p-values are withheld as unreliable
	MinEvents int
}

// DefaultConfig returns the standard comparison policies
func DefaultConfig() Config {
	return Config{
		CoxTolerance:     cox.DefaultTolerance,
		CoxMaxIterations: cox.DefaultMaxIterations,
		MinEvents:        1,
	}
}

// PairwiseEngine runs the full statistical pipeline for every unordered
// pair of groups in a labeling
type PairwiseEngine struct {
	estimator *estimator.KaplanMeier
	logrank   *logrank.Test
	cox       *cox.Model
	minEvents int
}

// NewPairwiseEngine creates a pairwise engine with the given policies
func NewPairwiseEngine(cfg Config) *PairwiseEngine {
	model := cox.NewModel()
	if cfg.CoxTolerance > 0 {
		model.Tolerance = cfg.CoxTolerance
	}
	if cfg.CoxMaxIterations > 0 {
		model.MaxIterations = cfg.CoxMaxIterations
	}

	minEvents := cfg.MinEvents
	if minEvents < 1 {
		minEvents = 1
	}

	return &PairwiseEngine{
		estimator: estimator.NewKaplanMeier(),
		logrank:   logrank.NewTest(),
		cox:       model,
		minEvents: minEvents,
	}
}
