package testkit

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"survkit/domain/cohort"
	"survkit/domain/core"
)

// CohortGeneratorConfig configures the synthetic survival cohort generator
type CohortGeneratorConfig struct {
	SubjectCount   int     `json:"subject_count"`
	CovariateCount int     `json:"covariate_count"`
	BaselineHazard float64 `json:"baseline_hazard"`
	CensorHorizon  float64 `json:"censor_horizon"`
	Seed           int64   `json:"seed"`

	// EffectSizes maps covariate keys to log hazard ratios per unit of the
	// (standard normal) covariate. Unlisted covariates are pure noise.
	EffectSizes map[core.CovariateKey]float64 `json:"effect_sizes,omitempty"`
}

// DefaultCohortConfig returns sensible defaults for synthetic cohorts
func DefaultCohortConfig() CohortGeneratorConfig {
	return CohortGeneratorConfig{
		SubjectCount:   400,
		CovariateCount: 10,
		BaselineHazard: 0.02,
		CensorHorizon:  60,
		Seed:           42,
		EffectSizes: map[core.CovariateKey]float64{
			CovariateName(0): 0.8,
		},
	}
}

// CovariateName returns the i-th generated covariate key
func CovariateName(i int) core.CovariateKey {
	return core.CovariateKey(fmt.Sprintf("GENE_%04d", i+1))
}

// CohortGenerator produces deterministic synthetic survival cohorts:
// standard-normal expression covariates, exponential event times under a
// proportional-hazards model, and uniform administrative censoring.
type CohortGenerator struct {
	config CohortGeneratorConfig
	rng    *rand.Rand
}

// NewCohortGenerator creates a seeded cohort generator
func NewCohortGenerator(config CohortGeneratorConfig) *CohortGenerator {
	return &CohortGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate builds the cohort. The second return value is the count of
// records excluded by the eligibility rule (always zero for generated data).
func (g *CohortGenerator) Generate() (*cohort.Cohort, int) {
	records := make([]cohort.SubjectRecord, 0, g.config.SubjectCount)

	for i := 0; i < g.config.SubjectCount; i++ {
		covariates := make(map[core.CovariateKey]cohort.Value, g.config.CovariateCount+2)

		logHazard := math.Log(g.config.BaselineHazard)
		for c := 0; c < g.config.CovariateCount; c++ {
			key := CovariateName(c)
			value := g.rng.NormFloat64()
			covariates[key] = cohort.Numeric(value)
			if beta, ok := g.config.EffectSizes[key]; ok {
				logHazard += beta * value
			}
		}

		// Clinical categoricals for subset batching demos and tests.
		sex := "F"
		if g.rng.Float64() < 0.5 {
			sex = "M"
		}
		covariates["sex"] = cohort.Categorical(sex)

		stage := "II"
		if g.rng.Float64() < 0.5 {
			stage = "III"
		}
		covariates["stage"] = cohort.Categorical(stage)

		hazard := math.Exp(logHazard)
		eventTime := g.rng.ExpFloat64() / hazard
		censorTime := g.rng.Float64() * g.config.CensorHorizon

		record := cohort.SubjectRecord{
			ID:         core.SubjectID(fmt.Sprintf("subject_%04d", i+1)),
			Time:       math.Min(eventTime, censorTime),
			Event:      eventTime <= censorTime,
			Covariates: covariates,
		}
		records = append(records, record)
	}

	return cohort.New(records)
}

// LoadCohort implements ports.CohortSourcePort
func (g *CohortGenerator) LoadCohort(ctx context.Context) (*cohort.Cohort, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, _ := g.Generate()
	if c.IsEmpty() {
		return nil, core.NewEmptyCohortError("synthetic generation")
	}
	return c, nil
}
