package cox

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"survkit/domain/cohort"
	"survkit/domain/core"
	"survkit/domain/survival"
)

// Model fits a proportional-hazards regression with a single binary group
// covariate via Newton-Raphson maximization of the Breslow partial
// likelihood.
type Model struct {
	Tolerance     float64 // convergence threshold on the coefficient step
	MaxIterations int
}

// DefaultTolerance and DefaultMaxIterations bound the Newton-Raphson loop
const (
	DefaultTolerance     = 1e-9
	DefaultMaxIterations = 50

	// coefficients beyond this are runaway fits, not biology
	coefficientBound = 50.0
)

// NewModel creates a Cox model with default convergence settings
func NewModel() *Model {
	return &Model{Tolerance: DefaultTolerance, MaxIterations: DefaultMaxIterations}
}

// Fit is the converged model: hazard ratio of the exposed group relative to
// the reference group, with Wald significance.
type Fit struct {
	Coefficient   float64 `json:"coefficient"`
	StandardError float64 `json:"standard_error"`
	HazardRatio   float64 `json:"hazard_ratio"`
	PValue        float64 `json:"p_value"`
	Iterations    int     `json:"iterations"`
}

// riskStep is the state of one distinct event time: total events, events in
// the exposed group, and at-risk counts per group.
type riskStep struct {
	events        float64 // total events at this time
	exposedEvents float64 // events in the exposed group
	refAtRisk     float64 // reference group subjects still at risk
	exposedAtRisk float64 // exposed group subjects still at risk
}

// FitGroups estimates the log hazard ratio of exposed vs reference.
//
// Ties are handled with the Breslow approximation. Perfect separation - an
// arm with zero observed events - makes the partial likelihood unbounded by
// construction and is detected up front rather than left to diverge.
func (m *Model) FitGroups(reference, exposed *cohort.Cohort) (Fit, error) {
	if reference.IsEmpty() || exposed.IsEmpty() {
		return Fit{}, core.NewEmptyCohortError("cox model fit")
	}
	if reference.EventCount() == 0 || exposed.EventCount() == 0 {
		return Fit{}, core.ErrSeparation
	}

	steps := buildRiskSteps(reference, exposed)

	beta := 0.0
	iterations := 0
	var info float64

	for {
		score := 0.0
		info = 0.0
		eb := math.Exp(beta)

		for _, s := range steps {
			weighted := s.exposedAtRisk * eb
			denom := s.refAtRisk + weighted
			if denom == 0 {
				continue
			}
			p := weighted / denom
			score += s.exposedEvents - s.events*p
			info += s.events * p * (1 - p)
		}

		if info <= 0 {
			return Fit{}, core.ErrSeparation
		}

		delta := score / info
		beta += delta
		iterations++

		if math.Abs(delta) < m.tolerance() {
			break
		}
		if math.Abs(beta) > coefficientBound {
			return Fit{}, core.NewNonConvergenceError(iterations, delta)
		}
		if iterations >= m.maxIterations() {
			return Fit{}, core.NewNonConvergenceError(iterations, delta)
		}
	}

	se := 1 / math.Sqrt(info)
	z := beta / se
	pValue := 2 * (1 - distuv.UnitNormal.CDF(math.Abs(z)))
	if pValue > 1 {
		pValue = 1
	}

	return Fit{
		Coefficient:   beta,
		StandardError: se,
		HazardRatio:   math.Exp(beta),
		PValue:        pValue,
		Iterations:    iterations,
	}, nil
}

func (m *Model) tolerance() float64 {
	if m.Tolerance > 0 {
		return m.Tolerance
	}
	return DefaultTolerance
}

func (m *Model) maxIterations() int {
	if m.MaxIterations > 0 {
		return m.MaxIterations
	}
	return DefaultMaxIterations
}

// buildRiskSteps collapses both groups into per-event-time risk-set state,
// sorted by time ascending. Times without events contribute nothing to the
// partial likelihood and are dropped after shrinking the at-risk counts.
func buildRiskSteps(reference, exposed *cohort.Cohort) []riskStep {
	type obs struct {
		time    float64
		event   bool
		exposed bool
	}

	all := make([]obs, 0, reference.Len()+exposed.Len())
	for i := 0; i < reference.Len(); i++ {
		r := reference.At(i)
		all = append(all, obs{time: r.Time, event: r.Event})
	}
	for i := 0; i < exposed.Len(); i++ {
		r := exposed.At(i)
		all = append(all, obs{time: r.Time, event: r.Event, exposed: true})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].time < all[j].time })

	refAtRisk := float64(reference.Len())
	exposedAtRisk := float64(exposed.Len())

	steps := make([]riskStep, 0)
	for i := 0; i < len(all); {
		t := all[i].time
		step := riskStep{refAtRisk: refAtRisk, exposedAtRisk: exposedAtRisk}

		for ; i < len(all) && all[i].time == t; i++ {
			if all[i].exposed {
				exposedAtRisk--
			} else {
				refAtRisk--
			}
			if all[i].event {
				step.events++
				if all[i].exposed {
					step.exposedEvents++
				}
			}
		}

		if step.events > 0 {
			steps = append(steps, step)
		}
	}
	return steps
}

// Unavailable reports whether a fit error should surface as missing
// statistics in a result row instead of aborting the comparison.
func Unavailable(err error) (survival.WarningCode, bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, core.ErrSeparation):
		return survival.WarningSeparation, true
	case errors.Is(err, core.ErrNonConvergence):
		return survival.WarningNonConvergence, true
	default:
		return "", false
	}
}
