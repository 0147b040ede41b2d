package estimator

import (
	"sort"

	"survkit/domain/cohort"
	"survkit/domain/core"
	"survkit/domain/survival"
)

// KaplanMeier computes product-limit survival curves with right-censoring
type KaplanMeier struct{}

// NewKaplanMeier creates a new Kaplan-Meier estimator
func NewKaplanMeier() *KaplanMeier {
	return &KaplanMeier{}
}

// timeGroup aggregates the subjects observed at one distinct time
type timeGroup struct {
	time     float64
	events   int
	censored int
}

// Estimate computes the Kaplan-Meier curve over a cohort view.
//
// Subjects are sorted by time; ties at one event time are processed as a
// single step. The survival probability updates only at times with observed
// events: S(t) = S(t-) * (n_at_risk - n_events) / n_at_risk. Censoring-only
// times leave S unchanged but still shrink the at-risk set for every later
// time. The median is the first time at which S(t) <= 0.5 - a curve
// statistic, valid even when fewer than half the subjects had events.
func (k *KaplanMeier) Estimate(c *cohort.Cohort) (survival.SurvivalCurve, error) {
	if c.IsEmpty() {
		return survival.SurvivalCurve{}, core.NewEmptyCohortError("survival curve estimation")
	}

	groups := groupByTime(c)

	nAtRisk := c.Len()
	prob := 1.0
	median := survival.MedianNotReached()
	totalEvents := 0

	points := make([]survival.CurvePoint, 0, len(groups))
	for _, g := range groups {
		if g.events > 0 {
			prob = prob * float64(nAtRisk-g.events) / float64(nAtRisk)
			totalEvents += g.events
		}

		points = append(points, survival.CurvePoint{
			Time:                g.time,
			NAtRisk:             nAtRisk,
			NEvents:             g.events,
			NCensored:           g.censored,
			SurvivalProbability: prob,
		})

		if !median.Reached && prob <= 0.5 {
			median = survival.MedianAt(g.time)
		}

		nAtRisk -= g.events + g.censored
	}

	return survival.SurvivalCurve{
		Points:    points,
		NSubjects: c.Len(),
		NEvents:   totalEvents,
		Median:    median,
	}, nil
}

// groupByTime collapses the cohort into distinct observed times, ascending,
// with event and censoring counts per time.
func groupByTime(c *cohort.Cohort) []timeGroup {
	byTime := make(map[float64]*timeGroup, c.Len())
	for i := 0; i < c.Len(); i++ {
		r := c.At(i)
		g, ok := byTime[r.Time]
		if !ok {
			g = &timeGroup{time: r.Time}
			byTime[r.Time] = g
		}
		if r.Event {
			g.events++
		} else {
			g.censored++
		}
	}

	groups := make([]timeGroup, 0, len(byTime))
	for _, g := range byTime {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].time < groups[j].time })
	return groups
}
