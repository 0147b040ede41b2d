package stratify

import (
	"github.com/montanaflynn/stats"

	"survkit/domain/cohort"
	"survkit/domain/core"
	"survkit/domain/survival"
)

// Stratifier derives group labels from covariates
type Stratifier struct{}

// NewStratifier creates a new stratifier
func NewStratifier() *Stratifier {
	return &Stratifier{}
}

// MedianSplit assigns "High"/"Low" labels by splitting a numeric covariate
// at its median. The median is computed over subjects with a non-missing
// value for the covariate (median-of-available, not median-of-population).
// Values equal to the median go to "High" - the inclusive upper bound is a
// documented policy, not an implementation choice. Subjects with a missing
// value receive no label.
func (s *Stratifier) MedianSplit(c *cohort.Cohort, key core.CovariateKey) (survival.Labeling, error) {
	values := c.NumericValues(key)

	if !hasTwoDistinct(values) {
		return survival.Labeling{}, core.NewInvalidCovariateError(key, "fewer than two distinct values")
	}

	median, err := stats.Median(values)
	if err != nil {
		return survival.Labeling{}, core.NewInvalidCovariateError(key, err.Error())
	}

	labels := make(map[core.SubjectID]survival.GroupLabel, c.Len())
	for i := 0; i < c.Len(); i++ {
		record := c.At(i)
		v, ok := record.Covariate(key)
		if !ok {
			continue
		}
		f, ok := v.Float()
		if !ok {
			continue
		}
		if f >= median {
			labels[record.ID] = survival.LabelHigh
		} else {
			labels[record.ID] = survival.LabelLow
		}
	}

	return survival.Labeling{Covariate: key, Labels: labels}, nil
}

// CrossProduct combines two single-covariate labelings into composite
// labels, e.g. the four High/Low x High/Low combinations. Subjects missing
// either prerequisite label are excluded, never assigned a partial label.
func (s *Stratifier) CrossProduct(a, b survival.Labeling) survival.Labeling {
	labels := make(map[core.SubjectID]survival.GroupLabel)
	for id, la := range a.Labels {
		lb, ok := b.Labels[id]
		if !ok {
			continue
		}
		labels[id] = survival.Composite(a.Covariate, la, b.Covariate, lb)
	}

	composite := core.CovariateKey(string(a.Covariate) + "*" + string(b.Covariate))
	return survival.Labeling{Covariate: composite, Labels: labels}
}

// hasTwoDistinct reports whether a meaningful split is possible at all
func hasTwoDistinct(values []float64) bool {
	if len(values) < 2 {
		return false
	}
	first := values[0]
	for _, v := range values[1:] {
		if v != first {
			return true
		}
	}
	return false
}
