package logrank

import (
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"survkit/domain/cohort"
	"survkit/domain/core"
	"survkit/domain/survival"
)

// Test is the generalized k-sample log-rank test
type Test struct{}

// NewTest creates a new log-rank test
func NewTest() *Test {
	return &Test{}
}

// Result carries the test statistic and its right-tail p-value
type Result struct {
	ChiSquare        float64                `json:"chi_square"`
	DegreesOfFreedom int                    `json:"degrees_of_freedom"`
	PValue           float64                `json:"p_value"`
	Warnings         []survival.WarningCode `json:"warnings,omitempty"`
}

// observation is one subject's (time, event) pair within a group
type observation struct {
	time  float64
	event bool
}

// Compare tests whether the supplied groups share a common survival
// distribution. At every distinct pooled event time it accumulates observed
// minus expected events per group and the hypergeometric variance-covariance;
// the statistic z' V^-1 z over the first k-1 groups is chi-square with k-1
// degrees of freedom under the null. For two groups this is the classic
// two-sample log-rank statistic.
//
// A group with zero observed events makes the test computable but unstable;
// the result is reported with a ZERO_EVENT_ARM warning rather than
// suppressed.
func (t *Test) Compare(groups []*cohort.Cohort) (Result, error) {
	obs := make([][]observation, 0, len(groups))
	for _, g := range groups {
		if g == nil || g.IsEmpty() {
			continue
		}
		obs = append(obs, collect(g))
	}

	k := len(obs)
	if k < 2 {
		return Result{}, core.ErrInsufficientGroups
	}

	var warnings []survival.WarningCode
	for _, group := range obs {
		if eventCount(group) == 0 {
			warnings = append(warnings, survival.WarningZeroEventArm)
			break
		}
	}

	observed, expected, cov := accumulate(obs)

	df := k - 1
	chi2, ok := quadraticForm(observed, expected, cov)
	if !ok {
		// Singular covariance (tiny strata, no at-risk overlap). Fall back
		// to the conservative sum((O-E)^2 / E) form.
		chi2 = approximateChiSquare(observed, expected)
	}

	chiDist := distuv.ChiSquared{K: float64(df)}
	pValue := 1 - chiDist.CDF(chi2)
	if pValue < 0 {
		pValue = 0
	}

	return Result{
		ChiSquare:        chi2,
		DegreesOfFreedom: df,
		PValue:           pValue,
		Warnings:         warnings,
	}, nil
}

// collect extracts a group's observations sorted by time ascending
func collect(c *cohort.Cohort) []observation {
	out := make([]observation, c.Len())
	for i := 0; i < c.Len(); i++ {
		r := c.At(i)
		out[i] = observation{time: r.Time, event: r.Event}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].time < out[j].time })
	return out
}

func eventCount(group []observation) int {
	n := 0
	for _, o := range group {
		if o.event {
			n++
		}
	}
	return n
}

// accumulate sweeps the pooled distinct times in ascending order and sums,
// over event times, the per-group observed events, expected events under
// the null, and the (k-1)x(k-1) variance-covariance of observed-expected.
func accumulate(obs [][]observation) (observed, expected []float64, cov *mat.SymDense) {
	k := len(obs)
	observed = make([]float64, k)
	expected = make([]float64, k)
	cov = mat.NewSymDense(k-1, nil)

	times := pooledTimes(obs)

	// next[i] is the first observation in group i not yet removed from the
	// at-risk set; everything before it has time < current t.
	next := make([]int, k)

	for _, t := range times {
		atRisk := make([]float64, k)
		events := make([]float64, k)
		total := 0.0
		totalEvents := 0.0

		for i, group := range obs {
			n := float64(len(group) - next[i])
			atRisk[i] = n
			total += n

			for j := next[i]; j < len(group) && group[j].time == t; j++ {
				if group[j].event {
					events[i]++
					totalEvents++
				}
			}
		}

		if totalEvents > 0 && total > 0 {
			for i := 0; i < k; i++ {
				observed[i] += events[i]
				expected[i] += totalEvents * atRisk[i] / total
			}
			if total > 1 {
				scale := totalEvents * (total - totalEvents) / (total - 1)
				for i := 0; i < k-1; i++ {
					for j := i; j < k-1; j++ {
						term := -atRisk[i] * atRisk[j] / (total * total)
						if i == j {
							term += atRisk[i] / total
						}
						cov.SetSym(i, j, cov.At(i, j)+scale*term)
					}
				}
			}
		}

		// Remove subjects observed at t from the at-risk set.
		for i, group := range obs {
			for next[i] < len(group) && group[next[i]].time == t {
				next[i]++
			}
		}
	}

	return observed, expected, cov
}

// pooledTimes returns the sorted distinct observation times across groups
func pooledTimes(obs [][]observation) []float64 {
	seen := make(map[float64]bool)
	for _, group := range obs {
		for _, o := range group {
			seen[o.time] = true
		}
	}
	times := make([]float64, 0, len(seen))
	for t := range seen {
		times = append(times, t)
	}
	sort.Float64s(times)
	return times
}

// quadraticForm computes z' V^-1 z over the first k-1 groups
func quadraticForm(observed, expected []float64, cov *mat.SymDense) (float64, bool) {
	dim := cov.SymmetricDim()
	z := mat.NewVecDense(dim, nil)
	for i := 0; i < dim; i++ {
		z.SetVec(i, observed[i]-expected[i])
	}

	var chol mat.Cholesky
	if !chol.Factorize(cov) {
		return 0, false
	}

	var x mat.VecDense
	if err := chol.SolveVecTo(&x, z); err != nil {
		return 0, false
	}
	return mat.Dot(z, &x), true
}

// approximateChiSquare is the conservative sum((O-E)^2 / E) statistic
func approximateChiSquare(observed, expected []float64) float64 {
	chi2 := 0.0
	for i := range observed {
		if expected[i] > 0 {
			d := observed[i] - expected[i]
			chi2 += d * d / expected[i]
		}
	}
	return chi2
}
