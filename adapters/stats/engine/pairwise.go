package engine

import (
	"context"

	"survkit/adapters/stats/cox"
	"survkit/domain/cohort"
	"survkit/domain/core"
	"survkit/domain/survival"
)

// groupView pairs a label with the cohort view of its members
type groupView struct {
	label survival.GroupLabel
	view  *cohort.Cohort
}

// CompareAll runs the statistical pipeline for every unordered pair of
// populated groups: per-group Kaplan-Meier medians and counts, the
// two-sample log-rank test, and the Cox hazard ratio of the second group
// relative to the first (labels sorted). C(k,2) rows for k groups, ordered
// deterministically; pairs are independent of each other.
//
// A pair below the minimum-event policy still yields a row - with absent
// p-values and an UNRELIABLE_PAIR warning - so the output table stays
// rectangular.
func (e *PairwiseEngine) CompareAll(ctx context.Context, c *cohort.Cohort, labeling survival.Labeling) ([]survival.ComparisonResult, error) {
	if c.IsEmpty() {
		return nil, core.NewEmptyCohortError("pairwise comparison")
	}

	groups := e.populatedGroups(c, labeling)
	if len(groups) < 2 {
		return nil, core.ErrInsufficientGroups
	}

	results := make([]survival.ComparisonResult, 0, len(groups)*(len(groups)-1)/2)
	for i := 0; i < len(groups)-1; i++ {
		for j := i + 1; j < len(groups); j++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results = append(results, e.comparePair(groups[i], groups[j]))
		}
	}
	return results, nil
}

// populatedGroups derives one cohort view per label, keeping only groups
// with at least one member in this cohort. Order follows the sorted labels.
func (e *PairwiseEngine) populatedGroups(c *cohort.Cohort, labeling survival.Labeling) []groupView {
	groups := make([]groupView, 0)
	for _, label := range labeling.Groups() {
		view := c.Subset(func(r cohort.SubjectRecord) bool {
			return labeling.Labels[r.ID] == label
		})
		if !view.IsEmpty() {
			groups = append(groups, groupView{label: label, view: view})
		}
	}
	return groups
}

// comparePair produces one result row for an unordered group pair
func (e *PairwiseEngine) comparePair(a, b groupView) survival.ComparisonResult {
	result := survival.ComparisonResult{
		GroupA: e.summarize(a),
		GroupB: e.summarize(b),
	}

	totalEvents := result.GroupA.NEvents + result.GroupB.NEvents
	if totalEvents < e.minEvents {
		result.Warnings = append(result.Warnings, survival.WarningUnreliablePair)
		if totalEvents == 0 {
			result.Warnings = append(result.Warnings, survival.WarningZeroEventArm)
		}
		return result
	}

	lr, err := e.logrank.Compare([]*cohort.Cohort{a.view, b.view})
	if err == nil {
		p := lr.PValue
		result.LogRankP = &p
		result.Warnings = append(result.Warnings, lr.Warnings...)
	}

	fit, err := e.cox.FitGroups(a.view, b.view)
	if err != nil {
		if code, ok := cox.Unavailable(err); ok {
			result.Warnings = append(result.Warnings, code)
		}
		return result
	}

	hr := fit.HazardRatio
	hrP := fit.PValue
	result.HazardRatio = &hr
	result.HazardRatioP = &hrP
	return result
}

// summarize computes the per-group counts and Kaplan-Meier median
func (e *PairwiseEngine) summarize(g groupView) survival.GroupSummary {
	summary := survival.GroupSummary{
		Label:     g.label,
		NSubjects: g.view.Len(),
		NEvents:   g.view.EventCount(),
		Median:    survival.MedianNotReached(),
	}

	curve, err := e.estimator.Estimate(g.view)
	if err == nil {
		summary.Median = curve.Median
	}
	return summary
}
