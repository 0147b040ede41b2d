package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"survkit/domain/cohort"
	"survkit/domain/core"
	"survkit/domain/survival"
)

func labeledCohort(t *testing.T, groups map[survival.GroupLabel][]cohort.SubjectRecord) (*cohort.Cohort, survival.Labeling) {
	t.Helper()
	labeling := survival.Labeling{
		Covariate: "test",
		Labels:    make(map[core.SubjectID]survival.GroupLabel),
	}
	var records []cohort.SubjectRecord
	for label, members := range groups {
		for _, r := range members {
			records = append(records, r)
			labeling.Labels[r.ID] = label
		}
	}
	c, _ := cohort.New(records)
	return c, labeling
}

func members(prefix string, times []float64, events []bool) []cohort.SubjectRecord {
	out := make([]cohort.SubjectRecord, len(times))
	for i := range times {
		out[i] = cohort.SubjectRecord{
			ID:    core.SubjectID(fmt.Sprintf("%s%d", prefix, i)),
			Time:  times[i],
			Event: events[i],
		}
	}
	return out
}

// TestCompareAllRowCount verifies the pairwise contract: k populated groups
// produce exactly C(k,2) rows, each pairing two distinct input labels.
func TestCompareAllRowCount(t *testing.T) {
	c, labeling := labeledCohort(t, map[survival.GroupLabel][]cohort.SubjectRecord{
		"alpha": members("a", []float64{1, 4, 9, 16}, []bool{true, true, false, true}),
		"beta":  members("b", []float64{2, 6, 11, 18}, []bool{true, false, true, true}),
		"gamma": members("c", []float64{3, 8, 13, 21}, []bool{false, true, true, true}),
	})

	rows, err := NewPairwiseEngine(DefaultConfig()).CompareAll(context.Background(), c, labeling)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("Expected C(3,2)=3 rows, got %d", len(rows))
	}

	seen := make(map[string]bool)
	for _, row := range rows {
		if row.GroupA.Label == row.GroupB.Label {
			t.Errorf("Row pairs a group with itself: %s", row.GroupA.Label)
		}
		key := string(row.GroupA.Label) + "|" + string(row.GroupB.Label)
		if seen[key] {
			t.Errorf("Duplicate pair: %s", key)
		}
		seen[key] = true

		if row.GroupA.NSubjects != 4 || row.GroupB.NSubjects != 4 {
			t.Errorf("Unexpected group sizes: %d / %d", row.GroupA.NSubjects, row.GroupB.NSubjects)
		}
		if row.LogRankP == nil {
			t.Errorf("Expected log-rank p for pair %s", key)
		}
	}
}

// TestCompareAllLabelOrderIsDeterministic verifies rows follow sorted labels
func TestCompareAllLabelOrderIsDeterministic(t *testing.T) {
	c, labeling := labeledCohort(t, map[survival.GroupLabel][]cohort.SubjectRecord{
		"zeta":  members("z", []float64{1, 2, 3}, []bool{true, true, true}),
		"alpha": members("a", []float64{4, 5, 6}, []bool{true, true, true}),
	})

	rows, err := NewPairwiseEngine(DefaultConfig()).CompareAll(context.Background(), c, labeling)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0].GroupA.Label != "alpha" || rows[0].GroupB.Label != "zeta" {
		t.Errorf("Expected sorted pair (alpha, zeta), got (%s, %s)",
			rows[0].GroupA.Label, rows[0].GroupB.Label)
	}
}

// TestCompareAllUnreliablePair verifies a pair below the minimum-event policy
// still yields a row, with absent statistics and warnings instead of numbers.
func TestCompareAllUnreliablePair(t *testing.T) {
	c, labeling := labeledCohort(t, map[survival.GroupLabel][]cohort.SubjectRecord{
		"high": members("h", []float64{5, 10, 15}, make([]bool, 3)),
		"low":  members("l", []float64{6, 12, 18}, make([]bool, 3)),
	})

	rows, err := NewPairwiseEngine(DefaultConfig()).CompareAll(context.Background(), c, labeling)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}

	row := rows[0]
	if row.LogRankP != nil || row.HazardRatio != nil || row.HazardRatioP != nil {
		t.Error("Expected absent statistics for a zero-event pair")
	}
	if !row.HasWarning(survival.WarningUnreliablePair) {
		t.Errorf("Expected UNRELIABLE_PAIR warning, got %v", row.Warnings)
	}
	if !row.HasWarning(survival.WarningZeroEventArm) {
		t.Errorf("Expected ZERO_EVENT_ARM warning, got %v", row.Warnings)
	}
	if row.GroupA.Median.Reached || row.GroupB.Median.Reached {
		t.Error("All-censored groups cannot reach a median")
	}
}

// TestCompareAllSeparationSurfacesAsWarning verifies a one-arm-censored pair
// keeps its log-rank p but reports the Cox fit as unavailable.
func TestCompareAllSeparationSurfacesAsWarning(t *testing.T) {
	c, labeling := labeledCohort(t, map[survival.GroupLabel][]cohort.SubjectRecord{
		"high": members("h", []float64{1, 2, 3, 4}, []bool{true, true, true, true}),
		"low":  members("l", []float64{5, 6, 7, 8}, make([]bool, 4)),
	})

	rows, err := NewPairwiseEngine(DefaultConfig()).CompareAll(context.Background(), c, labeling)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	row := rows[0]
	if row.LogRankP == nil {
		t.Error("Expected log-rank p-value despite the Cox separation")
	}
	if row.HazardRatio != nil {
		t.Error("Expected absent hazard ratio under separation")
	}
	if !row.HasWarning(survival.WarningSeparation) {
		t.Errorf("Expected COX_SEPARATION warning, got %v", row.Warnings)
	}
}

// TestCompareAllInsufficientGroups verifies single-group and unlabeled inputs
func TestCompareAllInsufficientGroups(t *testing.T) {
	c, labeling := labeledCohort(t, map[survival.GroupLabel][]cohort.SubjectRecord{
		"only": members("o", []float64{1, 2, 3}, []bool{true, true, true}),
	})

	_, err := NewPairwiseEngine(DefaultConfig()).CompareAll(context.Background(), c, labeling)
	if !errors.Is(err, core.ErrInsufficientGroups) {
		t.Fatalf("Expected ErrInsufficientGroups, got %v", err)
	}
}

// TestCompareAllEmptyCohort verifies the structural precondition
func TestCompareAllEmptyCohort(t *testing.T) {
	empty, _ := cohort.New(nil)

	_, err := NewPairwiseEngine(DefaultConfig()).CompareAll(context.Background(), empty, survival.Labeling{})
	if !errors.Is(err, core.ErrEmptyCohort) {
		t.Fatalf("Expected ErrEmptyCohort, got %v", err)
	}
}

// TestCompareAllHonorsCancellation verifies context checks between pairs
func TestCompareAllHonorsCancellation(t *testing.T) {
	c, labeling := labeledCohort(t, map[survival.GroupLabel][]cohort.SubjectRecord{
		"a": members("a", []float64{1, 2}, []bool{true, true}),
		"b": members("b", []float64{3, 4}, []bool{true, true}),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPairwiseEngine(DefaultConfig()).CompareAll(ctx, c, labeling)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}
