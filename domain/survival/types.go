package survival

import (
	"fmt"
	"sort"

	"survkit/domain/core"
)

// ============================================================================
// GROUP LABELS
// ============================================================================

// GroupLabel is a categorical group assignment derived from one or more
// covariates. Labels are assigned deterministically and never mutated.
type GroupLabel string

const (
	LabelHigh GroupLabel = "High"
	LabelLow  GroupLabel = "Low"
)

// Composite builds the label for a subject carrying two underlying labels,
// e.g. "GENE_A=High, GENE_B=Low".
func Composite(covA core.CovariateKey, a GroupLabel, covB core.CovariateKey, b GroupLabel) GroupLabel {
	return GroupLabel(fmt.Sprintf("%s=%s, %s=%s", covA, a, covB, b))
}

// Labeling maps subjects to group labels for one stratification rule
type Labeling struct {
	Covariate core.CovariateKey             `json:"covariate"`
	Labels    map[core.SubjectID]GroupLabel `json:"labels"`
}

// Groups returns the distinct labels present, sorted for determinism
func (l Labeling) Groups() []GroupLabel {
	seen := make(map[GroupLabel]bool)
	for _, g := range l.Labels {
		seen[g] = true
	}
	groups := make([]GroupLabel, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups
}

// ============================================================================
// SURVIVAL CURVES
// ============================================================================

// CurvePoint is one step of a Kaplan-Meier curve: the state of the at-risk
// set and the survival probability at a distinct observed time.
type CurvePoint struct {
	Time                float64 `json:"time"`
	NAtRisk             int     `json:"n_at_risk"`
	NEvents             int     `json:"n_events"`
	NCensored           int     `json:"n_censored"`
	SurvivalProbability float64 `json:"survival_probability"`
}

// MedianSurvival is the smallest event time at which the survival
// probability falls to 0.5 or below. Censoring can push the curve past 0.5
// with a minority of observed events, so this is a curve statistic, never
// an event-count statistic. Reached=false means the curve never got there.
type MedianSurvival struct {
	Time    float64 `json:"time,omitempty"`
	Reached bool    `json:"reached"`
}

// MedianAt creates a reached median survival time
func MedianAt(t float64) MedianSurvival {
	return MedianSurvival{Time: t, Reached: true}
}

// MedianNotReached marks a curve that never drops to 0.5
func MedianNotReached() MedianSurvival {
	return MedianSurvival{}
}

func (m MedianSurvival) String() string {
	if !m.Reached {
		return "not reached"
	}
	return fmt.Sprintf("%g", m.Time)
}

// SurvivalCurve is the product-limit estimate over a cohort view.
// INVARIANTS:
// - SurvivalProbability is non-increasing in time and starts at 1.0
// - probability changes only at points with NEvents > 0
type SurvivalCurve struct {
	Points    []CurvePoint   `json:"points"`
	NSubjects int            `json:"n_subjects"`
	NEvents   int            `json:"n_events"`
	Median    MedianSurvival `json:"median_survival"`
}

// ProbabilityAt returns S(t): the survival probability at time t,
// i.e. the value of the step function after the last point with time <= t.
func (s SurvivalCurve) ProbabilityAt(t float64) float64 {
	prob := 1.0
	for _, p := range s.Points {
		if p.Time > t {
			break
		}
		prob = p.SurvivalProbability
	}
	return prob
}

// ============================================================================
// WARNING CODES
// ============================================================================

// WarningCode represents structured warning and skip-reason types
type WarningCode string

const (
	WarningZeroEventArm   WarningCode = "ZERO_EVENT_ARM"      // a compared group observed no events
	WarningUnreliablePair WarningCode = "UNRELIABLE_PAIR"     // below minimum viable sample policy
	WarningNonConvergence WarningCode = "COX_NON_CONVERGENCE" // Newton-Raphson hit iteration limit
	WarningSeparation     WarningCode = "COX_SEPARATION"      // perfect separation, HR unbounded

	ReasonInvalidCovariate   WarningCode = "INVALID_COVARIATE"   // constant or unsplittable covariate
	ReasonEmptyCohort        WarningCode = "EMPTY_COHORT"        // unit's cohort view had no subjects
	ReasonInsufficientGroups WarningCode = "INSUFFICIENT_GROUPS" // fewer than two populated strata
)

// ============================================================================
// COMPARISON RESULTS
// ============================================================================

// GroupSummary carries per-group observation counts and the KM median
type GroupSummary struct {
	Label     GroupLabel     `json:"label"`
	NSubjects int            `json:"n_subjects"`
	NEvents   int            `json:"n_events"`
	Median    MedianSurvival `json:"median_survival"`
}

// ComparisonResult is one row of the output table: one unordered pair of
// groups with its log-rank and Cox statistics. Pointer-valued statistics
// are explicit "unavailable" markers - a failed fit is recorded as missing
// data, never as a fabricated number. Produced once, never mutated.
type ComparisonResult struct {
	GroupA       GroupSummary  `json:"group_a"`
	GroupB       GroupSummary  `json:"group_b"`
	LogRankP     *float64      `json:"log_rank_p,omitempty"`
	HazardRatio  *float64      `json:"hazard_ratio,omitempty"`
	HazardRatioP *float64      `json:"hazard_ratio_p,omitempty"`
	Warnings     []WarningCode `json:"warnings,omitempty"`
}

// HasWarning checks whether the row carries a specific warning code
func (r ComparisonResult) HasWarning(code WarningCode) bool {
	for _, w := range r.Warnings {
		if w == code {
			return true
		}
	}
	return false
}

// SkippedUnit records why a unit of batch work produced no result rows.
// Skips are data, not failures: an incomplete statistical result is still
// informative.
type SkippedUnit struct {
	Unit       string         `json:"unit"` // covariate name or subset name
	ReasonCode WarningCode    `json:"reason_code"`
	Detail     string         `json:"detail,omitempty"`
	RecordedAt core.Timestamp `json:"recorded_at"`
}

// NewSkippedUnit creates a skip record with the current timestamp
func NewSkippedUnit(unit string, reason WarningCode, detail string) SkippedUnit {
	return SkippedUnit{
		Unit:       unit,
		ReasonCode: reason,
		Detail:     detail,
		RecordedAt: core.Now(),
	}
}

// ============================================================================
// BATCH MANIFEST
// ============================================================================

// BatchManifest captures the audit metadata of one batch run: what was
// attempted, what produced rows, what was skipped and why.
type BatchManifest struct {
	BatchID          core.BatchID        `json:"batch_id"`
	CohortHash       core.CohortHash     `json:"cohort_hash"`
	PrimaryCovariate core.CovariateKey   `json:"primary_covariate,omitempty"`
	TotalUnits       int                 `json:"total_units"`
	PopulatedUnits   int                 `json:"populated_units"`
	SkippedUnits     int                 `json:"skipped_units"`
	TotalComparisons int                 `json:"total_comparisons"`
	RejectionCounts  map[WarningCode]int `json:"rejection_counts"`
	RuntimeMs        int64               `json:"runtime_ms"`
	CreatedAt        core.Timestamp      `json:"created_at"`
}

// NewBatchManifest creates an empty manifest for a batch run
func NewBatchManifest(cohortHash core.CohortHash, primary core.CovariateKey) *BatchManifest {
	return &BatchManifest{
		BatchID:          core.BatchID(core.NewID()),
		CohortHash:       cohortHash,
		PrimaryCovariate: primary,
		RejectionCounts:  make(map[WarningCode]int),
		CreatedAt:        core.Now(),
	}
}

// RecordSkip updates manifest counters for a skipped unit
func (m *BatchManifest) RecordSkip(reason WarningCode) {
	m.SkippedUnits++
	m.RejectionCounts[reason]++
}
