package cohort

import (
	"math"

	"survkit/domain/core"
)

// ValueKind tags a covariate value as numeric or categorical
type ValueKind string

const (
	KindNumeric     ValueKind = "numeric"
	KindCategorical ValueKind = "categorical"
)

// Value is a tagged covariate value. The tag is resolved once at cohort
// construction; use sites never re-inspect raw representations.
type Value struct {
	kind ValueKind
	num  float64
	cat  string
}

// Numeric creates a numeric covariate value
func Numeric(v float64) Value {
	return Value{kind: KindNumeric, num: v}
}

// Categorical creates a categorical covariate value
func Categorical(v string) Value {
	return Value{kind: KindCategorical, cat: v}
}

// Kind returns the value's tag
func (v Value) Kind() ValueKind {
	return v.kind
}

// Float returns the numeric value. The second return is false for
// categorical values and for non-finite numerics, which count as missing.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumeric || math.IsNaN(v.num) || math.IsInf(v.num, 0) {
		return 0, false
	}
	return v.num, true
}

// Category returns the categorical value
func (v Value) Category() (string, bool) {
	if v.kind != KindCategorical {
		return "", false
	}
	return v.cat, true
}

// SubjectRecord is one subject's observation: time to event or censoring,
// the event indicator, and named covariate values.
type SubjectRecord struct {
	ID         core.SubjectID              `json:"id"`
	Time       float64                     `json:"time"`
	Event      bool                        `json:"event"`
	Covariates map[core.CovariateKey]Value `json:"-"`
}

// Eligible reports whether the record can enter any analysis: time must be
// a positive, finite real. Ineligible records are excluded, never coerced.
func (r SubjectRecord) Eligible() bool {
	return r.Time > 0 && !math.IsNaN(r.Time) && !math.IsInf(r.Time, 0)
}

// Covariate looks up a covariate value by key
func (r SubjectRecord) Covariate(key core.CovariateKey) (Value, bool) {
	v, ok := r.Covariates[key]
	return v, ok
}

// Cohort is an immutable, ordered collection of subject records. Subset
// views share the underlying record storage; nothing copies raw data and
// nothing mutates it after construction.
type Cohort struct {
	backing []SubjectRecord
	index   []int
	hash    core.CohortHash
}

// New builds a cohort from records, excluding ineligible ones. The second
// return value is the number of records excluded by the eligibility rule.
func New(records []SubjectRecord) (*Cohort, int) {
	backing := make([]SubjectRecord, 0, len(records))
	for _, r := range records {
		if r.Eligible() {
			backing = append(backing, r)
		}
	}

	index := make([]int, len(backing))
	for i := range backing {
		index[i] = i
	}

	c := &Cohort{backing: backing, index: index}
	c.hash = core.ComputeCohortHash(c.SubjectIDs())
	return c, len(records) - len(backing)
}

// Len returns the number of subjects in this view
func (c *Cohort) Len() int {
	return len(c.index)
}

// IsEmpty checks if the view holds no subjects
func (c *Cohort) IsEmpty() bool {
	return len(c.index) == 0
}

// At returns the i-th subject record of this view
func (c *Cohort) At(i int) SubjectRecord {
	return c.backing[c.index[i]]
}

// Subset derives a new immutable view containing the subjects matching the
// predicate. Underlying records are shared, not copied.
func (c *Cohort) Subset(pred func(SubjectRecord) bool) *Cohort {
	index := make([]int, 0, len(c.index))
	for _, i := range c.index {
		if pred(c.backing[i]) {
			index = append(index, i)
		}
	}
	sub := &Cohort{backing: c.backing, index: index}
	sub.hash = core.ComputeCohortHash(sub.SubjectIDs())
	return sub
}

// SubjectIDs returns the IDs of all subjects in this view
func (c *Cohort) SubjectIDs() []core.SubjectID {
	ids := make([]core.SubjectID, len(c.index))
	for i, idx := range c.index {
		ids[i] = c.backing[idx].ID
	}
	return ids
}

// EventCount returns the number of observed events in this view
func (c *Cohort) EventCount() int {
	n := 0
	for _, i := range c.index {
		if c.backing[i].Event {
			n++
		}
	}
	return n
}

// Hash identifies the exact subject set of this view
func (c *Cohort) Hash() core.CohortHash {
	return c.hash
}

// NumericValues collects the non-missing numeric values of a covariate
// across this view, in view order.
func (c *Cohort) NumericValues(key core.CovariateKey) []float64 {
	values := make([]float64, 0, len(c.index))
	for _, i := range c.index {
		if v, ok := c.backing[i].Covariates[key]; ok {
			if f, ok := v.Float(); ok {
				values = append(values, f)
			}
		}
	}
	return values
}
