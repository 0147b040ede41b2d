package ports

import (
	"context"

	"survkit/domain/cohort"
)

// CohortSourcePort supplies subject cohorts from an external tabular source.
// How the table was obtained (CSV, database, in-memory generation) is the
// collaborator's concern; the engine only sees constructed cohorts.
type CohortSourcePort interface {
	LoadCohort(ctx context.Context) (*cohort.Cohort, error)
}
