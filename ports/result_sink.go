package ports

import (
	"context"

	"survkit/domain/survival"
)

// ResultSinkPort receives the structured outputs of a batch run as they are
// produced. Serialization (CSV, plots, databases) lives entirely behind
// this boundary.
type ResultSinkPort interface {
	StoreResults(ctx context.Context, unit string, rows []survival.ComparisonResult) error
	StoreSkip(ctx context.Context, skip survival.SkippedUnit) error
	StoreManifest(ctx context.Context, manifest survival.BatchManifest) error
}
