package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"survkit/adapters/stats/engine"
	"survkit/adapters/stats/stratify"
	"survkit/domain/cohort"
	"survkit/domain/core"
	"survkit/domain/survival"
	"survkit/ports"
)

// BatchService orchestrates the combinatorial survival pipeline: many
// candidate covariates (or many cohort subsets) fanned out over independent
// analysis units, each isolated so a unit-local failure becomes a skip
// record instead of aborting the batch.
type BatchService struct {
	stratifier  *stratify.Stratifier
	engine      *engine.PairwiseEngine
	sink        ports.ResultSinkPort
	maxParallel int
}

// NewBatchService creates a batch orchestrator. The sink receives rows,
// skips and the manifest as they are produced; maxParallel <= 1 runs units
// sequentially.
func NewBatchService(cfg engine.Config, sink ports.ResultSinkPort, maxParallel int) *BatchService {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &BatchService{
		stratifier:  stratify.NewStratifier(),
		engine:      engine.NewPairwiseEngine(cfg),
		sink:        sink,
		maxParallel: maxParallel,
	}
}

// BatchRequest defines a covariate batch: cross every candidate's median
// split with the primary covariate's split and compare the composite groups.
type BatchRequest struct {
	Cohort     *cohort.Cohort
	Primary    core.CovariateKey
	Candidates []core.CovariateKey
}

// SubsetSpec names a cohort subset for subset batching
type SubsetSpec struct {
	Name   string
	Filter func(cohort.SubjectRecord) bool
}

// SubsetBatchRequest defines a subset batch: the single-covariate two-group
// pipeline repeated across named cohort subsets.
type SubsetBatchRequest struct {
	Cohort    *cohort.Cohort
	Covariate core.CovariateKey
	Subsets   []SubsetSpec
}

// BatchResult is the accumulated output of one batch run
type BatchResult struct {
	Results  map[string][]survival.ComparisonResult `json:"results"`
	Skipped  []survival.SkippedUnit                 `json:"skipped"`
	Manifest *survival.BatchManifest                `json:"manifest"`
}

// RunBatch executes the covariate batch. Only an empty cohort or an
// unsplittable primary covariate is fatal; every per-candidate failure is
// recorded as a skip with its reason and the batch continues.
func (s *BatchService) RunBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	startTime := time.Now()

	if req.Cohort == nil || req.Cohort.IsEmpty() {
		return nil, core.NewEmptyCohortError("batch input")
	}

	primary, err := s.stratifier.MedianSplit(req.Cohort, req.Primary)
	if err != nil {
		return nil, fmt.Errorf("primary covariate %s: %w", req.Primary, err)
	}

	acc := newAccumulator(req.Cohort.Hash(), req.Primary)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)

	for _, candidate := range req.Candidates {
		candidate := candidate
		g.Go(func() error {
			labeling, err := s.stratifier.MedianSplit(req.Cohort, candidate)
			if err != nil {
				return s.recordSkip(gctx, acc, candidate.String(), survival.ReasonInvalidCovariate, err)
			}

			composite := s.stratifier.CrossProduct(primary, labeling)
			rows, err := s.engine.CompareAll(gctx, req.Cohort, composite)
			if err != nil {
				return s.skipOrFail(gctx, acc, candidate.String(), err)
			}

			return s.recordRows(gctx, acc, candidate.String(), rows)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return s.finish(ctx, acc, len(req.Candidates), startTime)
}

// RunSubsetBatch executes the structurally identical batching over cohort
// subsets: each subset is median-split on the covariate and its two groups
// compared.
func (s *BatchService) RunSubsetBatch(ctx context.Context, req SubsetBatchRequest) (*BatchResult, error) {
	startTime := time.Now()

	if req.Cohort == nil || req.Cohort.IsEmpty() {
		return nil, core.NewEmptyCohortError("subset batch input")
	}

	acc := newAccumulator(req.Cohort.Hash(), req.Covariate)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)

	for _, subset := range req.Subsets {
		subset := subset
		g.Go(func() error {
			view := req.Cohort.Subset(subset.Filter)
			if view.IsEmpty() {
				return s.recordSkip(gctx, acc, subset.Name, survival.ReasonEmptyCohort,
					core.NewEmptyCohortError(subset.Name))
			}

			labeling, err := s.stratifier.MedianSplit(view, req.Covariate)
			if err != nil {
				return s.recordSkip(gctx, acc, subset.Name, survival.ReasonInvalidCovariate, err)
			}

			rows, err := s.engine.CompareAll(gctx, view, labeling)
			if err != nil {
				return s.skipOrFail(gctx, acc, subset.Name, err)
			}

			return s.recordRows(gctx, acc, subset.Name, rows)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return s.finish(ctx, acc, len(req.Subsets), startTime)
}

// accumulator is the single mutation point of a batch run. Units write
// only their own rows; the mutex guards map insertion under fan-out.
type accumulator struct {
	mu       sync.Mutex
	results  map[string][]survival.ComparisonResult
	skipped  []survival.SkippedUnit
	manifest *survival.BatchManifest
}

func newAccumulator(hash core.CohortHash, primary core.CovariateKey) *accumulator {
	return &accumulator{
		results:  make(map[string][]survival.ComparisonResult),
		manifest: survival.NewBatchManifest(hash, primary),
	}
}

// recordRows stores one populated unit's rows
func (s *BatchService) recordRows(ctx context.Context, acc *accumulator, unit string, rows []survival.ComparisonResult) error {
	acc.mu.Lock()
	acc.results[unit] = rows
	acc.manifest.PopulatedUnits++
	acc.manifest.TotalComparisons += len(rows)
	acc.mu.Unlock()

	if s.sink != nil {
		if err := s.sink.StoreResults(ctx, unit, rows); err != nil {
			return fmt.Errorf("failed to store results for %s: %w", unit, err)
		}
	}
	return nil
}

// recordSkip records a unit-local failure as data
func (s *BatchService) recordSkip(ctx context.Context, acc *accumulator, unit string, reason survival.WarningCode, cause error) error {
	log.Printf("batch: skipping %s: %v", unit, cause)

	skip := survival.NewSkippedUnit(unit, reason, cause.Error())

	acc.mu.Lock()
	acc.skipped = append(acc.skipped, skip)
	acc.manifest.RecordSkip(reason)
	acc.mu.Unlock()

	if s.sink != nil {
		if err := s.sink.StoreSkip(ctx, skip); err != nil {
			return fmt.Errorf("failed to store skip for %s: %w", unit, err)
		}
	}
	return nil
}

// skipOrFail converts structural per-unit errors into skips; anything else
// (context cancellation, sink failures) aborts the batch.
func (s *BatchService) skipOrFail(ctx context.Context, acc *accumulator, unit string, err error) error {
	switch {
	case errors.Is(err, core.ErrEmptyCohort):
		return s.recordSkip(ctx, acc, unit, survival.ReasonEmptyCohort, err)
	case errors.Is(err, core.ErrInvalidCovariate):
		return s.recordSkip(ctx, acc, unit, survival.ReasonInvalidCovariate, err)
	case errors.Is(err, core.ErrInsufficientGroups):
		return s.recordSkip(ctx, acc, unit, survival.ReasonInsufficientGroups, err)
	default:
		return err
	}
}

// finish seals the manifest and publishes it
func (s *BatchService) finish(ctx context.Context, acc *accumulator, totalUnits int, startTime time.Time) (*BatchResult, error) {
	acc.manifest.TotalUnits = totalUnits
	acc.manifest.RuntimeMs = time.Since(startTime).Milliseconds()

	if s.sink != nil {
		if err := s.sink.StoreManifest(ctx, *acc.manifest); err != nil {
			return nil, fmt.Errorf("failed to store batch manifest: %w", err)
		}
	}

	return &BatchResult{
		Results:  acc.results,
		Skipped:  acc.skipped,
		Manifest: acc.manifest,
	}, nil
}
