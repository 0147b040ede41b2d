package testkit

import (
	"context"
	"sync"

	"survkit/domain/survival"
)

// InMemoryResultSink collects batch outputs in memory for tests and the
// demo CLI. Safe for concurrent use.
type InMemoryResultSink struct {
	mu        sync.Mutex
	results   map[string][]survival.ComparisonResult
	skips     []survival.SkippedUnit
	manifests []survival.BatchManifest
}

// NewInMemoryResultSink creates an empty in-memory sink
func NewInMemoryResultSink() *InMemoryResultSink {
	return &InMemoryResultSink{
		results: make(map[string][]survival.ComparisonResult),
	}
}

// StoreResults implements ports.ResultSinkPort
func (s *InMemoryResultSink) StoreResults(ctx context.Context, unit string, rows []survival.ComparisonResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[unit] = rows
	return nil
}

// StoreSkip implements ports.ResultSinkPort
func (s *InMemoryResultSink) StoreSkip(ctx context.Context, skip survival.SkippedUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skips = append(s.skips, skip)
	return nil
}

// StoreManifest implements ports.ResultSinkPort
func (s *InMemoryResultSink) StoreManifest(ctx context.Context, manifest survival.BatchManifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifests = append(s.manifests, manifest)
	return nil
}

// Results returns the stored rows per unit
func (s *InMemoryResultSink) Results() map[string][]survival.ComparisonResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]survival.ComparisonResult, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	return out
}

// Skips returns the stored skip records
func (s *InMemoryResultSink) Skips() []survival.SkippedUnit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]survival.SkippedUnit(nil), s.skips...)
}

// Manifests returns the stored batch manifests
func (s *InMemoryResultSink) Manifests() []survival.BatchManifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]survival.BatchManifest(nil), s.manifests...)
}
