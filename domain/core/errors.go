package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Structural preconditions
	ErrEmptyCohort        = errors.New("empty cohort")
	ErrInsufficientGroups = errors.New("fewer than two non-empty groups")
	ErrInvalidCovariate   = errors.New("covariate cannot produce a meaningful split")

	// Degenerate but computable data
	ErrDegenerateGroup = errors.New("group has zero observed events")

	// Cox fit failures
	ErrNonConvergence = errors.New("partial likelihood maximization did not converge")
	ErrSeparation     = errors.New("perfect separation: partial likelihood is unbounded")
)

// Error constructors with context

func NewInvalidCovariateError(key CovariateKey, reason string) error {
	return fmt.Errorf("%w: %s (%s)", ErrInvalidCovariate, key, reason)
}

func NewEmptyCohortError(context string) error {
	return fmt.Errorf("%w: %s", ErrEmptyCohort, context)
}

func NewNonConvergenceError(iterations int, lastDelta float64) error {
	return fmt.Errorf("%w after %d iterations (last step %.3g)", ErrNonConvergence, iterations, lastDelta)
}

// Error checking helpers

// IsStructuralError reports errors that make a single computation impossible.
// They are fatal to that unit of work but never to a batch.
func IsStructuralError(err error) bool {
	return errors.Is(err, ErrEmptyCohort) ||
		errors.Is(err, ErrInsufficientGroups) ||
		errors.Is(err, ErrInvalidCovariate)
}

// IsFitError reports Cox model failures that are recorded as missing
// statistics rather than aborting the comparison.
func IsFitError(err error) bool {
	return errors.Is(err, ErrNonConvergence) ||
		errors.Is(err, ErrSeparation)
}
