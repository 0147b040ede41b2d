package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
)

// Config represents the complete engine configuration
type Config struct {
	Cox   CoxConfig
	Batch BatchConfig
}

// CoxConfig holds the Newton-Raphson fit settings
type CoxConfig struct {
	Tolerance     float64
	MaxIterations int
}

// BatchConfig holds batch orchestration settings
type BatchConfig struct {
	// MinEvents is the pooled event count below which a pair's p-values
	// are withheld as unreliable
	MinEvents int
	// MaxParallel caps concurrent analysis units
	MaxParallel int
}

// Load reads configuration from environment variables, applying defaults
// for anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		Cox: CoxConfig{
			Tolerance:     1e-9,
			MaxIterations: 50,
		},
		Batch: BatchConfig{
			MinEvents:   1,
			MaxParallel: runtime.NumCPU(),
		},
	}

	if v := os.Getenv("SURVKIT_COX_TOLERANCE"); v != "" {
		tol, err := strconv.ParseFloat(v, 64)
		if err != nil || tol <= 0 {
			return nil, fmt.Errorf("invalid SURVKIT_COX_TOLERANCE %q", v)
		}
		cfg.Cox.Tolerance = tol
	}

	if v := os.Getenv("SURVKIT_COX_MAX_ITER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid SURVKIT_COX_MAX_ITER %q", v)
		}
		cfg.Cox.MaxIterations = n
	}

	if v := os.Getenv("SURVKIT_MIN_EVENTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid SURVKIT_MIN_EVENTS %q", v)
		}
		cfg.Batch.MinEvents = n
	}

	if v := os.Getenv("SURVKIT_MAX_PARALLEL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid SURVKIT_MAX_PARALLEL %q", v)
		}
		cfg.Batch.MaxParallel = n
	}

	return cfg, nil
}
