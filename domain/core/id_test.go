package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestParseCovariateKey tests covariate key validation
func TestParseCovariateKey(t *testing.T) {
	if _, err := ParseCovariateKey("  "); err == nil {
		t.Error("Expected error for blank covariate key")
	}

	key, err := ParseCovariateKey("gene_expr")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if key.String() != "gene_expr" {
		t.Errorf("Expected 'gene_expr', got '%s'", key)
	}
}

// TestComputeCohortHashOrderIndependence verifies the hash ignores ID ordering
func TestComputeCohortHashOrderIndependence(t *testing.T) {
	a := ComputeCohortHash([]SubjectID{"s1", "s2", "s3"})
	b := ComputeCohortHash([]SubjectID{"s3", "s1", "s2"})
	if a != b {
		t.Errorf("Expected order-independent hash, got %s vs %s", a, b)
	}

	c := ComputeCohortHash([]SubjectID{"s1", "s2"})
	if a == c {
		t.Error("Expected different subject sets to hash differently")
	}
}
