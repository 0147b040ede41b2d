package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	SubjectID    string
	CovariateKey string
	BatchID      ID
)

// String conversions for domain IDs
func (id SubjectID) String() string     { return string(id) }
func (key CovariateKey) String() string { return string(key) }
func (id BatchID) String() string       { return ID(id).String() }

// ParseSubjectID parses a string into SubjectID
func ParseSubjectID(s string) (SubjectID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("subject ID cannot be empty")
	}
	return SubjectID(s), nil
}

// ParseCovariateKey parses a string into CovariateKey
func ParseCovariateKey(s string) (CovariateKey, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("covariate key cannot be empty")
	}
	return CovariateKey(s), nil
}
