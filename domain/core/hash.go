package core

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// CohortHash identifies an exact set of subjects independent of ordering
type CohortHash Hash

func (h CohortHash) String() string { return Hash(h).String() }

// ComputeCohortHash derives a deterministic hash over a subject ID set.
// IDs are sorted first so two views over the same subjects hash identically.
func ComputeCohortHash(subjectIDs []SubjectID) CohortHash {
	sorted := make([]string, len(subjectIDs))
	for i, id := range subjectIDs {
		sorted[i] = string(id)
	}
	sort.Strings(sorted)

	var data strings.Builder
	for _, id := range sorted {
		data.WriteString(id)
		data.WriteString("|")
	}
	return CohortHash(NewHash([]byte(data.String())))
}
