package domain

import (
	"errors"
	"fmt"
	"regexp"
)

// Sentinel errors for the failure taxonomy. Callers match with
// errors.Is to distinguish malformed requests, missing resources,
// conflicts, and fatal model failures.
var (
	ErrCollectionNotFound    = errors.New("collection not found")
	ErrCollectionExists      = errors.New("collection already exists")
	ErrInvalidCollectionName = errors.New("invalid collection name")
	ErrEmptyDocument         = errors.New("document is empty")
	ErrDocumentNotFound      = errors.New("document not found")
	ErrDirectoryNotFound     = errors.New("directory not found")
	ErrModelUnavailable      = errors.New("model unavailable")
	ErrDimensionMismatch     = errors.New("embedding dimension mismatch")
	ErrInvalidTopK           = errors.New("top_k must be at least 1")
	ErrIngestionFailed       = errors.New("ingestion failed")
	ErrManifestFetch         = errors.New("manifest fetch failed")
	ErrManifestParse         = errors.New("manifest parse failed")
)

// Collection names start with a letter and contain only alphanumerics,
// underscores, and hyphens.
var collectionNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

const maxCollectionNameLen = 100

// ValidateCollectionName checks a collection name against the naming
// pattern. Returns ErrInvalidCollectionName on violation.
func ValidateCollectionName(name string) error {
	if name == "" || len(name) > maxCollectionNameLen || !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollectionName, name)
	}
	return nil
}
