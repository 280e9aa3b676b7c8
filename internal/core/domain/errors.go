package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates an empty or malformed required field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicate indicates an entity was already ingested.
	// It is an idempotent no-op rather than a failure.
	ErrDuplicate = errors.New("duplicate skipped")

	// ErrSchemaViolation indicates model output failed structured validation
	// after the repair attempt.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrPartialFailure indicates a multi-unit operation where some units failed.
	ErrPartialFailure = errors.New("partial failure")

	// Upstream Errors.

	// ErrUpstreamUnavailable indicates an external collaborator call failed.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamTimeout indicates an external collaborator did not answer in time.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrEmbeddingUnavailable indicates the embedding gateway failed or is not configured.
	ErrEmbeddingUnavailable = fmt.Errorf("embedding service: %w", ErrUpstreamUnavailable)

	// ErrGenerationUnavailable indicates the generation model failed or is not configured.
	ErrGenerationUnavailable = fmt.Errorf("generation service: %w", ErrUpstreamUnavailable)

	// ErrVectorIndexUnavailable indicates the vector index failed or is not configured.
	ErrVectorIndexUnavailable = fmt.Errorf("vector index: %w", ErrUpstreamUnavailable)

	// ErrStoreUnavailable indicates the relational store failed.
	ErrStoreUnavailable = fmt.Errorf("relational store: %w", ErrUpstreamUnavailable)

	// Authentication Errors.

	// ErrAuthRequired indicates no credentials are stored for the user.
	ErrAuthRequired = errors.New("authentication required")

	// ErrTokenRefreshFailed indicates the token refresh operation failed.
	ErrTokenRefreshFailed = errors.New("token refresh failed")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// IsUpstream reports whether err is any kind of upstream failure.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrUpstreamTimeout)
}
