package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrDuplicate", ErrDuplicate},
		{"ErrSchemaViolation", ErrSchemaViolation},
		{"ErrPartialFailure", ErrPartialFailure},
		{"ErrUpstreamUnavailable", ErrUpstreamUnavailable},
		{"ErrUpstreamTimeout", ErrUpstreamTimeout},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrGenerationUnavailable", ErrGenerationUnavailable},
		{"ErrVectorIndexUnavailable", ErrVectorIndexUnavailable},
		{"ErrStoreUnavailable", ErrStoreUnavailable},
		{"ErrAuthRequired", ErrAuthRequired},
		{"ErrTokenRefreshFailed", ErrTokenRefreshFailed},
		{"ErrRateLimited", ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrNotFound(t *testing.T) {
	assert.Equal(t, "not found", ErrNotFound.Error())
	assert.True(t, errors.Is(ErrNotFound, ErrNotFound))
	assert.False(t, errors.Is(ErrNotFound, ErrInvalidInput))
}

func TestUpstreamErrors_WrapUpstreamUnavailable(t *testing.T) {
	for _, err := range []error{
		ErrEmbeddingUnavailable,
		ErrGenerationUnavailable,
		ErrVectorIndexUnavailable,
		ErrStoreUnavailable,
	} {
		assert.True(t, errors.Is(err, ErrUpstreamUnavailable), err.Error())
		assert.True(t, IsUpstream(err))
	}
}

func TestUpstreamErrors_AreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrEmbeddingUnavailable, ErrGenerationUnavailable))
	assert.False(t, errors.Is(ErrVectorIndexUnavailable, ErrStoreUnavailable))
}

func TestIsUpstream(t *testing.T) {
	timeout := fmt.Errorf("embed: %w: %w", ErrUpstreamTimeout, ErrEmbeddingUnavailable)
	assert.True(t, IsUpstream(timeout))
	assert.True(t, errors.Is(timeout, ErrEmbeddingUnavailable))

	assert.False(t, IsUpstream(ErrInvalidInput))
	assert.False(t, IsUpstream(nil))
	assert.False(t, IsUpstream(ErrSchemaViolation))
}
