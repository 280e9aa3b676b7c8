package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

// Google API errors. Each wraps the matching domain error.
var (
	// ErrUnauthorized indicates invalid or expired credentials.
	ErrUnauthorized = fmt.Errorf("%w: google: unauthorised (invalid credentials)", domain.ErrAuthRequired)

	// ErrForbidden indicates insufficient permissions.
	ErrForbidden = fmt.Errorf("%w: google: forbidden (insufficient permissions)", domain.ErrAuthRequired)

	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = fmt.Errorf("%w: google: resource not found", domain.ErrNotFound)

	// ErrRateLimited indicates the API rate limit or quota was exceeded.
	ErrRateLimited = fmt.Errorf("%w: google: rate limit exceeded", domain.ErrRateLimited)

	// ErrUnavailable indicates a server-side or transport failure.
	ErrUnavailable = fmt.Errorf("%w: google: service unavailable", domain.ErrUpstreamUnavailable)
)

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || hasCode(err, http.StatusUnauthorized)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || hasCode(err, http.StatusNotFound)
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited) || hasCode(err, http.StatusTooManyRequests)
}

func hasCode(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}

// WrapError converts a Google API error into one of the sentinels above,
// keeping the API message. Credential and context errors pass through.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, domain.ErrAuthRequired) || errors.Is(err, domain.ErrTokenRefreshFailed) {
		return err
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var sentinel error
	switch {
	case gerr.Code == http.StatusUnauthorized:
		sentinel = ErrUnauthorized
	case gerr.Code == http.StatusForbidden && !isQuotaError(gerr):
		sentinel = ErrForbidden
	case gerr.Code == http.StatusForbidden, gerr.Code == http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	case gerr.Code == http.StatusNotFound:
		sentinel = ErrNotFound
	case gerr.Code >= http.StatusInternalServerError:
		sentinel = ErrUnavailable
	default:
		return fmt.Errorf("%w: google: %s", domain.ErrUpstreamUnavailable, gerr.Message)
	}
	return fmt.Errorf("%w (%d %s)", sentinel, gerr.Code, gerr.Message)
}

// isQuotaError reports a 403 caused by quota rather than permissions.
func isQuotaError(gerr *googleapi.Error) bool {
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded", "dailyLimitExceeded":
			return true
		}
	}
	return false
}
