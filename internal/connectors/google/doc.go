// Package google provides shared infrastructure for the Gmail mail provider.
//
// This package contains:
//   - TokenSource adapter to bridge mindkeep's TokenProvider to oauth2.TokenSource
//   - Service factory for creating Gmail API clients
//   - Error mapping from Google API errors (401, 403, 404, 429, 5xx) to domain errors
//   - Rate limiting to respect Google API quotas
//
// # Usage
//
//	ts := google.NewTokenSource(ctx, tokenProvider)
//	svc, err := google.NewGmailService(ctx, ts)
//
// # OAuth2 Scopes
//
// mindkeep requests https://www.googleapis.com/auth/gmail.readonly (restricted).
// For user-created internal apps, restricted scopes don't require verification.
package google
