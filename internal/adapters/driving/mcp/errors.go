// Package mcp provides an MCP (Model Context Protocol) server adapter for mindkeep.
// It lets AI assistants ask questions over notes and email, add notes and manage tasks.
package mcp

import "errors"

var (
	// ErrMissingQAService is returned when the QA service is not provided.
	ErrMissingQAService = errors.New("mcp: qa service is required")

	// ErrMissingOwner is returned when no default user is configured.
	ErrMissingOwner = errors.New("mcp: owner id is required (run 'mindkeep auth gmail' or set user.default)")

	// ErrServiceUnavailable is returned by tools whose backing service is not configured.
	ErrServiceUnavailable = errors.New("mcp: service not configured")
)
