// Package views is the Sidechain post view service.
//
// It records which users have viewed which posts, keeps per-post and
// per-user viewed-by counts derived from that ledger, and redacts view
// data for users who have chosen to hide their view counts.
//
// The code is organized into subpackages:
//
//   - internal/views: view ledger, aggregate reads and aggregate repair
//   - internal/privacy: the viewCountsHidden gate and its Redis cache
//   - internal/visibility: query facade applying redaction to every read
//   - internal/handlers: HTTP handlers for the REST API
//   - internal/repair: background aggregate repair loop
//   - internal/models: database schema
//   - internal/database: connection setup and migrations
//   - internal/auth: bearer token verification
//   - internal/middleware: request IDs, logging, metrics, tracing, rate limiting
//
// Binaries live under cmd/: server (the API), migrate, and cli (operator
// and user commands).
package views
