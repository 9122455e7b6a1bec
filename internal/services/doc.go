// Package services defines shared utilities consumed by the pipeline stages
// and the external tool integrations.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that tag failures for
//     later classification, and the translation of tagged errors into
//     user-facing messages and HTTP statuses.
//   - Context helpers that stamp job and request identifiers for logging.
//
// Stage code wraps every failure with one of the exported markers; only the
// orchestrator and the HTTP layer are allowed to turn a tagged error into
// the message a caller sees. Internal diagnostic detail (subprocess stderr,
// upstream bodies) stays in the logs.
package services
