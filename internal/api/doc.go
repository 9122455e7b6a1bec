// Package api exposes the HTTP surface of the daemon: the conversion
// endpoint, metadata lookup, daemon status, recent history, and static
// delivery of finished artifacts.
package api
