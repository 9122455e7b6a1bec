// Package daemon wires the conversion pipeline, history store, HTTP
// API and artifact janitor into a single-instance background service.
package daemon
