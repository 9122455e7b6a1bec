// Package logging configures structured logging for the daemon and CLI.
//
// It builds slog loggers with either a human-oriented console handler or a
// JSON handler, defines the attribute keys shared across the pipeline
// (component, job_id, stage, strategy), and carries loggers through
// context so stage code logs with the job annotations already attached.
package logging
