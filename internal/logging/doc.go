// Package logging provides slog construction helpers and the attribute
// vocabulary shared by the daemon and pipeline components. Two output
// formats are supported: structured JSON for machine ingestion and a
// compact single-line console format for interactive use.
package logging
