// Package services defines shared utilities consumed by the pipeline and the
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp client IDs, site URLs, and run identifiers
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper so failures carry a
//     classification (transport, parse, validation, persistence) that the
//     pipeline uses to decide between fallback and hard failure.
//
// Use these helpers when wiring new integrations so operational behaviour
// stays uniform across the agent.
package services
