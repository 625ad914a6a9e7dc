// Package pipeline drives one site sweep: discover attachments missing alt
// text, build a prompt context from the parent page, generate metadata, and
// write it back. Outcomes are folded into the registry, run history, metrics,
// and notifications.
package pipeline
