// Package generator produces SEO metadata records from page context.
//
// Three remote providers are supported (Mistral chat, the Hugging Face
// inference API, and an Ollama-compatible local server) plus a deterministic
// basic generator that needs no network. A Chain wraps a remote provider with
// the basic generator so a provider outage degrades output quality instead of
// failing the run.
package generator
