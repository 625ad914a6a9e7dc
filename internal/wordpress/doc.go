// Package wordpress is a minimal REST client for the endpoints the agent
// touches: the media library, posts and pages for prompt context, and the
// media update used to write generated fields back.
package wordpress
