package services

import "context"

type contextKey string

const (
	clientIDKey contextKey = "client_id"
	siteURLKey  contextKey = "site_url"
	runIDKey    contextKey = "run_id"
)

// WithClientID annotates context with the registry client identifier.
func WithClientID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIDKey, id)
}

// ClientIDFromContext extracts the client identifier if present.
func ClientIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(clientIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSiteURL annotates context with the site being processed.
func WithSiteURL(ctx context.Context, url string) context.Context {
	if url == "" {
		return ctx
	}
	return context.WithValue(ctx, siteURLKey, url)
}

// SiteURLFromContext returns the site URL if present.
func SiteURLFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(siteURLKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with a pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
