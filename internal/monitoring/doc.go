// Package monitoring exports Prometheus collectors for the HTTP surface and
// the image pipeline.
package monitoring
