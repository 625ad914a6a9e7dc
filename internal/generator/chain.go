package generator

import (
	"context"
	"log/slog"

	"imageseo/internal/logging"
	"imageseo/internal/metadata"
	"imageseo/internal/services"
)

// Chain tries the primary generator and falls through to the fallback when
// the primary fails with a recoverable error. Configuration and validation
// failures surface immediately.
type Chain struct {
	primary  Generator
	fallback Generator
	logger   *slog.Logger
}

// NewChain wires a primary generator with a fallback.
func NewChain(primary, fallback Generator, opts ...ChainOption) *Chain {
	chain := &Chain{primary: primary, fallback: fallback, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(chain)
	}
	return chain
}

// ChainOption customizes the chain.
type ChainOption func(*Chain)

// WithChainLogger sets the logger used when the fallback engages.
func WithChainLogger(logger *slog.Logger) ChainOption {
	return func(c *Chain) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Name identifies the active primary generator.
func (c *Chain) Name() string {
	return c.primary.Name()
}

// Generate runs the primary generator, switching to the fallback on
// recoverable failure.
func (c *Chain) Generate(ctx context.Context, req Request) (metadata.Record, error) {
	record, err := c.primary.Generate(ctx, req)
	if err == nil {
		return record, nil
	}
	if ctx.Err() != nil {
		return metadata.Record{}, err
	}
	if !services.Recoverable(err) {
		return metadata.Record{}, err
	}
	c.logger.Warn("generator failed, using fallback",
		logging.String(logging.FieldProvider, c.primary.Name()),
		logging.Error(err))
	return c.fallback.Generate(ctx, req)
}
