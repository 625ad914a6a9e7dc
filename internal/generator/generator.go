package generator

import (
	"context"
	"fmt"

	"imageseo/internal/config"
	"imageseo/internal/metadata"
)

// Request carries the rendered prompt plus the raw context it was built
// from. Providers send the prompt; the basic generator works from the
// context directly.
type Request struct {
	Prompt  string
	Context metadata.Context
}

// Generator produces a metadata record for one image.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (metadata.Record, error)
}

// FromConfig builds the generator selected by the configuration, wrapping
// remote providers with the basic fallback unless it is disabled.
func FromConfig(cfg *config.Config) (Generator, error) {
	var primary Generator
	switch cfg.Generation.Mode {
	case "basic":
		return NewBasic(), nil
	case "mistral":
		primary = NewMistral(MistralConfig{
			APIURL:         cfg.Generation.MistralAPIURL,
			APIKey:         cfg.Generation.MistralAPIKey,
			Model:          cfg.Generation.MistralModel,
			TimeoutSeconds: cfg.Generation.TimeoutSeconds,
		})
	case "huggingface":
		primary = NewHuggingFace(HuggingFaceConfig{
			APIURL:         cfg.Generation.HuggingFaceAPIURL,
			APIKey:         cfg.Generation.HuggingFaceAPIKey,
			TimeoutSeconds: cfg.Generation.TimeoutSeconds,
		})
	case "local":
		primary = NewLocal(LocalConfig{
			URL:            cfg.Generation.LocalURL,
			Model:          cfg.Generation.LocalModel,
			TimeoutSeconds: cfg.Generation.TimeoutSeconds,
		})
	default:
		return nil, fmt.Errorf("generator: unsupported mode %q", cfg.Generation.Mode)
	}
	if cfg.Generation.FallbackToBasic {
		return NewChain(primary, NewBasic()), nil
	}
	return primary, nil
}
