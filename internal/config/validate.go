package config

import (
	"fmt"
	"strings"
)

var generationModes = map[string]struct{}{
	"mistral":     {},
	"huggingface": {},
	"local":       {},
	"basic":       {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return fmt.Errorf("paths.api_bind must not be empty")
	}
	return nil
}

func (c *Config) validateGeneration() error {
	if _, ok := generationModes[c.Generation.Mode]; !ok {
		return fmt.Errorf("generation.mode: unsupported value %q (expected mistral, huggingface, local, or basic)", c.Generation.Mode)
	}
	switch c.Generation.Mode {
	case "mistral":
		if c.Generation.MistralAPIKey == "" {
			return fmt.Errorf("generation.mistral_api_key required for mistral mode (or set MISTRAL_API_KEY)")
		}
	case "huggingface":
		if c.Generation.HuggingFaceAPIKey == "" {
			return fmt.Errorf("generation.huggingface_api_key required for huggingface mode (or set HF_API_KEY)")
		}
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.PageSize > 100 {
		return fmt.Errorf("pipeline.page_size: WordPress caps per_page at 100, got %d", c.Pipeline.PageSize)
	}
	return nil
}
