package generator

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"imageseo/internal/metadata"
	"imageseo/internal/services"
)

// MistralConfig captures the runtime settings for the Mistral chat API.
type MistralConfig struct {
	APIURL         string
	APIKey         string
	Model          string
	TimeoutSeconds int
}

// Mistral calls the Mistral chat completion endpoint.
type Mistral struct {
	cfg        MistralConfig
	httpClient *http.Client
}

// Option customizes a provider client.
type Option func(c *http.Client) *http.Client

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(current *http.Client) *http.Client {
		if client != nil {
			return client
		}
		return current
	}
}

// NewMistral constructs a Mistral generator.
func NewMistral(cfg MistralConfig, opts ...Option) *Mistral {
	m := &Mistral{
		cfg: MistralConfig{
			APIURL:         strings.TrimSpace(cfg.APIURL),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeoutFromSeconds(cfg.TimeoutSeconds)},
	}
	for _, opt := range opts {
		m.httpClient = opt(m.httpClient)
	}
	return m
}

func (*Mistral) Name() string { return "mistral" }

type mistralRequest struct {
	Model       string           `json:"model"`
	Messages    []mistralMessage `json:"messages"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens"`
}

type mistralMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type mistralResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (m *Mistral) Generate(ctx context.Context, req Request) (metadata.Record, error) {
	var empty metadata.Record
	if m.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrConfiguration, "generator", "mistral", "api key required", nil)
	}
	payload := mistralRequest{
		Model:       m.cfg.Model,
		Messages:    []mistralMessage{{Role: "user", Content: req.Prompt}},
		Temperature: modelTemperature,
		MaxTokens:   modelMaxTokens,
	}
	headers := map[string]string{"Authorization": "Bearer " + m.cfg.APIKey}
	body, err := postJSON(ctx, m.httpClient, m.cfg.APIURL, headers, payload)
	if err != nil {
		return empty, services.Wrap(services.ErrTransport, "generator", "mistral", "request failed", err)
	}
	var parsed mistralResponse
	if err := DecodeModelJSON(string(body), &parsed); err != nil {
		return empty, services.Wrap(services.ErrParse, "generator", "mistral", "decode response", err)
	}
	if len(parsed.Choices) == 0 {
		return empty, services.Wrap(services.ErrParse, "generator", "mistral", "empty choices", nil)
	}
	var record metadata.Record
	if err := DecodeModelJSON(parsed.Choices[0].Message.Content, &record); err != nil {
		return empty, services.Wrap(services.ErrParse, "generator", "mistral", "parse metadata", err)
	}
	if record.Empty() {
		return empty, services.Wrap(services.ErrParse, "generator", "mistral", "model returned no fields", errors.New("all fields empty"))
	}
	return record.Clamp(), nil
}
