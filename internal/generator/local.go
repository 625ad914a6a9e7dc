package generator

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"imageseo/internal/metadata"
	"imageseo/internal/services"
)

// LocalConfig captures the runtime settings for an Ollama-compatible server.
type LocalConfig struct {
	URL            string
	Model          string
	TimeoutSeconds int
}

// Local calls an Ollama-compatible generate endpoint on the local network.
type Local struct {
	cfg        LocalConfig
	httpClient *http.Client
}

// NewLocal constructs a local model generator.
func NewLocal(cfg LocalConfig, opts ...Option) *Local {
	l := &Local{
		cfg: LocalConfig{
			URL:            strings.TrimSpace(cfg.URL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeoutFromSeconds(cfg.TimeoutSeconds)},
	}
	for _, opt := range opts {
		l.httpClient = opt(l.httpClient)
	}
	return l
}

func (*Local) Name() string { return "local" }

type localRequest struct {
	Model   string       `json:"model"`
	Prompt  string       `json:"prompt"`
	Stream  bool         `json:"stream"`
	Options localOptions `json:"options"`
}

type localOptions struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type localResponse struct {
	Response string `json:"response"`
}

func (l *Local) Generate(ctx context.Context, req Request) (metadata.Record, error) {
	var empty metadata.Record
	payload := localRequest{
		Model:   l.cfg.Model,
		Prompt:  req.Prompt + jsonOnlySuffix,
		Stream:  false,
		Options: localOptions{Temperature: modelTemperature, MaxTokens: modelMaxTokens},
	}
	body, err := postJSON(ctx, l.httpClient, l.cfg.URL, nil, payload)
	if err != nil {
		return empty, services.Wrap(services.ErrTransport, "generator", "local", "request failed", err)
	}
	var parsed localResponse
	if err := DecodeModelJSON(string(body), &parsed); err != nil {
		return empty, services.Wrap(services.ErrParse, "generator", "local", "decode response", err)
	}
	var record metadata.Record
	if err := DecodeModelJSON(parsed.Response, &record); err != nil {
		return empty, services.Wrap(services.ErrParse, "generator", "local", "parse metadata", err)
	}
	if record.Empty() {
		return empty, services.Wrap(services.ErrParse, "generator", "local", "model returned no fields", errors.New("all fields empty"))
	}
	return record.Clamp(), nil
}
