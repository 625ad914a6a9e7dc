package generator

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"imageseo/internal/metadata"
	"imageseo/internal/services"
)

// HuggingFaceConfig captures the runtime settings for the inference API.
type HuggingFaceConfig struct {
	APIURL         string
	APIKey         string
	TimeoutSeconds int
}

// HuggingFace calls a text-generation model on the inference API.
type HuggingFace struct {
	cfg        HuggingFaceConfig
	httpClient *http.Client
}

// NewHuggingFace constructs a Hugging Face generator.
func NewHuggingFace(cfg HuggingFaceConfig, opts ...Option) *HuggingFace {
	h := &HuggingFace{
		cfg: HuggingFaceConfig{
			APIURL:         strings.TrimSpace(cfg.APIURL),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeoutFromSeconds(cfg.TimeoutSeconds)},
	}
	for _, opt := range opts {
		h.httpClient = opt(h.httpClient)
	}
	return h
}

func (*HuggingFace) Name() string { return "huggingface" }

type huggingFaceRequest struct {
	Inputs     string                `json:"inputs"`
	Parameters huggingFaceParameters `json:"parameters"`
}

type huggingFaceParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type huggingFaceChoice struct {
	GeneratedText string `json:"generated_text"`
}

func (h *HuggingFace) Generate(ctx context.Context, req Request) (metadata.Record, error) {
	var empty metadata.Record
	if h.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrConfiguration, "generator", "huggingface", "api key required", nil)
	}
	payload := huggingFaceRequest{
		Inputs: req.Prompt + jsonOnlySuffix,
		Parameters: huggingFaceParameters{
			MaxNewTokens:   modelMaxTokens,
			Temperature:    modelTemperature,
			ReturnFullText: false,
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + h.cfg.APIKey}
	body, err := postJSON(ctx, h.httpClient, h.cfg.APIURL, headers, payload)
	if err != nil {
		return empty, services.Wrap(services.ErrTransport, "generator", "huggingface", "request failed", err)
	}
	var parsed []huggingFaceChoice
	if err := DecodeModelJSON(string(body), &parsed); err != nil {
		return empty, services.Wrap(services.ErrParse, "generator", "huggingface", "decode response", err)
	}
	if len(parsed) == 0 {
		return empty, services.Wrap(services.ErrParse, "generator", "huggingface", "empty response", nil)
	}
	var record metadata.Record
	if err := DecodeModelJSON(parsed[0].GeneratedText, &record); err != nil {
		return empty, services.Wrap(services.ErrParse, "generator", "huggingface", "parse metadata", err)
	}
	if record.Empty() {
		return empty, services.Wrap(services.ErrParse, "generator", "huggingface", "model returned no fields", errors.New("all fields empty"))
	}
	return record.Clamp(), nil
}
