package generator_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"imageseo/internal/config"
	"imageseo/internal/generator"
	"imageseo/internal/metadata"
	"imageseo/internal/services"
)

func sampleRequest() generator.Request {
	ctx := metadata.Context{
		ImageURL:    "https://example.com/uploads/photo.jpg",
		ImageTitle:  "photo",
		PageTitle:   "Recette de tarte aux pommes",
		PageContent: "La meilleure tarte aux pommes maison.",
	}
	return generator.Request{Prompt: metadata.Prompt(ctx), Context: ctx}
}

func TestBasicGeneratesFromContext(t *testing.T) {
	record, err := generator.NewBasic().Generate(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(record.AltText, "Recette de tarte aux pommes") {
		t.Fatalf("alt_text = %q", record.AltText)
	}
	if record.Title == "" || record.Caption == "" || record.Description == "" {
		t.Fatalf("expected all fields populated, got %+v", record)
	}
	if len([]rune(record.AltText)) > metadata.AltTextLimit {
		t.Fatalf("alt_text exceeds limit: %q", record.AltText)
	}
}

func TestBasicHandlesEmptyContext(t *testing.T) {
	record, err := generator.NewBasic().Generate(context.Background(), generator.Request{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if record.Empty() {
		t.Fatal("expected placeholder metadata for empty context")
	}
}

func TestMistralGenerate(t *testing.T) {
	var captured struct {
		auth    string
		payload map[string]any
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured.payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"content": "Voici le JSON demandé:\n{\"alt_text\":\"Tarte aux pommes dorée\",\"title\":\"Tarte maison\",\"caption\":\"Une tarte appétissante\",\"description\":\"Tarte aux pommes maison tout juste sortie du four\"}",
				},
			}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := generator.NewMistral(generator.MistralConfig{
		APIURL: server.URL,
		APIKey: "secret",
		Model:  "mistral-tiny",
	})
	record, err := client.Generate(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if record.AltText != "Tarte aux pommes dorée" {
		t.Fatalf("alt_text = %q", record.AltText)
	}
	if captured.auth != "Bearer secret" {
		t.Fatalf("authorization = %q", captured.auth)
	}
	if captured.payload["model"] != "mistral-tiny" {
		t.Fatalf("model = %v", captured.payload["model"])
	}
	if _, ok := captured.payload["messages"]; !ok {
		t.Fatal("expected messages in payload")
	}
}

func TestMistralRequiresKey(t *testing.T) {
	client := generator.NewMistral(generator.MistralConfig{APIURL: "http://127.0.0.1:1"})
	_, err := client.Generate(context.Background(), sampleRequest())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestHuggingFaceGenerate(t *testing.T) {
	var inputs string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Inputs string `json:"inputs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		inputs = payload.Inputs
		json.NewEncoder(w).Encode([]map[string]string{{
			"generated_text": "```json\n{\"alt_text\":\"a\",\"title\":\"b\",\"caption\":\"c\",\"description\":\"d\"}\n```",
		}})
	}))
	defer server.Close()

	client := generator.NewHuggingFace(generator.HuggingFaceConfig{APIURL: server.URL, APIKey: "hf"})
	record, err := client.Generate(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if record.AltText != "a" || record.Description != "d" {
		t.Fatalf("unexpected record %+v", record)
	}
	if !strings.Contains(inputs, "Réponds uniquement avec un JSON valide.") {
		t.Fatalf("expected JSON-only instruction appended, got %q", inputs)
	}
}

func TestHuggingFaceStatusErrorIsTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := generator.NewHuggingFace(generator.HuggingFaceConfig{APIURL: server.URL, APIKey: "hf"})
	_, err := client.Generate(context.Background(), sampleRequest())
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !services.Recoverable(err) {
		t.Fatalf("expected recoverable error, got %v", err)
	}
}

func TestLocalGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Model  string `json:"model"`
			Stream bool   `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload.Model != "mistral" {
			t.Errorf("model = %q", payload.Model)
		}
		if payload.Stream {
			t.Error("expected stream=false")
		}
		json.NewEncoder(w).Encode(map[string]string{
			"response": "{\"alt_text\":\"x\",\"title\":\"y\",\"caption\":\"z\",\"description\":\"w\"}",
		})
	}))
	defer server.Close()

	client := generator.NewLocal(generator.LocalConfig{URL: server.URL, Model: "mistral"})
	record, err := client.Generate(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if record.Title != "y" {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestLocalParseFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"response": "je ne peux pas répondre"})
	}))
	defer server.Close()

	client := generator.NewLocal(generator.LocalConfig{URL: server.URL, Model: "mistral"})
	_, err := client.Generate(context.Background(), sampleRequest())
	if !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

type stubGenerator struct {
	name   string
	record metadata.Record
	err    error
	calls  int
}

func (s *stubGenerator) Name() string { return s.name }

func (s *stubGenerator) Generate(context.Context, generator.Request) (metadata.Record, error) {
	s.calls++
	return s.record, s.err
}

func TestChainFallsBackOnRecoverableError(t *testing.T) {
	primary := &stubGenerator{
		name: "mistral",
		err:  services.Wrap(services.ErrTransport, "generator", "mistral", "status 500", nil),
	}
	fallback := &stubGenerator{name: "basic", record: metadata.Record{AltText: "secours"}}

	chain := generator.NewChain(primary, fallback)
	record, err := chain.Generate(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if record.AltText != "secours" {
		t.Fatalf("expected fallback record, got %+v", record)
	}
	if fallback.calls != 1 {
		t.Fatalf("fallback calls = %d", fallback.calls)
	}
}

func TestChainSurfacesUnrecoverableError(t *testing.T) {
	primary := &stubGenerator{
		name: "mistral",
		err:  services.Wrap(services.ErrConfiguration, "generator", "mistral", "missing key", nil),
	}
	fallback := &stubGenerator{name: "basic"}

	chain := generator.NewChain(primary, fallback)
	if _, err := chain.Generate(context.Background(), sampleRequest()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if fallback.calls != 0 {
		t.Fatal("fallback should not run for unrecoverable errors")
	}
}

func TestChainSkipsFallbackWhenContextDone(t *testing.T) {
	primary := &stubGenerator{name: "mistral", err: context.Canceled}
	fallback := &stubGenerator{name: "basic"}
	chain := generator.NewChain(primary, fallback)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := chain.Generate(ctx, sampleRequest()); err == nil {
		t.Fatal("expected error after cancellation")
	}
	if fallback.calls != 0 {
		t.Fatal("fallback should not run after cancellation")
	}
}

func TestDecodeModelJSONQuirks(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"plain", `{"alt_text":"a"}`},
		{"fenced", "```json\n{\"alt_text\":\"a\"}\n```"},
		{"prose", "Bien sûr ! Voici le résultat : {\"alt_text\":\"a\"} Bonne journée."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var record metadata.Record
			if err := generator.DecodeModelJSON(tc.payload, &record); err != nil {
				t.Fatalf("DecodeModelJSON: %v", err)
			}
			if record.AltText != "a" {
				t.Fatalf("alt_text = %q", record.AltText)
			}
		})
	}

	var record metadata.Record
	if err := generator.DecodeModelJSON("", &record); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if err := generator.DecodeModelJSON("pas de json ici", &record); err == nil {
		t.Fatal("expected error when no object present")
	}
}

func TestFromConfigSelectsMode(t *testing.T) {
	cfg := config.Default()
	cfg.Generation.Mode = "basic"
	gen, err := generator.FromConfig(&cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if gen.Name() != "basic" {
		t.Fatalf("name = %q", gen.Name())
	}

	cfg.Generation.Mode = "local"
	gen, err = generator.FromConfig(&cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if gen.Name() != "local" {
		t.Fatalf("name = %q", gen.Name())
	}

	cfg.Generation.Mode = "telepathy"
	if _, err := generator.FromConfig(&cfg); err == nil {
		t.Fatal("expected error for unsupported mode")
	}
}
