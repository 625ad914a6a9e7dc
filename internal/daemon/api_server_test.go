package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"imageseo/internal/config"
	"imageseo/internal/daemon"
	"imageseo/internal/logging"
	"imageseo/internal/testsupport"
)

// fakeWordPress serves just enough of the REST API for a full run.
func fakeWordPress(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/wp-json/wp/v2/media" && r.Method == http.MethodGet:
			if r.URL.Query().Get("page") == "1" {
				json.NewEncoder(w).Encode([]map[string]any{{
					"id":         1,
					"source_url": "https://site.example/uploads/a.jpg",
					"alt_text":   "",
					"title":      map[string]string{"rendered": "a"},
				}})
				return
			}
			json.NewEncoder(w).Encode([]any{})
		case strings.HasPrefix(r.URL.Path, "/wp-json/wp/v2/media/") && r.Method == http.MethodPost:
			json.NewEncoder(w).Encode(map[string]any{"id": 1})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func startDaemon(t *testing.T, cfg config.Config) (*daemon.Daemon, string) {
	t.Helper()
	d, err := daemon.New(&cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, "http://" + d.APIAddr()
}

func postJSON(t *testing.T, url string, payload any) (*http.Response, []byte) {
	t.Helper()
	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, body
}

func getJSON(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, body
}

func TestHomeAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, base := startDaemon(t, cfg)

	resp, body := getJSON(t, base+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("home status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"service":"imageseo"`) {
		t.Fatalf("home body = %s", body)
	}

	resp, body = getJSON(t, base+"/api/health")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
		t.Fatalf("health status=%d body=%s", resp.StatusCode, body)
	}

	resp, _ = getJSON(t, base+"/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown path status = %d", resp.StatusCode)
	}
}

func TestProcessRejectsIncompleteBody(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, base := startDaemon(t, cfg)

	resp, body := postJSON(t, base+"/api/process", map[string]string{
		"client_id": "c",
		"wp_url":    "https://example.com",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d body = %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "required") {
		t.Fatalf("body = %s", body)
	}

	// A rejected request must not register anything.
	_, body = getJSON(t, base+"/api/stats")
	var doc statsDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if doc.ActiveClients != 0 || len(doc.Clients) != 0 {
		t.Fatalf("registry changed by rejected request: %s", body)
	}
}

func TestProcessAcceptsShortFieldNames(t *testing.T) {
	wp := fakeWordPress(t)
	cfg := testsupport.NewConfig(t)
	_, base := startDaemon(t, cfg)

	resp, body := postJSON(t, base+"/api/process", map[string]any{
		"client_id": "short-form",
		"url":       wp.URL,
		"user":      "admin",
		"password":  "pw",
		"wait":      true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body = %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), `"completed"`) {
		t.Fatalf("body = %s", body)
	}
}

func TestProcessSynchronousRun(t *testing.T) {
	wp := fakeWordPress(t)
	cfg := testsupport.NewConfig(t)
	_, base := startDaemon(t, cfg)

	resp, body := postJSON(t, base+"/api/process", map[string]any{
		"client_id":   "client-a",
		"wp_url":      wp.URL,
		"wp_user":     "admin",
		"wp_password": "pw",
		"wait":        true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body = %s", resp.StatusCode, body)
	}
	var parsed struct {
		Status string `json:"status"`
		Result struct {
			Processed int `json:"processed"`
			Total     int `json:"total"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if parsed.Status != "completed" || parsed.Result.Processed != 1 {
		t.Fatalf("parsed = %+v", parsed)
	}
}

func TestProcessAsyncAccepted(t *testing.T) {
	wp := fakeWordPress(t)
	cfg := testsupport.NewConfig(t)
	_, base := startDaemon(t, cfg)

	resp, body := postJSON(t, base+"/api/process", map[string]any{
		"client_id":   "client-b",
		"wp_url":      wp.URL,
		"wp_user":     "admin",
		"wp_password": "pw",
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d body = %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), `"processing"`) {
		t.Fatalf("body = %s", body)
	}
}

type statsClient struct {
	Stats struct {
		TotalProcessed int `json:"total_processed"`
		TotalErrors    int `json:"total_errors"`
	} `json:"stats"`
	Sites []string `json:"sites"`
}

type statsDoc struct {
	TotalProcessed int                    `json:"total_processed"`
	ActiveClients  int                    `json:"active_clients"`
	Clients        map[string]statsClient `json:"clients"`
}

func TestStatsOmitsPasswords(t *testing.T) {
	wp := fakeWordPress(t)
	cfg := testsupport.NewConfig(t)
	_, base := startDaemon(t, cfg)

	if resp, body := postJSON(t, base+"/api/process", map[string]any{
		"client_id":   "client-c",
		"wp_url":      wp.URL,
		"wp_user":     "admin",
		"wp_password": "topsecret",
		"wait":        true,
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("process status = %d body = %s", resp.StatusCode, body)
	}

	resp, body := getJSON(t, base+"/api/stats")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status = %d", resp.StatusCode)
	}
	if strings.Contains(string(body), "topsecret") {
		t.Fatalf("stats leak password: %s", body)
	}
	var doc statsDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if doc.TotalProcessed != 1 || doc.ActiveClients != 1 {
		t.Fatalf("doc = %+v", doc)
	}
}

func TestWebhookUnknownClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, base := startDaemon(t, cfg)

	resp, body := postJSON(t, base+"/api/webhook/ghost", map[string]string{})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d body = %s", resp.StatusCode, body)
	}
}

func TestWebhookRunsRegisteredClient(t *testing.T) {
	wp := fakeWordPress(t)
	cfg := testsupport.NewConfig(t)
	_, base := startDaemon(t, cfg)

	if resp, body := postJSON(t, base+"/api/process", map[string]any{
		"client_id":   "hook-client",
		"wp_url":      wp.URL,
		"wp_user":     "admin",
		"wp_password": "pw",
		"wait":        true,
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("process status = %d body = %s", resp.StatusCode, body)
	}

	resp, body := postJSON(t, base+"/api/webhook/hook-client", map[string]string{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("webhook status = %d body = %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), `"completed"`) {
		t.Fatalf("body = %s", body)
	}
}

func TestRunsEndpointListsHistory(t *testing.T) {
	wp := fakeWordPress(t)
	cfg := testsupport.NewConfig(t)
	_, base := startDaemon(t, cfg)

	if resp, body := postJSON(t, base+"/api/process", map[string]any{
		"client_id":   "runs-client",
		"wp_url":      wp.URL,
		"wp_user":     "admin",
		"wp_password": "pw",
		"wait":        true,
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("process status = %d body = %s", resp.StatusCode, body)
	}

	resp, body := getJSON(t, base+"/api/runs?client_id=runs-client")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("runs status = %d", resp.StatusCode)
	}
	var parsed struct {
		Runs []struct {
			ClientID  string `json:"ClientID"`
			Trigger   string `json:"Trigger"`
			Processed int    `json:"Processed"`
		} `json:"runs"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(parsed.Runs) != 1 {
		t.Fatalf("runs = %s", body)
	}
	if parsed.Runs[0].Trigger != "api" || parsed.Runs[0].Processed != 1 {
		t.Fatalf("run = %+v", parsed.Runs[0])
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, base := startDaemon(t, cfg)

	// Prime a request so the HTTP counters exist.
	getJSON(t, base+"/api/health")

	resp, body := getJSON(t, base+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "imageseo_http_requests_total") {
		t.Fatalf("metrics body missing counters:\n%s", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, base := startDaemon(t, cfg)

	resp, body := getJSON(t, base+"/api/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var parsed daemon.Status
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !parsed.Running {
		t.Fatal("expected running daemon")
	}
	if parsed.Generator != "basic" {
		t.Fatalf("generator = %q", parsed.Generator)
	}
	if parsed.RegistryPath != d.Status().RegistryPath {
		t.Fatalf("registry path mismatch: %q", parsed.RegistryPath)
	}
}

func TestSecondInstanceRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	startDaemon(t, cfg)

	second, err := daemon.New(&cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	err = second.Start(context.Background())
	if err == nil {
		second.Stop()
		t.Fatal("expected second instance to be refused")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("err = %v", err)
	}
}

func TestMethodChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, base := startDaemon(t, cfg)

	for _, target := range []string{"/api/stats", "/api/runs", "/api/status", "/api/health"} {
		resp, _ := postJSON(t, base+target, map[string]string{})
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("POST %s status = %d", target, resp.StatusCode)
		}
	}
	resp, _ := getJSON(t, base+"/api/process")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /api/process status = %d", resp.StatusCode)
	}
}

func waitFor(t *testing.T, timeout time.Duration, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestAsyncRunEventuallyVisibleInStats(t *testing.T) {
	wp := fakeWordPress(t)
	cfg := testsupport.NewConfig(t)
	_, base := startDaemon(t, cfg)

	resp, _ := postJSON(t, base+"/api/process", map[string]any{
		"client_id":   "async-client",
		"wp_url":      wp.URL,
		"wp_user":     "admin",
		"wp_password": "pw",
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	waitFor(t, 5*time.Second, func() bool {
		_, body := getJSON(t, base+"/api/stats")
		var doc statsDoc
		if err := json.Unmarshal(body, &doc); err != nil {
			return false
		}
		client, ok := doc.Clients["async-client"]
		return ok && client.Stats.TotalProcessed == 1
	})
}
