package monitoring_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"imageseo/internal/monitoring"
)

func TestObserveRunAppearsInHandler(t *testing.T) {
	metrics := monitoring.New()
	metrics.ObserveRun("api", false, 2*time.Second, 3, 1)
	metrics.ObserveRun("schedule", true, time.Second, 0, 2)

	server := httptest.NewServer(metrics.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	for _, fragment := range []string{
		`imageseo_runs_total{status="success",trigger="api"} 1`,
		`imageseo_runs_total{status="failure",trigger="schedule"} 1`,
		`imageseo_images_processed_total 3`,
		`imageseo_image_errors_total 3`,
	} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("metrics output missing %q:\n%s", fragment, text)
		}
	}
}

func TestHTTPMiddlewareCountsRequests(t *testing.T) {
	metrics := monitoring.New()
	handler := metrics.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if recorder.Code != http.StatusTeapot {
		t.Fatalf("status = %d", recorder.Code)
	}

	server := httptest.NewServer(metrics.Handler())
	defer server.Close()
	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `imageseo_http_requests_total{method="GET",path="/api/stats",status="418"} 1`) {
		t.Fatalf("request counter missing:\n%s", body)
	}
}

func TestIsolatedRegistries(t *testing.T) {
	a := monitoring.New()
	b := monitoring.New()
	a.RunsInFlight.Inc()

	server := httptest.NewServer(b.Handler())
	defer server.Close()
	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(body), "imageseo_runs_in_flight 1") {
		t.Fatal("registries should be isolated")
	}
}
