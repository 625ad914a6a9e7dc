package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"imageseo/internal/logging"
	"imageseo/internal/registry"
	"imageseo/internal/testsupport"
)

func TestSchedulerSweepProcessesAllSites(t *testing.T) {
	var updates int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/wp-json/wp/v2/media" && r.Method == http.MethodGet:
			if r.URL.Query().Get("page") == "1" {
				json.NewEncoder(w).Encode([]map[string]any{{
					"id":         3,
					"source_url": "https://site.example/uploads/c.jpg",
					"alt_text":   "",
					"title":      map[string]string{"rendered": "c"},
				}})
				return
			}
			json.NewEncoder(w).Encode([]any{})
		case strings.HasPrefix(r.URL.Path, "/wp-json/wp/v2/media/") && r.Method == http.MethodPost:
			updates++
			json.NewEncoder(w).Encode(map[string]any{"id": 3})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	d, err := New(&cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	defer func() {
		if d.runs != nil {
			d.runs.Close()
		}
	}()

	site := registry.Site{URL: server.URL, User: "admin", Password: "pw"}
	if err := d.reg.Register("sched-client", site); err != nil {
		t.Fatalf("register: %v", err)
	}

	d.sched.sweep(context.Background())

	if updates != 1 {
		t.Fatalf("updates = %d, want 1", updates)
	}
	snap := d.reg.Snapshot()
	if snap.TotalProcessed != 1 {
		t.Fatalf("total processed = %d", snap.TotalProcessed)
	}
}

func TestSchedulerSweepEmptyRegistry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := New(&cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	defer func() {
		if d.runs != nil {
			d.runs.Close()
		}
	}()

	// Must return without doing anything.
	d.sched.sweep(context.Background())
}
