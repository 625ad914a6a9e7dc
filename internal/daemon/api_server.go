package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"imageseo/internal/config"
	"imageseo/internal/logging"
	"imageseo/internal/registry"
	"imageseo/internal/runlog"
	"imageseo/internal/services"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api server: bind address required")
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.handleHome)
	mux.HandleFunc("/api/health", srv.handleHealth)
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/process", srv.handleProcess)
	mux.HandleFunc("/api/stats", srv.handleStats)
	mux.HandleFunc("/api/runs", srv.handleRuns)
	mux.HandleFunc("/api/webhook/", srv.handleWebhook)
	mux.Handle("/metrics", d.metrics.Handler())

	srv.server = &http.Server{
		Handler:           d.metrics.HTTPMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound address once the server is listening.
func (s *apiServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"service": "imageseo",
		"status":  "running",
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status())
}

// processRequest is the documented trigger body. The wp_* keys are the
// canonical contract; the short forms are accepted as aliases.
type processRequest struct {
	ClientID string `json:"client_id"`
	URL      string `json:"wp_url"`
	User     string `json:"wp_user"`
	Password string `json:"wp_password"`
	Wait     bool   `json:"wait"`

	AltURL      string `json:"url"`
	AltUser     string `json:"user"`
	AltPassword string `json:"password"`
}

func (r *processRequest) normalize() {
	if r.URL == "" {
		r.URL = r.AltURL
	}
	if r.User == "" {
		r.User = r.AltUser
	}
	if r.Password == "" {
		r.Password = r.AltPassword
	}
	r.ClientID = strings.TrimSpace(r.ClientID)
	r.URL = strings.TrimSpace(r.URL)
	r.User = strings.TrimSpace(r.User)
}

func (s *apiServer) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.normalize()
	if req.ClientID == "" || req.URL == "" || req.User == "" || req.Password == "" {
		s.writeError(w, http.StatusBadRequest, "client_id, wp_url, wp_user, and wp_password are required")
		return
	}

	site := registry.Site{URL: req.URL, User: req.User, Password: req.Password}
	if err := s.daemon.reg.Register(req.ClientID, site); err != nil {
		if errors.Is(err, services.ErrValidation) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.daemon.notifier.NotifySiteRegistered(r.Context(), req.ClientID, site.URL); err != nil {
		s.logger.Warn("registration notification failed", logging.Error(err))
	}

	if req.Wait {
		result, err := s.daemon.ProcessSite(r.Context(), req.ClientID, site, runlog.TriggerAPI)
		if err != nil {
			s.writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"status": "completed",
			"result": result,
		})
		return
	}

	s.daemon.ProcessSiteAsync(req.ClientID, site, runlog.TriggerAPI)
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":    "processing",
		"client_id": req.ClientID,
	})
}

func (s *apiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap := s.daemon.reg.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"total_processed": snap.TotalProcessed,
		"active_clients":  snap.ActiveClients,
		"active_runs":     s.daemon.activeRuns.Load(),
		"clients":         snap.Clients,
	})
}

func (s *apiServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.daemon.runs == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"runs": []runlog.Run{}})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	clientID := strings.TrimSpace(r.URL.Query().Get("client_id"))

	var (
		runs []runlog.Run
		err  error
	)
	if clientID != "" {
		runs, err = s.daemon.runs.ForClient(r.Context(), clientID, limit)
	} else {
		runs, err = s.daemon.runs.Recent(r.Context(), limit)
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *apiServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	clientID := strings.TrimPrefix(r.URL.Path, "/api/webhook/")
	if clientID == "" || strings.Contains(clientID, "/") {
		s.writeError(w, http.StatusNotFound, "client not found")
		return
	}
	if !s.daemon.reg.HasClient(clientID) {
		s.writeError(w, http.StatusNotFound, "client not found")
		return
	}

	result, err := s.daemon.ProcessClient(r.Context(), clientID, runlog.TriggerWebhook)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "completed",
		"result": result,
	})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
