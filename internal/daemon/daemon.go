package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"imageseo/internal/config"
	"imageseo/internal/generator"
	"imageseo/internal/logging"
	"imageseo/internal/monitoring"
	"imageseo/internal/notifications"
	"imageseo/internal/pipeline"
	"imageseo/internal/registry"
	"imageseo/internal/runlog"
)

// Daemon coordinates the HTTP surface, the scheduler, and the shared stores,
// and enforces single-instance execution via a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	reg      *registry.Registry
	runs     *runlog.Store
	pipe     *pipeline.Pipeline
	notifier notifications.Service
	metrics  *monitoring.Metrics
	api      *apiServer
	sched    *scheduler
	lock     *flock.Flock

	running    atomic.Bool
	activeRuns atomic.Int64
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool   `json:"running"`
	PID          int    `json:"pid"`
	RegistryPath string `json:"registry_path"`
	RunLogPath   string `json:"run_log_path,omitempty"`
	LockFilePath string `json:"lock_file_path"`
	ActiveRuns   int64  `json:"active_runs"`
	Generator    string `json:"generator"`
}

// New assembles a daemon from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon: config required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	reg, err := registry.Open(cfg.RegistryPath())
	if err != nil {
		return nil, err
	}

	var runs *runlog.Store
	if cfg.RunLog.Enabled {
		runs, err = runlog.Open(cfg.RunLogPath())
		if err != nil {
			return nil, err
		}
	}

	gen, err := generator.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	metrics := monitoring.New()
	notifier := notifications.NewService(cfg)
	pipe := pipeline.New(cfg, gen, reg, logger,
		pipeline.WithRunLog(runs),
		pipeline.WithNotifier(notifier),
		pipeline.WithMetrics(metrics))

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		reg:      reg,
		runs:     runs,
		pipe:     pipe,
		notifier: notifier,
		metrics:  metrics,
		lock:     flock.New(filepath.Join(cfg.Paths.DataDir, "imageseod.lock")),
	}
	d.api, err = newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.sched = newScheduler(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock and launches the API server and the
// scheduler. It returns immediately; Stop shuts everything down.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.running.Store(true)

	if err := d.api.start(d.ctx); err != nil {
		d.running.Store(false)
		_ = d.lock.Unlock()
		return err
	}
	d.sched.start(d.ctx)

	d.logger.Info("daemon started",
		logging.String("registry", d.cfg.RegistryPath()),
		logging.String(logging.FieldProvider, d.cfg.Generation.Mode),
		logging.Bool("schedule", d.cfg.Schedule.Enabled))
	return nil
}

// Stop shuts the daemon down and waits for in-flight runs to finish.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.running.Store(false)
	if d.cancel != nil {
		d.cancel()
	}
	d.api.stop()
	d.wg.Wait()
	if d.runs != nil {
		_ = d.runs.Close()
	}
	_ = d.lock.Unlock()
	d.logger.Info("daemon stopped")
}

// Wait blocks until the daemon context ends.
func (d *Daemon) Wait() {
	if d.ctx != nil {
		<-d.ctx.Done()
	}
}

// Status reports runtime information for the status endpoint and CLI.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		RegistryPath: d.cfg.RegistryPath(),
		LockFilePath: d.lock.Path(),
		ActiveRuns:   d.activeRuns.Load(),
		Generator:    d.cfg.Generation.Mode,
	}
	if d.runs != nil {
		status.RunLogPath = d.cfg.RunLogPath()
	}
	return status
}

// ProcessSite runs the pipeline for one site synchronously.
func (d *Daemon) ProcessSite(ctx context.Context, clientID string, site registry.Site, trigger runlog.Trigger) (pipeline.Result, error) {
	d.activeRuns.Add(1)
	defer d.activeRuns.Add(-1)
	return d.pipe.Run(ctx, clientID, site, trigger)
}

// ProcessClient runs the pipeline for every site of a client synchronously.
func (d *Daemon) ProcessClient(ctx context.Context, clientID string, trigger runlog.Trigger) (pipeline.Result, error) {
	d.activeRuns.Add(1)
	defer d.activeRuns.Add(-1)
	return d.pipe.RunAll(ctx, clientID, trigger)
}

// APIAddr returns the bound API address once the daemon is started.
func (d *Daemon) APIAddr() string {
	return d.api.Addr()
}

// ProcessSiteAsync launches a site run detached from the calling request,
// bound to the daemon lifetime instead.
func (d *Daemon) ProcessSiteAsync(clientID string, site registry.Site, trigger runlog.Trigger) {
	ctx := d.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if _, err := d.ProcessSite(ctx, clientID, site, trigger); err != nil {
			d.logger.Error("background run failed",
				logging.String(logging.FieldClientID, clientID),
				logging.String(logging.FieldSiteURL, site.URL),
				logging.Error(err))
		}
	}()
}
