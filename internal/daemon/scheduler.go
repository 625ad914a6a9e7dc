package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"imageseo/internal/config"
	"imageseo/internal/logging"
	"imageseo/internal/runlog"
)

// scheduler re-runs every registered site on a fixed interval.
type scheduler struct {
	daemon   *Daemon
	logger   *slog.Logger
	enabled  bool
	interval time.Duration
}

func newScheduler(cfg *config.Config, d *Daemon, logger *slog.Logger) *scheduler {
	return &scheduler{
		daemon:   d,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		enabled:  cfg.Schedule.Enabled,
		interval: time.Duration(cfg.Schedule.IntervalHours) * time.Hour,
	}
}

func (s *scheduler) start(ctx context.Context) {
	if s == nil || !s.enabled || s.interval <= 0 {
		return
	}
	s.daemon.wg.Add(1)
	go func() {
		defer s.daemon.wg.Done()
		s.logger.Info("scheduler started", logging.Duration("interval", s.interval))
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("scheduler stopped")
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// sweep processes every client's sites, one goroutine per site, and waits
// for the whole round before returning so rounds never overlap.
func (s *scheduler) sweep(ctx context.Context) {
	all := s.daemon.reg.AllSites()
	var total int
	var wg sync.WaitGroup
	for clientID, sites := range all {
		for _, site := range sites {
			clientID, site := clientID, site
			total++
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.daemon.ProcessSite(ctx, clientID, site, runlog.TriggerSchedule); err != nil {
					s.logger.Error("scheduled run failed",
						logging.String(logging.FieldClientID, clientID),
						logging.String(logging.FieldSiteURL, site.URL),
						logging.Error(err))
				}
			}()
		}
	}
	if total == 0 {
		return
	}
	s.logger.Info("scheduled sweep started", logging.Int("sites", total))
	wg.Wait()
	s.logger.Info("scheduled sweep finished", logging.Int("sites", total))
}
