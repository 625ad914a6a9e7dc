package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"imageseo/internal/config"
	"imageseo/internal/generator"
	"imageseo/internal/logging"
	"imageseo/internal/metadata"
	"imageseo/internal/monitoring"
	"imageseo/internal/notifications"
	"imageseo/internal/registry"
	"imageseo/internal/runlog"
	"imageseo/internal/services"
	"imageseo/internal/wordpress"
)

// Result summarizes one site run.
type Result struct {
	RunID     string `json:"run_id"`
	Processed int    `json:"processed"`
	Errors    int    `json:"errors"`
	Total     int    `json:"total"`
}

// SiteClient is the WordPress surface the pipeline needs. Satisfied by
// *wordpress.Client.
type SiteClient interface {
	ListMedia(ctx context.Context) ([]wordpress.Media, error)
	GetContent(ctx context.Context, postID int64) (wordpress.Content, error)
	UpdateMedia(ctx context.Context, mediaID int64, record metadata.Record) error
}

// ClientFactory builds a SiteClient for a registered site.
type ClientFactory func(site registry.Site) (SiteClient, error)

// Pipeline walks one site's media library and fills in missing metadata.
type Pipeline struct {
	gen       generator.Generator
	reg       *registry.Registry
	logger    *slog.Logger
	factory   ClientFactory
	runs      *runlog.Store
	notifier  notifications.Service
	metrics   *monitoring.Metrics
	sleep     func(ctx context.Context, d time.Duration) error
	pacing    time.Duration
	maxImages int
}

// Option customizes the pipeline.
type Option func(*Pipeline)

// WithClientFactory overrides how site clients are built, mainly for tests.
func WithClientFactory(factory ClientFactory) Option {
	return func(p *Pipeline) {
		if factory != nil {
			p.factory = factory
		}
	}
}

// WithRunLog records finished runs in the given store.
func WithRunLog(store *runlog.Store) Option {
	return func(p *Pipeline) { p.runs = store }
}

// WithNotifier sends run outcomes through the given service.
func WithNotifier(service notifications.Service) Option {
	return func(p *Pipeline) {
		if service != nil {
			p.notifier = service
		}
	}
}

// WithMetrics publishes run counters to the given bundle.
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(p *Pipeline) { p.metrics = metrics }
}

// WithSleeper overrides how pacing waits are performed, for tests.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pipeline) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// New constructs a pipeline from the application config.
func New(cfg *config.Config, gen generator.Generator, reg *registry.Registry, logger *slog.Logger, opts ...Option) *Pipeline {
	requestTimeout := time.Duration(cfg.Pipeline.RequestTimeoutSeconds) * time.Second
	pageSize := cfg.Pipeline.PageSize
	p := &Pipeline{
		gen:    gen,
		reg:    reg,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		factory: func(site registry.Site) (SiteClient, error) {
			return wordpress.NewClient(site.URL, site.User, site.Password,
				wordpress.WithPageSize(pageSize),
				wordpress.WithTimeout(requestTimeout))
		},
		notifier:  notifications.NewService(cfg),
		pacing:    time.Duration(cfg.Pipeline.PacingMilliseconds) * time.Millisecond,
		maxImages: cfg.Pipeline.MaxCandidates,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run processes one site for one client and records the outcome. The
// returned result is valid even when err is non-nil if any counters were
// accumulated before the failure.
func (p *Pipeline) Run(ctx context.Context, clientID string, site registry.Site, trigger runlog.Trigger) (Result, error) {
	started := time.Now()
	result := Result{RunID: runlog.NewRunID()}

	ctx = services.WithClientID(ctx, clientID)
	ctx = services.WithSiteURL(ctx, site.URL)
	ctx = services.WithRunID(ctx, result.RunID)

	logger := p.logger.With(
		logging.String(logging.FieldClientID, clientID),
		logging.String(logging.FieldSiteURL, site.URL),
		logging.String(logging.FieldRunID, result.RunID),
		logging.String(logging.FieldTrigger, string(trigger)))

	if p.metrics != nil {
		p.metrics.RunsInFlight.Inc()
		defer p.metrics.RunsInFlight.Dec()
	}

	logger.Info("run started", logging.String(logging.FieldProvider, p.gen.Name()))

	runErr := p.process(ctx, logger, site, &result)

	if err := p.reg.RecordOutcome(clientID, result.Processed, result.Errors); err != nil {
		logger.Error("failed to persist outcome", logging.Error(err))
		if runErr == nil {
			runErr = err
		}
	}

	duration := time.Since(started)
	p.finish(clientID, site, trigger, result, runErr, started, duration)

	if runErr != nil {
		logger.Error("run failed", logging.Error(runErr),
			logging.Int("processed", result.Processed),
			logging.Int("errors", result.Errors))
		return result, runErr
	}
	logger.Info("run completed",
		logging.Int("processed", result.Processed),
		logging.Int("errors", result.Errors),
		logging.Int("total", result.Total),
		logging.Duration("duration", duration))
	return result, nil
}

func (p *Pipeline) process(ctx context.Context, logger *slog.Logger, site registry.Site, result *Result) error {
	client, err := p.factory(site)
	if err != nil {
		return err
	}

	media, err := client.ListMedia(ctx)
	if err != nil {
		return err
	}
	result.Total = len(media)

	candidates := make([]wordpress.Media, 0, len(media))
	for _, item := range media {
		if item.NeedsAltText() {
			candidates = append(candidates, item)
		}
	}
	if p.maxImages > 0 && len(candidates) > p.maxImages {
		candidates = candidates[:p.maxImages]
	}
	logger.Info("media discovered",
		logging.Int("total", result.Total),
		logging.Int("candidates", len(candidates)))

	for _, item := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.processImage(ctx, logger, client, item); err != nil {
			result.Errors++
			logger.Warn("image failed",
				logging.Int64(logging.FieldMediaID, item.ID),
				logging.Error(err))
		} else {
			result.Processed++
		}
		if err := p.sleep(ctx, p.pacing); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) processImage(ctx context.Context, logger *slog.Logger, client SiteClient, item wordpress.Media) error {
	var pageTitle, pageHTML string
	if item.Post != 0 {
		content, err := client.GetContent(ctx, item.Post)
		switch {
		case err == nil:
			pageTitle = content.Title.Rendered
			pageHTML = content.Body.Rendered
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			// A missing parent just means a thinner prompt.
			logger.Debug("no parent content",
				logging.Int64(logging.FieldMediaID, item.ID),
				logging.Error(err))
		}
	}

	promptCtx := metadata.ExtractContext(item.SourceURL, item.Title.Rendered, pageTitle, pageHTML)
	record, err := p.gen.Generate(ctx, generator.Request{
		Prompt:  metadata.Prompt(promptCtx),
		Context: promptCtx,
	})
	if err != nil {
		return err
	}
	return client.UpdateMedia(ctx, item.ID, record.Clamp())
}

func (p *Pipeline) finish(clientID string, site registry.Site, trigger runlog.Trigger, result Result, runErr error, started time.Time, duration time.Duration) {
	// Reporting uses a detached context so a cancelled run still leaves a
	// trace behind.
	reportCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if p.runs != nil {
		summary := ""
		if runErr != nil {
			summary = strings.TrimSpace(runErr.Error())
		}
		record := runlog.Run{
			ID:           result.RunID,
			ClientID:     clientID,
			SiteURL:      site.URL,
			Trigger:      trigger,
			Processed:    result.Processed,
			Errors:       result.Errors,
			Total:        result.Total,
			ErrorSummary: summary,
			StartedAt:    started.UTC(),
			FinishedAt:   started.Add(duration).UTC(),
		}
		if err := p.runs.Record(reportCtx, record); err != nil {
			p.logger.Error("failed to record run", logging.Error(err))
		}
	}

	if p.metrics != nil {
		p.metrics.ObserveRun(string(trigger), runErr != nil, duration, result.Processed, result.Errors)
	}

	if p.notifier != nil {
		var err error
		if runErr != nil {
			err = p.notifier.NotifyRunFailed(reportCtx, clientID, site.URL, runErr)
		} else {
			err = p.notifier.NotifyRunCompleted(reportCtx, clientID, site.URL, result.Processed, result.Errors, duration)
		}
		if err != nil {
			p.logger.Warn("notification failed", logging.Error(err))
		}
	}
}

// RunAll processes every site registered for the client sequentially and
// returns the combined result. Site failures are folded into the combined
// error counters; only a missing client surfaces as an error.
func (p *Pipeline) RunAll(ctx context.Context, clientID string, trigger runlog.Trigger) (Result, error) {
	sites, err := p.reg.Sites(clientID)
	if err != nil {
		return Result{}, err
	}
	if len(sites) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, "pipeline", "run all",
			fmt.Sprintf("client %q has no sites", clientID), nil)
	}
	var combined Result
	for _, site := range sites {
		if err := ctx.Err(); err != nil {
			return combined, err
		}
		result, runErr := p.Run(ctx, clientID, site, trigger)
		combined.Processed += result.Processed
		combined.Errors += result.Errors
		combined.Total += result.Total
		combined.RunID = result.RunID
		if runErr != nil && ctx.Err() != nil {
			return combined, runErr
		}
	}
	return combined, nil
}
