package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"imageseo/internal/config"
)

const userAgent = "ImageSEO-Go/0.1.0"

// Service defines the notification surface exposed to the daemon and
// pipeline.
type Service interface {
	NotifySiteRegistered(ctx context.Context, clientID, siteURL string) error
	NotifyRunCompleted(ctx context.Context, clientID, siteURL string, processed, errors int, duration time.Duration) error
	NotifyRunFailed(ctx context.Context, clientID, siteURL string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		sendRuns:   cfg.Notifications.Runs,
		sendErrors: cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	sendRuns   bool
	sendErrors bool
}

func (n *ntfyService) NotifySiteRegistered(ctx context.Context, clientID, siteURL string) error {
	data := payload{
		title:   "ImageSEO - Site Registered",
		message: fmt.Sprintf("New site for %s: %s", strings.TrimSpace(clientID), strings.TrimSpace(siteURL)),
		tags:    []string{"imageseo", "register"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, clientID, siteURL string, processed, errors int, duration time.Duration) error {
	if !n.sendRuns {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var title, message string
	if errors == 0 {
		title = "ImageSEO - Run Complete"
		message = fmt.Sprintf("%s: %d images updated on %s in %s", clientID, processed, siteURL, duration)
	} else {
		title = "ImageSEO - Run Complete (with errors)"
		message = fmt.Sprintf("%s: %d updated, %d failed on %s in %s", clientID, processed, errors, siteURL, duration)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"imageseo", "run", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, clientID, siteURL string, err error) error {
	if !n.sendErrors {
		return nil
	}
	detail := "unknown"
	if err != nil {
		detail = strings.TrimSpace(err.Error())
	}
	data := payload{
		title:    "ImageSEO - Run Failed",
		message:  fmt.Sprintf("%s: run failed on %s: %s", clientID, siteURL, detail),
		tags:     []string{"imageseo", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "ImageSEO - Test",
		message:  "Notification system test",
		tags:     []string{"imageseo", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifySiteRegistered(context.Context, string, string) error { return nil }
func (noopService) NotifyRunCompleted(context.Context, string, string, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyRunFailed(context.Context, string, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }
