package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"imageseo/internal/metadata"
	"imageseo/internal/services"
)

const (
	defaultPageSize       = 100
	defaultRequestTimeout = 30 * time.Second
)

// Rendered mirrors the WordPress REST envelope for rendered text fields.
type Rendered struct {
	Rendered string `json:"rendered"`
}

// Media is a media library attachment as returned by /wp-json/wp/v2/media.
type Media struct {
	ID        int64    `json:"id"`
	SourceURL string   `json:"source_url"`
	AltText   string   `json:"alt_text"`
	Title     Rendered `json:"title"`
	Post      int64    `json:"post"`
}

// NeedsAltText reports whether the attachment is missing alt text.
func (m Media) NeedsAltText() bool {
	return strings.TrimSpace(m.AltText) == ""
}

// Content is the page or post an attachment belongs to.
type Content struct {
	Title Rendered `json:"title"`
	Body  Rendered `json:"content"`
}

// Client talks to one WordPress site over the REST API with basic auth.
type Client struct {
	baseURL    string
	username   string
	password   string
	pageSize   int
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithPageSize sets the per_page value used while listing media. WordPress
// caps it at 100.
func WithPageSize(size int) Option {
	return func(c *Client) {
		if size > 0 && size <= defaultPageSize {
			c.pageSize = size
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient constructs a client for the given site.
func NewClient(siteURL, username, password string, opts ...Option) (*Client, error) {
	siteURL = strings.TrimRight(strings.TrimSpace(siteURL), "/")
	if siteURL == "" {
		return nil, services.Wrap(services.ErrValidation, "wordpress", "new client", "site url required", nil)
	}
	if _, err := url.Parse(siteURL); err != nil {
		return nil, services.Wrap(services.ErrValidation, "wordpress", "new client", "invalid site url", err)
	}
	client := &Client{
		baseURL:    siteURL,
		username:   strings.TrimSpace(username),
		password:   password,
		pageSize:   defaultPageSize,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// BaseURL returns the normalized site URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListMedia walks the media library page by page. Pagination stops at the
// first empty batch, non-200 page, or request failure; attachments collected
// before that point are returned without an error, so an unreachable site
// reads like an empty library. Only context cancellation aborts the walk.
func (c *Client) ListMedia(ctx context.Context) ([]Media, error) {
	var media []Media
	for page := 1; ; page++ {
		endpoint := fmt.Sprintf("%s/wp-json/wp/v2/media?per_page=%d&page=%d", c.baseURL, c.pageSize, page)
		batch, status, err := c.getMediaPage(ctx, endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return media, ctx.Err()
			}
			return media, nil
		}
		if status != http.StatusOK {
			return media, nil
		}
		if len(batch) == 0 {
			return media, nil
		}
		media = append(media, batch...)
	}
}

func (c *Client) getMediaPage(ctx context.Context, endpoint string) ([]Media, int, error) {
	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, 0, err
	}
	if status != http.StatusOK {
		return nil, status, nil
	}
	var batch []Media
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, status, fmt.Errorf("decode media page: %w", err)
	}
	return batch, status, nil
}

// GetContent fetches the parent post or page of an attachment, trying the
// posts endpoint first and falling back to pages. A not-found result is
// reported with services.ErrNotFound so callers can proceed with an empty
// context.
func (c *Client) GetContent(ctx context.Context, postID int64) (Content, error) {
	var content Content
	for _, endpoint := range []string{"posts", "pages"} {
		target := fmt.Sprintf("%s/wp-json/wp/v2/%s/%d", c.baseURL, endpoint, postID)
		body, status, err := c.get(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return content, ctx.Err()
			}
			continue
		}
		if status != http.StatusOK {
			continue
		}
		if err := json.Unmarshal(body, &content); err != nil {
			continue
		}
		return content, nil
	}
	return content, services.Wrap(services.ErrNotFound, "wordpress", "get content",
		fmt.Sprintf("no post or page with id %d", postID), nil)
}

// UpdateMedia writes the generated metadata back to the attachment.
func (c *Client) UpdateMedia(ctx context.Context, mediaID int64, record metadata.Record) error {
	endpoint := fmt.Sprintf("%s/wp-json/wp/v2/media/%d", c.baseURL, mediaID)
	encoded, err := json.Marshal(record)
	if err != nil {
		return services.Wrap(services.ErrValidation, "wordpress", "update media", "encode metadata", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return services.Wrap(services.ErrTransport, "wordpress", "update media", "new request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.password)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransport, "wordpress", "update media", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return services.Wrap(services.ErrTransport, "wordpress", "update media",
			"status "+strconv.Itoa(resp.StatusCode)+": "+strings.TrimSpace(string(body)), nil)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.SetBasicAuth(c.username, c.password)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
