package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlistx/internal/cache"
	"github.com/desertthunder/setlistx/internal/shared"
	"github.com/desertthunder/setlistx/internal/telemetry"
	"github.com/goccy/go-json"
)

const (
	DefaultSetlistFMURL = "https://api.setlist.fm/rest/1.0"
	setlistFMUpstream   = "setlistfm"
	maxBodyBytes        = 10 << 20
)

// SetlistFMOpts configures a [SetlistFMService].
type SetlistFMOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	Cache      *cache.Cache[json.RawMessage]
	CacheTTL   time.Duration
	MaxRetries int           // retries after a 429, on top of the first attempt
	Backoff    time.Duration // wait before retry n is Backoff * n
	Logger     *log.Logger
	Metrics    *telemetry.Metrics
}

// DefaultSetlistFMOpts returns one-hour caching with two retries and a one second backoff base.
func DefaultSetlistFMOpts() SetlistFMOpts {
	return SetlistFMOpts{
		BaseURL:    DefaultSetlistFMURL,
		CacheTTL:   time.Hour,
		MaxRetries: 2,
		Backoff:    time.Second,
	}
}

// SetlistFMService fetches setlists from the setlist.fm REST API.
//
// Responses are cached by setlist id only; the API key is not part of the key.
type SetlistFMService struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache[json.RawMessage]
	ttl        time.Duration
	maxRetries int
	backoff    time.Duration
	logger     *log.Logger
	metrics    *telemetry.Metrics
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewSetlistFMService creates a client, filling unset options from [DefaultSetlistFMOpts].
//
// MaxRetries and Backoff are used as given.
func NewSetlistFMService(opts SetlistFMOpts) *SetlistFMService {
	defaults := DefaultSetlistFMOpts()
	if opts.BaseURL == "" {
		opts.BaseURL = defaults.BaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Cache == nil {
		opts.Cache = cache.New[json.RawMessage](200)
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaults.CacheTTL
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &SetlistFMService{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		cache:      opts.Cache,
		ttl:        opts.CacheTTL,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		logger:     shared.WithLogger(opts.Logger, "service", setlistFMUpstream),
		metrics:    opts.Metrics,
		sleep:      sleepContext,
	}
}

// FetchByID returns the setlist payload for id, from cache when possible.
//
// Every failure is a [*FetchError].
func (s *SetlistFMService) FetchByID(ctx context.Context, id, apiKey string) (json.RawMessage, error) {
	if cached, ok := s.cache.Get(id); ok {
		s.metrics.CacheLookup(setlistFMUpstream, true)
		return cached, nil
	}
	s.metrics.CacheLookup(setlistFMUpstream, false)

	endpoint := fmt.Sprintf("%s/setlist/%s", s.baseURL, url.PathEscape(id))

	for attempt := 0; ; attempt++ {
		status, body, err := s.doRequest(ctx, endpoint, apiKey)
		if err != nil {
			return nil, &FetchError{
				Status:  http.StatusServiceUnavailable,
				Message: err.Error(),
				Err:     fmt.Errorf("%w: %w", shared.ErrUpstreamUnavailable, err),
			}
		}
		s.metrics.UpstreamRequest(setlistFMUpstream, status)

		switch {
		case status >= 200 && status < 300:
			if !isJSONObject(body) {
				return nil, &FetchError{
					Status:  http.StatusBadGateway,
					Message: shared.ErrInvalidUpstreamBody.Error(),
					Err:     shared.ErrInvalidUpstreamBody,
				}
			}
			payload := json.RawMessage(body)
			s.cache.Set(id, payload, s.ttl)
			return payload, nil

		case status == http.StatusTooManyRequests:
			if attempt >= s.maxRetries {
				return nil, &FetchError{
					Status:  http.StatusTooManyRequests,
					Message: shared.ErrUpstreamRateLimited.Error(),
					Err:     shared.ErrUpstreamRateLimited,
				}
			}
			wait := s.backoff * time.Duration(attempt+1)
			s.metrics.UpstreamRetry(setlistFMUpstream)
			s.logger.Debug("rate limited, backing off", "id", id, "attempt", attempt+1, "wait", wait)
			if err := s.sleep(ctx, wait); err != nil {
				return nil, &FetchError{
					Status:  http.StatusServiceUnavailable,
					Message: "request canceled",
					Err:     fmt.Errorf("%w: %w", shared.ErrUpstreamUnavailable, err),
				}
			}

		default:
			return nil, &FetchError{
				Status:  status,
				Message: upstreamMessage(status, body),
				Err:     sentinelFor(status),
			}
		}
	}
}

func (s *SetlistFMService) doRequest(ctx context.Context, endpoint, apiKey string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// upstreamMessage prefers a JSON message field, then the raw body, then the status text.
func upstreamMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		return strings.TrimSpace(payload.Message)
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
