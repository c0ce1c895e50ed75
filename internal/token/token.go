// package token caches the Apple Music developer token and deduplicates concurrent mints.
//
// A token is served while it is more than [RefreshBuffer] from expiry. Concurrent callers that find the
// cache empty or stale share one in-flight mint, and a failed mint leaves the cache empty.
package token

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlistx/internal/shared"
	"github.com/desertthunder/setlistx/internal/telemetry"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	// TTL is how long a minted token is assumed valid.
	TTL = 55 * time.Minute
	// RefreshBuffer is how long before expiry a token stops being served.
	RefreshBuffer = 5 * time.Minute

	flightKey = "developer-token"
)

// MintFunc produces a fresh developer token.
type MintFunc func(ctx context.Context) (string, error)

// State describes the cache for status reporting.
type State int

const (
	Absent State = iota
	Pending
	Valid
	Stale
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Valid:
		return "valid"
	case Stale:
		return "stale"
	default:
		return "absent"
	}
}

// Option configures a [Cache].
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithTTL overrides [TTL] and [RefreshBuffer].
func WithTTL(ttl, buffer time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
		c.buffer = buffer
	}
}

// WithMetrics records mint outcomes.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// Cache holds at most one token.
type Cache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	inflight  bool

	group   singleflight.Group
	mint    MintFunc
	ttl     time.Duration
	buffer  time.Duration
	now     func() time.Time
	logger  *log.Logger
	metrics *telemetry.Metrics
}

// New creates an empty cache that mints with mint.
func New(mint MintFunc, opts ...Option) *Cache {
	c := &Cache{
		mint:   mint,
		ttl:    TTL,
		buffer: RefreshBuffer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = shared.NewLogger(nil)
	}
	c.logger = shared.WithLogger(c.logger, "component", "token")
	return c
}

// Get returns a cached token or waits on a single shared mint.
//
// The mint is not tied to any one caller: a caller whose ctx ends stops waiting, but the mint
// continues for the others.
func (c *Cache) Get(ctx context.Context) (string, error) {
	if tok, ok := c.fresh(); ok {
		return tok, nil
	}

	ch := c.group.DoChan(flightKey, func() (any, error) {
		if tok, ok := c.fresh(); ok {
			return tok, nil
		}
		c.setInflight(true)
		defer c.setInflight(false)
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Cache) refresh(ctx context.Context) (string, error) {
	if c.mint == nil {
		c.clear()
		return "", fmt.Errorf("%w: no token source configured", shared.ErrMissingCredentials)
	}

	tok, err := c.mint(ctx)
	tok = strings.TrimSpace(tok)
	switch {
	case err != nil:
		c.clear()
		c.metrics.TokenMint(false)
		c.logger.Warn("developer token mint failed", "error", err)
		return "", fmt.Errorf("%w: %w", shared.ErrCredentialMint, err)
	case tok == "":
		c.clear()
		c.metrics.TokenMint(false)
		return "", fmt.Errorf("%w: %w", shared.ErrCredentialMint, shared.ErrEmptyToken)
	}

	c.mu.Lock()
	c.token = tok
	c.expiresAt = c.now().Add(c.ttl)
	c.mu.Unlock()

	c.metrics.TokenMint(true)
	c.logger.Debug("developer token minted", "expires", c.expiresAt)
	return tok, nil
}

func (c *Cache) fresh() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.expiresAt.Add(-c.buffer)) {
		return c.token, true
	}
	return "", false
}

func (c *Cache) setInflight(v bool) {
	c.mu.Lock()
	c.inflight = v
	c.mu.Unlock()
}

func (c *Cache) clear() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

// Invalidate drops the cached token so the next Get mints.
func (c *Cache) Invalidate() {
	c.clear()
}

// State reports whether a token is cached, being minted, or near expiry.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.inflight:
		return Pending
	case c.token == "":
		return Absent
	case c.now().Before(c.expiresAt.Add(-c.buffer)):
		return Valid
	default:
		return Stale
	}
}

// ExpiresAt returns the expiry of the cached token, or the zero time.
func (c *Cache) ExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiresAt
}

// TokenSource adapts the cache to an [oauth2.TokenSource] so it can drive an [oauth2.Transport].
func (c *Cache) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &source{ctx: ctx, cache: c}
}

type source struct {
	ctx   context.Context
	cache *Cache
}

func (s *source) Token() (*oauth2.Token, error) {
	tok, err := s.cache.Get(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: tok,
		TokenType:   "Bearer",
		Expiry:      s.cache.ExpiresAt().Add(-s.cache.buffer),
	}, nil
}
