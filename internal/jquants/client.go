// Package jquants is the J-Quants market-data client. A Client owns its
// token cache, call pacer and response caches; there is no package-level
// state.
package jquants

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/seenimoa/kabuai/internal/config"
	"github.com/seenimoa/kabuai/internal/infra"
	"github.com/seenimoa/kabuai/internal/provider"
	"github.com/seenimoa/kabuai/pkg/models"
	"github.com/seenimoa/kabuai/pkg/utils"
)

// Defaults used when no option overrides them.
const (
	DefaultBaseURL       = "https://api.jquants.com"
	DefaultMinInterval   = time.Second
	DefaultMaxAttempts   = 3
	DefaultCallTimeout   = 30 * time.Second
	DefaultBackoffBase   = time.Second
	DefaultBackoffMax    = 16 * time.Second
	DefaultInfoTTL       = 6 * time.Hour
	DefaultStatementsTTL = 5 * time.Minute
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 32 << 20

// Client talks to the J-Quants v1 API.
type Client struct {
	baseURL      string
	refreshToken string
	httpClient   *http.Client
	logger       zerolog.Logger
	clock        infra.Clock

	minInterval time.Duration
	maxAttempts int
	callTimeout time.Duration
	backoffBase time.Duration
	backoffMax  time.Duration
	infoTTL     time.Duration
	stmtTTL     time.Duration

	pacer     *infra.Pacer
	infoCache *infra.Cache
	stmtCache *infra.Cache

	tokenMu     sync.Mutex
	idToken     string
	tokenExpiry time.Time
	refreshes   singleflight.Group
}

var _ provider.MarketData = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client used for every call.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = infra.Component(l, "jquants") }
}

// WithMinInterval sets the minimum gap between outbound calls.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) { c.minInterval = d }
}

// WithMaxAttempts sets how many times a transient failure is attempted.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithCallTimeout sets the per-call timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) { c.callTimeout = d }
}

// WithBackoff sets the exponential backoff base and cap.
func WithBackoff(base, max time.Duration) Option {
	return func(c *Client) { c.backoffBase, c.backoffMax = base, max }
}

// WithCacheTTL sets how long company info and statements are cached.
func WithCacheTTL(info, statements time.Duration) Option {
	return func(c *Client) { c.infoTTL, c.stmtTTL = info, statements }
}

// WithClock replaces the time source used for pacing, backoff and token
// expiry. Used by tests.
func WithClock(clock infra.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// NewClient creates a client that authenticates with the given refresh token.
func NewClient(refreshToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		refreshToken: refreshToken,
		httpClient:   &http.Client{},
		logger:       zerolog.Nop(),
		clock:        infra.RealClock,
		minInterval:  DefaultMinInterval,
		maxAttempts:  DefaultMaxAttempts,
		callTimeout:  DefaultCallTimeout,
		backoffBase:  DefaultBackoffBase,
		backoffMax:   DefaultBackoffMax,
		infoTTL:      DefaultInfoTTL,
		stmtTTL:      DefaultStatementsTTL,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.pacer = infra.NewPacer(c.minInterval, c.clock)
	c.infoCache = infra.NewCache(c.infoTTL).WithClock(c.clock.Now)
	c.stmtCache = infra.NewCache(c.stmtTTL).WithClock(c.clock.Now)
	return c
}

// NewFromConfig creates a client from the jquants config section.
func NewFromConfig(cfg config.JQuantsConfig, logger zerolog.Logger, opts ...Option) *Client {
	base, max := cfg.Backoff()
	all := []Option{
		WithBaseURL(cfg.BaseURL),
		WithLogger(logger),
		WithMinInterval(cfg.MinInterval()),
		WithMaxAttempts(cfg.MaxAttempts),
		WithCallTimeout(cfg.Timeout()),
		WithBackoff(base, max),
		WithCacheTTL(time.Duration(cfg.InfoCacheTTL)*time.Second, time.Duration(cfg.StatementsCacheTTL)*time.Second),
	}
	return NewClient(cfg.RefreshToken, append(all, opts...)...)
}

// Info returns metadata about the provider.
func (c *Client) Info() provider.Info {
	return provider.Info{
		Name:        "jquants",
		Description: "J-Quants API: listed company info, financial statements and daily quotes for Japanese equities",
		Website:     "https://jpx-jquants.com",
		Credentials: []provider.Credential{{
			Name:        provider.ParamRefreshToken,
			Description: "J-Quants refresh token",
			Required:    true,
			EnvVar:      "JQUANTS_REFRESH_TOKEN",
		}},
		Endpoints: []string{endpointInfo, endpointStatements, endpointQuotes, endpointAnnouncement, endpointCalendar},
	}
}

// response is one completed HTTP exchange.
type response struct {
	status int
	header http.Header
	body   []byte
}

// Fetch performs an authenticated GET and returns the raw payload.
// A 401 forces one token refresh and one more attempt; a second 401 is an
// AuthenticationError. 404 is DataUnavailable, other 4xx an APIError.
func (c *Client) Fetch(ctx context.Context, endpoint string, params provider.QueryParams) (RawPayload, error) {
	token, err := c.token(ctx)
	if err != nil {
		return RawPayload{}, err
	}

	for refreshed := false; ; refreshed = true {
		resp, err := c.withRetry(ctx, endpoint, func() (*response, error) {
			return c.roundTrip(ctx, http.MethodGet, endpoint, params, token)
		})
		if err != nil {
			return RawPayload{}, err
		}

		payload := RawPayload{Endpoint: endpoint, Body: resp.body}
		switch {
		case resp.status >= 200 && resp.status < 300:
			return payload, nil
		case resp.status == http.StatusUnauthorized:
			if refreshed {
				return RawPayload{}, &AuthenticationError{Reason: "ID token rejected after refresh", Hint: refreshHint}
			}
			c.logger.Info().Str("endpoint", endpoint).Msg("ID token rejected, refreshing")
			c.invalidate(token)
			if token, err = c.token(ctx); err != nil {
				return RawPayload{}, err
			}
		case resp.status == http.StatusNotFound:
			return RawPayload{}, &DataUnavailable{Code: codeOf(params), What: strings.TrimPrefix(endpoint, "/v1/")}
		default:
			return RawPayload{}, &APIError{StatusCode: resp.status, Message: payload.Message(), Endpoint: endpoint}
		}
	}
}

// withRetry runs fn until it yields a non-transient response. Transport
// failures, per-call timeouts and 5xx back off and retry; so does 429,
// honoring Retry-After. The parent context aborts immediately.
func (c *Client) withRetry(ctx context.Context, endpoint string, fn func() (*response, error)) (*response, error) {
	for attempt := 1; ; attempt++ {
		resp, err := fn()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var retryAfter time.Duration
		switch {
		case err != nil:
			if attempt >= c.maxAttempts {
				return nil, &NetworkError{Attempts: attempt, Err: err}
			}
		case resp.status == http.StatusTooManyRequests:
			retryAfter = parseRetryAfter(resp.header.Get("Retry-After"), c.clock.Now())
			if attempt >= c.maxAttempts {
				return nil, &RateLimitExceeded{Attempts: attempt, RetryAfter: retryAfter}
			}
		case resp.status >= 500:
			if attempt >= c.maxAttempts {
				return nil, &NetworkError{Attempts: attempt, Err: &APIError{
					StatusCode: resp.status,
					Message:    RawPayload{Body: resp.body}.Message(),
					Endpoint:   endpoint,
				}}
			}
		default:
			return resp, nil
		}

		delay := infra.RetryDelay(c.backoffBase, c.backoffMax, attempt, retryAfter)
		ev := c.logger.Warn().Str("endpoint", endpoint).Int("attempt", attempt).Dur("delay", delay)
		if err != nil {
			ev = ev.Err(err)
		} else {
			ev = ev.Int("status", resp.status)
		}
		ev.Msg("retrying jquants call")

		if err := c.clock.Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// roundTrip performs exactly one paced HTTP exchange under the per-call timeout.
func (c *Client) roundTrip(ctx context.Context, method, endpoint string, params provider.QueryParams, bearer string) (*response, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	callCtx := ctx
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(callCtx, method, c.url(endpoint, params), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", endpoint, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("jquants call")

	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

func (c *Client) url(endpoint string, params provider.QueryParams) string {
	u := c.baseURL + endpoint
	if len(params) == 0 {
		return u
	}
	q := url.Values{}
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	return u + "?" + q.Encode()
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

func codeOf(params provider.QueryParams) models.CompanyCode {
	return models.CompanyCode(utils.NormalizeCode(params[provider.ParamCode]))
}
