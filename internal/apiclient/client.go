// Package apiclient is the typed client of the salon REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"salonbook/internal/cache"
	"salonbook/internal/config"
	"salonbook/internal/domain"
	"salonbook/internal/events"
	"salonbook/internal/metrics"
)

const maxBodySize = 1 << 20

type requestIDKey struct{}

// ContextWithRequestID makes outgoing calls reuse id as X-Request-ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// Client talks to the API. The zero token means anonymous public calls.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	cooldown   time.Duration
	cooldowns  *cooldowns
	retry      RetryPolicy
	cache      cache.Store
	events     domain.EventPublisher
	logger     *zerolog.Logger
	now        func() time.Time
}

type Option func(*Client)

func WithCache(store cache.Store) Option {
	return func(c *Client) { c.cache = store }
}

func WithEvents(pub domain.EventPublisher) Option {
	return func(c *Client) { c.events = pub }
}

func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(cfg config.APIConfig, opts ...Option) *Client {
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	nop := zerolog.Nop()
	c := &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		limiter:    rate.NewLimiter(limit, burst),
		cooldown:   cfg.Cooldown(),
		cooldowns:  newCooldowns(),
		retry:      RetryPolicy{MaxRetries: cfg.ReadRetries, InitialDelay: 200 * time.Millisecond, MaxDelay: 3 * time.Second, BackoffFactor: 2},
		logger:     &nop,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy sending the bearer token. Limiter, cache and cool-downs are shared.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) Token() string {
	return c.token
}

func (c *Client) scope() string {
	return cache.Scope(c.token)
}

type call struct {
	method string
	route  string // metrics label, e.g. "GET /workers/:id"
	path   string
	query  url.Values
	body   interface{}
	out    interface{}
}

func (c *Client) do(ctx context.Context, cl call) error {
	scope := c.scope()
	now := c.now()
	if until, ok := c.cooldowns.active(scope, now); ok {
		return &CooldownError{Until: until, Remaining: until.Sub(now)}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	endpoint := c.baseURL + cl.path
	if len(cl.query) > 0 {
		endpoint += "?" + cl.query.Encode()
	}

	var body io.Reader = http.NoBody
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	reqID := requestID(ctx)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveAPI(cl.route, "error", elapsed.Seconds())
		c.logger.Warn().Err(err).Str("request_id", reqID).Str("endpoint", cl.route).Msg("API request failed")
		return fmt.Errorf("%w: %s: %w", ErrTransport, cl.route, err)
	}
	defer resp.Body.Close()

	metrics.ObserveAPI(cl.route, statusClass(resp.StatusCode), elapsed.Seconds())
	c.logger.Debug().
		Str("request_id", reqID).
		Str("endpoint", cl.route).
		Int("status", resp.StatusCode).
		Dur("duration", elapsed).
		Msg("API request")

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	if resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp.StatusCode, raw)
		if resp.StatusCode == http.StatusTooManyRequests {
			c.cooldowns.start(scope, c.now().Add(c.cooldown))
			c.logger.Warn().Str("endpoint", cl.route).Dur("cooldown", c.cooldown).Msg("API rate limit hit")
		}
		return apiErr
	}

	if cl.out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := decodeBody(raw, cl.out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidResponse, cl.route, err)
	}
	return nil
}

type freshReadKey struct{}

// WithFreshRead makes reads under ctx skip the cache. The answer still refills it.
func WithFreshRead(ctx context.Context) context.Context {
	return context.WithValue(ctx, freshReadKey{}, true)
}

func freshRead(ctx context.Context) bool {
	fresh, _ := ctx.Value(freshReadKey{}).(bool)
	return fresh
}

// get serves a cached read or fetches and caches it.
func (c *Client) get(ctx context.Context, cl call, key string) error {
	if c.cache != nil && key != "" && !freshRead(ctx) {
		found, err := c.cache.Get(ctx, c.scope(), key, cl.out)
		switch {
		case err != nil:
			c.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		case found:
			metrics.IncCacheHit()
			return nil
		default:
			metrics.IncCacheMiss()
		}
	}

	cl.method = http.MethodGet
	if err := c.retry.Do(ctx, func() error { return c.do(ctx, cl) }); err != nil {
		return err
	}

	if c.cache != nil && key != "" {
		if err := c.cache.Set(ctx, c.scope(), key, cl.out); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
		}
	}
	return nil
}

// mutate sends a write and, on success, invalidates stale reads and publishes the change.
func (c *Client) mutate(ctx context.Context, cl call, eventType string, payload events.ChangeEventPayload) error {
	if err := c.do(ctx, cl); err != nil {
		return err
	}
	c.MarkStale(ctx, eventType, payload)
	return nil
}

// MarkStale invalidates the reads a change affects and publishes it.
func (c *Client) MarkStale(ctx context.Context, eventType string, payload events.ChangeEventPayload) {
	if c.cache != nil {
		if keys := cache.KeysFor(eventType, payload); len(keys) > 0 {
			if err := c.cache.Invalidate(ctx, keys...); err != nil {
				c.logger.Error().Err(err).Strs("keys", keys).Msg("Cache invalidation failed")
			}
		}
	}
	if c.events != nil {
		if err := c.events.PublishJSON(eventType, payload); err != nil {
			c.logger.Error().Err(err).Str("event", eventType).Msg("Failed to publish event")
		}
	}
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

type errorBody struct {
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
}

func decodeAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{Status: status}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
		apiErr.Fields = body.Errors
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// decodeBody accepts both bare payloads and {"data": ...} envelopes.
func decodeBody(raw []byte, out interface{}) error {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err == nil && len(env) == 1 {
		if data, ok := env["data"]; ok {
			return json.Unmarshal(data, out)
		}
	}
	return json.Unmarshal(raw, out)
}
