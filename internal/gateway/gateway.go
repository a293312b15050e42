// Package gateway is the single outbound HTTP client shared by every
// session and domain service. It attaches the right bearer token, runs
// requests through an ordered stage chain and reports failures as toasts.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/dukerupert/carpool/internal/metrics"
	"github.com/dukerupert/carpool/internal/model"
)

const (
	maxResponseBytes = 8 << 20

	msgSessionExpired = "Session expired. Please log in again."
	msgNetwork        = "Network error. Please check your connection."
	msgSetup          = "Request could not be prepared."
	msgCircuitOpen    = "Service temporarily unavailable. Please try again shortly."
	msgBadResponse    = "Unexpected response from server."
)

// Request describes one API call. Audience is resolved from Path when left
// as AudienceNone.
type Request struct {
	Audience       model.Audience
	Method         string
	Path           string
	Query          url.Values
	Body           any
	Form           url.Values
	SuccessMessage string

	Anonymous    bool // never attach a token
	Quiet        bool // caller reports failures itself
	SkipRecovery bool // 401 is returned as a plain APIError
}

// Pending is a prepared request travelling through the stage chain.
type Pending struct {
	Request
	ID          string
	URL         string
	Payload     []byte
	ContentType string
	Token       string
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

type (
	Handler func(ctx context.Context, p *Pending) (*Response, error)
	Stage   func(next Handler) Handler
)

// Session is the view of an audience session the gateway needs for token
// attachment and 401 recovery.
type Session interface {
	Token() string
	Epoch() uint64
	Authenticated() bool
	Logout(ctx context.Context)
}

// Locator reports the path of the route currently shown.
type Locator interface {
	CurrentPath() string
}

type Notifier interface {
	Success(message string) string
	Error(message string) string
	Warning(message string) string
}

type Options struct {
	BaseURL         string
	Timeout         time.Duration
	RateLimit       float64 // requests per second, 0 disables
	RateBurst       int
	BreakerFailures uint32 // consecutive failures before opening, 0 disables
	BreakerTimeout  time.Duration
	Metrics         *metrics.Metrics
	HTTPClient      *http.Client
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	toasts     Notifier
	metrics    *metrics.Metrics
	logger     *slog.Logger

	mu       sync.RWMutex
	sessions map[model.Audience]Session
	locator  Locator
	stages   []Stage
	handler  Handler

	// recoverMu serializes 401 recovery so one expiry produces one logout.
	recoverMu sync.Mutex
}

func New(opts Options, toasts Notifier, logger *slog.Logger) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		toasts:     toasts,
		metrics:    opts.Metrics,
		logger:     logger.With("component", "gateway"),
		sessions:   make(map[model.Audience]Session),
	}

	c.stages = append(c.stages, Observe(opts.Metrics))
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.stages = append(c.stages, Throttle(rate.NewLimiter(rate.Limit(opts.RateLimit), burst)))
	}
	c.stages = append(c.stages, c.attachToken)
	if opts.BreakerFailures > 0 {
		c.stages = append(c.stages, Breaker(newBreaker(opts.BreakerFailures, opts.BreakerTimeout, c.logger)))
	}
	c.handler = chain(c.transport, c.stages...)
	return c
}

// Bind hands the gateway the three sessions and the navigator once they
// exist. Sessions are constructed with the gateway, so this cannot happen
// in New.
func (c *Client) Bind(sessions map[model.Audience]Session, locator Locator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for aud, s := range sessions {
		c.sessions[aud] = s
	}
	c.locator = locator
}

// Use appends stages after the built-in ones, just before transport.
func (c *Client) Use(stages ...Stage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages = append(c.stages, stages...)
	c.handler = chain(c.transport, c.stages...)
}

func chain(h Handler, stages ...Stage) Handler {
	for i := len(stages) - 1; i >= 0; i-- {
		h = stages[i](h)
	}
	return h
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Do sends req and decodes a 2xx JSON body into out when out is non-nil.
// Every failure is reported once as a toast (unless req.Quiet) and returned.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	p, err := c.prepare(req)
	if err != nil {
		return c.fail(ctx, req, fmt.Errorf("%w: %w", ErrSetup, err))
	}
	epochs := c.epochs()

	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()

	resp, err := handler(ctx, p)
	if err != nil {
		return c.fail(ctx, req, err)
	}

	if resp.Status == http.StatusUnauthorized && !req.SkipRecovery {
		return c.recoverSession(ctx, req, epochs, newAPIError(resp.Status, resp.Body))
	}
	if resp.Status < 200 || resp.Status >= 300 {
		apiErr := newAPIError(resp.Status, resp.Body)
		if !req.Quiet {
			c.toasts.Error(apiErr.Display())
		}
		return apiErr
	}

	if out != nil && len(bytes.TrimSpace(resp.Body)) > 0 {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			c.logger.Error("failed to decode response", "path", req.Path, "error", err)
			if !req.Quiet {
				c.toasts.Error(msgBadResponse)
			}
			return fmt.Errorf("decode response: %w", err)
		}
	}
	if req.SuccessMessage != "" {
		c.toasts.Success(req.SuccessMessage)
	}
	return nil
}

func (c *Client) prepare(req Request) (*Pending, error) {
	p := &Pending{Request: req}
	if p.Method == "" {
		p.Method = http.MethodGet
	}
	if p.Audience == model.AudienceNone {
		p.Audience = AudienceFor(p.Path)
	}

	u, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(p.Path, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(p.Query) > 0 {
		q := u.Query()
		for k, vs := range p.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	p.URL = u.String()

	switch {
	case p.Form != nil:
		p.Payload = []byte(p.Form.Encode())
		p.ContentType = "application/x-www-form-urlencoded"
	case p.Body != nil:
		p.Payload, err = json.Marshal(p.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		p.ContentType = "application/json"
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("request id: %w", err)
	}
	p.ID = id.String()
	return p, nil
}

// AudienceFor picks the token audience for an outbound path. Admin
// endpoints get the admin token, everything else the user token.
func AudienceFor(path string) model.Audience {
	path = "/" + strings.TrimLeft(path, "/")
	if hasSegmentPrefix(path, "/admin") || hasSegmentPrefix(path, "/feedback/admin") {
		return model.AudienceAdmin
	}
	return model.AudienceUser
}

func hasSegmentPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/") || strings.HasPrefix(path, prefix+"?")
}

func (c *Client) session(aud model.Audience) Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessions[aud]
}

func (c *Client) epochs() map[model.Audience]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[model.Audience]uint64, len(c.sessions))
	for aud, s := range c.sessions {
		out[aud] = s.Epoch()
	}
	return out
}

func (c *Client) transport(ctx context.Context, p *Pending) (*Response, error) {
	var body io.Reader
	if p.Payload != nil {
		body = bytes.NewReader(p.Payload)
	}
	req, err := http.NewRequestWithContext(ctx, p.Method, p.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrSetup, err)
	}
	if p.ContentType != "" {
		req.Header.Set("Content-Type", p.ContentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", p.ID)
	if p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// fail reports a request that produced no usable response.
func (c *Client) fail(ctx context.Context, req Request, err error) error {
	if ctx.Err() != nil {
		c.logger.Debug("request canceled", "path", req.Path, "error", err)
		return err
	}

	msg := msgNetwork
	switch {
	case errors.Is(err, ErrSetup):
		msg = msgSetup
	case errors.Is(err, ErrCircuitOpen):
		msg = msgCircuitOpen
	}
	c.logger.Warn("request failed", "method", req.Method, "path", req.Path, "error", err)
	if !req.Quiet {
		c.toasts.Error(msg)
	}
	if !errors.Is(err, ErrSetup) && !errors.Is(err, ErrNetwork) && !errors.Is(err, ErrCircuitOpen) {
		err = fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return err
}

func newBreaker(failures uint32, timeout time.Duration, logger *slog.Logger) *gobreaker.CircuitBreaker[*Response] {
	return gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:    "api",
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
}
