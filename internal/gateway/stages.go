package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/dukerupert/carpool/internal/metrics"
)

// errServerStatus marks a 5xx so the breaker counts it as a failure while
// the response itself still reaches the caller.
var errServerStatus = errors.New("server error status")

// Observe records request counts and latency.
func Observe(m *metrics.Metrics) Stage {
	return func(next Handler) Handler {
		return func(ctx context.Context, p *Pending) (*Response, error) {
			start := time.Now()
			resp, err := next(ctx, p)
			code := 0
			if resp != nil {
				code = resp.Status
			}
			m.ObserveRequest(p.Audience.String(), p.Method, code, time.Since(start))
			return resp, err
		}
	}
}

// Throttle blocks until the limiter admits the request.
func Throttle(l *rate.Limiter) Stage {
	return func(next Handler) Handler {
		return func(ctx context.Context, p *Pending) (*Response, error) {
			if err := l.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
			return next(ctx, p)
		}
	}
}

// Breaker short-circuits requests while the API keeps failing.
func Breaker(cb *gobreaker.CircuitBreaker[*Response]) Stage {
	return func(next Handler) Handler {
		return func(ctx context.Context, p *Pending) (*Response, error) {
			resp, err := cb.Execute(func() (*Response, error) {
				resp, err := next(ctx, p)
				if err != nil {
					return nil, err
				}
				if resp.Status >= http.StatusInternalServerError {
					return resp, errServerStatus
				}
				return resp, nil
			})
			switch {
			case errors.Is(err, errServerStatus):
				return resp, nil
			case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
				return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
			}
			return resp, err
		}
	}
}

// attachToken sets the bearer token for the request's audience. A missing
// session or empty token sends the request unauthenticated.
func (c *Client) attachToken(next Handler) Handler {
	return func(ctx context.Context, p *Pending) (*Response, error) {
		if !p.Anonymous {
			if s := c.session(p.Audience); s != nil {
				p.Token = s.Token()
			}
		}
		return next(ctx, p)
	}
}
