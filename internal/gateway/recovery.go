package gateway

import (
	"context"
	"fmt"

	"github.com/dukerupert/carpool/internal/model"
	"github.com/dukerupert/carpool/internal/navigator"
)

// recoverSession handles a 401. The audience is taken from the route being
// shown, not from the request, so an expired user token never logs out an
// admin. Only the first 401 after a given login tears the session down;
// later ones see a newer epoch and are suppressed.
func (c *Client) recoverSession(ctx context.Context, req Request, epochs map[model.Audience]uint64, apiErr *APIError) error {
	c.mu.RLock()
	locator := c.locator
	c.mu.RUnlock()

	aud := model.AudienceUser
	if locator != nil {
		aud = navigator.AreaOf(locator.CurrentPath()).Audience()
	}
	s := c.session(aud)

	c.recoverMu.Lock()
	if s != nil && s.Epoch() != epochs[aud] {
		c.recoverMu.Unlock()
		c.logger.Debug("suppressed stale 401", "audience", aud.String(), "path", req.Path)
		return fmt.Errorf("%w: %w", ErrSessionExpired, apiErr)
	}
	if s == nil || !s.Authenticated() {
		c.recoverMu.Unlock()
		if !req.Quiet {
			c.toasts.Error(apiErr.Display())
		}
		return apiErr
	}
	s.Logout(ctx)
	c.recoverMu.Unlock()

	c.logger.Info("session expired", "audience", aud.String(), "path", req.Path, "reason", apiErr.Message)
	c.metrics.SessionExpired(aud.String())
	c.toasts.Warning(msgSessionExpired)
	return fmt.Errorf("%w: %w", ErrSessionExpired, apiErr)
}
