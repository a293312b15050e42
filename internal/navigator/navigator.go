// Package navigator holds the client's route table and decides, for every
// transition, whether to proceed or redirect to the right login surface.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
)

// maxHops bounds redirect chains (guard redirects, aliases, role dispatch).
const maxHops = 8

var (
	ErrRouteNotFound = errors.New("route not found")
	ErrRedirectLoop  = errors.New("too many redirects")
)

// Location is a resolved, allowed navigation target.
type Location struct {
	Name   string            `json:"name"`
	Path   string            `json:"path"`
	Query  url.Values        `json:"query,omitempty"`
	Params map[string]string `json:"params,omitempty"`
	// Redirected is set when the location differs from the requested one.
	Redirected bool   `json:"redirected"`
	Reason     Reason `json:"reason,omitempty"`
}

func (l Location) String() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}

type Navigator struct {
	table    *Table
	guard    *Guard
	sessions Sessions
	logger   *slog.Logger

	// pushMu serializes transitions; a push completes its guard evaluation
	// before the next one starts.
	pushMu sync.Mutex

	mu      sync.RWMutex
	current Location
	history []Location
}

func New(table *Table, sessions Sessions, logger *slog.Logger) *Navigator {
	return &Navigator{
		table:    table,
		guard:    NewGuard(sessions),
		sessions: sessions,
		logger:   logger,
		current:  Location{Path: PathHome, Name: "Home"},
	}
}

// Push navigates to target (a path, optionally with a query) and returns
// where navigation ended up after guard redirects and role dispatch.
func (n *Navigator) Push(ctx context.Context, target string) (Location, error) {
	n.pushMu.Lock()
	defer n.pushMu.Unlock()

	var reason Reason
	requested := target

	for hop := 0; hop < maxHops; hop++ {
		u, err := url.Parse(target)
		if err != nil {
			return Location{}, fmt.Errorf("parse target %q: %w", target, err)
		}

		m, found := n.table.Lookup(u.Path)
		m.RawQuery = u.RawQuery

		d := n.guard.Evaluate(ctx, m)
		if !d.Allow {
			n.logger.Debug("navigation redirected", "from", m.Target(), "to", d.Redirect, "reason", d.Reason)
			reason = d.Reason
			target = d.Redirect
			continue
		}

		if !found {
			return Location{}, fmt.Errorf("%w: %s", ErrRouteNotFound, m.Path)
		}
		if m.Route.Alias != "" {
			target = m.Route.Alias
			continue
		}
		if m.Route.Dispatch != nil {
			target = m.Route.Dispatch(n.sessions.User.Role(), n.sessions.User.Authenticated())
			continue
		}

		loc := Location{
			Name:       m.Route.Name,
			Path:       m.Path,
			Query:      u.Query(),
			Params:     m.Params,
			Redirected: target != requested,
			Reason:     reason,
		}
		if len(loc.Query) == 0 {
			loc.Query = nil
		}

		n.mu.Lock()
		n.current = loc
		n.history = append(n.history, loc)
		n.mu.Unlock()

		n.logger.Debug("navigated", "route", loc.Name, "path", loc.String())
		return loc, nil
	}

	return Location{}, fmt.Errorf("%w: %s", ErrRedirectLoop, requested)
}

// Redirect is Push for callers that only need the side effect. Failures are
// logged.
func (n *Navigator) Redirect(ctx context.Context, path string) {
	if _, err := n.Push(ctx, path); err != nil {
		n.logger.Warn("redirect failed", "path", path, "error", err)
	}
}

func (n *Navigator) Current() Location {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.current
}

func (n *Navigator) CurrentPath() string {
	return n.Current().Path
}

func (n *Navigator) History() []Location {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Location, len(n.history))
	copy(out, n.history)
	return out
}
