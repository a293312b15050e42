// Package session holds the authentication state of one audience: its
// bearer token, its principal's profile and the durable copy of both.
package session

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/dukerupert/carpool/internal/auth"
	"github.com/dukerupert/carpool/internal/gateway"
	"github.com/dukerupert/carpool/internal/model"
)

// Doer sends API requests. *gateway.Client implements it.
type Doer interface {
	Do(ctx context.Context, req gateway.Request, out any) error
}

// Storage is the durable key/value store. *store.LocalStorage implements it.
type Storage interface {
	Get(key string) (string, bool, error)
	SetMany(values map[string]string) error
	Remove(keys ...string) error
}

type Notifier interface {
	Success(message string) string
	Error(message string) string
	Info(message string) string
}

type Redirector interface {
	Redirect(ctx context.Context, path string)
}

// RedirectFunc adapts a function to Redirector.
type RedirectFunc func(ctx context.Context, path string)

func (f RedirectFunc) Redirect(ctx context.Context, path string) { f(ctx, path) }

type Deps struct {
	Gateway    Doer
	Storage    Storage
	Toasts     Notifier
	Redirector Redirector
	Logger     *slog.Logger

	// ReturnTo, when set, names the in-app path to resume after a login in
	// place of the landing route. Empty or non-local results are ignored.
	ReturnTo func() string
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	Audience      model.Audience
	Token         string
	Profile       *model.Profile
	Authenticated bool
	LastError     string
	Epoch         uint64
}

// Result is the outcome of an operation that reports instead of failing.
type Result struct {
	Success bool
	Error   string
}

// Store is one audience's session. Login and Logout on the same Store must
// not be called concurrently; every other method is safe for concurrent use.
type Store struct {
	spec     Spec
	gw       Doer
	storage  Storage
	toasts   Notifier
	redirect Redirector
	returnTo func() string
	logger   *slog.Logger

	mu            sync.RWMutex
	token         string
	profile       *model.Profile
	authenticated bool
	lastError     string
	// epoch changes every time the session is established or torn down.
	epoch uint64

	hooksMu  sync.Mutex
	onLogin  []func(Snapshot)
	onLogout []func(Snapshot)
}

func New(spec Spec, deps Deps) *Store {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	redirect := deps.Redirector
	if redirect == nil {
		redirect = RedirectFunc(func(context.Context, string) {})
	}
	return &Store{
		spec:     spec,
		gw:       deps.Gateway,
		storage:  deps.Storage,
		toasts:   deps.Toasts,
		redirect: redirect,
		returnTo: deps.ReturnTo,
		logger:   logger.With("component", "session", "audience", spec.Audience.String()),
	}
}

func NewUser(deps Deps) *Store  { return New(UserSpec, deps) }
func NewAdmin(deps Deps) *Store { return New(AdminSpec, deps) }
func NewDonor(deps Deps) *Store { return New(DonorSpec, deps) }

func (s *Store) Audience() model.Audience { return s.spec.Audience }

// LoginRoute is where this audience signs in.
func (s *Store) LoginRoute() string { return s.spec.LoginRoute }

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Profile returns a copy of the principal's profile, or nil.
func (s *Store) Profile() *model.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProfile(s.profile)
}

func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// Role is the principal's role, or RoleUnknown without a profile.
func (s *Store) Role() model.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return model.RoleUnknown
	}
	return s.profile.Role
}

func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Audience:      s.spec.Audience,
		Token:         s.token,
		Profile:       cloneProfile(s.profile),
		Authenticated: s.authenticated,
		LastError:     s.lastError,
		Epoch:         s.epoch,
	}
}

// OnLogin registers fn to run after every successful login or
// registration.
func (s *Store) OnLogin(fn func(Snapshot)) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.onLogin = append(s.onLogin, fn)
}

// OnLogout registers fn to run after every logout with the state the
// session had before it was cleared.
func (s *Store) OnLogout(fn func(Snapshot)) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

func (s *Store) runHooks(hooks *[]func(Snapshot), snap Snapshot) {
	s.hooksMu.Lock()
	fns := slices.Clone(*hooks)
	s.hooksMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// Initialize rehydrates the session from storage. Both the token and the
// profile must be present; anything less leaves the session empty and
// purges the partial entry. Calling it again with unchanged storage is a
// no-op.
func (s *Store) Initialize(ctx context.Context) {
	token, profile, ok := s.loadPersisted()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		if s.authenticated || s.token != "" || s.profile != nil {
			s.epoch++
		}
		s.token, s.profile, s.authenticated = "", nil, false
		return
	}
	if s.authenticated && s.token == token && equalProfiles(s.profile, profile) {
		return
	}
	s.token, s.profile, s.authenticated = token, profile, true
	s.epoch++
	s.logger.Debug("session restored", "user_id", profile.ID)
}

func (s *Store) loadPersisted() (string, *model.Profile, bool) {
	token, hasToken, err := s.storage.Get(s.spec.TokenKey)
	if err != nil {
		s.logger.Error("failed to read token", "error", err)
		return "", nil, false
	}
	raw, hasProfile, err := s.storage.Get(s.spec.ProfileKey)
	if err != nil {
		s.logger.Error("failed to read profile", "error", err)
		return "", nil, false
	}
	if !hasToken && !hasProfile {
		return "", nil, false
	}

	var profile model.Profile
	if !hasToken || token == "" || !hasProfile || json.Unmarshal([]byte(raw), &profile) != nil {
		s.logger.Warn("discarding partial session", "has_token", hasToken, "has_profile", hasProfile)
		if err := s.storage.Remove(s.spec.TokenKey, s.spec.ProfileKey); err != nil {
			s.logger.Error("failed to purge partial session", "error", err)
		}
		return "", nil, false
	}

	claims, err := auth.Decode(token)
	if err == nil && claims.Expired(time.Now()) {
		s.logger.Info("discarding expired session", "expired_at", claims.ExpiresAt)
		if err := s.storage.Remove(s.spec.TokenKey, s.spec.ProfileKey); err != nil {
			s.logger.Error("failed to purge expired session", "error", err)
		}
		return "", nil, false
	}
	if s.spec.EnrichFromToken && !profile.HasID() && claims.UserID != 0 {
		profile.ID = claims.UserID
	}
	return token, &profile, true
}

func (s *Store) persist(token string, profile *model.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return s.storage.SetMany(map[string]string{
		s.spec.TokenKey:   token,
		s.spec.ProfileKey: string(data),
	})
}

func cloneProfile(p *model.Profile) *model.Profile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func equalProfiles(a, b *model.Profile) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
