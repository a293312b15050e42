package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/dukerupert/carpool/internal/auth"
	"github.com/dukerupert/carpool/internal/gateway"
	"github.com/dukerupert/carpool/internal/model"
)

var errNoToken = errors.New("login response carried no token")

type loginBody struct {
	model.Credentials
	UserType string `json:"userType,omitempty"`
}

type registerBody struct {
	model.DonorRegistration
	UserType string `json:"userType,omitempty"`
}

// Login exchanges credentials for a token. It reports failure through
// LastError and an error toast and never returns an error.
func (s *Store) Login(ctx context.Context, creds model.Credentials) bool {
	s.setLastError("")

	var payload map[string]json.RawMessage
	err := s.gw.Do(ctx, gateway.Request{
		Audience:     s.spec.Audience,
		Method:       http.MethodPost,
		Path:         s.spec.LoginPath,
		Body:         loginBody{Credentials: creds, UserType: s.spec.UserType},
		Anonymous:    true,
		Quiet:        true,
		SkipRecovery: true,
	}, &payload)
	if err == nil {
		err = s.establish(ctx, payload, creds.Email, s.spec.LoginMessage)
	}
	if err != nil {
		s.fail(err, s.spec.LoginFailed)
		return false
	}
	return true
}

// Register creates a donor account and signs it in.
func (s *Store) Register(ctx context.Context, reg model.DonorRegistration) bool {
	if s.spec.RegisterPath == "" {
		s.fail(errors.New("registration not supported"), "Registration is not available")
		return false
	}
	s.setLastError("")

	var payload map[string]json.RawMessage
	err := s.gw.Do(ctx, gateway.Request{
		Audience:     s.spec.Audience,
		Method:       http.MethodPost,
		Path:         s.spec.RegisterPath,
		Body:         registerBody{DonorRegistration: reg, UserType: s.spec.UserType},
		Anonymous:    true,
		Quiet:        true,
		SkipRecovery: true,
	}, &payload)
	if err == nil {
		err = s.establish(ctx, payload, reg.Email, s.spec.RegisterMessage)
	}
	if err != nil {
		s.fail(err, s.spec.RegisterFailed)
		return false
	}
	return true
}

// establish installs the session described by a login or registration
// response, persists it and sends the principal to its landing page.
func (s *Store) establish(ctx context.Context, payload map[string]json.RawMessage, email, message string) error {
	var token string
	if raw, ok := payload["token"]; ok {
		if err := json.Unmarshal(raw, &token); err != nil {
			return fmt.Errorf("decode token: %w", err)
		}
	}
	if token == "" {
		return errNoToken
	}

	profile := model.Profile{Role: model.RoleUnknown}
	if raw, ok := payload[s.spec.ProfileField]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &profile); err != nil {
			return fmt.Errorf("decode %s profile: %w", s.spec.ProfileField, err)
		}
	}
	if profile.Email == "" {
		profile.Email = email
	}
	if s.spec.EnrichFromToken && !profile.HasID() {
		if id, ok := auth.UserID(token); ok {
			profile.ID = id
		} else {
			s.logger.Warn("token subject unavailable, continuing without user id")
		}
	}

	if err := s.persist(token, &profile); err != nil {
		s.logger.Error("failed to persist session", "error", err)
	}

	s.mu.Lock()
	s.token = token
	s.profile = &profile
	s.authenticated = true
	s.lastError = ""
	s.epoch++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("logged in", "user_id", profile.ID, "role", profile.Role.String())
	s.toasts.Success(message)
	s.runHooks(&s.onLogin, snap)
	dest := s.spec.Landing(profile)
	if p := s.resumePath(); p != "" {
		dest = p
	}
	s.redirect.Redirect(ctx, dest)
	return nil
}

// resumePath is the local path ReturnTo asks for, or "".
func (s *Store) resumePath() string {
	if s.returnTo == nil {
		return ""
	}
	p := s.returnTo()
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return ""
	}
	if u, err := url.Parse(p); err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return p
}

func (s *Store) fail(err error, fallback string) {
	msg := gateway.Message(err, fallback)
	s.setLastError(msg)
	s.logger.Warn("authentication failed", "error", err)
	s.toasts.Error(msg)
}

func (s *Store) setLastError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
}

// Logout clears the session and its durable copy. It is safe to call on an
// empty session.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	prev := s.snapshotLocked()
	s.token = ""
	s.profile = nil
	s.authenticated = false
	s.epoch++
	s.mu.Unlock()

	if err := s.storage.Remove(s.spec.TokenKey, s.spec.ProfileKey); err != nil {
		s.logger.Error("failed to clear stored session", "error", err)
	}

	s.logger.Info("logged out", "was_authenticated", prev.Authenticated)
	s.toasts.Info(s.spec.LogoutMessage)
	s.runHooks(&s.onLogout, prev)
	s.redirect.Redirect(ctx, s.spec.LoginRoute)
}
