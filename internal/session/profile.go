package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/dukerupert/carpool/internal/gateway"
	"github.com/dukerupert/carpool/internal/model"
)

var ErrNotAuthenticated = errors.New("not authenticated")

const (
	profilePath        = "/auth/profile"
	changePasswordPath = "/auth/change-password"
)

// FetchProfile reloads the user's profile from the server. A 401 logs the
// session out; other failures are toasted and returned.
func (s *Store) FetchProfile(ctx context.Context) error {
	if !s.Authenticated() {
		return ErrNotAuthenticated
	}
	epoch := s.Epoch()

	var payload map[string]json.RawMessage
	err := s.gw.Do(ctx, gateway.Request{
		Audience:     s.spec.Audience,
		Method:       http.MethodGet,
		Path:         profilePath,
		Quiet:        true,
		SkipRecovery: true,
	}, &payload)
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			if s.Epoch() == epoch {
				s.Logout(ctx)
			}
			return fmt.Errorf("fetch profile: %w", err)
		}
		s.toasts.Error(gateway.Message(err, "Failed to load profile"))
		return fmt.Errorf("fetch profile: %w", err)
	}

	raw, ok := payload[s.spec.ProfileField]
	if !ok {
		raw, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("fetch profile: %w", err)
		}
	}
	return s.mergeProfile(epoch, func(p *model.Profile) error {
		return json.Unmarshal(raw, p)
	})
}

// UpdateProfile saves profile changes and applies them locally.
func (s *Store) UpdateProfile(ctx context.Context, upd model.ProfileUpdate) error {
	if !s.Authenticated() {
		return ErrNotAuthenticated
	}
	epoch := s.Epoch()

	err := s.gw.Do(ctx, gateway.Request{
		Audience:       s.spec.Audience,
		Method:         http.MethodPut,
		Path:           profilePath,
		Body:           upd,
		SuccessMessage: "Profile updated",
	}, nil)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	return s.mergeProfile(epoch, func(p *model.Profile) error {
		if upd.Name != "" {
			p.Name = upd.Name
		}
		if upd.Email != "" {
			p.Email = upd.Email
		}
		if upd.Phone != "" {
			p.Phone = upd.Phone
		}
		return nil
	})
}

// mergeProfile applies fn to a copy of the current profile and stores the
// result, unless the session changed since epoch.
func (s *Store) mergeProfile(epoch uint64, fn func(*model.Profile) error) error {
	s.mu.Lock()
	if s.epoch != epoch || !s.authenticated {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	next := cloneProfile(s.profile)
	if next == nil {
		next = &model.Profile{Role: model.RoleUnknown}
	}
	id := next.ID
	if err := fn(next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("decode profile: %w", err)
	}
	if !next.HasID() {
		next.ID = id
	}
	s.profile = next
	token := s.token
	s.mu.Unlock()

	if err := s.persist(token, next); err != nil {
		s.logger.Error("failed to persist profile", "error", err)
	}
	return nil
}

// ChangePassword never returns an error; the outcome is in the Result.
func (s *Store) ChangePassword(ctx context.Context, oldPassword, newPassword string) Result {
	profile := s.Profile()
	if !s.Authenticated() || !profile.HasID() {
		return Result{Error: ErrNotAuthenticated.Error()}
	}

	err := s.gw.Do(ctx, gateway.Request{
		Audience: s.spec.Audience,
		Method:   http.MethodPost,
		Path:     changePasswordPath,
		Body: model.PasswordChange{
			UserID:      profile.ID,
			OldPassword: oldPassword,
			NewPassword: newPassword,
		},
		SuccessMessage: "Password changed successfully",
	}, nil)
	if err != nil {
		return Result{Error: gateway.Message(err, "Failed to change password")}
	}
	return Result{Success: true}
}
