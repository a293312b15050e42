// Package auth decodes the claims carried inside bearer tokens.
//
// The client never verifies signatures; the server is the only arbiter of
// token validity. Decoding recovers identity hints the login payload may
// have left out, and the expiry used to drop a stale persisted login.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSubject = errors.New("token has no subject")

type Claims struct {
	Subject   string
	UserID    int64 // 0 when the subject is not numeric
	ExpiresAt time.Time
}

// Expired reports whether the token carried an expiry that has passed.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Decode parses token without verifying it. A malformed token or one with
// no subject returns an error; callers treat that as "no claims".
func Decode(token string) (Claims, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("unexpected claims type")
	}

	var c Claims
	switch sub := mc["sub"].(type) {
	case string:
		c.Subject = sub
	case float64:
		c.Subject = strconv.FormatInt(int64(sub), 10)
	}
	if c.Subject == "" {
		return Claims{}, ErrNoSubject
	}
	if id, err := strconv.ParseInt(c.Subject, 10, 64); err == nil && id > 0 {
		c.UserID = id
	}

	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}

// UserID returns the numeric subject of token, or false when it cannot be
// decoded. It never fails loudly.
func UserID(token string) (int64, bool) {
	c, err := Decode(token)
	if err != nil || c.UserID == 0 {
		return 0, false
	}
	return c.UserID, true
}
