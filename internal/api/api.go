// Package api wraps every server endpoint the client uses in a typed call
// over the gateway.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/carpool/internal/gateway"
)

var (
	// ErrMissingField is matched by a FieldError for an absent required
	// field.
	ErrMissingField = errors.New("missing required field")
	ErrInvalidField = errors.New("invalid field")
	// ErrStale is returned for a response overtaken by a newer call of the
	// same query.
	ErrStale = errors.New("stale response")
)

// FieldError is a local validation failure. Field is the JSON name.
type FieldError struct {
	Field string
	Rule  string
}

func (e *FieldError) Error() string {
	if e.Rule == "required" {
		return "missing required field: " + e.Field
	}
	return fmt.Sprintf("invalid field %s: failed %s", e.Field, e.Rule)
}

func (e *FieldError) Is(target error) bool {
	if e.Rule == "required" {
		return target == ErrMissingField
	}
	return target == ErrInvalidField
}

type Doer interface {
	Do(ctx context.Context, req gateway.Request, out any) error
}

// TokenSource supplies the user token for endpoints that expect it in the
// body as well as the header.
type TokenSource interface {
	Token() string
}

type Client struct {
	gw       Doer
	tokens   TokenSource
	validate *validator.Validate
	seq      *gateway.Sequencer
	logger   *slog.Logger
}

func New(gw Doer, tokens TokenSource, logger *slog.Logger) *Client {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return &Client{
		gw:       gw,
		tokens:   tokens,
		validate: v,
		seq:      gateway.NewSequencer(),
		logger:   logger.With("component", "api"),
	}
}

// check validates v and returns the first failing field.
func (c *Client) check(v any) error {
	err := c.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &FieldError{Field: fe.Field(), Rule: fe.Tag()}
	}
	return fmt.Errorf("validate: %w", err)
}

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, strconv.FormatInt(id, 10))
}

func pageQuery(page, size int, sizeKey string) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		q.Set(sizeKey, strconv.Itoa(size))
	}
	return q
}
