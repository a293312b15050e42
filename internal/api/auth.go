package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/carpool/internal/gateway"
	"github.com/dukerupert/carpool/internal/model"
)

// RegisterPassenger creates a passenger account. It does not sign in.
func (c *Client) RegisterPassenger(ctx context.Context, reg model.PassengerRegistration) (*model.Profile, error) {
	if err := c.check(reg); err != nil {
		return nil, err
	}
	var p model.Profile
	err := c.gw.Do(ctx, gateway.Request{
		Method:         http.MethodPost,
		Path:           "/auth/users",
		Body:           reg,
		Anonymous:      true,
		SkipRecovery:   true,
		SuccessMessage: "Registration successful",
	}, &p)
	if err != nil {
		return nil, fmt.Errorf("register passenger: %w", err)
	}
	return &p, nil
}

// RegisterDriver creates a driver account pending verification.
func (c *Client) RegisterDriver(ctx context.Context, reg model.DriverRegistration) (*model.Profile, error) {
	if err := c.check(reg); err != nil {
		return nil, err
	}
	var p model.Profile
	err := c.gw.Do(ctx, gateway.Request{
		Method:         http.MethodPost,
		Path:           "/auth/drivers",
		Body:           reg,
		Anonymous:      true,
		SkipRecovery:   true,
		SuccessMessage: "Registration submitted for verification",
	}, &p)
	if err != nil {
		return nil, fmt.Errorf("register driver: %w", err)
	}
	return &p, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return &FieldError{Field: "email", Rule: "required"}
	}
	err := c.gw.Do(ctx, gateway.Request{
		Method:         http.MethodPost,
		Path:           "/auth/forgot-password",
		Body:           map[string]string{"email": email},
		Anonymous:      true,
		SkipRecovery:   true,
		SuccessMessage: "Password reset email sent",
	}, nil)
	if err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	return nil
}
