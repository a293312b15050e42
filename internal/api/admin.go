package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/carpool/internal/gateway"
	"github.com/dukerupert/carpool/internal/model"
)

type DriverQuery struct {
	Status  model.VerificationStatus // empty lets the server default to pending
	Page    int
	PerPage int
}

func (c *Client) ListDrivers(ctx context.Context, q DriverQuery) (*model.DriverPage, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, &FieldError{Field: "status", Rule: "oneof"}
	}
	query := pageQuery(q.Page, q.PerPage, "per_page")
	if q.Status != "" {
		query.Set("status", string(q.Status))
	}

	var page model.DriverPage
	if err := c.gw.Do(ctx, gateway.Request{Path: "/admin/drivers", Query: query}, &page); err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	return &page, nil
}

// SetDriverStatus approves or rejects a driver's verification.
func (c *Client) SetDriverStatus(ctx context.Context, driverID int64, status model.VerificationStatus) error {
	if !status.Valid() {
		return &FieldError{Field: "status", Rule: "oneof"}
	}
	err := c.gw.Do(ctx, gateway.Request{
		Method:         http.MethodPut,
		Path:           idPath("/admin/drivers/%s/status", driverID),
		Body:           map[string]string{"status": string(status)},
		SuccessMessage: "Driver status updated to " + string(status),
	}, nil)
	if err != nil {
		return fmt.Errorf("set driver %d status: %w", driverID, err)
	}
	return nil
}
