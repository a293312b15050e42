package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dukerupert/carpool/internal/gateway"
	"github.com/dukerupert/carpool/internal/model"
)

const searchKey = "rides.search"

type requestList struct {
	Requests []model.RideRequest `json:"requests"`
}

func searchQuery(s model.RideSearch) url.Values {
	q := pageQuery(s.Page, s.Size, "size")
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("starting_location", s.StartingLocation)
	set("dropoff_location", s.DropoffLocation)
	set("request_time", s.RequestTime)
	if s.Seats > 0 {
		q.Set("seats", strconv.Itoa(s.Seats))
	}
	return q
}

// SearchRides runs a ride search. When a newer search was issued while
// this one was in flight, the result is dropped and ErrStale returned.
func (c *Client) SearchRides(ctx context.Context, s model.RideSearch) (*model.RidePage, error) {
	seq := c.seq.Next(searchKey)

	var page model.RidePage
	err := c.gw.Do(ctx, gateway.Request{Path: "/rides", Query: searchQuery(s)}, &page)
	if !c.seq.Latest(searchKey, seq) {
		c.logger.Debug("dropping stale search", "seq", seq)
		return nil, ErrStale
	}
	if err != nil {
		return nil, fmt.Errorf("search rides: %w", err)
	}
	return &page, nil
}

// CreateRide validates the ride locally and only then posts it.
func (c *Client) CreateRide(ctx context.Context, r model.CreateRide) (*model.Ride, error) {
	if err := c.check(r); err != nil {
		return nil, err
	}
	var ride model.Ride
	err := c.gw.Do(ctx, gateway.Request{
		Method:         http.MethodPost,
		Path:           "/rides",
		Body:           r,
		SuccessMessage: "Ride created successfully",
	}, &ride)
	if err != nil {
		return nil, fmt.Errorf("create ride: %w", err)
	}
	return &ride, nil
}

func (c *Client) GetRide(ctx context.Context, id int64) (*model.Ride, error) {
	var ride model.Ride
	if err := c.gw.Do(ctx, gateway.Request{Path: idPath("/rides/%s", id)}, &ride); err != nil {
		return nil, fmt.Errorf("get ride %d: %w", id, err)
	}
	return &ride, nil
}

func (c *Client) RideDetails(ctx context.Context, id int64) (*model.Ride, error) {
	var ride model.Ride
	if err := c.gw.Do(ctx, gateway.Request{Path: idPath("/rides/%s/details", id)}, &ride); err != nil {
		return nil, fmt.Errorf("ride details %d: %w", id, err)
	}
	return &ride, nil
}

func (c *Client) HomepageRides(ctx context.Context) (*model.RidePage, error) {
	return c.ridePage(ctx, "/rides/homepage", nil, "homepage rides")
}

func (c *Client) RideHistory(ctx context.Context, page, size int) (*model.RidePage, error) {
	return c.ridePage(ctx, "/rides/user-history", pageQuery(page, size, "size"), "ride history")
}

// FilterRides passes filter straight through as query parameters.
func (c *Client) FilterRides(ctx context.Context, filter url.Values) (*model.RidePage, error) {
	return c.ridePage(ctx, "/rides/filter", filter, "filter rides")
}

func (c *Client) ridePage(ctx context.Context, path string, q url.Values, what string) (*model.RidePage, error) {
	var page model.RidePage
	if err := c.gw.Do(ctx, gateway.Request{Path: path, Query: q}, &page); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return &page, nil
}

func (c *Client) RequestRide(ctx context.Context, req model.RideRequest) (*model.RideRequest, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	var out model.RideRequest
	err := c.gw.Do(ctx, gateway.Request{
		Method:         http.MethodPost,
		Path:           "/rides/requests",
		Body:           req,
		SuccessMessage: "Ride requested",
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("request ride: %w", err)
	}
	return &out, nil
}

func (c *Client) ApproveRequest(ctx context.Context, requestID int64) error {
	return c.decide(ctx, "/rides/requests/approve", requestID, "Request approved")
}

func (c *Client) RejectRequest(ctx context.Context, requestID int64) error {
	return c.decide(ctx, "/rides/requests/reject", requestID, "Request rejected")
}

func (c *Client) decide(ctx context.Context, path string, requestID int64, msg string) error {
	body := model.RideRequestDecision{RequestID: requestID}
	if err := c.check(body); err != nil {
		return err
	}
	err := c.gw.Do(ctx, gateway.Request{
		Method:         http.MethodPost,
		Path:           path,
		Body:           body,
		SuccessMessage: msg,
	}, nil)
	if err != nil {
		return fmt.Errorf("decide request %d: %w", requestID, err)
	}
	return nil
}

func (c *Client) CancelRide(ctx context.Context, id int64) error {
	err := c.gw.Do(ctx, gateway.Request{
		Method:         http.MethodPost,
		Path:           idPath("/rides/%s/cancel", id),
		SuccessMessage: "Ride cancelled",
	}, nil)
	if err != nil {
		return fmt.Errorf("cancel ride %d: %w", id, err)
	}
	return nil
}

func (c *Client) CompleteRide(ctx context.Context, id int64) error {
	err := c.gw.Do(ctx, gateway.Request{
		Method:         http.MethodPost,
		Path:           idPath("/rides/%s/complete", id),
		SuccessMessage: "Ride completed",
	}, nil)
	if err != nil {
		return fmt.Errorf("complete ride %d: %w", id, err)
	}
	return nil
}

func (c *Client) DriverRequests(ctx context.Context, driverID int64) ([]model.RideRequest, error) {
	var out requestList
	if err := c.gw.Do(ctx, gateway.Request{Path: idPath("/rides/driver/%s/requests", driverID)}, &out); err != nil {
		return nil, fmt.Errorf("driver requests: %w", err)
	}
	return out.Requests, nil
}

func (c *Client) PassengerRequests(ctx context.Context, passengerID int64) ([]model.RideRequest, error) {
	var out requestList
	if err := c.gw.Do(ctx, gateway.Request{Path: idPath("/rides/passenger/%s/requests", passengerID)}, &out); err != nil {
		return nil, fmt.Errorf("passenger requests: %w", err)
	}
	return out.Requests, nil
}
