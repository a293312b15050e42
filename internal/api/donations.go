package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/carpool/internal/gateway"
	"github.com/dukerupert/carpool/internal/model"
)

// Donate records a donation from a signed-in donor.
func (c *Client) Donate(ctx context.Context, d model.NewDonation) (*model.Donation, error) {
	if d.PaymentMethod == "" {
		d.PaymentMethod = model.PaymentStripe
	}
	if err := c.check(d); err != nil {
		return nil, err
	}
	var out model.Donation
	err := c.gw.Do(ctx, gateway.Request{
		Audience:       model.AudienceDonor,
		Method:         http.MethodPost,
		Path:           "/donations",
		Body:           d,
		SuccessMessage: "Thank you for your donation",
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("donate: %w", err)
	}
	return &out, nil
}

// DonationsReceived lists donations made to the signed-in user.
func (c *Client) DonationsReceived(ctx context.Context, page, size int) (*model.DonationPage, error) {
	return c.donations(ctx, model.AudienceUser, "/donations/received", page, size)
}

// DonationsMade lists the signed-in donor's donations.
func (c *Client) DonationsMade(ctx context.Context, page, size int) (*model.DonationPage, error) {
	return c.donations(ctx, model.AudienceDonor, "/donations/made", page, size)
}

func (c *Client) donations(ctx context.Context, aud model.Audience, path string, page, size int) (*model.DonationPage, error) {
	var out model.DonationPage
	err := c.gw.Do(ctx, gateway.Request{
		Audience: aud,
		Path:     path,
		Query:    pageQuery(page, size, "size"),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return &out, nil
}
