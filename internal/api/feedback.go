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

// SubmitFeedback files a report about a ride. The server reads the form
// body, including the user token.
func (c *Client) SubmitFeedback(ctx context.Context, fb model.NewFeedback) (int64, error) {
	if err := c.check(fb); err != nil {
		return 0, err
	}
	token := c.tokens.Token()
	if token == "" {
		return 0, &FieldError{Field: "token", Rule: "required"}
	}

	form := url.Values{
		"ride_id":    {strconv.FormatInt(fb.RideID, 10)},
		"issue_type": {fb.IssueType},
		"comments":   {fb.Comments},
		"token":      {token},
	}
	var out struct {
		ID int64 `json:"feedback_id"`
	}
	err := c.gw.Do(ctx, gateway.Request{
		Audience:       model.AudienceUser,
		Method:         http.MethodPost,
		Path:           "/feedback",
		Form:           form,
		SuccessMessage: "Feedback submitted successfully",
	}, &out)
	if err != nil {
		return 0, fmt.Errorf("submit feedback: %w", err)
	}
	return out.ID, nil
}

// AdminFeedbacks lists every report. Admin token only.
func (c *Client) AdminFeedbacks(ctx context.Context) ([]model.Feedback, error) {
	var out struct {
		Feedbacks []model.Feedback `json:"feedbacks"`
	}
	if err := c.gw.Do(ctx, gateway.Request{Path: "/feedback/admin/feedbacks"}, &out); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return out.Feedbacks, nil
}
