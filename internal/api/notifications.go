package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/carpool/internal/gateway"
	"github.com/dukerupert/carpool/internal/model"
)

func (c *Client) Notifications(ctx context.Context, unreadOnly bool, page, size int) (*model.NotificationPage, error) {
	q := pageQuery(page, size, "size")
	if unreadOnly {
		q.Set("unread_only", "true")
	}
	var out model.NotificationPage
	if err := c.gw.Do(ctx, gateway.Request{Path: "/notifications", Query: q}, &out); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return &out, nil
}

func (c *Client) MarkRead(ctx context.Context, id int64) error {
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodPut, Path: idPath("/notifications/read/%s", id)}, nil)
	if err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return nil
}

// MarkAllRead returns how many notifications changed.
func (c *Client) MarkAllRead(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.gw.Do(ctx, gateway.Request{
		Method:         http.MethodPut,
		Path:           "/notifications/read-all",
		SuccessMessage: "All notifications marked as read",
	}, &out)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return out.Count, nil
}
