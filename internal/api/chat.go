package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/carpool/internal/gateway"
	"github.com/dukerupert/carpool/internal/model"
)

type messageList struct {
	Messages []model.Message `json:"messages"`
}

type chatList struct {
	Chats []model.Chat `json:"chats"`
}

func (c *Client) ChatForRide(ctx context.Context, rideID int64) (*model.Chat, error) {
	var chat model.Chat
	if err := c.gw.Do(ctx, gateway.Request{Path: idPath("/chats/ride/%s", rideID)}, &chat); err != nil {
		return nil, fmt.Errorf("chat for ride %d: %w", rideID, err)
	}
	return &chat, nil
}

func (c *Client) Messages(ctx context.Context, chatID int64) ([]model.Message, error) {
	var out messageList
	if err := c.gw.Do(ctx, gateway.Request{Path: idPath("/chats/%s/messages", chatID)}, &out); err != nil {
		return nil, fmt.Errorf("chat %d messages: %w", chatID, err)
	}
	return out.Messages, nil
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, content string) (*model.Message, error) {
	msg := model.Message{ChatID: chatID, Content: content}
	if err := c.check(msg); err != nil {
		return nil, err
	}
	var out model.Message
	err := c.gw.Do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   idPath("/chats/%s/messages", chatID),
		Body:   map[string]string{"content": content},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &out, nil
}

func (c *Client) UserChats(ctx context.Context, userID int64) ([]model.Chat, error) {
	var out chatList
	if err := c.gw.Do(ctx, gateway.Request{Path: idPath("/chats/user/%s/chats", userID)}, &out); err != nil {
		return nil, fmt.Errorf("user chats: %w", err)
	}
	return out.Chats, nil
}

func (c *Client) CreateChat(ctx context.Context, nc model.NewChat) (*model.Chat, error) {
	if err := c.check(nc); err != nil {
		return nil, err
	}
	var chat model.Chat
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/chats", Body: nc}, &chat)
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	return &chat, nil
}
