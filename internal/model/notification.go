package model

type Notification struct {
	ID        int64  `json:"notification_id"`
	UserID    int64  `json:"user_id"`
	Message   string `json:"message"`
	Read      bool   `json:"is_read"`
	CreatedAt string `json:"created_at,omitempty"`
}

type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	Page          int            `json:"page"`
	Size          int            `json:"size"`
	Total         int            `json:"total"`
	UnreadCount   int            `json:"unread_count"`
}
