package model

type Chat struct {
	ID          int64  `json:"chat_id"`
	RideID      int64  `json:"ride_id"`
	DriverID    int64  `json:"driver_id,omitempty"`
	PassengerID int64  `json:"passenger_id,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type Message struct {
	ID       int64  `json:"message_id,omitempty"`
	ChatID   int64  `json:"chat_id,omitempty"`
	SenderID int64  `json:"sender_id,omitempty"`
	Content  string `json:"content" validate:"required"`
	SentAt   string `json:"sent_at,omitempty"`
}

type NewChat struct {
	RideID      int64 `json:"ride_id" validate:"required"`
	PassengerID int64 `json:"passenger_id" validate:"required"`
}
