package model

type NewFeedback struct {
	RideID    int64  `validate:"required"`
	IssueType string `validate:"required"`
	Comments  string
}

type Feedback struct {
	ID            int64  `json:"feedback_id"`
	RideID        int64  `json:"ride_id"`
	UserID        int64  `json:"user_id"`
	DriverID      int64  `json:"driver_id,omitempty"`
	DriverName    string `json:"driver_name,omitempty"`
	PassengerName string `json:"passenger_name,omitempty"`
	IssueType     string `json:"issue_type"`
	Comments      string `json:"comments"`
	CommentTime   string `json:"comment_time,omitempty"`
}
