package model

type PaymentMethod string

const (
	PaymentStripe PaymentMethod = "stripe"
	PaymentPayPal PaymentMethod = "paypal"
)

type NewDonation struct {
	UserID        int64         `json:"userId" validate:"required"`
	DonorID       int64         `json:"donorId" validate:"required"`
	Amount        float64       `json:"amount" validate:"gt=0"`
	PaymentMethod PaymentMethod `json:"paymentMethod,omitempty" validate:"omitempty,oneof=stripe paypal"`
	Description   string        `json:"description,omitempty"`
}

type Donation struct {
	ID            int64         `json:"donation_id"`
	UserID        int64         `json:"user_id"`
	DonorID       int64         `json:"donor_id"`
	Amount        float64       `json:"amount"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	Description   string        `json:"description,omitempty"`
	CreatedAt     string        `json:"created_at,omitempty"`
}

type DonationPage struct {
	Donations []Donation `json:"donations"`
	Page      int        `json:"page"`
	Size      int        `json:"size"`
	Total     int        `json:"total"`
}
