package model

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return true
	}
	return false
}

type Driver struct {
	ID                 int64              `json:"id"`
	Name               string             `json:"name"`
	Email              string             `json:"email"`
	Phone              string             `json:"phone"`
	LicenseNumber      string             `json:"license_number,omitempty"`
	CarNumber          string             `json:"car_number"`
	CarType            string             `json:"car_type"`
	CarColor           string             `json:"car_color,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status"`
}

type Pagination struct {
	Page         int `json:"page"`
	PerPage      int `json:"per_page"`
	TotalPages   int `json:"total_pages"`
	TotalDrivers int `json:"total_drivers"`
}

type DriverPage struct {
	Drivers    []Driver   `json:"drivers"`
	Pagination Pagination `json:"pagination"`
}
