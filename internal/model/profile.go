package model

// Profile is the principal record held by a Session. ID is zero when it
// could not be resolved.
type Profile struct {
	ID    int64  `json:"userID,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  Role   `json:"role"`
}

func (p *Profile) HasID() bool {
	return p != nil && p.ID > 0
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileUpdate struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type PassengerRegistration struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

type DriverRegistration struct {
	PassengerRegistration
	LicenseNumber string `json:"licenseNumber" validate:"required"`
	CarNumber     string `json:"carNumber" validate:"required"`
	CarType       string `json:"carType" validate:"required"`
	CarColour     string `json:"carColour" validate:"required"`
}

type DonorRegistration struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password" validate:"required,min=6"`
}

type PasswordChange struct {
	UserID      int64  `json:"userId"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}
