package session

import (
	"github.com/dukerupert/carpool/internal/model"
	"github.com/dukerupert/carpool/internal/navigator"
)

// Spec is everything that differs between the user, admin and donor
// sessions.
type Spec struct {
	Audience model.Audience

	LoginPath    string
	RegisterPath string // empty when the audience cannot self-register
	UserType     string // extra login field distinguishing donor from admin
	ProfileField string // key of the profile object in the login response

	TokenKey   string
	ProfileKey string

	LoginRoute string
	Landing    func(model.Profile) string

	// EnrichFromToken fills a missing profile ID from the token subject.
	EnrichFromToken bool

	LoginMessage    string
	LoginFailed     string
	LogoutMessage   string
	RegisterMessage string
	RegisterFailed  string
}

var UserSpec = Spec{
	Audience:        model.AudienceUser,
	LoginPath:       "/auth/login",
	ProfileField:    "user",
	TokenKey:        "token",
	ProfileKey:      "user",
	LoginRoute:      navigator.PathLoginRegister,
	Landing:         func(p model.Profile) string { return navigator.LandingRoute(p.Role) },
	EnrichFromToken: true,
	LoginMessage:    "Login successful",
	LoginFailed:     "Login failed",
	LogoutMessage:   "Logged out",
}

var AdminSpec = Spec{
	Audience:      model.AudienceAdmin,
	LoginPath:     "/auth/admin/login",
	ProfileField:  "admin",
	TokenKey:      "adminToken",
	ProfileKey:    "adminUser",
	LoginRoute:    navigator.PathAdminLogin,
	Landing:       func(model.Profile) string { return navigator.PathAdminLanding },
	LoginMessage:  "Admin login successful",
	LoginFailed:   "Admin login failed",
	LogoutMessage: "Admin logged out",
}

var DonorSpec = Spec{
	Audience:        model.AudienceDonor,
	LoginPath:       "/auth/admin/login",
	RegisterPath:    "/auth/admin/register",
	UserType:        "donor",
	ProfileField:    "donor",
	TokenKey:        "donorToken",
	ProfileKey:      "donorUser",
	LoginRoute:      navigator.PathAdminLogin,
	Landing:         func(model.Profile) string { return navigator.PathDonorLanding },
	LoginMessage:    "Login successful",
	LoginFailed:     "Login failed",
	LogoutMessage:   "Logged out",
	RegisterMessage: "Registration successful",
	RegisterFailed:  "Registration failed",
}
