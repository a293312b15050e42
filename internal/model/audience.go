package model

import "strings"

// Audience is an authentication domain with its own token and guarded
// route area.
type Audience string

const (
	AudienceNone  Audience = ""
	AudienceUser  Audience = "user"
	AudienceAdmin Audience = "admin"
	AudienceDonor Audience = "donor"
)

// Audiences lists the authenticated audiences in guard precedence order.
var Audiences = []Audience{AudienceDonor, AudienceAdmin, AudienceUser}

func (a Audience) String() string {
	if a == AudienceNone {
		return "none"
	}
	return string(a)
}

// ParseAudience maps a flag or config value to an Audience. Unknown values
// map to AudienceUser.
func ParseAudience(s string) Audience {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return AudienceAdmin
	case "donor":
		return AudienceDonor
	case "none", "public":
		return AudienceNone
	default:
		return AudienceUser
	}
}
