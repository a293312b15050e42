package model

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Role is a principal's role. The server encodes it as a small integer.
type Role int

const (
	RoleUnknown   Role = -1
	RolePassenger Role = 0
	RoleDonor     Role = 1
	RoleDriver    Role = 2
	RoleAdmin     Role = 3
)

var roleNames = map[Role]string{
	RolePassenger: "passenger",
	RoleDonor:     "donor",
	RoleDriver:    "driver",
	RoleAdmin:     "admin",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseRole accepts either the numeric server code or the role name.
func ParseRole(s string) Role {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if _, ok := roleNames[Role(n)]; ok {
			return Role(n)
		}
		return RoleUnknown
	}
	for r, name := range roleNames {
		if name == s {
			return r
		}
	}
	return RoleUnknown
}

// UnmarshalJSON decodes numeric codes, names, and null.
func (r *Role) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = RoleUnknown
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*r = ParseRole(strconv.Itoa(n))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = ParseRole(s)
	return nil
}

// MarshalJSON encodes the numeric server code.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(r))
}
