package navigator

import (
	"strings"

	"github.com/dukerupert/carpool/internal/model"
)

// Paths used across the client.
const (
	PathHome           = "/"
	PathLogin          = "/login"
	PathLoginRegister  = "/login-register"
	PathForgotPassword = "/forgot-password"
	PathRegisterP      = "/register-passenger"
	PathRegisterD      = "/register-driver"
	PathFindRide       = "/find-ride"
	PathCreateRide     = "/create-ride"
	PathProfile        = "/profile"
	PathProfileP       = "/profile-passenger"
	PathProfileD       = "/profile-driver"
	PathDonation       = "/donation"

	PathAdminArea    = "/admin"
	PathAdminLogin   = "/admin/login"
	PathAdminLanding = "/admin/driver-registration"

	PathDonorArea    = "/donor"
	PathDonorLanding = "/donor/dashboard"
)

// Route names always allowed regardless of authentication state.
var PublicRoutes = map[string]bool{
	"Login":          true,
	"LoginRegister":  true,
	"RegisterP":      true,
	"RegisterD":      true,
	"ForgotPassword": true,
	"AdminLogin":     true,
}

// Area is the guarded area a path belongs to. A path belongs to at most one.
type Area int

const (
	AreaUser Area = iota
	AreaAdmin
	AreaDonor
)

func (a Area) Audience() model.Audience {
	switch a {
	case AreaAdmin:
		return model.AudienceAdmin
	case AreaDonor:
		return model.AudienceDonor
	default:
		return model.AudienceUser
	}
}

// AreaOf classifies a path by prefix.
func AreaOf(path string) Area {
	switch {
	case underPrefix(path, PathDonorArea):
		return AreaDonor
	case underPrefix(path, PathAdminArea):
		return AreaAdmin
	default:
		return AreaUser
	}
}

func underPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Dispatch resolves a role-dependent route to a concrete path.
type Dispatch func(role model.Role, authenticated bool) string

type Route struct {
	Name  string
	Path  string // may contain :param segments
	Alias string // redirect target when the route has no page of its own

	RequiresAuth  bool
	RequiresAdmin bool
	RequiresDonor bool

	Dispatch Dispatch
}

// DefaultRoutes is the client's route table.
func DefaultRoutes() []Route {
	user := func(name, path string) Route {
		return Route{Name: name, Path: path, RequiresAuth: true}
	}
	admin := func(name, path string) Route {
		return Route{Name: name, Path: path, RequiresAdmin: true}
	}
	donor := func(name, path string) Route {
		return Route{Name: name, Path: path, RequiresDonor: true}
	}

	return []Route{
		{Name: "Home", Path: PathHome, Dispatch: homeDispatch},
		{Name: "Profile", Path: PathProfile, Dispatch: profileDispatch},

		{Name: "Login", Path: PathLogin},
		{Name: "LoginRegister", Path: PathLoginRegister},
		{Name: "ForgotPassword", Path: PathForgotPassword},
		{Name: "RegisterP", Path: PathRegisterP},
		{Name: "RegisterD", Path: PathRegisterD},

		user("FindRide", PathFindRide),
		user("CreateRide", PathCreateRide),
		user("ProfileP", PathProfileP),
		user("ProfileD", PathProfileD),
		user("ChangePassword", "/change-password"),
		user("RideList", "/ride-list"),
		user("RideDetail", "/ride-detail"),
		user("RideDetailDSide", "/ride-detail-driverside"),
		user("Ridebooked", "/ridebooked"),
		user("Otwpage", "/otw"),
		user("RideComplete", "/ride-complete"),
		user("Dropoff", "/dropoff"),
		user("ReportPsg", "/Reportpage"),
		user("ReportDside", "/Reportpage-driver"),
		user("RidecompleteD", "/ridecomplete-driver"),
		user("Donation", PathDonation),
		user("DonateComplete", "/donate-complete"),
		user("Chat", "/chat/:id"),
		user("Notifications", "/notifications"),

		{Name: "AdminLogin", Path: PathAdminLogin},
		{Name: "Admin", Path: PathAdminArea, Alias: PathAdminLanding, RequiresAdmin: true},
		admin("Driver_Registration_List", PathAdminLanding),
		admin("Driver_Management", "/admin/driver-management"),
		admin("Driver_Details", "/admin/driver-detail/:id"),
		admin("Report_List", "/admin/report-list"),
		admin("Report_Details", "/admin/report-detail/:id"),

		{Name: "Donor", Path: PathDonorArea, Alias: PathDonorLanding, RequiresDonor: true},
		donor("Donor_Dashboard", PathDonorLanding),
		donor("Donor_Donations", "/donor/donations"),
	}
}

// landing maps every role to the page a freshly logged-in user starts on.
var landing = map[model.Role]string{
	model.RolePassenger: PathFindRide,
	model.RoleDriver:    PathCreateRide,
	model.RoleDonor:     PathDonation,
	model.RoleAdmin:     PathAdminLanding,
}

// LandingRoute returns the user landing page for role, falling back to the
// passenger page for unknown roles.
func LandingRoute(role model.Role) string {
	if p, ok := landing[role]; ok {
		return p
	}
	return PathFindRide
}

func homeDispatch(role model.Role, authenticated bool) string {
	if !authenticated {
		return PathLoginRegister
	}
	return LandingRoute(role)
}

func profileDispatch(role model.Role, authenticated bool) string {
	if !authenticated {
		return PathLoginRegister
	}
	switch role {
	case model.RolePassenger:
		return PathProfileP
	case model.RoleDriver:
		return PathProfileD
	default:
		return PathLoginRegister
	}
}

// Match is a resolved route with its path parameters.
type Match struct {
	Route    Route
	Path     string
	RawQuery string
	Params   map[string]string
}

// Target is the path with its query, as originally requested.
func (m Match) Target() string {
	if m.RawQuery == "" {
		return m.Path
	}
	return m.Path + "?" + m.RawQuery
}

type Table struct {
	routes []Route
}

func NewTable(routes []Route) *Table {
	return &Table{routes: routes}
}

// Lookup finds the route for path. Exact paths win over parameterised ones.
func (t *Table) Lookup(path string) (Match, bool) {
	path = cleanPath(path)
	for _, r := range t.routes {
		if r.Path == path {
			return Match{Route: r, Path: path}, true
		}
	}
	for _, r := range t.routes {
		if params, ok := matchPattern(r.Path, path); ok {
			return Match{Route: r, Path: path, Params: params}, true
		}
	}
	return Match{Path: path}, false
}

func matchPattern(pattern, path string) (map[string]string, bool) {
	if !strings.Contains(pattern, ":") {
		return nil, false
	}
	ps := strings.Split(strings.Trim(pattern, "/"), "/")
	xs := strings.Split(strings.Trim(path, "/"), "/")
	if len(ps) != len(xs) {
		return nil, false
	}
	params := make(map[string]string)
	for i, p := range ps {
		if strings.HasPrefix(p, ":") {
			if xs[i] == "" {
				return nil, false
			}
			params[p[1:]] = xs[i]
			continue
		}
		if p != xs[i] {
			return nil, false
		}
	}
	return params, true
}

func cleanPath(path string) string {
	if path == "" {
		return PathHome
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
