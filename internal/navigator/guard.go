package navigator

import (
	"context"
	"net/url"
	"sync"

	"github.com/dukerupert/carpool/internal/model"
)

// Session is the view of a session store the guard needs.
type Session interface {
	Initialize(ctx context.Context)
	Authenticated() bool
}

// UserSession additionally exposes the user's role for role dispatch.
type UserSession interface {
	Session
	Role() model.Role
}

type Sessions struct {
	User  UserSession
	Admin Session
	Donor Session
}

type Reason string

const (
	ReasonDonorAuthRequired    Reason = "donor_auth_required"
	ReasonAdminAuthRequired    Reason = "admin_auth_required"
	ReasonAlreadyAuthenticated Reason = "already_authenticated"
	ReasonAuthRequired         Reason = "auth_required"
)

// Decision is the guard's verdict for one transition. When Allow is false,
// Redirect holds the path (with query) to go to instead.
type Decision struct {
	Allow    bool
	Redirect string
	Reason   Reason
}

func allow() Decision { return Decision{Allow: true} }

func redirect(path string, reason Reason, extra url.Values) Decision {
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	q.Set("reason", string(reason))
	return Decision{Redirect: path + "?" + q.Encode(), Reason: reason}
}

// Guard decides, per transition, whether to proceed or where to redirect.
type Guard struct {
	sessions Sessions
	once     sync.Once
}

func NewGuard(sessions Sessions) *Guard {
	return &Guard{sessions: sessions}
}

// Evaluate applies the rules in precedence order donor > admin > user.
// The first call force-initializes every session from durable storage so a
// deep link opened at startup sees persisted logins.
func (g *Guard) Evaluate(ctx context.Context, m Match) Decision {
	g.once.Do(func() {
		g.sessions.User.Initialize(ctx)
		g.sessions.Admin.Initialize(ctx)
		g.sessions.Donor.Initialize(ctx)
	})

	area := AreaOf(m.Path)
	r := m.Route

	if area == AreaDonor && r.RequiresDonor && !g.sessions.Donor.Authenticated() {
		return redirect(PathAdminLogin, ReasonDonorAuthRequired, url.Values{"audience": {model.AudienceDonor.String()}})
	}

	if area == AreaAdmin {
		if r.Name == "AdminLogin" && g.sessions.Admin.Authenticated() && !donorLogin(m) {
			return Decision{Redirect: PathAdminLanding, Reason: ReasonAlreadyAuthenticated}
		}
		if r.RequiresAdmin && !g.sessions.Admin.Authenticated() {
			return redirect(PathAdminLogin, ReasonAdminAuthRequired, nil)
		}
	}

	userAuth := g.sessions.User.Authenticated()

	if r.RequiresAuth && !userAuth {
		return redirect(PathLoginRegister, ReasonAuthRequired, url.Values{"redirect": {m.Target()}})
	}

	if !userAuth && area == AreaUser && !PublicRoutes[r.Name] && !r.RequiresAuth {
		return redirect(PathLoginRegister, ReasonAuthRequired, nil)
	}

	return allow()
}

// donorLogin reports whether m is the shared login route opened for the
// donor audience, which an admin login must not short-circuit.
func donorLogin(m Match) bool {
	q, err := url.ParseQuery(m.RawQuery)
	if err != nil {
		return false
	}
	return q.Get("audience") == model.AudienceDonor.String()
}
