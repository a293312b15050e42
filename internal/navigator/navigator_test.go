package navigator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/dukerupert/carpool/internal/model"
)

type fakeSession struct {
	auth      bool
	role      model.Role
	initCalls int
	// persisted is what Initialize restores.
	persisted bool
}

func (f *fakeSession) Initialize(context.Context) {
	f.initCalls++
	if f.persisted {
		f.auth = true
	}
}
func (f *fakeSession) Authenticated() bool { return f.auth }
func (f *fakeSession) Role() model.Role    { return f.role }

type fixture struct {
	user, admin, donor *fakeSession
	nav                *Navigator
}

func newFixture(userAuth, adminAuth, donorAuth bool) *fixture {
	f := &fixture{
		user:  &fakeSession{auth: userAuth},
		admin: &fakeSession{auth: adminAuth},
		donor: &fakeSession{auth: donorAuth},
	}
	f.nav = New(NewTable(DefaultRoutes()), Sessions{User: f.user, Admin: f.admin, Donor: f.donor}, slog.Default())
	return f
}

func TestGuardDecisions(t *testing.T) {
	tests := []struct {
		name               string
		user, admin, donor bool
		target             string
		wantPath           string
		wantReason         Reason
		wantQueryContains  string
	}{
		{"donor area without donor auth", true, true, false, "/donor/dashboard", PathAdminLogin, ReasonDonorAuthRequired, "audience=donor"},
		{"donor area with only admin auth", false, true, false, "/donor/dashboard", PathAdminLogin, ReasonDonorAuthRequired, "audience=donor"},
		{"donor login while admin authenticated", false, true, false, "/admin/login?audience=donor", PathAdminLogin, "", "audience=donor"},
		{"donor area with donor auth", false, false, true, "/donor/dashboard", PathDonorLanding, "", ""},
		{"admin login while admin authenticated", false, true, false, "/admin/login", PathAdminLanding, ReasonAlreadyAuthenticated, ""},
		{"admin login while anonymous", false, false, false, "/admin/login", PathAdminLogin, "", ""},
		{"admin page without admin auth", true, false, false, "/admin/report-list", PathAdminLogin, ReasonAdminAuthRequired, "reason=admin_auth_required"},
		{"admin detail with admin auth", false, true, false, "/admin/driver-detail/9", "/admin/driver-detail/9", "", ""},
		{"user page without user auth keeps target", false, true, true, "/find-ride?from=A", PathLoginRegister, ReasonAuthRequired, "redirect=%2Ffind-ride%3Ffrom%3DA"},
		{"user page with user auth", true, false, false, "/ride-list", "/ride-list", "", ""},
		{"public route anonymous", false, false, false, "/forgot-password", PathForgotPassword, "", ""},
		{"public route authenticated", true, true, true, "/login", PathLogin, "", ""},
		{"unmarked route anonymous", false, false, false, "/", PathLoginRegister, ReasonAuthRequired, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.user, tt.admin, tt.donor)
			loc, err := f.nav.Push(context.Background(), tt.target)
			if err != nil {
				t.Fatalf("push: %v", err)
			}
			if loc.Path != tt.wantPath {
				t.Errorf("path = %q, want %q", loc.Path, tt.wantPath)
			}
			if loc.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", loc.Reason, tt.wantReason)
			}
			if tt.wantQueryContains != "" && !strings.Contains(loc.Query.Encode(), tt.wantQueryContains) {
				t.Errorf("query = %q, want it to contain %q", loc.Query.Encode(), tt.wantQueryContains)
			}
		})
	}
}

func TestDonorRedirectNeverProceeds(t *testing.T) {
	for _, target := range []string{"/donor/dashboard", "/donor/donations", "/donor"} {
		f := newFixture(true, true, false)
		loc, err := f.nav.Push(context.Background(), target)
		if err != nil {
			t.Fatalf("push %s: %v", target, err)
		}
		if AreaOf(loc.Path) == AreaDonor {
			t.Errorf("push %s proceeded into donor area: %s", target, loc.Path)
		}
		if loc.Path != PathAdminLogin {
			t.Errorf("push %s ended at %s, want %s", target, loc.Path, PathAdminLogin)
		}
	}
}

func TestFirstPushInitializesAllSessions(t *testing.T) {
	f := newFixture(false, false, false)
	f.admin.persisted = true

	loc, err := f.nav.Push(context.Background(), "/admin/driver-management")
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if loc.Path != "/admin/driver-management" {
		t.Errorf("deep link should pass after rehydration, got %s", loc.Path)
	}

	f.nav.Push(context.Background(), "/login")
	for name, s := range map[string]*fakeSession{"user": f.user, "admin": f.admin, "donor": f.donor} {
		if s.initCalls != 1 {
			t.Errorf("%s initialized %d times, want 1", name, s.initCalls)
		}
	}
}

func TestRoleDispatch(t *testing.T) {
	tests := []struct {
		role model.Role
		home string
		prof string
	}{
		{model.RolePassenger, PathFindRide, PathProfileP},
		{model.RoleDriver, PathCreateRide, PathProfileD},
		{model.RoleUnknown, PathFindRide, PathLoginRegister},
	}
	for _, tt := range tests {
		f := newFixture(true, false, false)
		f.user.role = tt.role

		loc, err := f.nav.Push(context.Background(), "/")
		if err != nil {
			t.Fatalf("push home: %v", err)
		}
		if loc.Path != tt.home {
			t.Errorf("role %v home = %s, want %s", tt.role, loc.Path, tt.home)
		}

		loc, err = f.nav.Push(context.Background(), "/profile")
		if err != nil {
			t.Fatalf("push profile: %v", err)
		}
		if loc.Path != tt.prof {
			t.Errorf("role %v profile = %s, want %s", tt.role, loc.Path, tt.prof)
		}
	}
}

func TestAdminAliasToLanding(t *testing.T) {
	f := newFixture(false, true, false)
	loc, err := f.nav.Push(context.Background(), "/admin")
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if loc.Path != PathAdminLanding {
		t.Errorf("path = %s, want %s", loc.Path, PathAdminLanding)
	}
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(true, false, false)
	_, err := f.nav.Push(context.Background(), "/does-not-exist")
	if !errors.Is(err, ErrRouteNotFound) {
		t.Errorf("err = %v, want ErrRouteNotFound", err)
	}
	if f.nav.CurrentPath() != PathHome {
		t.Errorf("current changed on failed push: %s", f.nav.CurrentPath())
	}

	// Anonymous users are sent to login instead.
	f = newFixture(false, false, false)
	loc, err := f.nav.Push(context.Background(), "/does-not-exist")
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if loc.Path != PathLoginRegister {
		t.Errorf("path = %s, want %s", loc.Path, PathLoginRegister)
	}
}

func TestCurrentAndHistory(t *testing.T) {
	f := newFixture(true, false, false)
	f.nav.Push(context.Background(), "/find-ride")
	f.nav.Push(context.Background(), "/chat/12")

	cur := f.nav.Current()
	if cur.Name != "Chat" || cur.Params["id"] != "12" {
		t.Errorf("current = %+v, want Chat with id 12", cur)
	}
	if got := len(f.nav.History()); got != 2 {
		t.Errorf("history length = %d, want 2", got)
	}
}

func TestAreaOf(t *testing.T) {
	tests := map[string]Area{
		"/admin":            AreaAdmin,
		"/admin/login":      AreaAdmin,
		"/administrator":    AreaUser,
		"/donor/dashboard":  AreaDonor,
		"/donation":         AreaUser,
		"/find-ride":        AreaUser,
	}
	for path, want := range tests {
		if got := AreaOf(path); got != want {
			t.Errorf("AreaOf(%q) = %v, want %v", path, got, want)
		}
	}
}
