package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/dukerupert/carpool/internal/config"
	"github.com/dukerupert/carpool/internal/model"
	"github.com/dukerupert/carpool/internal/navigator"
)

// syncBuffer is written by the toast printer and the logger concurrently.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds model.Credentials
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token": "user-token",
			"user":  map[string]any{"userID": 42, "name": "Jane", "email": creds.Email, "role": 2},
		})
	})
	mux.HandleFunc("GET /api/admin/drivers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"drivers":    []any{},
			"pagination": map[string]int{"page": 1, "per_page": 10},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.API.BaseURL = srv.URL + "/api"
	cfg.Realtime.URL = "ws://127.0.0.1:1/ws"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "carpool.db")
	cfg.Log.Level = "error"
	return &cfg
}

func run(t *testing.T, cfg *config.Config, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut syncBuffer
	root := newRoot(&cli{cfg: cfg})
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestLoginPersistsForStatus(t *testing.T) {
	cfg := testConfig(t)

	out, stderr, err := run(t, cfg, "login", "--email", "jane@example.com", "--password", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "at "+navigator.PathCreateRide) {
		t.Errorf("login output = %q, want landing %s", out, navigator.PathCreateRide)
	}
	if !strings.Contains(stderr, "[success] Login successful") {
		t.Errorf("stderr = %q, want success toast", stderr)
	}

	out, _, err = run(t, cfg, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Jane <jane@example.com> role=driver id=42") {
		t.Errorf("status output = %q", out)
	}
	if !strings.Contains(out, "admin  signed out") {
		t.Errorf("admin should be signed out: %q", out)
	}

	if _, stderr, err = run(t, cfg, "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if !strings.Contains(stderr, "[info] Logged out") {
		t.Errorf("stderr = %q, want logout toast", stderr)
	}
	out, _, _ = run(t, cfg, "status")
	if !strings.Contains(out, "user   signed out") {
		t.Errorf("user should be signed out: %q", out)
	}
}

func TestLoginFailureReportsServerMessage(t *testing.T) {
	cfg := testConfig(t)

	_, stderr, err := run(t, cfg, "login", "--email", "jane@example.com", "--password", "wrong")
	if err == nil || err.Error() != "Invalid credentials" {
		t.Fatalf("err = %v, want Invalid credentials", err)
	}
	if !strings.Contains(stderr, "[error] Invalid credentials") {
		t.Errorf("stderr = %q, want error toast", stderr)
	}
}

func TestNavigateSignedOutRedirects(t *testing.T) {
	cfg := testConfig(t)

	out, _, err := run(t, cfg, "navigate", navigator.PathFindRide)
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	var loc navigator.Location
	if err := json.Unmarshal([]byte(out), &loc); err != nil {
		t.Fatalf("decode location %q: %v", out, err)
	}
	if loc.Path != navigator.PathLoginRegister || !loc.Redirected {
		t.Errorf("location = %+v, want redirect to %s", loc, navigator.PathLoginRegister)
	}
}

func TestCreateRideSignedOutFailsLocally(t *testing.T) {
	cfg := testConfig(t)

	_, _, err := run(t, cfg, "rides", "create", "--from", "A", "--to", "B", "--time", "09:00", "--seats", "2")
	if err == nil || !strings.Contains(err.Error(), "sign in as a driver first") {
		t.Fatalf("err = %v, want sign-in hint", err)
	}
}

func TestDriversListRejectsUnknownStatus(t *testing.T) {
	cfg := testConfig(t)

	if _, _, err := run(t, cfg, "drivers", "list", "--status", "bogus"); err == nil {
		t.Fatal("expected an error for an unknown status")
	}
	out, _, err := run(t, cfg, "drivers", "list", "--status", "approved")
	if err != nil {
		t.Fatalf("drivers list: %v", err)
	}
	if !strings.Contains(out, `"drivers"`) {
		t.Errorf("output = %q", out)
	}
}

func TestIDArgumentValidated(t *testing.T) {
	cfg := testConfig(t)

	_, _, err := run(t, cfg, "rides", "cancel", "abc")
	if err == nil || !strings.Contains(err.Error(), `invalid id "abc"`) {
		t.Fatalf("err = %v", err)
	}
}
