package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/goccy/go-json"

	"github.com/dukerupert/carpool/internal/logging"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

// testServer accepts websocket clients and records what they send.
type testServer struct {
	srv      *httptest.Server
	accepted atomic.Int32
	live     atomic.Int32

	mu     sync.Mutex
	conns  []*ws.Conn
	tokens []string
	events []string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			return
		}
		ts.accepted.Add(1)
		ts.live.Add(1)
		defer ts.live.Add(-1)

		ts.mu.Lock()
		ts.conns = append(ts.conns, conn)
		ts.tokens = append(ts.tokens, r.URL.Query().Get("token"))
		ts.mu.Unlock()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}
			var env Envelope
			if json.Unmarshal(data, &env) == nil {
				ts.mu.Lock()
				ts.events = append(ts.events, env.Event)
				ts.mu.Unlock()
			}
		}
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) url() string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
}

func (ts *testServer) push(t *testing.T, event string, data any) {
	t.Helper()
	raw, _ := json.Marshal(data)
	msg, _ := json.Marshal(Envelope{Event: event, Data: raw})

	waitFor(t, "server side connection", func() bool {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		return len(ts.conns) > 0
	})
	ts.mu.Lock()
	conn := ts.conns[len(ts.conns)-1]
	ts.mu.Unlock()
	if err := conn.Write(context.Background(), ws.MessageText, msg); err != nil {
		t.Fatalf("push: %v", err)
	}
}

func (ts *testServer) dropAll() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for _, c := range ts.conns {
		c.CloseNow()
	}
}

func (ts *testServer) sent() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]string(nil), ts.events...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newChannel(ts *testServer, opts Options) *Channel {
	opts.URL = ts.url()
	return New(opts, staticToken("tok-1"), logging.Discard())
}

func TestConnectSendsTokenAndJoins(t *testing.T) {
	ts := newTestServer(t)
	c := newChannel(ts, Options{})
	defer c.Disconnect()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !c.Connected() {
		t.Fatal("not connected")
	}
	waitFor(t, "join_rides", func() bool {
		got := ts.sent()
		return len(got) == 1 && got[0] == EventJoinRides
	})

	ts.mu.Lock()
	token := ts.tokens[0]
	ts.mu.Unlock()
	if token != "tok-1" {
		t.Errorf("token = %q, want tok-1", token)
	}
}

func TestDoubleConnectKeepsOneConnection(t *testing.T) {
	ts := newTestServer(t)
	c := newChannel(ts, Options{})
	defer c.Disconnect()

	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("first Connect: %v", err)
	}
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("second Connect: %v", err)
	}

	waitFor(t, "first connection to close", func() bool {
		return ts.accepted.Load() == 2 && ts.live.Load() == 1
	})
	if !c.Connected() {
		t.Error("not connected after second Connect")
	}
}

func TestNewRideUpdates(t *testing.T) {
	ts := newTestServer(t)
	c := newChannel(ts, Options{MaxUpdates: 2})
	defer c.Disconnect()

	events, cancel := c.Subscribe()
	defer cancel()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	for i := 1; i <= 3; i++ {
		ts.push(t, EventNewRide, map[string]any{"ride_id": i, "starting_location": "A", "dropoff_location": "B"})
	}
	ts.push(t, "something_else", nil)

	waitFor(t, "updates", func() bool { return len(c.Updates()) == 2 })
	updates := c.Updates()
	first, err := updates[0].Ride()
	if err != nil {
		t.Fatalf("Ride: %v", err)
	}
	if first.ID != 2 || first.StartingLocation.Name != "A" {
		t.Errorf("oldest kept ride = %+v, want ride 2", first)
	}

	var names []string
	for len(names) < 4 {
		select {
		case ev := <-events:
			names = append(names, ev.Name)
		case <-time.After(3 * time.Second):
			t.Fatalf("subscriber got %v", names)
		}
	}
	if names[3] != "something_else" {
		t.Errorf("subscriber events = %v", names)
	}

	c.ClearUpdates()
	if len(c.Updates()) != 0 {
		t.Error("ClearUpdates left entries")
	}
}

func TestGroupsWhileDisconnectedAreNoops(t *testing.T) {
	ts := newTestServer(t)
	c := newChannel(ts, Options{})

	if err := c.JoinGroup(context.Background()); err != nil {
		t.Errorf("JoinGroup: %v", err)
	}
	if err := c.LeaveGroup(context.Background()); err != nil {
		t.Errorf("LeaveGroup: %v", err)
	}
	if ts.accepted.Load() != 0 {
		t.Error("group call opened a connection")
	}
}

func TestLeaveGroup(t *testing.T) {
	ts := newTestServer(t)
	c := newChannel(ts, Options{})
	defer c.Disconnect()

	c.Connect(context.Background())
	if err := c.LeaveGroup(context.Background()); err != nil {
		t.Fatalf("LeaveGroup: %v", err)
	}
	waitFor(t, "leave_rides", func() bool {
		got := ts.sent()
		return len(got) == 2 && got[1] == EventLeaveRides
	})
}

func TestDisconnectIsIdempotent(t *testing.T) {
	ts := newTestServer(t)
	c := newChannel(ts, Options{})

	c.Disconnect()
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	c.Disconnect()
	c.Disconnect()

	if c.Connected() {
		t.Error("still connected")
	}
	waitFor(t, "server to see close", func() bool { return ts.live.Load() == 0 })
}

func TestConnectFailureLeavesDisconnected(t *testing.T) {
	c := New(Options{URL: "ws://127.0.0.1:1/ws"}, staticToken(""), logging.Discard())

	if err := c.Connect(context.Background()); err == nil {
		t.Fatal("expected dial error")
	}
	if c.Connected() {
		t.Error("connected after failed dial")
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	ts := newTestServer(t)
	c := newChannel(ts, Options{
		ReconnectAttempts: 5,
		ReconnectBase:     10 * time.Millisecond,
		ReconnectMax:      50 * time.Millisecond,
	})
	defer c.Disconnect()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	ts.dropAll()

	waitFor(t, "reconnect", func() bool {
		return ts.accepted.Load() == 2 && c.Connected()
	})
	waitFor(t, "one live connection", func() bool { return ts.live.Load() == 1 })
}

func TestNoReconnectByDefault(t *testing.T) {
	ts := newTestServer(t)
	c := newChannel(ts, Options{ReconnectBase: 10 * time.Millisecond})
	defer c.Disconnect()

	c.Connect(context.Background())
	ts.dropAll()

	waitFor(t, "drop to be noticed", func() bool { return !c.Connected() })
	time.Sleep(100 * time.Millisecond)
	if ts.accepted.Load() != 1 {
		t.Errorf("accepted = %d, want 1", ts.accepted.Load())
	}
}
