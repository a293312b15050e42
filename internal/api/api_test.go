package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/dukerupert/carpool/internal/gateway"
	"github.com/dukerupert/carpool/internal/logging"
	"github.com/dukerupert/carpool/internal/model"
	"github.com/dukerupert/carpool/internal/toast"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

// fakeDoer records requests and answers them with respond.
type fakeDoer struct {
	mu      sync.Mutex
	reqs    []gateway.Request
	respond func(req gateway.Request) (any, error)
}

func (f *fakeDoer) Do(_ context.Context, req gateway.Request, out any) error {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	respond := f.respond
	f.mu.Unlock()

	if respond == nil {
		return nil
	}
	v, err := respond(req)
	if err != nil {
		return err
	}
	if out != nil && v != nil {
		data, _ := json.Marshal(v)
		return json.Unmarshal(data, out)
	}
	return nil
}

func (f *fakeDoer) calls() []gateway.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gateway.Request(nil), f.reqs...)
}

func newTestClient(d Doer) *Client {
	return New(d, staticToken("user-token"), logging.Discard())
}

func TestCreateRideMissingDriverID(t *testing.T) {
	d := &fakeDoer{}
	c := newTestClient(d)

	_, err := c.CreateRide(context.Background(), model.CreateRide{
		StartingLocation: model.Place{Name: "A"},
		DropoffLocation:  model.Place{Name: "B"},
		RequestTime:      "2024-06-01T10:00",
		PassengerCount:   "2",
	})

	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("err = %v, want ErrMissingField", err)
	}
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "driverID" {
		t.Errorf("field error = %+v, want driverID", fe)
	}
	if len(d.calls()) != 0 {
		t.Errorf("gateway called %d times, want 0", len(d.calls()))
	}
}

func TestCreateRideSendsBody(t *testing.T) {
	d := &fakeDoer{respond: func(req gateway.Request) (any, error) {
		return map[string]any{"ride_id": 11, "starting_location": "A", "dropoff_location": "B"}, nil
	}}
	c := newTestClient(d)

	ride, err := c.CreateRide(context.Background(), model.CreateRide{
		DriverID:         "3",
		StartingLocation: model.Place{Name: "A", Lat: 3.1, Lng: 101.6},
		DropoffLocation:  model.Place{Name: "B", Lat: 3.2, Lng: 101.7},
		RequestTime:      "2024-06-01T10:00",
		PassengerCount:   "2",
	})
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}
	if ride.ID != 11 {
		t.Errorf("ride id = %d, want 11", ride.ID)
	}

	req := d.calls()[0]
	if req.Method != http.MethodPost || req.Path != "/rides" || req.SuccessMessage == "" {
		t.Errorf("request = %+v", req)
	}
}

func TestValidationRules(t *testing.T) {
	c := newTestClient(&fakeDoer{})
	ctx := context.Background()

	_, err := c.Donate(ctx, model.NewDonation{UserID: 1, DonorID: 2, Amount: 5, PaymentMethod: "cash"})
	if !errors.Is(err, ErrInvalidField) {
		t.Errorf("donate with cash: err = %v, want ErrInvalidField", err)
	}
	_, err = c.Donate(ctx, model.NewDonation{UserID: 1, DonorID: 2})
	if !errors.Is(err, ErrInvalidField) {
		t.Errorf("donate zero amount: err = %v, want ErrInvalidField", err)
	}
	if err := c.SetDriverStatus(ctx, 4, "maybe"); !errors.Is(err, ErrInvalidField) {
		t.Errorf("bad status: err = %v, want ErrInvalidField", err)
	}
	_, err = c.RegisterPassenger(ctx, model.PassengerRegistration{Name: "J", Email: "nope", Phone: "1", Password: "secret1"})
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "email" {
		t.Errorf("bad email: err = %v", err)
	}
}

func TestDonateDefaultsAndAudience(t *testing.T) {
	d := &fakeDoer{}
	c := newTestClient(d)

	if _, err := c.Donate(context.Background(), model.NewDonation{UserID: 1, DonorID: 2, Amount: 10}); err != nil {
		t.Fatalf("Donate: %v", err)
	}
	req := d.calls()[0]
	if req.Audience != model.AudienceDonor {
		t.Errorf("audience = %v, want donor", req.Audience)
	}
	if body := req.Body.(model.NewDonation); body.PaymentMethod != model.PaymentStripe {
		t.Errorf("payment method = %q, want stripe", body.PaymentMethod)
	}
}

func TestSearchQuery(t *testing.T) {
	d := &fakeDoer{}
	c := newTestClient(d)

	c.SearchRides(context.Background(), model.RideSearch{StartingLocation: "A", Seats: 2, Page: 1, Size: 10})

	q := d.calls()[0].Query
	if q.Get("starting_location") != "A" || q.Get("seats") != "2" || q.Get("size") != "10" {
		t.Errorf("query = %v", q)
	}
	if q.Has("dropoff_location") || q.Has("request_time") {
		t.Errorf("empty fields sent: %v", q)
	}
}

func TestSearchDropsStaleResponse(t *testing.T) {
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	var once sync.Once

	d := &fakeDoer{respond: func(req gateway.Request) (any, error) {
		if req.Query.Get("starting_location") == "old" {
			once.Do(func() { close(firstStarted) })
			<-releaseFirst
			return model.RidePage{Rides: []model.Ride{{ID: 1}}}, nil
		}
		return model.RidePage{Rides: []model.Ride{{ID: 2}}}, nil
	}}
	c := newTestClient(d)
	ctx := context.Background()

	type result struct {
		page *model.RidePage
		err  error
	}
	first := make(chan result, 1)
	go func() {
		p, err := c.SearchRides(ctx, model.RideSearch{StartingLocation: "old"})
		first <- result{p, err}
	}()
	<-firstStarted

	latest, err := c.SearchRides(ctx, model.RideSearch{StartingLocation: "new"})
	if err != nil {
		t.Fatalf("latest search: %v", err)
	}
	close(releaseFirst)

	stale := <-first
	if !errors.Is(stale.err, ErrStale) || stale.page != nil {
		t.Errorf("first search = %+v, %v; want ErrStale", stale.page, stale.err)
	}
	if len(latest.Rides) != 1 || latest.Rides[0].ID != 2 {
		t.Errorf("latest rides = %+v", latest.Rides)
	}
}

func TestListDriversQuery(t *testing.T) {
	d := &fakeDoer{respond: func(gateway.Request) (any, error) {
		return map[string]any{
			"drivers":    []map[string]any{{"id": 4, "name": "Ali", "verification_status": "pending"}},
			"pagination": map[string]any{"page": 2, "per_page": 5, "total_pages": 3, "total_drivers": 11},
		}, nil
	}}
	c := newTestClient(d)

	page, err := c.ListDrivers(context.Background(), DriverQuery{Status: model.VerificationPending, Page: 2, PerPage: 5})
	if err != nil {
		t.Fatalf("ListDrivers: %v", err)
	}
	if page.Pagination.TotalDrivers != 11 || page.Drivers[0].Name != "Ali" {
		t.Errorf("page = %+v", page)
	}
	q := d.calls()[0].Query
	if q.Get("status") != "pending" || q.Get("per_page") != "5" || q.Get("page") != "2" {
		t.Errorf("query = %v", q)
	}
}

func TestEndpointPaths(t *testing.T) {
	d := &fakeDoer{}
	c := newTestClient(d)
	ctx := context.Background()

	c.GetRide(ctx, 5)
	c.RideDetails(ctx, 5)
	c.CancelRide(ctx, 5)
	c.CompleteRide(ctx, 5)
	c.ApproveRequest(ctx, 9)
	c.RejectRequest(ctx, 9)
	c.DriverRequests(ctx, 3)
	c.PassengerRequests(ctx, 4)
	c.ChatForRide(ctx, 5)
	c.Messages(ctx, 6)
	c.UserChats(ctx, 4)
	c.MarkRead(ctx, 8)
	c.MarkAllRead(ctx)
	c.AdminFeedbacks(ctx)
	c.SetDriverStatus(ctx, 4, model.VerificationApproved)

	want := []string{
		"GET /rides/5",
		"GET /rides/5/details",
		"POST /rides/5/cancel",
		"POST /rides/5/complete",
		"POST /rides/requests/approve",
		"POST /rides/requests/reject",
		"GET /rides/driver/3/requests",
		"GET /rides/passenger/4/requests",
		"GET /chats/ride/5",
		"GET /chats/6/messages",
		"GET /chats/user/4/chats",
		"PUT /notifications/read/8",
		"PUT /notifications/read-all",
		"GET /feedback/admin/feedbacks",
		"PUT /admin/drivers/4/status",
	}
	calls := d.calls()
	if len(calls) != len(want) {
		t.Fatalf("got %d calls, want %d", len(calls), len(want))
	}
	for i, req := range calls {
		method := req.Method
		if method == "" {
			method = http.MethodGet
		}
		if got := method + " " + req.Path; got != want[i] {
			t.Errorf("call %d = %q, want %q", i, got, want[i])
		}
	}
}

// TestFeedbackOverGateway runs a form submission through the real gateway.
func TestFeedbackOverGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
			return
		}
		if r.URL.Path != "/api/feedback" || r.PostForm.Get("token") != "user-token" ||
			r.PostForm.Get("ride_id") != "12" || r.PostForm.Get("issue_type") != "late" {
			t.Errorf("got %s form %v", r.URL.Path, r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Feedback submitted successfully","feedback_id":99}`))
	}))
	defer srv.Close()

	toasts := toast.New(logging.Discard())
	gw := gateway.New(gateway.Options{BaseURL: srv.URL + "/api"}, toasts, logging.Discard())
	c := New(gw, staticToken("user-token"), logging.Discard())

	id, err := c.SubmitFeedback(context.Background(), model.NewFeedback{RideID: 12, IssueType: "late", Comments: "20 minutes"})
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	if id != 99 {
		t.Errorf("id = %d, want 99", id)
	}
	if got := toasts.List(); len(got) != 1 || got[0].Severity != toast.Success {
		t.Errorf("toasts = %+v", got)
	}
}

func TestFeedbackNeedsToken(t *testing.T) {
	d := &fakeDoer{}
	c := New(d, staticToken(""), logging.Discard())

	_, err := c.SubmitFeedback(context.Background(), model.NewFeedback{RideID: 1, IssueType: "late"})
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("err = %v, want ErrMissingField", err)
	}
	if len(d.calls()) != 0 {
		t.Error("request sent without a token")
	}
}

func TestAnonymousAuthRequestsSkipRecovery(t *testing.T) {
	d := &fakeDoer{}
	c := newTestClient(d)
	ctx := context.Background()

	passenger := model.PassengerRegistration{Name: "Jane", Email: "jane@example.com", Phone: "+60123", Password: "secret1"}
	if _, err := c.RegisterPassenger(ctx, passenger); err != nil {
		t.Fatalf("register passenger: %v", err)
	}
	driver := model.DriverRegistration{
		PassengerRegistration: passenger,
		LicenseNumber:         "L1",
		CarNumber:             "ABC123",
		CarType:               "Sedan",
		CarColour:             "Blue",
	}
	if _, err := c.RegisterDriver(ctx, driver); err != nil {
		t.Fatalf("register driver: %v", err)
	}
	if err := c.ForgotPassword(ctx, "jane@example.com"); err != nil {
		t.Fatalf("forgot password: %v", err)
	}

	calls := d.calls()
	if len(calls) != 3 {
		t.Fatalf("gateway called %d times, want 3", len(calls))
	}
	for _, req := range calls {
		if !req.Anonymous || !req.SkipRecovery {
			t.Errorf("%s %s: anonymous=%v skipRecovery=%v, want both", req.Method, req.Path, req.Anonymous, req.SkipRecovery)
		}
	}
}
