// Package toast is the process-wide queue of transient user-facing status
// messages.
package toast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
	Info    Severity = "info"
	Warning Severity = "warning"
)

const (
	DefaultTTL      = 3 * time.Second
	DefaultErrorTTL = 4 * time.Second

	subscriberBuffer = 16
)

type Toast struct {
	ID        string        `json:"id"`
	Message   string        `json:"message"`
	Severity  Severity      `json:"severity"`
	TTL       time.Duration `json:"ttl"`
	CreatedAt time.Time     `json:"created_at"`
}

// Notifier holds live toasts in insertion order and removes each one when
// its TTL elapses.
type Notifier struct {
	mu     sync.Mutex
	toasts []Toast
	timers map[string]*time.Timer
	subs   map[chan Toast]struct{}
	logger *slog.Logger
}

func New(logger *slog.Logger) *Notifier {
	return &Notifier{
		timers: make(map[string]*time.Timer),
		subs:   make(map[chan Toast]struct{}),
		logger: logger,
	}
}

// Add queues a toast and returns its id. A non-positive ttl uses the
// severity's default.
func (n *Notifier) Add(message string, severity Severity, ttl time.Duration) string {
	if ttl <= 0 {
		ttl = DefaultTTL
		if severity == Error {
			ttl = DefaultErrorTTL
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	t := Toast{
		ID:        id.String(),
		Message:   message,
		Severity:  severity,
		TTL:       ttl,
		CreatedAt: time.Now(),
	}

	n.mu.Lock()
	n.toasts = append(n.toasts, t)
	n.timers[t.ID] = time.AfterFunc(ttl, func() { n.Remove(t.ID) })
	for ch := range n.subs {
		select {
		case ch <- t:
		default:
			// Subscriber not keeping up, drop rather than block the caller
		}
	}
	n.mu.Unlock()

	n.logger.Log(context.Background(), levelFor(severity), "toast", "severity", string(severity), "message", message)
	return t.ID
}

func (n *Notifier) Success(message string) string { return n.Add(message, Success, 0) }
func (n *Notifier) Error(message string) string   { return n.Add(message, Error, 0) }
func (n *Notifier) Info(message string) string    { return n.Add(message, Info, 0) }
func (n *Notifier) Warning(message string) string { return n.Add(message, Warning, 0) }

// Remove deletes a toast before its TTL. Unknown ids are ignored.
func (n *Notifier) Remove(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if timer, ok := n.timers[id]; ok {
		timer.Stop()
		delete(n.timers, id)
	}
	for i, t := range n.toasts {
		if t.ID == id {
			n.toasts = append(n.toasts[:i], n.toasts[i+1:]...)
			return
		}
	}
}

// List returns the live toasts, oldest first.
func (n *Notifier) List() []Toast {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]Toast, len(n.toasts))
	copy(out, n.toasts)
	return out
}

// Subscribe returns a channel receiving every toast added after the call,
// and a function that ends the subscription.
func (n *Notifier) Subscribe() (<-chan Toast, func()) {
	ch := make(chan Toast, subscriberBuffer)

	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, ch)
			close(ch)
			n.mu.Unlock()
		})
	}
}

// Clear removes all toasts and stops their timers.
func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for id, timer := range n.timers {
		timer.Stop()
		delete(n.timers, id)
	}
	n.toasts = nil
}

func levelFor(s Severity) slog.Level {
	switch s {
	case Error:
		return slog.LevelError
	case Warning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
