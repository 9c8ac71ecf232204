package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantSuccess     Variant = "success"
	VariantDestructive Variant = "destructive"
)

// Notification is one toast for the operator.
type Notification struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type Func func(ctx context.Context, n Notification)

func (f Func) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// Discard drops every notification.
var Discard Notifier = Func(func(context.Context, Notification) {})

// Logger writes notifications to the global zerolog logger.
type Logger struct{}

func (Logger) Notify(_ context.Context, n Notification) {
	event := log.Info()
	if n.Variant == VariantDestructive {
		event = log.Warn()
	}

	event.
		Str("title", n.Title).
		Str("variant", string(n.Variant)).
		Msg(n.Description)
}

type multi []Notifier

// Multi fans a notification out to every non-nil notifier in order.
func Multi(notifiers ...Notifier) Notifier {
	out := make(multi, 0, len(notifiers))

	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}

	return out
}

func (m multi) Notify(ctx context.Context, n Notification) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}

// Recorder keeps every notification it receives. Safe for concurrent use.
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
}

func NewRecorder() *Recorder {
	return &Recorder{
		mu:            sync.Mutex{},
		notifications: nil,
	}
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notifications = append(r.notifications, n)
}

func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Notification, len(r.notifications))
	copy(out, r.notifications)

	return out
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.notifications)
}
