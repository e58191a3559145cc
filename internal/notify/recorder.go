package notify

import (
	"context"
	"sync"
)

// Recorder keeps the most recent notifications in memory. It backs the
// notifications feed of the HTTP API and doubles as a test sink.
type Recorder struct {
	mu    sync.Mutex
	buf   []Notification
	next  int
	full  bool
	total int
}

// NewRecorder creates a Recorder holding up to capacity notifications.
// A capacity below 1 is raised to 1.
func NewRecorder(capacity int) *Recorder {
	if capacity < 1 {
		capacity = 1
	}
	return &Recorder{buf: make([]Notification, capacity)}
}

func (r *Recorder) Notify(ctx context.Context, message string, severity Severity) {
	n := New(ctx, message, severity)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = n
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
	r.total++
}

// Recent returns the retained notifications, oldest first.
func (r *Recorder) Recent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]Notification, r.next)
		copy(out, r.buf[:r.next])
		return out
	}

	out := make([]Notification, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	return out
}

// Count returns how many notifications were ever recorded.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}
