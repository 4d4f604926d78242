package memory

import (
	"context"
	"sync"
)

// PinDirectory is an in-memory implementation of app.PinDirectory. It lives as
// long as the process, so PIN reuse per quiz does not survive restarts.
type PinDirectory struct {
	mu     sync.RWMutex
	byQuiz map[string]string
	live   map[string]struct{}
}

func NewPinDirectory() *PinDirectory {
	return &PinDirectory{
		byQuiz: make(map[string]string),
		live:   make(map[string]struct{}),
	}
}

func (d *PinDirectory) Lookup(_ context.Context, quizID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	pin, ok := d.byQuiz[quizID]
	return pin, ok
}

func (d *PinDirectory) Assign(_ context.Context, quizID, pin string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byQuiz[quizID] = pin
}

func (d *PinDirectory) MarkLive(_ context.Context, pin string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.live[pin] = struct{}{}
}

func (d *PinDirectory) Release(_ context.Context, pin string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.live, pin)
}

// IsLive reports whether pin is currently marked live.
func (d *PinDirectory) IsLive(_ context.Context, pin string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.live[pin]
	return ok
}
