package app

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"quiz-live-service/internal/domain"
	"quiz-live-service/internal/protocol"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.QuizSnapshot, error)
}

// PinDirectory remembers which PIN each quiz was last played under and
// advertises which PINs are live, possibly across processes. Implementations
// are best-effort: a lookup miss only means a fresh PIN gets generated.
type PinDirectory interface {
	Lookup(ctx context.Context, quizID string) (string, bool)
	Assign(ctx context.Context, quizID, pin string)
	MarkLive(ctx context.Context, pin string)
	IsLive(ctx context.Context, pin string) bool
	Release(ctx context.Context, pin string)
}

const (
	pinDigits    = 6
	pinSpace     = 1000000
	maxCustomPin = 6
)

// Registry owns every live session, keyed by PIN.
type Registry struct {
	pins        PinDirectory
	sessionOpts []SessionOption

	mu       sync.Mutex
	rnd      *rand.Rand
	sessions map[string]*Session
}

// RegistryOption customises a Registry at construction.
type RegistryOption func(*Registry)

// WithPinRand sets the source used to draw fresh PINs.
func WithPinRand(rnd *rand.Rand) RegistryOption {
	return func(r *Registry) { r.rnd = rnd }
}

// WithSessionOptions applies opts to every session the registry creates.
func WithSessionOptions(opts ...SessionOption) RegistryOption {
	return func(r *Registry) { r.sessionOpts = append(r.sessionOpts, opts...) }
}

func NewRegistry(pins PinDirectory, opts ...RegistryOption) *Registry {
	r := &Registry{
		pins:     pins,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rnd == nil {
		r.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return r
}

// NormalizePin trims, upper-cases and truncates a host supplied PIN.
func NormalizePin(raw string) string {
	runes := []rune(strings.TrimSpace(raw))
	if len(runes) > maxCustomPin {
		runes = runes[:maxCustomPin]
	}
	return strings.ToUpper(string(runes))
}

// Create starts a session for quiz hosted on host. The PIN is, in order: the
// custom PIN if given, the PIN this quiz used last time, or a fresh random one.
// Any session already holding the chosen PIN is shut down first. The host is
// sent GAME_CREATED before the session becomes reachable.
func (r *Registry) Create(ctx context.Context, quiz domain.QuizSnapshot, host Conn, customPin string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	pin := NormalizePin(customPin)
	if pin == "" && quiz.ID != "" {
		pin, _ = r.pins.Lookup(ctx, quiz.ID)
	}
	if pin != "" {
		r.evictLocked(pin)
	} else {
		pin = r.freshPinLocked(ctx)
	}
	if quiz.ID != "" {
		r.pins.Assign(ctx, quiz.ID, pin)
	}

	opts := append([]SessionOption{withQuestionStarted(r.keepAlive)}, r.sessionOpts...)
	session := NewSession(pin, quiz, host, opts...)
	// Announce before registering so the host hears about its PIN before any join.
	settings := session.quiz.Settings
	if settings == nil {
		settings = domain.Settings{}
	}
	deliver(host, protocol.GameCreated{Pin: pin, Settings: settings})
	r.sessions[pin] = session
	r.pins.MarkLive(ctx, pin)
	return session
}

func (r *Registry) Get(pin string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[pin]
	return session, ok
}

// Remove drops whatever session holds pin. It is a no-op for unknown PINs.
func (r *Registry) Remove(ctx context.Context, pin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[pin]
	if !ok {
		return
	}
	delete(r.sessions, pin)
	r.pins.Release(ctx, pin)
	session.Shutdown()
}

// Release removes session only if it still owns its PIN, so a host leaving an
// evicted game cannot tear down the game that replaced it.
func (r *Registry) Release(ctx context.Context, session *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[session.Pin()]; !ok || current != session {
		return false
	}
	delete(r.sessions, session.Pin())
	r.pins.Release(ctx, session.Pin())
	session.Shutdown()
	return true
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) evictLocked(pin string) {
	if old, ok := r.sessions[pin]; ok {
		delete(r.sessions, pin)
		old.Shutdown()
	}
}

// freshPinLocked draws PINs until one is free here and not advertised live by
// any other process sharing the directory.
func (r *Registry) freshPinLocked(ctx context.Context) string {
	for {
		pin := fmt.Sprintf("%0*d", pinDigits, r.rnd.Intn(pinSpace))
		if _, taken := r.sessions[pin]; taken {
			continue
		}
		if r.pins.IsLive(ctx, pin) {
			continue
		}
		return pin
	}
}

// keepAlive re-advertises pin while its game is still being played.
func (r *Registry) keepAlive(pin string) {
	r.pins.MarkLive(context.Background(), pin)
}
