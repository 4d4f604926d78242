package app_test

import (
	"context"
	"math/rand"
	"regexp"
	"testing"

	"quiz-live-service/internal/app"
	"quiz-live-service/internal/domain"
	"quiz-live-service/internal/infra/memory"
	"quiz-live-service/internal/protocol"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func newTestRegistry() (*app.Registry, *memory.PinDirectory) {
	pins := memory.NewPinDirectory()
	return app.NewRegistry(pins, app.WithSessionOptions(app.WithClock(fixedClock))), pins
}

func TestCreateAssignsFreshPin(t *testing.T) {
	ctx := context.Background()
	reg, pins := newTestRegistry()
	host := &recordingConn{}

	s := reg.Create(ctx, twoQuestionQuiz(), host, "")
	if !sixDigits.MatchString(s.Pin()) {
		t.Fatalf("expected 6 digit pin, got %q", s.Pin())
	}
	got, ok := reg.Get(s.Pin())
	if !ok || got != s {
		t.Fatalf("expected session to be registered")
	}
	if !pins.IsLive(ctx, s.Pin()) {
		t.Fatalf("expected pin to be marked live")
	}

	events := host.events()
	if len(events) != 1 || events[0] != protocol.EventGameCreated {
		t.Fatalf("expected GAME_CREATED as the first frame, got %v", events)
	}
	created, _ := lastOf[protocol.GameCreated](host)
	if created.Pin != s.Pin() || created.Settings == nil {
		t.Fatalf("unexpected GAME_CREATED %+v", created)
	}
}

func TestCreateWithCustomPinEvictsPreviousSession(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry()

	oldHost := &recordingConn{}
	old := reg.Create(ctx, twoQuestionQuiz(), oldHost, " abc ")
	if old.Pin() != "ABC" {
		t.Fatalf("expected normalized pin ABC, got %q", old.Pin())
	}
	player := join(old, "Alice")

	newHost := &recordingConn{}
	fresh := reg.Create(ctx, twoQuestionQuiz(), newHost, "abc")

	if reg.Len() != 1 {
		t.Fatalf("expected exactly one session, got %d", reg.Len())
	}
	if got, _ := reg.Get("ABC"); got != fresh {
		t.Fatalf("expected the new session to own the pin")
	}
	if !oldHost.isClosed() || !player.isClosed() {
		t.Fatalf("expected evicted session connections to be closed")
	}
	if newHost.isClosed() {
		t.Fatalf("new host must stay connected")
	}
}

func TestNormalizePin(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"  ":         "",
		"abc":        "ABC",
		" 12345678 ": "123456",
		"quizzy!":    "QUIZZY",
	}
	for in, want := range cases {
		if got := app.NormalizePin(in); got != want {
			t.Fatalf("NormalizePin(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateReusesQuizPin(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry()

	first := reg.Create(ctx, twoQuestionQuiz(), &recordingConn{}, "")
	reg.Remove(ctx, first.Pin())

	second := reg.Create(ctx, twoQuestionQuiz(), &recordingConn{}, "")
	if second.Pin() != first.Pin() {
		t.Fatalf("expected the quiz to keep pin %q, got %q", first.Pin(), second.Pin())
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	reg, pins := newTestRegistry()
	host := &recordingConn{}
	s := reg.Create(ctx, twoQuestionQuiz(), host, "")

	reg.Remove(ctx, s.Pin())
	reg.Remove(ctx, s.Pin())
	reg.Remove(ctx, "nope")

	if _, ok := reg.Get(s.Pin()); ok {
		t.Fatalf("expected session to be gone")
	}
	if pins.IsLive(ctx, s.Pin()) {
		t.Fatalf("expected pin to be released")
	}
	if !host.isClosed() {
		t.Fatalf("expected host connection closed")
	}
}

func TestReleaseIgnoresReplacedSession(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry()

	old := reg.Create(ctx, twoQuestionQuiz(), &recordingConn{}, "ROOM")
	fresh := reg.Create(ctx, twoQuestionQuiz(), &recordingConn{}, "ROOM")

	if reg.Release(ctx, old) {
		t.Fatalf("stale session must not release the pin")
	}
	if got, ok := reg.Get("ROOM"); !ok || got != fresh {
		t.Fatalf("expected the replacing session to survive")
	}
	if !reg.Release(ctx, fresh) {
		t.Fatalf("expected the owner to release")
	}
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", reg.Len())
	}
}

func TestFreshPinsAvoidLiveSessions(t *testing.T) {
	ctx := context.Background()
	// Same seed, so the second registry would draw the same first pin.
	seeded := func() *rand.Rand { return rand.New(rand.NewSource(42)) }
	probe := app.NewRegistry(memory.NewPinDirectory(), app.WithPinRand(seeded()))
	first := probe.Create(ctx, domainlessQuiz(), &recordingConn{}, "")

	reg := app.NewRegistry(memory.NewPinDirectory(), app.WithPinRand(seeded()))
	taken := reg.Create(ctx, domainlessQuiz(), &recordingConn{}, first.Pin())
	next := reg.Create(ctx, domainlessQuiz(), &recordingConn{}, "")

	if next.Pin() == taken.Pin() {
		t.Fatalf("fresh pin collided with live session %q", taken.Pin())
	}
	if reg.Len() != 2 {
		t.Fatalf("expected both sessions to be live, got %d", reg.Len())
	}
}

func TestFreshPinsAvoidPinsLiveElsewhere(t *testing.T) {
	ctx := context.Background()
	seeded := func() *rand.Rand { return rand.New(rand.NewSource(42)) }
	probe := app.NewRegistry(memory.NewPinDirectory(), app.WithPinRand(seeded()))
	first := probe.Create(ctx, domainlessQuiz(), &recordingConn{}, "")

	// Another process sharing the directory already plays under that PIN.
	shared := memory.NewPinDirectory()
	shared.MarkLive(ctx, first.Pin())

	reg := app.NewRegistry(shared, app.WithPinRand(seeded()))
	next := reg.Create(ctx, domainlessQuiz(), &recordingConn{}, "")
	if next.Pin() == first.Pin() {
		t.Fatalf("fresh pin %q is already live in the directory", next.Pin())
	}
	if !shared.IsLive(ctx, next.Pin()) {
		t.Fatalf("expected new pin to be marked live")
	}
}

func TestQuestionStartRefreshesLiveMarker(t *testing.T) {
	ctx := context.Background()
	reg, pins := newTestRegistry()
	s := reg.Create(ctx, twoQuestionQuiz(), &recordingConn{}, "")
	_ = join(s, "Alice")

	// The marker lapsed while the game sat in the lobby.
	pins.Release(ctx, s.Pin())
	s.Start()
	if !pins.IsLive(ctx, s.Pin()) {
		t.Fatalf("expected question start to re-advertise the pin")
	}

	pins.Release(ctx, s.Pin())
	s.Advance()
	if !pins.IsLive(ctx, s.Pin()) {
		t.Fatalf("expected every question to re-advertise the pin")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry()

	a := reg.Create(ctx, twoQuestionQuiz(), &recordingConn{}, "AAA")
	b := reg.Create(ctx, twoQuestionQuiz(), &recordingConn{}, "BBB")
	aliceA := join(a, "Alice")
	aliceB := join(b, "Alice")

	a.Start()
	if _, ok := lastOf[protocol.PlayerQuestion](aliceA); !ok {
		t.Fatalf("expected question in session A")
	}
	if len(messagesOf[protocol.PlayerQuestion](aliceB)) != 0 {
		t.Fatalf("session B must not see session A's question")
	}
}

// domainlessQuiz has no ID, so it never reuses a remembered pin.
func domainlessQuiz() domain.QuizSnapshot {
	q := twoQuestionQuiz()
	q.ID = ""
	return q
}
