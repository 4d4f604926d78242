package app

import (
	"testing"
	"time"

	"quiz-live-service/internal/domain"
	"quiz-live-service/internal/protocol"
)

type fakeTimer struct {
	after   time.Duration
	fire    func()
	stopped bool
}

func (f *fakeTimer) Stop() bool {
	f.stopped = true
	return true
}

type sink struct{ msgs []protocol.Message }

func (s *sink) Send(m protocol.Message) error {
	s.msgs = append(s.msgs, m)
	return nil
}

func (s *sink) Close() error { return nil }

func (s *sink) count(e protocol.Event) int {
	n := 0
	for _, m := range s.msgs {
		if m.Event() == e {
			n++
		}
	}
	return n
}

func deadlineSession(timers *[]*fakeTimer) (*Session, *sink) {
	quiz := domain.QuizSnapshot{
		ID: "q",
		Questions: []domain.Question{
			{Text: "one", TimeLimit: 10, Points: 100, Type: domain.MultipleChoice, Options: []domain.Option{{Text: "a", IsCorrect: true}, {Text: "b"}}},
			{Text: "two", TimeLimit: 5, Points: 100, Type: domain.MultipleChoice, Options: []domain.Option{{Text: "a", IsCorrect: true}, {Text: "b"}}},
		},
	}
	host := &sink{}
	s := NewSession("DEAD", quiz, host, WithQuestionDeadline(2*time.Second))
	s.afterFunc = func(d time.Duration, f func()) stopper {
		t := &fakeTimer{after: d, fire: f}
		*timers = append(*timers, t)
		return t
	}
	return s, host
}

func TestDeadlineRevealsUnansweredQuestion(t *testing.T) {
	var timers []*fakeTimer
	s, host := deadlineSession(&timers)
	if err := s.Join("Alice", "", &sink{}); err != nil {
		t.Fatalf("join: %v", err)
	}
	s.Start()

	if len(timers) != 1 || timers[0].after != 12*time.Second {
		t.Fatalf("expected one timer for limit plus grace, got %+v", timers)
	}
	timers[0].fire()

	if s.Phase() != domain.PhaseLeaderboard {
		t.Fatalf("expected reveal on deadline, got %s", s.Phase())
	}
	if host.count(protocol.EventLeaderboard) != 1 {
		t.Fatalf("expected one leaderboard frame")
	}
}

func TestStaleDeadlineIsIgnored(t *testing.T) {
	var timers []*fakeTimer
	s, host := deadlineSession(&timers)
	s.Start()
	s.Advance()

	if !timers[0].stopped {
		t.Fatalf("expected first timer to be stopped when advancing")
	}
	timers[0].fire()
	if s.Phase() != domain.PhaseQuestion || s.QuestionIndex() != 1 {
		t.Fatalf("stale deadline must not reveal the next question, got %s/%d", s.Phase(), s.QuestionIndex())
	}
	if host.count(protocol.EventLeaderboard) != 0 {
		t.Fatalf("unexpected leaderboard from stale timer")
	}

	s.RevealLeaderboard()
	if !timers[1].stopped {
		t.Fatalf("expected manual reveal to stop the timer")
	}
	timers[1].fire()
	if host.count(protocol.EventLeaderboard) != 1 {
		t.Fatalf("expected exactly one reveal, got %d", host.count(protocol.EventLeaderboard))
	}
}

func TestServerClockCapsClaimedTime(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	quiz := domain.QuizSnapshot{
		ID: "q",
		Questions: []domain.Question{
			{Text: "one", TimeLimit: 20, Points: 1000, Type: domain.MultipleChoice, Options: []domain.Option{{Text: "a", IsCorrect: true}}},
		},
	}
	s := NewSession("CLOCK", quiz, &sink{}, WithClock(func() time.Time { return now }))
	player := &sink{}
	if err := s.Join("Alice", "", player); err != nil {
		t.Fatalf("join: %v", err)
	}
	s.Start()
	now = start.Add(10 * time.Second)

	s.SubmitAnswer("Alice", "0", 20)

	for _, m := range player.msgs {
		if fb, ok := m.(protocol.Feedback); ok {
			if fb.PointsAdded != 750 {
				t.Fatalf("expected claim capped at 10s left (750 points), got %d", fb.PointsAdded)
			}
			return
		}
	}
	t.Fatalf("no feedback sent")
}
