package app_test

import (
	"sync"
	"time"

	"quiz-live-service/internal/app"
	"quiz-live-service/internal/domain"
	"quiz-live-service/internal/protocol"
)

// recordingConn captures every frame a session sends to it.
type recordingConn struct {
	mu     sync.Mutex
	msgs   []protocol.Message
	closed bool
	broken bool
}

func (c *recordingConn) Send(m protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken || c.closed {
		return domain.ErrConnClosed
	}
	c.msgs = append(c.msgs, m)
	return nil
}

func (c *recordingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordingConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *recordingConn) all() []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Message(nil), c.msgs...)
}

func (c *recordingConn) events() []protocol.Event {
	var out []protocol.Event
	for _, m := range c.all() {
		out = append(out, m.Event())
	}
	return out
}

func (c *recordingConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = nil
}

func messagesOf[T protocol.Message](c *recordingConn) []T {
	var out []T
	for _, m := range c.all() {
		if typed, ok := m.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

func lastOf[T protocol.Message](c *recordingConn) (T, bool) {
	msgs := messagesOf[T](c)
	if len(msgs) == 0 {
		var zero T
		return zero, false
	}
	return msgs[len(msgs)-1], true
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTestSession(quiz domain.QuizSnapshot, host app.Conn) *app.Session {
	return app.NewSession("123456", quiz, host, app.WithClock(fixedClock))
}

// twoQuestionQuiz has two 1000 point multiple choice questions whose correct
// option sits at index 1.
func twoQuestionQuiz() domain.QuizSnapshot {
	return domain.QuizSnapshot{
		ID:    "quiz-1",
		Title: "Arithmetic",
		Theme: "space",
		Settings: domain.Settings{
			"show_question_on_player": true,
		},
		Questions: []domain.Question{
			mcQuestion("What is 2 + 2?", 1000),
			mcQuestion("What is 3 + 3?", 1000),
		},
	}
}

func mcQuestion(text string, points int) domain.Question {
	return domain.Question{
		Text:      text,
		TimeLimit: 20,
		Points:    points,
		Type:      domain.MultipleChoice,
		Options: []domain.Option{
			{Text: "wrong"},
			{Text: "right", IsCorrect: true},
			{Text: "also wrong"},
		},
	}
}

func join(s *app.Session, nickname string) *recordingConn {
	conn := &recordingConn{}
	if err := s.Join(nickname, "", conn); err != nil {
		panic(err)
	}
	return conn
}
