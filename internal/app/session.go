package app

import (
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"quiz-live-service/internal/domain"
	"quiz-live-service/internal/protocol"
)

// leaderboardSize caps the aggregate leaderboard; personal ranks cover everyone.
const leaderboardSize = 50

const closedMessage = "game closed"

type participant struct {
	nickname    string
	avatar      string
	conn        Conn
	connected   bool
	score       int
	streak      int
	hasAnswered bool
	lastCorrect bool
	lastPoints  int
}

type stopper interface {
	Stop() bool
}

// Session is one running game. Every exported method takes the session lock
// for the whole mutate-then-broadcast sequence, so outbound frames for one
// operation are queued before any other operation starts.
type Session struct {
	pin  string
	quiz domain.QuizSnapshot
	host Conn

	now        func() time.Time
	rnd        *rand.Rand
	afterFunc  func(time.Duration, func()) stopper
	grace      time.Duration
	onQuestion func(pin string)

	mu           sync.Mutex
	phase        domain.Phase
	index        int
	round        int
	order        []domain.Option
	startedAt    time.Time
	deadline     stopper
	participants map[string]*participant
	joinOrder    []*participant
	closed       bool
}

// SessionOption customises a Session at construction.
type SessionOption func(*Session)

// WithClock replaces time.Now, mainly for deterministic tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithRand sets the source used to shuffle options.
func WithRand(rnd *rand.Rand) SessionOption {
	return func(s *Session) { s.rnd = rnd }
}

// WithQuestionDeadline makes the server reveal the leaderboard on its own once
// a question has been live for its time limit plus grace.
func WithQuestionDeadline(grace time.Duration) SessionOption {
	return func(s *Session) {
		s.grace = grace
		s.afterFunc = func(d time.Duration, f func()) stopper { return time.AfterFunc(d, f) }
	}
}

// withQuestionStarted runs f with the PIN each time a question goes live.
func withQuestionStarted(f func(pin string)) SessionOption {
	return func(s *Session) { s.onQuestion = f }
}

// NewSession builds a session in the lobby. The quiz is copied.
func NewSession(pin string, quiz domain.QuizSnapshot, host Conn, opts ...SessionOption) *Session {
	s := &Session{
		pin:          pin,
		quiz:         quiz.Clone(),
		host:         host,
		now:          time.Now,
		phase:        domain.PhaseLobby,
		index:        -1,
		participants: make(map[string]*participant),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

func (s *Session) Pin() string { return s.pin }

// Quiz returns the session's private snapshot. Callers must not modify it.
func (s *Session) Quiz() domain.QuizSnapshot { return s.quiz }

func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// QuestionIndex is -1 until the game starts.
func (s *Session) QuestionIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Leaderboard returns the current aggregate leaderboard.
func (s *Session) Leaderboard() []domain.LeaderboardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaderboardLocked()
}

// Join admits a participant in any phase. A nickname held by a connected
// participant is refused; one held by a disconnected participant is taken
// over, keeping its score.
func (s *Session) Join(nickname, avatar string, conn Conn) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return domain.ErrInvalidNickname
	}
	if avatar == "" {
		avatar = domain.DefaultAvatar
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSessionNotFound
	}
	p, ok := s.participants[nickname]
	switch {
	case ok && p.connected:
		return domain.ErrNicknameTaken
	case ok:
		p.conn = conn
		p.avatar = avatar
		p.connected = true
	default:
		p = &participant{nickname: nickname, avatar: avatar, conn: conn, connected: true}
		s.participants[nickname] = p
		s.joinOrder = append(s.joinOrder, p)
	}

	roster := s.rosterLocked()
	deliver(s.host, protocol.PlayerJoined{
		Nickname:    nickname,
		Avatar:      avatar,
		Count:       len(roster),
		PlayersList: roster,
	})
	deliver(conn, protocol.GameJoined{Theme: s.quiz.ThemeOrDefault(), Score: p.score})

	switch s.phase {
	case domain.PhaseQuestion:
		deliver(conn, s.playerQuestionLocked())
	case domain.PhaseLeaderboard:
		// nothing to report for a question they did not play
		deliver(conn, protocol.Leaderboard{Data: s.leaderboardLocked()})
	case domain.PhaseEnd:
		deliver(conn, protocol.GameOver{Leaderboard: s.leaderboardLocked()})
	}
	return nil
}

// Leave marks the participant bound to conn as disconnected. Their score stays
// on the leaderboard but they no longer count towards the answered total.
func (s *Session) Leave(nickname string, conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[nickname]
	if !ok || !p.connected || p.conn != conn {
		return
	}
	p.connected = false

	roster := s.rosterLocked()
	deliver(s.host, protocol.PlayerLeft{Nickname: nickname, Count: len(roster), PlayersList: roster})
	if s.phase == domain.PhaseQuestion {
		s.reportAnswersLocked()
	}
}

// Start moves from the lobby to the first question.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != domain.PhaseLobby {
		return
	}
	s.index = 0
	if len(s.quiz.Questions) == 0 {
		s.endLocked()
		return
	}
	s.beginQuestionLocked()
}

// Advance moves to the next question, or ends the game after the last one.
func (s *Session) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || (s.phase != domain.PhaseQuestion && s.phase != domain.PhaseLeaderboard) {
		return
	}
	s.index++
	if s.index >= len(s.quiz.Questions) {
		s.endLocked()
		return
	}
	s.beginQuestionLocked()
}

// RevealLeaderboard closes the live question and publishes standings.
func (s *Session) RevealLeaderboard() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase != domain.PhaseQuestion {
		return
	}
	s.revealLocked()
}

// End finishes the game from any phase. The session stays registered so the
// final standings remain available.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.phase == domain.PhaseEnd {
		return
	}
	s.endLocked()
}

// SubmitAnswer judges a participant's answer for the live question. Only the
// first answer per question counts; anything outside a live question is ignored.
func (s *Session) SubmitAnswer(nickname, answer string, timeLeft float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[nickname]
	if s.closed || !ok || !p.connected || p.hasAnswered || s.phase != domain.PhaseQuestion {
		return
	}
	p.hasAnswered = true

	q := s.quiz.Questions[s.index]
	verdict := Judge(q, s.order, answer, s.serverTimeLeftLocked(q, timeLeft))
	if verdict.Correct && q.Type != domain.Poll {
		p.streak++
		p.score += verdict.Points
	} else if !verdict.Correct {
		p.streak = 0
	}
	p.lastCorrect = verdict.Correct
	p.lastPoints = verdict.Points

	result := protocol.ResultWrong
	if verdict.Correct {
		result = protocol.ResultCorrect
	}
	deliver(p.conn, protocol.Feedback{
		Result:        result,
		Score:         p.score,
		PointsAdded:   verdict.Points,
		Streak:        p.streak,
		QuestionText:  q.Text,
		CorrectAnswer: CorrectAnswerText(q, s.order),
	})
	s.reportAnswersLocked()
}

// Shutdown tells every connected participant the game is gone and closes all
// connections, host included. Later calls do nothing.
func (s *Session) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.stopDeadlineLocked()
	for _, p := range s.joinOrder {
		if !p.connected {
			continue
		}
		p.connected = false
		deliver(p.conn, protocol.Error{Message: closedMessage})
		_ = p.conn.Close()
	}
	if s.host != nil {
		deliver(s.host, protocol.Error{Message: closedMessage})
		_ = s.host.Close()
	}
}

func (s *Session) beginQuestionLocked() {
	s.stopDeadlineLocked()
	for _, p := range s.joinOrder {
		p.hasAnswered = false
		p.lastCorrect = false
		p.lastPoints = 0
	}

	q := s.quiz.Questions[s.index]
	order := append([]domain.Option(nil), q.Options...)
	if s.quiz.Settings.ShuffleOptions() {
		s.rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	s.order = order
	s.phase = domain.PhaseQuestion
	s.round++
	s.startedAt = s.now()

	hostView := q
	hostView.Options = append([]domain.Option(nil), order...)
	deliver(s.host, protocol.HostQuestion{Question: hostView, Index: s.index, Total: len(s.quiz.Questions)})
	fanOut(s.connsLocked(), s.playerQuestionLocked())

	if s.onQuestion != nil {
		s.onQuestion(s.pin)
	}
	if s.afterFunc != nil && q.TimeLimit > 0 {
		round := s.round
		limit := time.Duration(q.TimeLimit)*time.Second + s.grace
		s.deadline = s.afterFunc(limit, func() { s.expire(round) })
	}
}

func (s *Session) expire(round int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.round != round || s.phase != domain.PhaseQuestion {
		return
	}
	s.deadline = nil
	s.revealLocked()
}

func (s *Session) stopDeadlineLocked() {
	if s.deadline != nil {
		s.deadline.Stop()
		s.deadline = nil
	}
}

func (s *Session) playerQuestionLocked() protocol.PlayerQuestion {
	q := s.quiz.Questions[s.index]
	msg := protocol.PlayerQuestion{
		Time:         q.TimeLimit,
		QType:        q.Type,
		Options:      []string{},
		OptionsCount: len(s.order),
	}
	if s.quiz.Settings.ShowQuestionOnPlayer() {
		msg.Text = q.Text
		msg.Image = q.Image
		for _, opt := range s.order {
			msg.Options = append(msg.Options, opt.Text)
		}
	}
	return msg
}

// serverTimeLeftLocked caps the client's claim at what the server observed,
// rounded up to whole seconds.
func (s *Session) serverTimeLeftLocked(q domain.Question, claimed float64) float64 {
	if math.IsNaN(claimed) || q.TimeLimit <= 0 {
		return claimed
	}
	elapsed := s.now().Sub(s.startedAt).Seconds()
	remaining := math.Ceil(float64(q.TimeLimit) - elapsed)
	return math.Min(claimed, remaining)
}

func (s *Session) reportAnswersLocked() {
	answered, total := 0, 0
	for _, p := range s.joinOrder {
		if !p.connected {
			continue
		}
		total++
		if p.hasAnswered {
			answered++
		}
	}
	deliver(s.host, protocol.AnswerUpdate{Count: answered, Total: total})
	if total > 0 && answered == total {
		s.revealLocked()
	}
}

func (s *Session) revealLocked() {
	s.stopDeadlineLocked()
	s.phase = domain.PhaseLeaderboard

	ranked := s.rankedLocked()
	board := protocol.Leaderboard{Data: topEntries(ranked)}
	deliver(s.host, board)
	fanOut(s.connsLocked(), board)

	for i, p := range ranked {
		if !p.connected {
			continue
		}
		deliver(p.conn, protocol.QuestionResult{
			IsCorrect:   p.lastCorrect,
			ScoreEarned: p.lastPoints,
			TotalScore:  p.score,
			Streak:      p.streak,
			Rank:        i + 1,
		})
	}
}

func (s *Session) endLocked() {
	s.stopDeadlineLocked()
	s.phase = domain.PhaseEnd
	s.order = nil

	over := protocol.GameOver{Leaderboard: s.leaderboardLocked()}
	deliver(s.host, over)
	fanOut(s.connsLocked(), over)
}

// rankedLocked orders participants by score, keeping join order among ties.
func (s *Session) rankedLocked() []*participant {
	ranked := append([]*participant(nil), s.joinOrder...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	return ranked
}

func (s *Session) leaderboardLocked() []domain.LeaderboardEntry {
	return topEntries(s.rankedLocked())
}

func topEntries(ranked []*participant) []domain.LeaderboardEntry {
	if len(ranked) > leaderboardSize {
		ranked = ranked[:leaderboardSize]
	}
	entries := make([]domain.LeaderboardEntry, 0, len(ranked))
	for _, p := range ranked {
		entries = append(entries, domain.LeaderboardEntry{Nickname: p.nickname, Score: p.score})
	}
	return entries
}

func (s *Session) rosterLocked() []domain.PlayerSummary {
	roster := make([]domain.PlayerSummary, 0, len(s.joinOrder))
	for _, p := range s.joinOrder {
		if p.connected {
			roster = append(roster, domain.PlayerSummary{Nickname: p.nickname, Avatar: p.avatar})
		}
	}
	return roster
}

func (s *Session) connsLocked() []Conn {
	conns := make([]Conn, 0, len(s.joinOrder))
	for _, p := range s.joinOrder {
		if p.connected {
			conns = append(conns, p.conn)
		}
	}
	return conns
}
