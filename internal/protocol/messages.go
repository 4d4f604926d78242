// Package protocol defines the frames exchanged with host and player
// connections. Every frame is a flat JSON object tagged by its "type" field.
package protocol

import (
	"quiz-live-service/internal/domain"
)

// Event tags an outbound frame.
type Event string

// Host events.
const (
	EventGameCreated  Event = "GAME_CREATED"
	EventPlayerJoined Event = "PLAYER_JOINED"
	EventPlayerLeft   Event = "PLAYER_LEFT"
	EventAnswerUpdate Event = "ANSWER_UPDATE"
)

// Player events.
const (
	EventGameJoined     Event = "GAME_JOINED"
	EventFeedback       Event = "FEEDBACK"
	EventQuestionResult Event = "QUESTION_RESULT"
)

// Shared events.
const (
	EventNewQuestion Event = "NEW_QUESTION"
	EventLeaderboard Event = "LEADERBOARD"
	EventGameOver    Event = "GAME_OVER"
	EventError       Event = "ERROR"
)

// Message is implemented by every outbound frame.
type Message interface {
	Event() Event
}

type GameCreated struct {
	Pin      string          `json:"pin"`
	Settings domain.Settings `json:"settings"`
}

type PlayerJoined struct {
	Nickname    string                 `json:"nickname"`
	Avatar      string                 `json:"avatar"`
	Count       int                    `json:"count"`
	PlayersList []domain.PlayerSummary `json:"players_list"`
}

type PlayerLeft struct {
	Nickname    string                 `json:"nickname"`
	Count       int                    `json:"count"`
	PlayersList []domain.PlayerSummary `json:"players_list"`
}

// HostQuestion carries the unredacted question, options in display order.
type HostQuestion struct {
	Question domain.Question `json:"question"`
	Index    int             `json:"index"`
	Total    int             `json:"total"`
}

type AnswerUpdate struct {
	Count int `json:"count"`
	Total int `json:"total"`
}

type GameJoined struct {
	Theme string `json:"theme"`
	Score int    `json:"score"`
}

// PlayerQuestion is the participant view of a question. Text, Image and
// Options are blanked when the quiz shows questions on a shared screen only.
type PlayerQuestion struct {
	Text         string              `json:"text"`
	Time         int                 `json:"time"`
	QType        domain.QuestionType `json:"q_type"`
	Image        *string             `json:"image"`
	Options      []string            `json:"options"`
	OptionsCount int                 `json:"options_count"`
}

// Feedback results.
const (
	ResultCorrect = "CORRECT"
	ResultWrong   = "WRONG"
)

type Feedback struct {
	Result        string `json:"result"`
	Score         int    `json:"score"`
	PointsAdded   int    `json:"points_added"`
	Streak        int    `json:"streak"`
	QuestionText  string `json:"question_text"`
	CorrectAnswer string `json:"correct_answer"`
}

type QuestionResult struct {
	IsCorrect   bool `json:"is_correct"`
	ScoreEarned int  `json:"score_earned"`
	TotalScore  int  `json:"total_score"`
	Streak      int  `json:"streak"`
	Rank        int  `json:"rank"`
}

type Leaderboard struct {
	Data []domain.LeaderboardEntry `json:"data"`
}

type GameOver struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

type Error struct {
	Message string `json:"message"`
}

func (GameCreated) Event() Event    { return EventGameCreated }
func (PlayerJoined) Event() Event   { return EventPlayerJoined }
func (PlayerLeft) Event() Event     { return EventPlayerLeft }
func (HostQuestion) Event() Event   { return EventNewQuestion }
func (AnswerUpdate) Event() Event   { return EventAnswerUpdate }
func (GameJoined) Event() Event     { return EventGameJoined }
func (PlayerQuestion) Event() Event { return EventNewQuestion }
func (Feedback) Event() Event       { return EventFeedback }
func (QuestionResult) Event() Event { return EventQuestionResult }
func (Leaderboard) Event() Event    { return EventLeaderboard }
func (GameOver) Event() Event       { return EventGameOver }
func (Error) Event() Event          { return EventError }
