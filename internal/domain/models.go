package domain

// QuestionType selects how an answer is judged.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	Typing         QuestionType = "typing"
	MarkedAnswer   QuestionType = "marked_answer"
	Poll           QuestionType = "poll"
)

// Phase is the position of a session in its state machine.
type Phase string

const (
	PhaseLobby       Phase = "LOBBY"
	PhaseQuestion    Phase = "QUESTION"
	PhaseLeaderboard Phase = "LEADERBOARD"
	PhaseEnd         Phase = "END"
)

const (
	DefaultTheme  = "standard"
	DefaultAvatar = "👤"
)

// Option represents a possible answer for a question.
// For typing questions the first option holds the canonical answer, for
// marked_answer questions it holds the target coordinate as "x,y".
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question is one step of a quiz. TimeLimit is in seconds.
type Question struct {
	Text      string       `json:"text"`
	TimeLimit int          `json:"time"`
	Points    int          `json:"points"`
	Type      QuestionType `json:"type"`
	Image     *string      `json:"image"`
	Options   []Option     `json:"options"`
}

// Settings carries per-quiz flags. Unknown keys are kept so they can be echoed
// back to the host untouched.
type Settings map[string]any

func (s Settings) ShuffleOptions() bool       { return s.flag("shuffle_options") }
func (s Settings) ShowQuestionOnPlayer() bool { return s.flag("show_question_on_player") }

func (s Settings) flag(key string) bool {
	v, _ := s[key].(bool)
	return v
}

// QuizSnapshot is the read-only quiz content a session plays through.
type QuizSnapshot struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Theme     string     `json:"theme"`
	Settings  Settings   `json:"settings"`
	Questions []Question `json:"questions"`
}

// Clone returns a deep copy so a session never shares state with the store it
// was loaded from.
func (q QuizSnapshot) Clone() QuizSnapshot {
	out := q
	if q.Settings != nil {
		out.Settings = make(Settings, len(q.Settings))
		for k, v := range q.Settings {
			out.Settings[k] = cloneValue(v)
		}
	}
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		cp := question
		if question.Image != nil {
			img := *question.Image
			cp.Image = &img
		}
		cp.Options = append([]Option(nil), question.Options...)
		out.Questions[i] = cp
	}
	return out
}

// cloneValue copies the containers decoded JSON can hold.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case Settings:
		out := make(Settings, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}

// ThemeOrDefault returns the quiz theme, falling back to the standard one.
func (q QuizSnapshot) ThemeOrDefault() string {
	if q.Theme == "" {
		return DefaultTheme
	}
	return q.Theme
}

// LeaderboardEntry is one row of the aggregate leaderboard.
type LeaderboardEntry struct {
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
}

// PlayerSummary is the roster view the host sees.
type PlayerSummary struct {
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}
