package app

import (
	"math"
	"strconv"
	"strings"

	"quiz-live-service/internal/domain"
)

// markTolerance is the largest distance, in the caller's coordinate units,
// at which a marked answer still counts as a hit.
const markTolerance = 8.0

// Verdict is the outcome of judging one answer.
type Verdict struct {
	Correct bool
	Points  int
}

// Judge decides whether answer is right for q and how many points it earns.
// order is the option order shown to players for this question; index based
// answers are resolved against it. Malformed answers are simply wrong.
func Judge(q domain.Question, order []domain.Option, answer string, timeLeft float64) Verdict {
	var correct bool
	switch q.Type {
	case domain.Poll:
		return Verdict{Correct: true}
	case domain.Typing:
		correct = len(q.Options) > 0 &&
			strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.Options[0].Text))
	case domain.MarkedAnswer:
		correct = len(q.Options) > 0 && withinMark(answer, q.Options[0].Text)
	default:
		idx, ok := parseIndex(answer)
		correct = ok && idx >= 0 && idx < len(order) && order[idx].IsCorrect
	}
	if !correct || math.IsNaN(timeLeft) {
		return Verdict{}
	}
	return Verdict{Correct: true, Points: Points(q.Points, timeLeft, q.TimeLimit)}
}

// Points returns floor(max * (0.5 + 0.5*timeLeft/timeLimit)) with timeLeft
// clamped to [0, timeLimit]. A correct answer is always worth at least half.
func Points(maxPoints int, timeLeft float64, timeLimit int) int {
	if maxPoints <= 0 {
		return 0
	}
	if timeLimit <= 0 {
		return maxPoints
	}
	limit := float64(timeLimit)
	timeLeft = math.Max(0, math.Min(timeLeft, limit))
	return int(math.Floor(float64(maxPoints) * (0.5 + 0.5*timeLeft/limit)))
}

// CorrectAnswerText is the human readable answer shown in feedback.
func CorrectAnswerText(q domain.Question, order []domain.Option) string {
	switch q.Type {
	case domain.MultipleChoice, domain.TrueFalse:
		for _, opt := range order {
			if opt.IsCorrect {
				return opt.Text
			}
		}
	case domain.Typing:
		if len(q.Options) > 0 {
			return q.Options[0].Text
		}
	}
	return ""
}

func parseIndex(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func withinMark(answer, target string) bool {
	ax, ay, ok := parsePoint(answer)
	if !ok {
		return false
	}
	tx, ty, ok := parsePoint(target)
	if !ok {
		return false
	}
	return math.Hypot(ax-tx, ay-ty) <= markTolerance
}

func parsePoint(raw string) (float64, float64, bool) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errX != nil || errY != nil || isBad(x) || isBad(y) {
		return 0, 0, false
	}
	return x, y, true
}

func isBad(f float64) bool { return math.IsNaN(f) || math.IsInf(f, 0) }
