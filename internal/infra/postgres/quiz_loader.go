package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-live-service/internal/domain"
)

// QuizLoader assembles quiz snapshots from the quizzes, questions and options
// tables written by the authoring side.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.QuizSnapshot, error) {
	id, err := strconv.ParseInt(quizID, 10, 64)
	if err != nil {
		return domain.QuizSnapshot{}, domain.ErrQuizNotFound
	}

	quiz := domain.QuizSnapshot{ID: quizID}
	var rawSettings []byte
	err = l.pool.QueryRow(ctx, `SELECT title, theme, settings FROM quizzes WHERE id=$1`, id).
		Scan(&quiz.Title, &quiz.Theme, &rawSettings)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizSnapshot{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizSnapshot{}, fmt.Errorf("load quiz: %w", err)
	}
	if len(rawSettings) > 0 {
		if err := json.Unmarshal(rawSettings, &quiz.Settings); err != nil {
			return domain.QuizSnapshot{}, fmt.Errorf("unmarshal quiz settings: %w", err)
		}
	}

	questionIDs, err := l.loadQuestions(ctx, id, &quiz)
	if err != nil {
		return domain.QuizSnapshot{}, err
	}
	if err := l.loadOptions(ctx, id, questionIDs, &quiz); err != nil {
		return domain.QuizSnapshot{}, err
	}
	return quiz, nil
}

// loadQuestions appends questions in play order and returns their row id → index.
func (l *QuizLoader) loadQuestions(ctx context.Context, quizID int64, quiz *domain.QuizSnapshot) (map[int64]int, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, text, time_limit, points, question_type, image_url
		FROM questions WHERE quiz_id=$1 ORDER BY position, id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	index := make(map[int64]int)
	for rows.Next() {
		var (
			rowID int64
			q     domain.Question
			qType string
		)
		if err := rows.Scan(&rowID, &q.Text, &q.TimeLimit, &q.Points, &qType, &q.Image); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Type = domain.QuestionType(qType)
		index[rowID] = len(quiz.Questions)
		quiz.Questions = append(quiz.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return index, nil
}

func (l *QuizLoader) loadOptions(ctx context.Context, quizID int64, questionIDs map[int64]int, quiz *domain.QuizSnapshot) error {
	rows, err := l.pool.Query(ctx, `
		SELECT o.question_id, o.text, o.is_correct
		FROM options o JOIN questions q ON q.id = o.question_id
		WHERE q.quiz_id=$1 ORDER BY o.question_id, o.position, o.id`, quizID)
	if err != nil {
		return fmt.Errorf("load options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			questionID int64
			opt        domain.Option
		)
		if err := rows.Scan(&questionID, &opt.Text, &opt.IsCorrect); err != nil {
			return fmt.Errorf("scan option: %w", err)
		}
		if i, ok := questionIDs[questionID]; ok {
			quiz.Questions[i].Options = append(quiz.Questions[i].Options, opt)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load options: %w", err)
	}
	return nil
}
