package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"quiz-live-service/internal/app"
	"quiz-live-service/internal/config"
	"quiz-live-service/internal/domain"
	"quiz-live-service/internal/infra/memory"
	pgloader "quiz-live-service/internal/infra/postgres"
	redisinfra "quiz-live-service/internal/infra/redis"
	transport "quiz-live-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), opts)
		},
	}
}

func runServer(ctx context.Context, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg); err != nil {
			return err
		}
	}

	port := opts.port
	if port == "" {
		port = cfg.Server.Port
	}
	if port == "" {
		port = "8080"
	}
	publicURL := cfg.Server.PublicURL
	if publicURL == "" {
		publicURL = "http://localhost:" + port
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	var pins app.PinDirectory
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
		pins = redisinfra.NewPinDirectory(redisClient, redisTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		pins = memory.NewPinDirectory()
	}

	var sessionOpts []app.SessionOption
	if cfg.QuestionDeadlineEnabled() {
		sessionOpts = append(sessionOpts, app.WithQuestionDeadline(config.TTLDuration(cfg.Game.DeadlineGrace, 2*time.Second)))
	}
	registry := app.NewRegistry(pins, app.WithSessionOptions(sessionOpts...))

	wsHandler := transport.NewWSHandler(registry, quizRepo,
		transport.WithSendBuffer(cfg.Game.SendBuffer),
		transport.WithVerbose(opts.verbose),
	)
	qrHandler := transport.NewQRHandler(registry, publicURL)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           transport.NewRouter(wsHandler, qrHandler),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes is served when no Postgres URL is configured.
func sampleQuizzes() map[string]domain.QuizSnapshot {
	return map[string]domain.QuizSnapshot{
		"1": {
			ID:       "1",
			Title:    "Warm-up",
			Theme:    domain.DefaultTheme,
			Settings: domain.Settings{"shuffle_options": true, "show_question_on_player": true},
			Questions: []domain.Question{
				{
					Text:      "What is 2 + 2?",
					TimeLimit: 20,
					Points:    1000,
					Type:      domain.MultipleChoice,
					Options: []domain.Option{
						{Text: "3"},
						{Text: "4", IsCorrect: true},
						{Text: "5"},
					},
				},
				{
					Text:      "The Moon orbits the Earth.",
					TimeLimit: 10,
					Points:    500,
					Type:      domain.TrueFalse,
					Options: []domain.Option{
						{Text: "True", IsCorrect: true},
						{Text: "False"},
					},
				},
				{
					Text:      "Capital of France?",
					TimeLimit: 30,
					Points:    1000,
					Type:      domain.Typing,
					Options:   []domain.Option{{Text: "Paris", IsCorrect: true}},
				},
				{
					Text:      "Which snack do you prefer?",
					TimeLimit: 15,
					Type:      domain.Poll,
					Options:   []domain.Option{{Text: "Sweet"}, {Text: "Salty"}},
				},
			},
		},
	}
}
