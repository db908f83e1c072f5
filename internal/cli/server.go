package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cemse-quiz/internal/app"
	"cemse-quiz/internal/config"
	"cemse-quiz/internal/domain"
	"cemse-quiz/internal/infra/file"
	"cemse-quiz/internal/infra/memory"
	pgstore "cemse-quiz/internal/infra/postgres"
	redisstore "cemse-quiz/internal/infra/redis"
	"cemse-quiz/internal/infra/remote"
	"cemse-quiz/internal/session"
	transport "cemse-quiz/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
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

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader
	switch {
	case pool != nil:
		loader = pgstore.NewQuizLoader(pool)
	case cfg.Quiz.Dir != "":
		loader = file.NewQuizLoader(cfg.Quiz.Dir)
	default:
		loader = memory.NewStaticQuizLoader(sampleQuizzes())
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var attempts app.AttemptRepository
	switch {
	case pool != nil:
		attempts = pgstore.NewAttemptStore(pool)
	case redisClient != nil:
		attempts = redisstore.NewAttemptStore(redisClient, config.TTLDuration(cfg.Attempts.TTL, 30*24*time.Hour))
	default:
		attempts = memory.NewAttemptStore()
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}
	service := app.NewQuizService(store, quizRepo, attempts)

	strategy, err := session.ParseStrategy(cfg.Session.Strategy)
	if err != nil {
		return err
	}
	var scoring session.Remote
	if cfg.Scoring.Endpoint != "" {
		scoring = remote.NewClient(cfg.Scoring.Endpoint, config.TTLDuration(cfg.Scoring.Timeout, 10*time.Second))
	}
	service.SetGrading(strategy, scoring)

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(service, transport.RouterOptions{
			RequireAnswer: cfg.Session.RequireAnswer,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	reapCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	go reapSessions(reapCtx, service, config.TTLDuration(cfg.Session.IdleTimeout, 15*time.Minute))

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
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

// reapSessions ends server-hosted sessions nobody has reconnected to within idle.
func reapSessions(ctx context.Context, service *app.QuizService, idle time.Duration) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			service.ReapDetached(ctx, idle)
		case <-ctx.Done():
			return
		}
	}
}

// sampleQuizzes is served when neither Postgres nor a quiz directory is configured.
func sampleQuizzes() map[string]domain.Quiz {
	limit := 120
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:                 "quiz-1",
			Title:              "Warm-up",
			TimeLimitSeconds:   &limit,
			PassingScore:       60,
			ShowCorrectAnswers: true,
			Questions: []domain.Question{
				{
					ID:            "q1",
					Text:          "What is 2 + 2?",
					Type:          domain.SingleChoice,
					Options:       []string{"3", "4", "5"},
					CorrectAnswer: domain.Text("4"),
					Points:        1,
				},
				{
					ID:            "q2",
					Text:          "Go has generics.",
					Type:          domain.TrueFalse,
					CorrectAnswer: domain.Text("true"),
					Points:        1,
					OrderIndex:    1,
				},
				{
					ID:            "q3",
					Text:          "Which are prime?",
					Type:          domain.MultiSelect,
					Options:       []string{"2", "4", "7", "9"},
					CorrectAnswer: domain.Set("2", "7"),
					Points:        2,
					OrderIndex:    2,
				},
				{
					ID:            "q4",
					Text:          "Name the capital of France.",
					Type:          domain.ShortAnswer,
					CorrectAnswer: domain.Text("Paris"),
					Points:        1,
					OrderIndex:    3,
					Explanation:   "Paris has been the capital since the 10th century.",
				},
			},
		},
	}
}
