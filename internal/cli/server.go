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

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/config"
	"mcq-quiz-service/internal/infra/memory"
	pgloader "mcq-quiz-service/internal/infra/postgres"
	infraredis "mcq-quiz-service/internal/infra/redis"
	transport "mcq-quiz-service/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
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

	// The cache facade degrades per-operation; an unconfigured Redis falls
	// back to the in-process cache so the quiz runs either way.
	var cache app.CacheClient
	if cfg.Redis.Addr != "" {
		cache = infraredis.NewCache(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
	} else {
		log.Printf("no redis configured, using in-process cache")
		cache = memory.NewCache()
	}

	questionSet := cfg.Quiz.QuestionSet
	if questionSet == "" {
		questionSet = "default"
	}
	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(memory.DefaultQuestions())
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = pgloader.NewQuestionLoader(pool, questionSet)
	}

	questionTTL := config.TTLDuration(cfg.Quiz.QuestionTTL, time.Hour)
	questions := infraredis.NewQuestionRepository(cache, loader, questionTTL)
	questions.Warm(ctx)

	sessionTTL := config.TTLDuration(cfg.Redis.SessionTTL, 30*time.Minute)
	registry := app.NewRegistry(cache, sessionTTL)

	rules := rulesFromConfig(cfg)
	aggregator := app.NewAggregator(cache, rules.PassMark)
	service := app.NewQuizService(registry, questions, aggregator, cache, rules)

	wsHandler := transport.NewWSHandler(service)
	statsHandler := transport.NewStatsHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	statsHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

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

func rulesFromConfig(cfg config.Config) app.Rules {
	rules := app.DefaultRules()
	rules.TimeLimit = config.TTLDuration(cfg.Quiz.TimeLimit, rules.TimeLimit)
	rules.FeedbackDelay = config.TTLDuration(cfg.Quiz.FeedbackDelay, rules.FeedbackDelay)
	rules.WelcomeDelay = config.TTLDuration(cfg.Quiz.WelcomeDelay, rules.WelcomeDelay)
	rules.AutoSubmitGrace = config.TTLDuration(cfg.Quiz.AutoSubmitGrace, rules.AutoSubmitGrace)
	rules.ResultHold = config.TTLDuration(cfg.Quiz.ResultHold, rules.ResultHold)
	if cfg.Quiz.MaxAttempts > 0 {
		rules.MaxAttempts = cfg.Quiz.MaxAttempts
	}
	if cfg.Quiz.PassMark > 0 {
		rules.PassMark = cfg.Quiz.PassMark
	}
	if cfg.Quiz.TopN > 0 {
		rules.TopN = cfg.Quiz.TopN
	}
	return rules
}
