package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/domain"
	pgloader "mcq-quiz-service/internal/infra/postgres"
	pgmigrations "mcq-quiz-service/internal/infra/postgres/migrations"
	infraredis "mcq-quiz-service/internal/infra/redis"
)

func TestQuizRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestions(t, ctx, pgURL, "default", sampleQuestions())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	cache := infraredis.NewCache(redisClient)
	loader := pgloader.NewQuestionLoader(pool, "default")
	questions := infraredis.NewQuestionRepository(cache, loader, 5*time.Minute)
	registry := app.NewRegistry(cache, 5*time.Minute)
	aggregator := app.NewAggregator(cache, 70)
	rules := app.Rules{
		TimeLimit:       2 * time.Second,
		FeedbackDelay:   10 * time.Millisecond,
		WelcomeDelay:    10 * time.Millisecond,
		AutoSubmitGrace: 10 * time.Millisecond,
		ResultHold:      50 * time.Millisecond,
		MaxAttempts:     3,
		PassMark:        70,
		TopN:            10,
	}
	service := app.NewQuizService(registry, questions, aggregator, cache, rules)

	session, err := service.Connect(ctx)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	var results app.ResultsMessage
	timeout := time.After(15 * time.Second)
drive:
	for {
		select {
		case msg, ok := <-session.Outbound():
			if !ok {
				t.Fatalf("session closed before results")
			}
			switch m := msg.(type) {
			case app.QuestionMessage:
				session.Select(1)
				session.Submit(1)
			case app.ResultsMessage:
				results = m
				break drive
			}
		case <-timeout:
			t.Fatalf("quiz run did not finish")
		}
	}

	if results.Score != 1 || results.Percentage != 100 {
		t.Fatalf("expected perfect run, got %+v", results)
	}

	// Question set was loaded from postgres and mirrored into redis.
	if n, err := redisClient.Exists(ctx, "quiz:questions").Result(); err != nil || n != 1 {
		t.Fatalf("expected quiz:questions cached, exists=%d err=%v", n, err)
	}

	// The completed run landed in the shared leaderboard and counters.
	members, err := redisClient.ZRevRangeWithScores(ctx, "quiz:leaderboard", 0, -1).Result()
	if err != nil || len(members) != 1 {
		t.Fatalf("expected one leaderboard member, got %v err=%v", members, err)
	}
	if members[0].Score != 100 {
		t.Fatalf("expected score 100, got %v", members[0].Score)
	}
	var entry domain.RankingEntry
	if err := json.Unmarshal([]byte(members[0].Member.(string)), &entry); err != nil {
		t.Fatalf("unmarshal leaderboard member: %v", err)
	}
	if entry.SessionID != session.ID() || entry.Percentage != 100 {
		t.Fatalf("unexpected leaderboard entry: %+v", entry)
	}

	if got, err := redisClient.Get(ctx, "quiz:stats:total_attempts").Result(); err != nil || got != "1" {
		t.Fatalf("expected 1 attempt recorded, got %q err=%v", got, err)
	}
	if got, err := redisClient.Get(ctx, "quiz:stats:passed").Result(); err != nil || got != "1" {
		t.Fatalf("expected 1 pass recorded, got %q err=%v", got, err)
	}
	if got, err := redisClient.Get(ctx, "quiz:stats:average_score").Result(); err != nil || got != "100.00" {
		t.Fatalf("expected average 100, got %q err=%v", got, err)
	}

	stats := service.Stats(ctx)
	if stats.TotalAttempts != 1 || stats.Passed != 1 || stats.AverageScore != 100 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if !service.Reset(ctx) {
		t.Fatalf("reset failed")
	}
	if n, err := redisClient.Exists(ctx, "quiz:leaderboard").Result(); err != nil || n != 0 {
		t.Fatalf("expected leaderboard cleared, exists=%d err=%v", n, err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuestions(t *testing.T, ctx context.Context, dsn, set string, questions []domain.Question) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(questions)
	if err != nil {
		t.Fatalf("marshal questions: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO question_sets (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, set, string(data)); err != nil {
		t.Fatalf("insert question set: %v", err)
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:            1,
			Text:          "What is 2 + 2?",
			Options:       []string{"3", "4", "5", "6"},
			CorrectOption: 1,
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
