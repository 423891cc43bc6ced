package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"studymaster-service/internal/app"
	"studymaster-service/internal/domain"
	"studymaster-service/internal/infra/postgres"
	infraredis "studymaster-service/internal/infra/redis"
)

func TestQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrate(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	subject := domain.Subject{ID: "math", Name: "Mathematics"}
	seeder := postgres.NewQuestionSeeder(pool)
	n, err := seeder.Seed(ctx, subject, sampleQuestions())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 seeded questions, got %d", n)
	}
	if n, err := seeder.Seed(ctx, subject, sampleQuestions()); err != nil || n != 0 {
		t.Fatalf("expected reseed to be a no-op, got %d (%v)", n, err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	questions := infraredis.NewQuestionRepository(redisClient, postgres.NewQuestionLoader(pool), 5*time.Minute)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	clock := app.NewManualClock()
	service := app.NewQuizService(sessions, questions, clock, app.QuizConfig{Policy: app.DefaultPolicy()})

	session, snap, err := service.StartQuiz(ctx, "math")
	if err != nil {
		t.Fatalf("start quiz: %v", err)
	}
	defer service.Leave(ctx, session.ID())
	if snap.Total != 2 || snap.Question.Prompt != "What is 2 + 2?" {
		t.Fatalf("expected questions in seeded order, got %+v", snap)
	}

	if _, _, err := service.SelectAnswer(ctx, session.ID(), "4"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := service.Advance(ctx, session.ID()); err != nil {
		t.Fatalf("advance: %v", err)
	}
	clock.Tick(30)
	if _, _, err := service.SelectAnswer(ctx, session.ID(), "9"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := service.Advance(ctx, session.ID()); err != nil {
		t.Fatalf("advance: %v", err)
	}

	result, err := sessions.Result(ctx, session.ID())
	if err != nil {
		t.Fatalf("load result: %v", err)
	}
	if len(result.Scores) != 2 || result.Scores[0] != 100 || result.Scores[1] != 70 || result.Mean != 85 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if _, err := postgres.NewQuestionLoader(pool).LoadQuestions(ctx, "history"); !errors.Is(err, domain.ErrSubjectNotFound) {
		t.Fatalf("expected subject not found, got %v", err)
	}
}

func TestNoteStoreEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrate(t, ctx, pgURL)

	db := postgres.OpenDB(pgURL)
	defer db.Close()
	svc := app.NewNoteService(postgres.NewNoteStore(db))

	subject, err := svc.CreateSubject(ctx, "Chemistry")
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	note, err := svc.CreateNote(ctx, subject.ID)
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	if _, err := svc.UpdateNote(ctx, note.ID, app.PlaceholderNoteName, "Covalent bonds share electrons"); err != nil {
		t.Fatalf("update note: %v", err)
	}
	closed, err := svc.FinishEditing(ctx, note.ID)
	if err != nil || closed.Name != "Covalent" {
		t.Fatalf("finish editing: %+v (%v)", closed, err)
	}

	notes, err := svc.ListNotes(ctx, subject.ID)
	if err != nil || len(notes) != 1 {
		t.Fatalf("list notes: %+v (%v)", notes, err)
	}

	if err := svc.DeleteSubject(ctx, subject.ID); err != nil {
		t.Fatalf("delete subject: %v", err)
	}
	if _, err := svc.GetNote(ctx, note.ID); !errors.Is(err, domain.ErrNoteNotFound) {
		t.Fatalf("expected cascaded delete, got %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "study", "POSTGRES_PASSWORD": "studypass", "POSTGRES_DB": "studymaster"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
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
	dsn := fmt.Sprintf("postgres://study:studypass@%s:%s/studymaster?sslmode=disable", host, port.Port())
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

func migrate(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	db := postgres.OpenDB(dsn)
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "math-1", SubjectID: "math", Prompt: "What is 2 + 2?", CorrectAnswer: "4", Options: []string{"3", "4", "5"}},
		{ID: "math-2", SubjectID: "math", Prompt: "What is 3 * 3?", CorrectAnswer: "9", Options: []string{"6", "9", "12"}},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
