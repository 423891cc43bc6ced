package cli

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"studymaster-service/internal/config"
	"studymaster-service/internal/infra/memory"
	"studymaster-service/internal/infra/postgres"
	redisstore "studymaster-service/internal/infra/redis"
)

// NewSeedCmd loads the bundled question bank into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var shuffle bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the sample question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, shuffle)
		},
	}
	cmd.Flags().BoolVar(&shuffle, "shuffle", true, "store questions in random order")
	return cmd
}

func runSeed(ctx context.Context, configPath string, shuffle bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	seeder := postgres.NewQuestionSeeder(pool)
	var cache *redisstore.QuestionRepository
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		cache = redisstore.NewQuestionRepository(client, postgres.NewQuestionLoader(pool), 0)
	}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	bank := memory.SampleQuestions()
	for _, subject := range memory.SampleSubjects() {
		questions := bank[subject.ID]
		if shuffle {
			questions = memory.ShuffledQuestions(questions, rnd)
		}
		n, err := seeder.Seed(ctx, subject, questions)
		if err != nil {
			return fmt.Errorf("seed %s: %w", subject.ID, err)
		}
		log.Printf("seeded %d questions for subject %s", n, subject.ID)
		if cache != nil && n > 0 {
			if err := cache.Invalidate(ctx, subject.ID); err != nil {
				log.Printf("invalidate cached questions for %s: %v", subject.ID, err)
			}
		}
	}
	return nil
}
