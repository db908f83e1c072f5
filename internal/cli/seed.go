package cli

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"cemse-quiz/internal/config"
	"cemse-quiz/internal/infra/file"
	pgstore "cemse-quiz/internal/infra/postgres"
	redisstore "cemse-quiz/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewSeedCmd copies YAML quiz definitions into Postgres. When Redis is configured the
// cached copies are dropped so running servers reload the new definitions.
func NewSeedCmd(configPath *string) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load quiz YAML files into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Quiz.Dir
			}
			if dir == "" {
				return fmt.Errorf("quiz directory not configured")
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			ctx := cmd.Context()
			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()
			loader := pgstore.NewQuizLoader(pool)

			var cache *redisstore.QuizRepository
			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				defer client.Close()
				cache = redisstore.NewQuizRepository(client, loader, config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute))
			}

			entries, err := os.ReadDir(dir)
			if err != nil {
				return err
			}
			seeded := 0
			for _, e := range entries {
				ext := filepath.Ext(e.Name())
				if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
					continue
				}
				quiz, err := file.ReadQuiz(filepath.Join(dir, e.Name()))
				if err != nil {
					return err
				}
				if quiz.ID == "" {
					quiz.ID = e.Name()[:len(e.Name())-len(ext)]
				}
				if err := quiz.Validate(); err != nil {
					return fmt.Errorf("%s: %w", e.Name(), err)
				}
				if err := loader.SaveQuiz(ctx, quiz); err != nil {
					return err
				}
				if cache != nil {
					if err := cache.Invalidate(ctx, quiz.ID); err != nil {
						log.Printf("invalidate cached quiz %s: %v", quiz.ID, err)
					}
				}
				seeded++
			}
			log.Printf("seeded %d quizzes from %s", seeded, dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory of quiz YAML files (default quiz.dir)")
	return cmd
}
