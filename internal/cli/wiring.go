package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"jsquiz-service/data"
	"jsquiz-service/internal/app"
	"jsquiz-service/internal/config"
	"jsquiz-service/internal/infra/amqp"
	"jsquiz-service/internal/infra/files"
	"jsquiz-service/internal/infra/memory"
	"jsquiz-service/internal/infra/postgres"
	redisstore "jsquiz-service/internal/infra/redis"
	"jsquiz-service/internal/infra/sqlite"
)

// stack is the fully wired service plus the resources it holds open.
type stack struct {
	service *app.QuizService
	closers []func()
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// buildStack connects the configured backends. Anything left unset falls back to memory
// and the embedded theme files.
func buildStack(ctx context.Context, cfg config.Config) (*stack, error) {
	st := &stack{}
	fail := func(err error) (*stack, error) {
		st.Close()
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		st.closers = append(st.closers, func() { redisClient.Close() })
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return fail(err)
		}
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fail(fmt.Errorf("connect to postgres: %w", err))
		}
		st.closers = append(st.closers, pool.Close)
	}

	loader := themeLoader(cfg, pool)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var themes app.ThemeRepository
	if redisClient != nil {
		themes = redisstore.NewThemeRepository(redisClient, loader, quizTTL)
	} else {
		themes = memory.NewThemeRepository(loader, quizTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	profiles, err := profileRepository(ctx, cfg, redisClient, st)
	if err != nil {
		return fail(err)
	}

	publisher, err := amqp.NewResultPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
	if err != nil {
		return fail(err)
	}
	st.closers = append(st.closers, func() {
		if err := publisher.Close(); err != nil {
			log.Printf("close amqp publisher: %v", err)
		}
	})

	st.service = app.NewQuizService(sessions, themes, profiles,
		app.WithQuestionCount(cfg.QuestionCount(app.DefaultQuestionCount)),
		app.WithTimeLimit(config.TTLDuration(cfg.Quiz.QuestionTimeLimit, app.DefaultQuestionTimeLimit)),
		app.WithResultPublisher(publisher),
	)
	return st, nil
}

// themeLoader prefers Postgres, then a data directory, then the embedded themes.
func themeLoader(cfg config.Config, pool *pgxpool.Pool) memory.ThemeLoader {
	switch {
	case pool != nil:
		return postgres.NewThemeLoader(pool)
	case cfg.Quiz.DataDir != "":
		return files.NewThemeLoader(os.DirFS(cfg.Quiz.DataDir))
	default:
		return files.NewThemeLoader(data.Themes)
	}
}

func profileRepository(ctx context.Context, cfg config.Config, redisClient *redis.Client, st *stack) (app.ProfileRepository, error) {
	switch cfg.Profiles.Backend {
	case "", "memory":
		return memory.NewProfileStore(), nil
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("profiles backend redis needs redis.addr")
		}
		return redisstore.NewProfileStore(redisClient), nil
	case "sqlite":
		store, err := sqlite.NewProfileStore(ctx, cfg.Profiles.SQLitePath)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() { store.Close() })
		return store, nil
	default:
		return nil, fmt.Errorf("unknown profiles backend %q", cfg.Profiles.Backend)
	}
}
