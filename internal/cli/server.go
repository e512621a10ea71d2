package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/config"
	"trivia-session-service/internal/infra/events"
	"trivia-session-service/internal/infra/media"
	"trivia-session-service/internal/infra/memory"
	pgstore "trivia-session-service/internal/infra/postgres"
	redisstore "trivia-session-service/internal/infra/redis"
	transport "trivia-session-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg)

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
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var quizRepo app.QuizRepository
	switch {
	case pool != nil:
		quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
		quizRepo = memory.NewCachedQuizRepository(pgstore.NewQuizRepository(pool), quizTTL)
	case redisClient != nil:
		quizRepo = redisstore.NewQuizRepository(redisClient)
	default:
		quizRepo = memory.NewQuizStore()
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour))
	} else {
		sessions = memory.NewSessionStore()
	}

	var publisher app.EventPublisher
	if cfg.NATS.URL != "" {
		pub, err := events.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			return err
		}
		defer pub.Close()
		publisher = pub
	}

	defaults := app.DefaultGameConfig()
	gameCfg := app.GameConfig{
		MaxPlayers:    cfg.Game.MaxPlayers,
		RevealPause:   config.TTLDuration(cfg.Game.RevealPause, defaults.RevealPause),
		StrictAnswers: cfg.Game.StrictAnswers,
		SessionTTL:    config.TTLDuration(cfg.Game.SessionTTL, defaults.SessionTTL),
		ReapInterval:  config.TTLDuration(cfg.Game.ReapInterval, defaults.ReapInterval),
	}

	quizzes := app.NewQuizService(quizRepo, media.NewYouTubeResolver(),
		config.TTLDuration(cfg.Game.DefaultQuestionDuration, app.DefaultQuestionDuration*time.Second))
	games := app.NewGameService(sessions, quizRepo, app.NewRegistry(),
		app.WithGameConfig(gameCfg),
		app.WithPublisher(publisher),
	)
	defer games.Close()

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(quizzes, games),
		ReadTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("starting trivia server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		games.RunReaper(groupCtx)
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
