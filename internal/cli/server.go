package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
	"trivia-quiz-service/internal/infra/opentdb"
	"trivia-quiz-service/internal/infra/postgres"
	redisinfra "trivia-quiz-service/internal/infra/redis"
	"trivia-quiz-service/internal/logger"
	transport "trivia-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia quiz server",
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

	log, err := logger.New(cfg.Env)
	if err != nil {
		return err
	}
	defer log.Sync()

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
	}

	// Open Trivia DB expires session tokens after six hours of inactivity.
	tokenTTL := config.TTLDuration(cfg.Redis.TokenTTL, 6*time.Hour)
	var tokens opentdb.TokenStore
	if redisClient != nil {
		tokens = redisinfra.NewTokenStore(redisClient, tokenTTL)
	} else {
		tokens = memory.NewTokenStore()
	}

	trivia := opentdb.New(opentdb.Config{
		BaseURL:    cfg.Trivia.URL,
		Timeout:    config.TTLDuration(cfg.Trivia.Timeout, 10*time.Second),
		Difficulty: cfg.Trivia.Difficulty,
		Tokens:     tokens,
		Logger:     log,
	})

	if cfg.Trivia.Category != "" {
		if err := pinCategory(ctx, cfg, redisClient, trivia); err != nil {
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

	var results app.ResultSink
	var resultReader transport.ResultReader
	if pool != nil {
		archive := postgres.NewResultArchive(pool)
		results = archive
		resultReader = archive
	}

	amount := cfg.Trivia.Amount
	if amount <= 0 {
		amount = app.DefaultQuestionCount
	}

	registry := memory.NewRegistry()
	randomizer := app.NewRandomizer()
	newSession := func() *app.Session {
		return app.NewSession(app.SessionConfig{
			Source:        trivia,
			Results:       results,
			Randomizer:    randomizer,
			QuestionCount: amount,
			Logger:        log,
		})
	}

	wsHandler := transport.NewWSHandler(newSession, registry, log)
	statsHandler := transport.NewStatsHandler(registry, resultReader, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.Handle("/stats", statsHandler)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting trivia quiz service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type categorySource interface {
	Categories(ctx context.Context) ([]domain.Category, error)
}

// pinCategory resolves the configured category name against the provider's
// category list (cached in redis when available) and pins the client to it.
func pinCategory(ctx context.Context, cfg config.Config, redisClient *redis.Client, trivia *opentdb.Client) error {
	categoryTTL := config.TTLDuration(cfg.Trivia.CategoryTTL, 24*time.Hour)

	var cache categorySource
	if redisClient != nil {
		cache = redisinfra.NewCategoryCache(redisClient, trivia, categoryTTL)
	} else {
		cache = memory.NewCategoryCache(trivia, categoryTTL)
	}

	categories, err := cache.Categories(ctx)
	if err != nil {
		return err
	}
	id, err := opentdb.ResolveCategory(categories, cfg.Trivia.Category)
	if err != nil {
		return err
	}
	trivia.SetCategoryID(id)
	return nil
}
