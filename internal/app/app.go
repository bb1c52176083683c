package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/ladder-quiz/internal/auth"
	"github.com/gokatarajesh/ladder-quiz/internal/auth/jwt"
	"github.com/gokatarajesh/ladder-quiz/internal/config"
	"github.com/gokatarajesh/ladder-quiz/internal/db/repository"
	"github.com/gokatarajesh/ladder-quiz/internal/game"
	"github.com/gokatarajesh/ladder-quiz/internal/leaderboard"
	"github.com/gokatarajesh/ladder-quiz/internal/logging"
	"github.com/gokatarajesh/ladder-quiz/internal/metrics"
	"github.com/gokatarajesh/ladder-quiz/internal/play"
	"github.com/gokatarajesh/ladder-quiz/internal/question"
	"github.com/gokatarajesh/ladder-quiz/internal/question/ai"
	"github.com/gokatarajesh/ladder-quiz/internal/question/external"
	"github.com/gokatarajesh/ladder-quiz/internal/server"
	ws "github.com/gokatarajesh/ladder-quiz/pkg/http/ws"
)

// Application aggregates shared infrastructure (store, cache, HTTP server)
// and the background workers of the game service.
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool   *pgxpool.Pool
	sqlite *sql.DB
	redis  *redis.Client
	http   *http.Server

	registry      *play.Registry
	recorder      *leaderboard.Recorder
	lbBroadcaster *leaderboard.Broadcaster
	prewarm       *question.PrewarmWorker
}

// New bootstraps the logger, question store, Redis, game registry and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Str("store", cfg.Store.Driver).Msg("starting application bootstrap")

	a := &Application{cfg: cfg, logger: logger}

	var (
		store interface {
			InsertQuestion(ctx context.Context, q repository.CustomQuestion) (repository.CustomQuestion, error)
			ListQuestions(ctx context.Context, difficulties []string, limit int) ([]repository.CustomQuestion, error)
		}
		checks []server.Check
	)
	switch cfg.Store.Driver {
	case "sqlite":
		db, err := repository.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.sqlite = db
		store = repository.NewSQLiteQuestionStore(db)
		checks = append(checks, server.Check{Name: "sqlite", Ping: db.PingContext})
	default:
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.pool = pool
		store = repository.NewPGQuestionStore(pool)
		checks = append(checks, server.Check{Name: "postgres", Ping: pool.Ping})
	}
	questionRepo := repository.NewQuestionRepository(store)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	a.redis = redisClient
	checks = append(checks, server.Check{Name: "redis", Ping: func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	}})

	gameMetrics, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	// Question sources
	var aiGenerator question.AIGenerator
	switch {
	case cfg.AI.OpenAIKey != "":
		aiGenerator = ai.NewOpenAIGenerator(ai.OpenAIConfig{
			APIKey:  cfg.AI.OpenAIKey,
			Model:   cfg.AI.OpenAIModel,
			BaseURL: cfg.AI.OpenAIBaseURL,
		}, logger)
	case cfg.AI.GeneratorURL != "":
		aiGenerator = ai.NewGenerator(ai.Config{
			GeneratorURL: cfg.AI.GeneratorURL,
			GeneratorKey: cfg.AI.GeneratorKey,
			Timeout:      cfg.AI.HTTPTimeout,
		}, logger)
	default:
		logger.Warn().Msg("no AI generator configured; games use custom, external and built-in questions")
	}

	refill := make(chan game.Tier, len(game.Profiles()))
	questionOpts := question.ServiceOptions{
		Fallback: question.FallbackBank(),
		Observer: gameMetrics,
		Refill:   refill,
	}
	questionCache := question.NewCache(redisClient, cfg.AI.CacheTTL)

	var questionSvc *question.Service
	if cfg.External.Enabled {
		httpClient := &http.Client{Timeout: cfg.External.HTTPTimeout}
		questionSvc = question.NewService(
			questionRepo,
			questionCache,
			external.NewOpenTDBClient(cfg.External.OpenTDBBaseURL, httpClient),
			external.NewTriviaAPIClient(cfg.External.TriviaAPIBaseURL, cfg.External.TriviaAPIKey, httpClient),
			aiGenerator,
			questionOpts,
			logger,
		)
	} else {
		questionSvc = question.NewService(questionRepo, questionCache, nil, nil, aiGenerator, questionOpts, logger)
	}
	if aiGenerator != nil {
		a.prewarm = question.NewPrewarmWorker(questionSvc, refill, cfg.Runtime.PrewarmInterval, cfg.AI.HTTPTimeout*2, logger)
	}

	// Leaderboard
	leaderboardSvc := leaderboard.NewService(redisClient, logger, leaderboard.ServiceOptions{
		TopN:           cfg.Leaderboard.TopN,
		MaxEntries:     cfg.Leaderboard.MaxEntries,
		PubSubChannel:  cfg.Leaderboard.PubSubChannel,
		EntryTTL:       cfg.Leaderboard.EntryTTL,
		RedisKeyPrefix: cfg.Leaderboard.KeyPrefix,
	})
	a.recorder = leaderboard.NewRecorder(leaderboardSvc, 0, 0, logger)

	wsHub := ws.NewHub(logger)
	a.lbBroadcaster = leaderboard.NewBroadcaster(redisClient, wsHub, cfg.Leaderboard.PubSubChannel, logger)

	// Sessions
	tokens := jwt.NewManager(jwt.TokenConfig{
		Secret: []byte(cfg.Security.SessionTokenSecret),
		TTL:    cfg.Security.SessionTokenTTL,
		Issuer: cfg.Name,
	})
	a.registry = play.NewRegistry(gameMetrics.InstrumentSource(questionSvc), wsHub, tokens, play.RegistryOptions{
		Controller: game.ControllerOptions{
			IntroDelay:   cfg.Runtime.IntroDelay,
			FetchTimeout: cfg.Runtime.QuestionFetchTimeout,
		},
		Listeners:    []game.Listener{gameMetrics, a.recorder},
		IdleTTL:      cfg.Runtime.SessionIdleTTL,
		ReapInterval: cfg.Runtime.SessionReapInterval,
		Tracker:      gameMetrics,
	}, logger)
	playHandler := play.NewHandler(a.registry, server.NewWSUpgrader(cfg.CORS.AllowedOrigins), logger)

	var verifier question.KeyVerifier
	if v := auth.NewEditorKeyVerifier(cfg.Security.EditorKeyHash); v != nil {
		verifier = v
	} else {
		logger.Warn().Msg("EDITOR_KEY_HASH not set; question submission is open")
	}
	questionHTTP := question.NewHTTPHandler(questionRepo, verifier, logger)
	lbHTTP := leaderboard.NewHTTPHandler(leaderboardSvc, logger)

	a.http = server.NewHTTPServer(cfg, logger, prometheus.DefaultGatherer, checks, server.Routes{
		GameWS:         playHandler.HandleWebSocket,
		Leaderboard:    lbHTTP.HandleGet,
		CreateQuestion: questionHTTP.HandleCreate,
		ListQuestions:  questionHTTP.HandleList,
	})

	return a, nil
}

// Run starts the HTTP server and workers and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	bgCtx, cancelWorkers := context.WithCancel(ctx)
	done := a.startBackgroundWorkers(bgCtx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	cancelWorkers()
	if a.prewarm != nil {
		a.prewarm.Stop()
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		a.logger.Warn().Msg("background workers did not stop in time")
	}

	a.close()
	a.logger.Info().Msg("shutdown complete")
	return runErr
}

func (a *Application) startBackgroundWorkers(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	registryDone := make(chan struct{})
	recorderDone := make(chan struct{})

	go func() {
		defer close(registryDone)
		if err := a.registry.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Msg("session registry stopped")
		}
	}()

	// The recorder keeps its own context so it can drain after the registry shuts down.
	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	go func() {
		defer close(recorderDone)
		if err := a.recorder.Run(recorderCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Msg("leaderboard recorder stopped")
		}
	}()

	go func() {
		if err := a.lbBroadcaster.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Msg("leaderboard broadcaster stopped")
		}
	}()

	if a.prewarm != nil {
		go a.prewarm.Run()
	}

	go func() {
		defer close(done)
		<-registryDone
		stopRecorder()
		select {
		case <-recorderDone:
		case <-time.After(10 * time.Second):
		}
	}()
	return done
}

func (a *Application) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.sqlite != nil {
		if err := a.sqlite.Close(); err != nil {
			a.logger.Error().Err(err).Msg("sqlite shutdown error")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}
}
