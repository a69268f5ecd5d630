package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"code-sprint/internal/api"
	"code-sprint/internal/cache"
	"code-sprint/internal/config"
	"code-sprint/internal/content"
	"code-sprint/internal/database"
	"code-sprint/internal/generation"
	"code-sprint/internal/grading"
	"code-sprint/internal/practice"
	"code-sprint/internal/progress"
	"code-sprint/internal/sandbox"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level == "debug" {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zcfg.Build()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	languages, err := sandbox.LoadLanguages(cfg.Sandbox.LanguagesFile)
	if err != nil {
		return err
	}
	router, err := newSandbox(cfg.Sandbox, languages, logger)
	if err != nil {
		return err
	}

	catalog, err := content.Load(cfg.Content.Path)
	if err != nil {
		return err
	}
	logger.Info("question catalog loaded", zap.Int("questions", catalog.Len()))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engine := grading.NewEngine(router, grading.NewMetrics(reg, languages), logger)

	var attempts grading.AttemptCounter = grading.NewMemoryAttempts()
	if cfg.Redis.Address != "" {
		client := cache.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		attempts = cache.NewRedisAttempts(client, cfg.Redis.AttemptTTL)
		logger.Info("attempt counters in redis", zap.String("addr", cfg.Redis.Address))
	}

	deps := api.Deps{
		Tokens:   api.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.ReceiptTTL),
		MediaDir: cfg.Content.MediaDir,
		Logger:   logger,
	}
	var store progress.Store
	switch cfg.Database.Store {
	case "memory":
		logger.Warn("using in-memory store, progress is lost on restart")
		store = progress.NewMemoryStore()
		deps.Users = database.NewMemoryUserStore()
	default:
		db, err := database.Connect(ctx, cfg.Database.URL, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Info("database connected")
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		store = database.NewProgressStore(db)
		deps.Users = database.NewUserStore(db)
		deps.Health = db
	}

	var generator generation.Generator
	if gen, err := generation.NewGenAI(ctx, cfg.Generation.APIKey, cfg.Generation.Model, logger); err == nil {
		generator = gen
	} else if errors.Is(err, generation.ErrNotConfigured) {
		logger.Warn("GEMINI_API_KEY not set, code generation disabled")
	} else {
		return err
	}

	machine := progress.NewMachine(store, languages, progress.Options{
		XPPerLesson: cfg.Progress.XPPerLesson,
		Location:    cfg.Location(),
	}, logger)
	deps.Progress = machine
	deps.Practice = practice.NewService(engine, attempts, machine, catalog, generator, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(api.NewApiHandler(deps), reg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newSandbox builds the backends named in SANDBOX_BACKENDS, in priority order.
func newSandbox(cfg config.SandboxConfig, languages *sandbox.Languages, logger *zap.Logger) (*sandbox.Router, error) {
	var backends []sandbox.Backend
	for _, name := range cfg.Backends {
		switch name {
		case "piston":
			backends = append(backends, sandbox.NewPiston(cfg.PistonURL, languages, cfg.Timeout, logger))
		case "judge0":
			backends = append(backends, sandbox.NewJudge0(sandbox.Judge0Options{
				BaseURL:      cfg.Judge0URL,
				APIKey:       cfg.Judge0Key,
				APIHost:      cfg.Judge0Host,
				Timeout:      cfg.Timeout,
				PollInterval: cfg.PollInterval,
			}, languages, logger))
		default:
			return nil, fmt.Errorf("unknown sandbox backend %q", name)
		}
	}
	logger.Info("sandbox backends configured", zap.Strings("backends", cfg.Backends))
	return sandbox.NewRouter(backends...), nil
}
