package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"acadence/internal/activity"
	"acadence/internal/api"
	"acadence/internal/config"
	"acadence/internal/httpmiddleware"
	"acadence/internal/logging"
	"acadence/internal/metrics"
	"acadence/internal/queue"
	"acadence/internal/school"
	"acadence/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	logger, err := logging.New(cfg.Production(), cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	ctx := context.Background()
	health := map[string]api.Checker{}

	var st school.Store
	if cfg.StoreBackend == "memory" {
		logger.Warn("using in-memory store; data is lost on restart")
		st = store.NewMemory()
	} else {
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if cfg.AutoMigrate {
			version, err := store.Migrate(ctx, db.Client)
			if err != nil {
				return err
			}
			logger.Info("schema migrated", zap.Int64("version", version))
		}
		st = store.NewPostgres(db.Client)
		health["db"] = db
	}

	needRedis := cfg.QueueBackend != "memory" || cfg.RateLimitBackend == "redis"
	var redisClient *store.Redis
	if needRedis {
		redisClient = store.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
		defer redisClient.Close()
		health["redis"] = redisClient
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		mem := queue.NewInMemory(64)
		msgs, err := mem.Consume(bgCtx)
		if err != nil {
			return err
		}
		// no separate worker in this mode; record activity in-process
		go activity.NewRecorder(st, logger.Named("activity"), m).Run(bgCtx, msgs)
		q = mem
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	var limiter httpmiddleware.Limiter
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisLimiter(redisClient.Client, cfg.RateLimitPerMin)
	} else {
		limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	}

	svc := school.NewService(st,
		school.WithPublisher(q),
		school.WithMetrics(m),
		school.WithLogger(logger.Named("school")),
		school.WithLocation(cfg.Timezone),
	)

	r := api.NewRouter(api.Deps{
		Service:  svc,
		Config:   cfg,
		Log:      logger,
		Metrics:  m,
		Gatherer: reg,
		Limiter:  limiter,
		Health:   health,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}
