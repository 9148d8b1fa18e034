package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/ignite/signup-capture/internal/api"
	"github.com/ignite/signup-capture/internal/config"
	"github.com/ignite/signup-capture/internal/notify"
	"github.com/ignite/signup-capture/internal/pkg/logger"
	"github.com/ignite/signup-capture/internal/pkg/metrics"
	"github.com/ignite/signup-capture/internal/service/subscription"
	"github.com/ignite/signup-capture/internal/storage"
	"github.com/ignite/signup-capture/internal/validation"
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Configure(logger.ParseLevel(cfg.Logging.Level), cfg.Logging.Redact())
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Error("failed to initialize storage", "type", cfg.Storage.Type, "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	redisClient := connectRedis(ctx, cfg.Redis.URL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()
	validator := validation.New(
		cfg.Validation.DisposableDomains,
		nil,
		validation.WithTimeout(cfg.Validation.MXTimeout()),
		validation.WithLookupObserver(m),
	)

	opts := []subscription.Option{subscription.WithRecorder(m)}
	if locks := backend.Locks(redisClient, cfg.Redis.LockTTL()); locks != nil {
		opts = append(opts, subscription.WithLocks(locks))
		logger.Info("per-email subscribe lock enabled", "redis", redisClient != nil)
	}
	if cfg.Notify.Enabled {
		n, err := buildNotifier(ctx, cfg)
		if err != nil {
			logger.Error("failed to initialize welcome notifier", "error", err)
			os.Exit(1)
		}
		opts = append(opts, subscription.WithNotifier(n))
		logger.Info("welcome notifications enabled", "from", cfg.Notify.FromEmail)
	}
	svc := subscription.NewService(backend.Repository, validator, opts...)

	hc := api.NewHealthChecker(backend.Repository, backend.Type, redisClient)
	server := api.NewServer(api.NewHandlers(svc, cfg.Server.MaxBodyBytes), hc, m.Handler(), cfg.CORS.AllowedOrigins)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := cfg.Server.Addr()
		logger.Info("starting server", "addr", addr, "storage", backend.Type)
		if err := server.ListenAndServe(addr, cfg.Server.ReadTimeout(), cfg.Server.WriteTimeout()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
}

// connectRedis returns a client for url, or nil when url is empty or the
// server does not answer. Without Redis the subscribe lock falls back to
// Postgres advisory locks.
func connectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		logger.Info("redis not configured")
		return nil
	}

	var client *redis.Client
	if opts, err := redis.ParseURL(url); err != nil {
		client = redis.NewClient(&redis.Options{Addr: url})
	} else {
		client = redis.NewClient(opts)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis connection failed, continuing without it", "error", err)
		client.Close()
		return nil
	}
	logger.Info("redis connected")
	return client
}

func buildNotifier(ctx context.Context, cfg *config.Config) (*notify.SESSender, error) {
	templates, err := notify.LoadTemplates(cfg.Notify.Subject, cfg.Notify.TemplatePath)
	if err != nil {
		return nil, err
	}
	awsCfg, err := storage.LoadAWSConfig(ctx, storage.AWSOptions{
		Region:    cfg.Notify.Region,
		Profile:   cfg.Storage.GetAWSProfile(),
		AccessKey: cfg.Notify.AccessKey,
		SecretKey: cfg.Notify.SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), cfg.Notify.FromEmail, templates), nil
}
