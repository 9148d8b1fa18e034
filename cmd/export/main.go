// Command export writes a JSON snapshot of all subscribers to S3.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ignite/signup-capture/internal/config"
	"github.com/ignite/signup-capture/internal/export"
	"github.com/ignite/signup-capture/internal/pkg/logger"
	"github.com/ignite/signup-capture/internal/service/subscription"
	"github.com/ignite/signup-capture/internal/storage"
	"github.com/ignite/signup-capture/internal/validation"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall export deadline")
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
	if cfg.Export.S3Bucket == "" {
		logger.Error("export: s3_bucket or EXPORT_S3_BUCKET is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	backend, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer backend.Close()

	awsCfg, err := storage.LoadAWSConfig(ctx, storage.AWSOptions{
		Region:  cfg.Export.Region,
		Profile: cfg.Storage.GetAWSProfile(),
	})
	if err != nil {
		return err
	}

	svc := subscription.NewService(backend.Repository, validation.New(nil, nil))
	_, _, err = export.New(svc, s3.NewFromConfig(awsCfg), cfg.Export.S3Bucket, cfg.Export.Prefix).Run(ctx)
	return err
}
