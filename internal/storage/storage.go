// Package storage opens the subscriber store selected by configuration.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/ignite/signup-capture/internal/config"
	"github.com/ignite/signup-capture/internal/pkg/logger"
	"github.com/ignite/signup-capture/internal/repository/dynamo"
	"github.com/ignite/signup-capture/internal/repository/memory"
	"github.com/ignite/signup-capture/internal/repository/postgres"
	"github.com/ignite/signup-capture/internal/service/subscription"
	_ "github.com/lib/pq"
)

// Backend is an opened subscriber store.
type Backend struct {
	Repository subscription.Repository

	// DB is set for the postgres backend so callers can share the pool
	// (advisory locks). Nil otherwise.
	DB *sql.DB

	Type string

	pg *postgres.SubscriberRepo
}

// Close releases the backend's connections.
func (b *Backend) Close() error {
	if b.DB != nil {
		return b.DB.Close()
	}
	return nil
}

// New opens the backend named by cfg.Type.
func New(ctx context.Context, cfg config.StorageConfig) (*Backend, error) {
	switch cfg.Type {
	case config.StoragePostgres:
		return openPostgres(ctx, cfg.DatabaseURL)

	case config.StorageDynamoDB:
		awsCfg, err := LoadAWSConfig(ctx, AWSOptions{Region: cfg.AWSRegion, Profile: cfg.GetAWSProfile()})
		if err != nil {
			return nil, fmt.Errorf("initializing DynamoDB storage: %w", err)
		}
		repo := dynamo.NewSubscriberRepo(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable)
		logger.Info("storage: using DynamoDB", "table", cfg.DynamoDBTable, "region", cfg.AWSRegion)
		return &Backend{Repository: repo, Type: cfg.Type}, nil

	case config.StorageMemory:
		logger.Warn("storage: using in-memory store, data is lost on restart")
		return &Backend{Repository: memory.NewSubscriberRepo(), Type: cfg.Type}, nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

func openPostgres(ctx context.Context, url string) (*Backend, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	repo := postgres.NewSubscriberRepo(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("storage: connected to PostgreSQL")
	return &Backend{Repository: repo, DB: db, Type: config.StoragePostgres, pg: repo}, nil
}
