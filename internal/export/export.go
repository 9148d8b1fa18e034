// Package export snapshots the subscriber list to S3 as JSON.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ignite/signup-capture/internal/domain"
	"github.com/ignite/signup-capture/internal/pkg/logger"
)

// Lister supplies the subscribers to export, newest first.
type Lister interface {
	List(ctx context.Context) ([]domain.Subscriber, error)
}

// PutObjectAPI is the part of the S3 client the exporter needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Snapshot is the exported document.
type Snapshot struct {
	ExportedAt  time.Time           `json:"exportedAt"`
	Count       int                 `json:"count"`
	Subscribers []domain.Subscriber `json:"subscribers"`
}

// Exporter writes snapshots under bucket/prefix.
type Exporter struct {
	source Lister
	client PutObjectAPI
	bucket string
	prefix string
	now    func() time.Time
}

// New creates an Exporter.
func New(source Lister, client PutObjectAPI, bucket, prefix string) *Exporter {
	return &Exporter{source: source, client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// Key returns the object key for a snapshot taken at t.
func (e *Exporter) Key(t time.Time) string {
	return path.Join(e.prefix, t.UTC().Format("2006/01/02/150405")+".json")
}

// Run uploads one snapshot and returns its key and subscriber count.
func (e *Exporter) Run(ctx context.Context) (string, int, error) {
	subs, err := e.source.List(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("listing subscribers: %w", err)
	}

	at := e.now().UTC()
	data, err := json.MarshalIndent(Snapshot{ExportedAt: at, Count: len(subs), Subscribers: subs}, "", "  ")
	if err != nil {
		return "", 0, fmt.Errorf("marshaling snapshot: %w", err)
	}

	key := e.Key(at)
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", 0, fmt.Errorf("putting object to S3: %w", err)
	}

	logger.Info("subscriber snapshot exported", "bucket", e.bucket, "key", key, "count", len(subs))
	return key, len(subs), nil
}
