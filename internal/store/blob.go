package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/veritas-review/tribunal/internal/tribunal"
)

// BlobStore archives the full verdict record as JSON in an S3-compatible
// bucket under verdicts/<session_id>.json.
type BlobStore struct {
	client *s3.Client
	bucket string
	prefix string
}

type BlobStoreConfig struct {
	Bucket   string
	Region   string
	Endpoint string // optional, for MinIO-style endpoints
	Prefix   string
}

func NewBlobStore(ctx context.Context, cfg BlobStoreConfig) (*BlobStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("blob store: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &BlobStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (b *BlobStore) Name() string { return "blob" }

func (b *BlobStore) Put(ctx context.Context, record tribunal.VerdictRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("blob put: marshal: %w", err)
	}
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.Key(record.SessionID)),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("blob put: %w", err)
	}
	return nil
}

// Key returns the object key for a session's archived verdict.
func (b *BlobStore) Key(sessionID string) string {
	return fmt.Sprintf("%sverdicts/%s.json", b.prefix, sessionID)
}
