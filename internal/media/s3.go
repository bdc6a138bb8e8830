// Package media delegates image storage to an S3 compatible service.
// The API never proxies image bytes: clients get a presigned PUT URL
// and upload directly to the object store.
package media

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const presignTTL = 15 * time.Minute

type Config struct {
	// Base endpoint, e.g. a MinIO address. Empty means AWS itself
	Endpoint string

	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Enabled reports whether object storage is configured at all
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

type Store struct {
	presign *s3.PresignClient
	bucket  string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("error while loading s3 config. Err: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
	}, nil
}

// PresignAvatarPut returns a storage key for the user's avatar and a
// presigned URL the client may PUT the image to within presignTTL
func (s *Store) PresignAvatarPut(ctx context.Context, userID int64) (key string, url string, err error) {
	key = fmt.Sprintf("avatars/%d/%s", userID, uuid.NewString())

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return "", "", fmt.Errorf("error while presigning upload. Err: %w", err)
	}

	return key, req.URL, nil
}
