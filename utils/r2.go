package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"flow-pantry-system/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// R2Store keeps objects in a Cloudflare R2 bucket.
type R2Store struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string
	log        *zap.Logger
}

func NewR2Store(ctx context.Context, cfg R2Config, log *zap.Logger) (*R2Store, error) {
	cdnBaseURL := cfg.CDNBaseURL
	if cdnBaseURL == "" {
		cdnBaseURL = fmt.Sprintf("https://%s.r2.cloudflarestorage.com/%s", cfg.AccountID, cfg.Bucket)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	})
	return &R2Store{client: client, bucket: cfg.Bucket, cdnBaseURL: cdnBaseURL, log: log}, nil
}

func (s *R2Store) locator(key string) string {
	return fmt.Sprintf("%s/%s", s.cdnBaseURL, key)
}

// Upload writes the object at objectPath, replacing any existing one.
func (s *R2Store) Upload(ctx context.Context, body io.Reader, size int64, contentType, objectPath string) (string, error) {
	buf := new(bytes.Buffer)
	if size > 0 {
		buf.Grow(int(size))
	}
	if _, err := io.Copy(buf, body); err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectPath),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.log.Error("[R2] upload failed", zap.String("key", objectPath), zap.Error(err))
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return s.locator(objectPath), nil
}

func (s *R2Store) Delete(ctx context.Context, locatorOrPath string) error {
	key := keyFromLocator(s.cdnBaseURL, locatorOrPath)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isMissingObject(err) {
		s.log.Error("[R2] delete failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to delete from R2: %w", err)
	}
	return nil
}

func (s *R2Store) Resolve(ctx context.Context, objectPath string) (string, error) {
	key := keyFromLocator(s.cdnBaseURL, objectPath)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isMissingObject(err) {
			return "", fmt.Errorf("object %s: %w", key, models.ErrNotFound)
		}
		return "", fmt.Errorf("failed to resolve R2 object: %w", err)
	}
	return s.locator(key), nil
}

func isMissingObject(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
