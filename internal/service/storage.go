package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Chochanguk/Yoribogo/server/config"
)

// S3PutObjectAPI is the part of the S3 client S3Storage uses.
type S3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage is the ObjectStorage backed by an S3 bucket.
type S3Storage struct {
	client S3PutObjectAPI
	cfg    *config.S3Config
}

// NewS3Storage creates a new S3Storage instance
func NewS3Storage(cfg *config.S3Config) *S3Storage {
	return &S3Storage{client: cfg.Client, cfg: cfg}
}

// NewS3StorageWithClient is NewS3Storage with an explicit client.
func NewS3StorageWithClient(client S3PutObjectAPI, cfg *config.S3Config) *S3Storage {
	return &S3Storage{client: client, cfg: cfg}
}

// Put uploads data and returns its public URL.
func (s *S3Storage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return s.cfg.PublicURL(key), nil
}
