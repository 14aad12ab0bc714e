// Package objectstore keeps file contents in an S3 compatible bucket.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Options configures the S3 client.
type Options struct {
	Endpoint   string
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	PresignTTL time.Duration
}

// S3Store implements blob storage on S3 or MinIO.
type S3Store struct {
	client     *s3.Client
	presign    *s3.PresignClient
	bucket     string
	presignTTL time.Duration
	now        func() time.Time
}

// loadDefaultAWSConfig is a seam for tests.
var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// New builds an S3Store with static credentials. A non-empty Endpoint
// switches to path-style addressing for MinIO.
func New(ctx context.Context, o Options) (*S3Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(o.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(opts *s3.Options) {
		if o.Endpoint != "" {
			opts.BaseEndpoint = aws.String(o.Endpoint)
			opts.UsePathStyle = true
		}
	})

	ttl := o.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &S3Store{
		client:     client,
		presign:    s3.NewPresignClient(client),
		bucket:     o.Bucket,
		presignTTL: ttl,
		now:        time.Now,
	}, nil
}

// storageKey spreads objects by upload date.
func (s *S3Store) storageKey() string {
	d := s.now().UTC()
	return fmt.Sprintf("users/%d/%02d/%02d/%s", d.Year(), d.Month(), d.Day(), uuid.NewString())
}

// PutBlob uploads body and returns the new object's key.
func (s *S3Store) PutBlob(ctx context.Context, name, contentType string, size int64, body io.Reader) (string, error) {
	key := s.storageKey()
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		Metadata:      map[string]string{"original-name": name},
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return key, nil
}

// DeleteBlob removes the object stored under key.
func (s *S3Store) DeleteBlob(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// PresignGet returns a time-limited download URL that saves the object as
// fileName.
func (s *S3Store) PresignGet(ctx context.Context, key, fileName string) (string, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if fileName != "" {
		in.ResponseContentDisposition = aws.String(mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	}
	req, err := s.presign.PresignGetObject(ctx, in, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}
