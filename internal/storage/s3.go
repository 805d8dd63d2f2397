// Package storage mirrors finished artifacts to an S3-compatible object
// store. The local artifact directory stays authoritative; the mirror is an
// optional off-box copy.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/snarg/scribe-engine/internal/artifact"
	"github.com/snarg/scribe-engine/internal/config"
)

// S3Mirror uploads artifacts to a bucket.
type S3Mirror struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	prefix        string
	presignExpiry time.Duration
	log           zerolog.Logger
}

// NewS3Mirror creates a mirror from config and verifies bucket access up
// front so a bad credential fails at startup, not mid-run.
func NewS3Mirror(cfg config.S3Config, log zerolog.Logger) (*S3Mirror, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	m := &S3Mirror{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		prefix:        cfg.Prefix,
		presignExpiry: cfg.PresignExpiry,
		log:           log.With().Str("component", "s3-mirror").Logger(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &m.bucket}); err != nil {
		return nil, fmt.Errorf("S3 startup check failed (bucket=%q endpoint=%q): %w",
			cfg.Bucket, cfg.Endpoint, err)
	}
	m.log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("S3 connection verified")

	return m, nil
}

// UploadArtifacts mirrors both files of a finished run.
func (m *S3Mirror) UploadArtifacts(ctx context.Context, paths artifact.Paths) error {
	if err := m.upload(ctx, paths.Txt, "text/plain; charset=utf-8"); err != nil {
		return err
	}
	return m.upload(ctx, paths.Srt, "application/x-subrip")
}

func (m *S3Mirror) upload(ctx context.Context, localPath, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	key := m.objectKey(filepath.Base(localPath))
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &m.bucket,
		Key:         &key,
		Body:        f,
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	m.log.Debug().Str("key", key).Msg("artifact mirrored")
	return nil
}

// URL returns a presigned download link for a mirrored artifact.
func (m *S3Mirror) URL(ctx context.Context, name string) (string, error) {
	key := m.objectKey(name)
	req, err := m.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &m.bucket,
		Key:    &key,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = m.presignExpiry
	})
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (m *S3Mirror) objectKey(name string) string {
	if m.prefix == "" {
		return name
	}
	return m.prefix + "/" + name
}
