// Package export writes user data-export bundles to S3-compatible object
// storage and produces time-limited download links.
package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader is what the protection service needs from object storage.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte) error
	PresignDownload(ctx context.Context, key string) (string, error)
}

// Seams for tests; production code never overrides these.
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// S3Config holds the object-storage settings for export bundles.
type S3Config struct {
	RootUser     string
	RootPassword string
	Bucket       string
	Region       string
	BaseEndpoint string
}

type S3Exporter struct {
	cfg S3Config
}

var _ Uploader = (*S3Exporter)(nil)

func NewS3Exporter(cfg S3Config) *S3Exporter {
	return &S3Exporter{cfg: cfg}
}

// BundleKey returns a fresh object key for one export bundle.
func BundleKey(userID string) string {
	d := time.Now()
	return fmt.Sprintf("exports/%d/%d/%d/%s-%v.json", d.Year(), d.Month(), d.Day(), userID, uuid.New())
}

func (e *S3Exporter) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(e.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			e.cfg.RootUser,
			e.cfg.RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(e.cfg.BaseEndpoint)
	}), nil
}

// Upload writes the bundle body to the configured bucket.
func (e *S3Exporter) Upload(ctx context.Context, key string, body []byte) error {
	client, err := e.getClient(ctx)
	if err != nil {
		return err
	}

	bucket := e.cfg.Bucket
	contentType := "application/json"
	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	return err
}

// PresignDownload returns a time-limited GET URL for an uploaded bundle.
func (e *S3Exporter) PresignDownload(ctx context.Context, key string) (string, error) {
	client, err := e.getClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := e.cfg.Bucket
	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
