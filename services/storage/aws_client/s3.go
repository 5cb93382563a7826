package aws_client

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailtriage/internal/tracing"
)

type S3Client interface {
	Upload(ctx context.Context, uploadContainer s3manager.UploadInput) error
}

type s3Client struct {
	Uploader *s3manager.Uploader
	Config   *aws.Config
}

// Endpoint settings for an S3 compatible store. An empty Endpoint with an
// AccountID targets Cloudflare R2.
type Options struct {
	AccountID       string
	Endpoint        string
	Region          string
	AccessKeyID     string
	AccessKeySecret string
}

func AWSConfig(opts Options) *aws.Config {
	region := opts.Region
	if region == "" {
		region = "auto"
	}
	cfg := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewStaticCredentials(opts.AccessKeyID, opts.AccessKeySecret, ""),
	}

	endpoint := opts.Endpoint
	if endpoint == "" && opts.AccountID != "" {
		endpoint = "https://" + opts.AccountID + ".r2.cloudflarestorage.com"
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	return cfg
}

func NewS3Client(config *aws.Config) (S3Client, error) {
	s, err := session.NewSession(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create object storage session")
	}
	return &s3Client{
		Uploader: s3manager.NewUploader(s),
		Config:   config,
	}, nil
}

func (s *s3Client) Upload(ctx context.Context, uploadContainer s3manager.UploadInput) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "s3Client.Upload")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	_, err := s.Uploader.UploadWithContext(ctx, &uploadContainer)
	return err
}
