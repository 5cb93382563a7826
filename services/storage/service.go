package storage

import (
	"bytes"
	"context"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailtriage/config"
	"github.com/customeros/mailtriage/interfaces"
	"github.com/customeros/mailtriage/internal/tracing"
	"github.com/customeros/mailtriage/services/storage/aws_client"
)

// ObjectStorageService archives reports to an S3 compatible bucket.
type ObjectStorageService struct {
	client     aws_client.S3Client
	bucketName string
	publicURL  string
}

type StorageConfig struct {
	BucketName string
	PublicURL  string // base URL objects are served from, optional
}

func NewStorageService(client aws_client.S3Client, storageConfig StorageConfig) interfaces.StorageService {
	return &ObjectStorageService{
		client:     client,
		bucketName: storageConfig.BucketName,
		publicURL:  strings.TrimRight(storageConfig.PublicURL, "/"),
	}
}

// NewReportArchive builds the archive from configuration. It returns nil
// when archiving is not configured.
func NewReportArchive(cfg *config.ReportArchiveConfig) (interfaces.StorageService, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	client, err := aws_client.NewS3Client(aws_client.AWSConfig(aws_client.Options{
		AccountID:       cfg.AccountID,
		Endpoint:        cfg.Endpoint,
		Region:          cfg.Region,
		AccessKeyID:     cfg.AccessKeyID,
		AccessKeySecret: cfg.AccessKeySecret,
	}))
	if err != nil {
		return nil, err
	}

	return NewStorageService(client, StorageConfig{
		BucketName: cfg.Bucket,
		PublicURL:  cfg.PublicURL,
	}), nil
}

func (s *ObjectStorageService) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.Upload")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("storage.key", key)

	uploadInput := s3manager.UploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	if err := s.client.Upload(ctx, uploadInput); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to upload %s", key)
	}
	return nil
}

// GetPublicURL returns where the object can be read, or "" without a
// configured public URL.
func (s *ObjectStorageService) GetPublicURL(key string) string {
	if s.publicURL == "" {
		return ""
	}
	return s.publicURL + "/" + key
}
