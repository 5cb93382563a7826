package aws_client

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/stretchr/testify/assert"
)

func TestAWSConfig_R2(t *testing.T) {
	cfg := AWSConfig(Options{AccountID: "acc123", AccessKeyID: "k", AccessKeySecret: "s"})

	assert.Equal(t, "https://acc123.r2.cloudflarestorage.com", aws.StringValue(cfg.Endpoint))
	assert.Equal(t, "auto", aws.StringValue(cfg.Region))
	assert.True(t, aws.BoolValue(cfg.S3ForcePathStyle))
}

func TestAWSConfig_CustomEndpointWins(t *testing.T) {
	cfg := AWSConfig(Options{
		AccountID: "acc123",
		Endpoint:  "http://localhost:9000",
		Region:    "eu-west-1",
	})

	assert.Equal(t, "http://localhost:9000", aws.StringValue(cfg.Endpoint))
	assert.Equal(t, "eu-west-1", aws.StringValue(cfg.Region))
}

func TestAWSConfig_PlainS3(t *testing.T) {
	cfg := AWSConfig(Options{Region: "us-east-1"})

	assert.Nil(t, cfg.Endpoint)
	assert.Nil(t, cfg.S3ForcePathStyle)

	assert.Equal(t, "us-east-1", aws.StringValue(cfg.Region))
}
