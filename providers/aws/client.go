package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
)

// Client is the AWS provider client
type Client struct {
	SageMaker *sagemaker.Client
	IoT       *iot.Client
	S3        *s3.Client
	Uploader  *manager.Uploader
}

// NewClient creates a new AWS client
func NewClient(ctx context.Context, region string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(cfg)
	return &Client{
		SageMaker: sagemaker.NewFromConfig(cfg),
		IoT:       iot.NewFromConfig(cfg),
		S3:        s3Client,
		Uploader:  manager.NewUploader(s3Client),
	}, nil
}
