package coldstore

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewClient loads the default AWS credential chain (environment, shared
// config, EC2/ECS role) scoped to region and returns an S3 client ready to
// pass to New.
func NewClient(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("coldstore: load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}
