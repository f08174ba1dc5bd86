// Package awsutil loads the SDK configuration shared by every entrypoint.
package awsutil

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
)

// Load resolves the SDK configuration for a region. When AWS_ENDPOINT_URL
// is set, every service client talks to that endpoint instead, which is how
// local development against localstack works.
func Load(ctx context.Context, region string) (aws.Config, error) {
	opts := []func(*awsCfg.LoadOptions) error{awsCfg.WithRegion(region)}
	if ep := DevEndpoint(); ep != "" {
		opts = append(opts, awsCfg.WithBaseEndpoint(ep))
	}
	return awsCfg.LoadDefaultConfig(ctx, opts...)
}

// DevEndpoint returns the local development endpoint override, if any.
// S3 clients need path-style addressing when one is set.
func DevEndpoint() string { return os.Getenv("AWS_ENDPOINT_URL") }
