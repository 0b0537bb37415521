package resultlog

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"
)

// S3Config configures the optional S3 backend of the run log: when set,
// the run log's records and files land in S3 instead of the local
// filesystem.
type S3Config struct {
	Bucket string
	Prefix string
	Region string
}

func (c S3Config) validate() error {
	if c.Bucket == "" {
		return errors.New("resultlog: S3 bucket is required")
	}
	return nil
}

// NewS3Factory builds a lode.StoreFactory backed by S3, using the AWS
// SDK's default credential chain (env vars, shared config, IAM role).
func NewS3Factory(cfg S3Config) (lode.StoreFactory, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("resultlog: loading AWS config: %w", err)
	}
	s3Client := s3.NewFromConfig(awsCfg)

	return func() (lode.Store, error) {
		return lodes3.New(s3Client, lodes3.Config{Bucket: cfg.Bucket, Prefix: cfg.Prefix})
	}, nil
}
