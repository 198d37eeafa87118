package platform

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/s3"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// Storage is the S3 bucket holding uploaded files, datasets, and plugin
// packages. Containers authenticate with the task role, never with keys.
type Storage struct {
	Bucket *s3.BucketV2

	Name pulumi.StringOutput
	Arn  pulumi.StringOutput
}

// NewStorage creates the bucket with public access blocked. ForceDestroy
// lets stack teardown remove a non-empty bucket.
func NewStorage(ctx *pulumi.Context, name string) (*Storage, error) {
	bucket, err := s3.NewBucketV2(ctx, name, &s3.BucketV2Args{
		ForceDestroy: pulumi.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("storage bucket: %w", err)
	}

	_, err = s3.NewBucketPublicAccessBlock(ctx, name, &s3.BucketPublicAccessBlockArgs{
		Bucket:                bucket.ID(),
		BlockPublicAcls:       pulumi.Bool(true),
		BlockPublicPolicy:     pulumi.Bool(true),
		IgnorePublicAcls:      pulumi.Bool(true),
		RestrictPublicBuckets: pulumi.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("storage public access block: %w", err)
	}

	return &Storage{
		Bucket: bucket,
		Name:   bucket.Bucket,
		Arn:    bucket.Arn,
	}, nil
}
