package aws

import (
	"bytes"
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter stores a single object.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucket, key, contentType string, body []byte) error
}

type S3Client struct {
	client *s3.Client
}

// NewS3Client creates a new S3 client from AWS config. Path-style addressing is
// forced when a custom endpoint is configured so LocalStack buckets resolve.
func NewS3Client(cfg sdkaws.Config) *S3Client {
	return &S3Client{client: s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.EndpointResolverWithOptions != nil
	})}
}

func (c *S3Client) PutObject(ctx context.Context, bucket, key, contentType string, body []byte) error {
	if bucket == "" {
		return fmt.Errorf("empty bucket")
	}
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      sdkaws.String(bucket),
		Key:         sdkaws.String(key),
		ContentType: sdkaws.String(contentType),
		Body:        bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s/%s failed: %w", bucket, key, err)
	}
	return nil
}
