// Package storage archives raw document bodies to S3-compatible storage so
// collections can be rebuilt without refetching sources.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3ClientConfig holds configuration for S3Client
type S3ClientConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
}

// S3Client provides operations for S3-compatible storage (e.g., MinIO)
type S3Client struct {
	client *s3.Client
	bucket string
}

// NewS3Client creates a new S3Client with the given configuration
func NewS3Client(ctx context.Context, cfg S3ClientConfig) (*S3Client, error) {
	// Create custom resolver for S3-compatible endpoints
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Path-style addressing for S3-compatible services
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Client{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

func archiveKey(collection, sourceID string) string {
	return fmt.Sprintf("raw/%s/%s", collection, sourceID)
}

// ArchiveRaw stores the raw body of a document under its collection and
// source identifier. Satisfies the ingestion Archiver interface.
func (c *S3Client) ArchiveRaw(ctx context.Context, collection, sourceID string, body []byte) error {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(archiveKey(collection, sourceID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/html"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive raw document: %w", err)
	}
	return nil
}

// GetRaw retrieves a previously archived raw document body.
func (c *S3Client) GetRaw(ctx context.Context, collection, sourceID string) ([]byte, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(archiveKey(collection, sourceID)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch archived document: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read archived document: %w", err)
	}
	return body, nil
}

// ListRaw returns the source identifiers of every archived document in a
// collection, in key order.
func (c *S3Client) ListRaw(ctx context.Context, collection string) ([]string, error) {
	prefix := fmt.Sprintf("raw/%s/", collection)

	var ids []string
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list archived documents: %w", err)
		}
		for _, obj := range page.Contents {
			ids = append(ids, strings.TrimPrefix(aws.ToString(obj.Key), prefix))
		}
	}
	return ids, nil
}
