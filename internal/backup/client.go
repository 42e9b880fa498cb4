// Package backup implements an optional remote backup/restore path: an
// S3/R2-compatible off-box archive of the SQLite database, staged and
// applied on restart. It is entirely optional infrastructure, gated on
// a configured bucket — the local JSON export/import contract
// (internal/importexport) works without it.
//
// Same endpoint-resolver-plus-static-credentials shape as a Cloudflare
// R2 client, generalized to any S3-compatible endpoint since this
// domain has no reason to assume one cloud provider.
package backup

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// objectPartSize is the chunk size used for multipart upload/download.
const objectPartSize = 10 * 1024 * 1024

// objectConcurrency is the number of parts transferred in parallel.
const objectConcurrency = 5

// Client wraps the AWS S3 SDK to talk to an S3-compatible bucket, with an
// optional custom endpoint for R2/MinIO-style stores.
type Client struct {
	s3         *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	bucket     string
	log        zerolog.Logger
}

// NewClient creates a Client. endpoint may be empty to use AWS's default
// endpoint resolution for region.
func NewClient(ctx context.Context, endpoint, region, accessKeyID, secretAccessKey, bucket string, log zerolog.Logger) (*Client, error) {
	if accessKeyID == "" || secretAccessKey == "" || bucket == "" {
		return nil, fmt.Errorf("backup client: credentials or bucket incomplete")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
		config.WithRegion(region),
	}
	if endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: endpoint, HostnameImmutable: true, SigningRegion: region}, nil
		})
		opts = append(opts, config.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("backup client: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = objectPartSize
		u.Concurrency = objectConcurrency
	})
	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		d.PartSize = objectPartSize
		d.Concurrency = objectConcurrency
	})

	return &Client{
		s3:         client,
		uploader:   uploader,
		downloader: downloader,
		bucket:     bucket,
		log:        log.With().Str("component", "backup_client").Logger(),
	}, nil
}

// Upload streams reader to key in the configured bucket.
func (c *Client) Upload(ctx context.Context, key string, reader io.Reader, contentLength int64) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentLength: aws.Int64(contentLength),
	})
	if err != nil {
		return fmt.Errorf("backup client: upload %s: %w", key, err)
	}
	c.log.Info().Str("key", key).Int64("bytes", contentLength).Msg("uploaded backup object")
	return nil
}

// Download writes key's contents to writer and returns the byte count.
func (c *Client) Download(ctx context.Context, key string, writer io.WriterAt) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	n, err := c.downloader.Download(ctx, writer, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("backup client: download %s: %w", key, err)
	}
	c.log.Info().Str("key", key).Int64("bytes", n).Msg("downloaded backup object")
	return n, nil
}

// List returns every object under prefix, newest listing order is not
// guaranteed by S3 and must be sorted by the caller.
func (c *Client) List(ctx context.Context, prefix string) ([]types.Object, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	var objects []types.Object
	paginator := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("backup client: list objects: %w", err)
		}
		objects = append(objects, page.Contents...)
	}
	return objects, nil
}

// Delete removes key from the bucket.
func (c *Client) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if _, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key)}); err != nil {
		return fmt.Errorf("backup client: delete %s: %w", key, err)
	}
	return nil
}

// TestConnection verifies the bucket is reachable with the configured
// credentials.
func (c *Client) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return fmt.Errorf("backup client: connection test failed: %w", err)
	}
	return nil
}
