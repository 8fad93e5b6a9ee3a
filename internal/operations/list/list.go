// Package list handles S3 object listing operations.
// A migration needs the complete object set before it can classify
// anything, so listing collects every page and fails as a whole.
package list

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/errors"
)

// maxPageSize is the maximum page size allowed by S3.
const maxPageSize = 1000

// S3Interface defines the S3 operations we need.
type S3Interface interface {
	ListObjectsV2(
		ctx context.Context,
		input *s3.ListObjectsV2Input,
		opts ...func(*s3.Options),
	) (*s3.ListObjectsV2Output, error)
}

// Lister handles listing of S3 objects.
type Lister struct {
	client S3Interface
}

// New creates a new Lister.
func New(client S3Interface) *Lister {
	return &Lister{
		client: client,
	}
}

// Config holds configuration for list operations.
type Config struct {
	Bucket   string
	Prefix   string
	PageSize int32
}

// ListAll returns every object in the bucket under the configured prefix,
// in backend order. A failed page fails the whole listing and no partial
// result is returned.
func (l *Lister) ListAll(ctx context.Context, config *Config) ([]archivetypes.Object, error) {
	var objects []archivetypes.Object

	paginator := l.NewPaginator(config)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.NewBucketError("list", config.Bucket, errors.ConvertAWSError(err))
		}
		objects = append(objects, page...)
	}

	return objects, nil
}

// NewPaginator creates a paginator over the configured listing.
func (l *Lister) NewPaginator(config *Config) *Paginator {
	return &Paginator{
		client:    l.client,
		config:    config,
		pageSize:  optimalPageSize(config),
		firstPage: true,
	}
}

// Paginator walks the pages of a listing by continuation token.
type Paginator struct {
	client            S3Interface
	config            *Config
	pageSize          int32
	continuationToken *string
	hasMorePages      bool
	firstPage         bool
}

// HasMorePages returns true if there are more pages to fetch.
func (p *Paginator) HasMorePages() bool {
	return p.firstPage || p.hasMorePages
}

// NextPage fetches the next page of results.
func (p *Paginator) NextPage(ctx context.Context) ([]archivetypes.Object, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(p.config.Bucket),
		MaxKeys: aws.Int32(p.pageSize),
	}

	if p.config.Prefix != "" {
		input.Prefix = aws.String(p.config.Prefix)
	}

	if !p.firstPage {
		input.ContinuationToken = p.continuationToken
	}

	output, err := p.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("list objects page: %w", err)
	}

	p.firstPage = false
	p.continuationToken = output.NextContinuationToken
	// A truncated page without a token would loop forever
	p.hasMorePages = aws.ToBool(output.IsTruncated) && p.continuationToken != nil

	return convertOutput(output), nil
}

// convertOutput converts S3 output to archiver objects.
func convertOutput(output *s3.ListObjectsV2Output) []archivetypes.Object {
	objects := make([]archivetypes.Object, 0, len(output.Contents))

	for _, obj := range output.Contents {
		objects = append(objects, archivetypes.Object{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         aws.ToString(obj.ETag),
			StorageClass: archivetypes.StorageClass(obj.StorageClass).Normalize(),
		})
	}

	return objects
}

// optimalPageSize determines the page size for pagination.
func optimalPageSize(config *Config) int32 {
	if config.PageSize > 0 && config.PageSize <= maxPageSize {
		return config.PageSize
	}
	return maxPageSize
}
