// Package copy handles server-side copies from the source bucket to the
// destination bucket. Objects above the multipart threshold are copied in
// byte ranges with UploadPartCopy; smaller ones use a single CopyObject.
package copy

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/internal/s3api"
)

const (
	// MultipartThreshold is the size above which an object is copied in parts
	MultipartThreshold = 100 * 1024 * 1024

	// MinPartSize is the smallest part used for multipart copies
	MinPartSize = 64 * 1024 * 1024

	// maxParts is the S3 limit on parts per upload
	maxParts = 10000

	// defaultPartConcurrency is the number of parts copied in parallel per object
	defaultPartConcurrency = 5
)

// Copier performs server-side copies with automatic multipart support.
type Copier struct {
	s3Client        s3api.S3API
	partConcurrency int
}

// NewCopier creates a new copy operation handler
func NewCopier(s3Client s3api.S3API) *Copier {
	return &Copier{
		s3Client:        s3Client,
		partConcurrency: defaultPartConcurrency,
	}
}

// Copy copies task.Key from the source to the destination bucket, keeping
// the key unchanged.
func (c *Copier) Copy(ctx context.Context, task archivetypes.CopyTask) error {
	if task.Size > MultipartThreshold {
		return c.multipartCopy(ctx, task)
	}
	return c.simpleCopy(ctx, task)
}

// CopySource returns the x-amz-copy-source value for bucket/key.
// S3 decodes the header as a query value, so a literal '+' must be sent
// as %2B or it names a key with a space instead.
func CopySource(bucket, key string) string {
	return bucket + "/" + strings.ReplaceAll(url.PathEscape(key), "+", "%2B")
}

// simpleCopy performs a simple copy operation using CopyObject
func (c *Copier) simpleCopy(ctx context.Context, task archivetypes.CopyTask) error {
	input := &s3.CopyObjectInput{
		Bucket:            aws.String(task.DestinationBucket),
		Key:               aws.String(task.Key),
		CopySource:        aws.String(CopySource(task.SourceBucket, task.Key)),
		MetadataDirective: awstypes.MetadataDirectiveCopy,
		ACL:               awstypes.ObjectCannedACLPrivate,
	}
	if task.StorageClass != "" {
		input.StorageClass = awstypes.StorageClass(task.StorageClass)
	}

	if _, err := c.s3Client.CopyObject(ctx, input); err != nil {
		return errors.NewObjectError("copy", task.DestinationBucket, task.Key, errors.ConvertAWSError(err)).
			WithMessage("failed to copy from " + task.SourceBucket)
	}

	return nil
}

// multipartCopy performs a multipart copy operation for large objects
func (c *Copier) multipartCopy(ctx context.Context, task archivetypes.CopyTask) error {
	// Multipart uploads do not inherit the source headers
	head, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(task.SourceBucket),
		Key:    aws.String(task.Key),
	})
	if err != nil {
		return errors.NewObjectError("copy", task.SourceBucket, task.Key, errors.ConvertAWSError(err)).
			WithMessage("failed to get source object metadata")
	}

	size := aws.ToInt64(head.ContentLength)
	if size == 0 {
		size = task.Size
	}

	create := &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(task.DestinationBucket),
		Key:         aws.String(task.Key),
		ACL:         awstypes.ObjectCannedACLPrivate,
		ContentType: head.ContentType,
		Metadata:    head.Metadata,
	}
	if task.StorageClass != "" {
		create.StorageClass = awstypes.StorageClass(task.StorageClass)
	}

	created, err := c.s3Client.CreateMultipartUpload(ctx, create)
	if err != nil {
		return errors.NewObjectError("copy", task.DestinationBucket, task.Key, errors.ConvertAWSError(err)).
			WithMessage("failed to create multipart upload")
	}
	uploadID := aws.ToString(created.UploadId)

	parts, err := c.copyParts(ctx, task, uploadID, size)
	if err != nil {
		c.abortMultipartUpload(ctx, task, uploadID)
		return err
	}

	_, err = c.s3Client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(task.DestinationBucket),
		Key:             aws.String(task.Key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		c.abortMultipartUpload(ctx, task, uploadID)
		return errors.NewObjectError("copy", task.DestinationBucket, task.Key, errors.ConvertAWSError(err)).
			WithMessage("failed to complete multipart upload")
	}

	return nil
}

// PartSize returns the part size used to copy an object of size bytes.
func PartSize(size int64) int64 {
	partSize := int64(MinPartSize)
	if floor := (size + maxParts - 1) / maxParts; floor > partSize {
		partSize = floor
	}
	return partSize
}

// copyParts copies all byte ranges concurrently and returns the parts in
// part-number order.
func (c *Copier) copyParts(
	ctx context.Context,
	task archivetypes.CopyTask,
	uploadID string,
	size int64,
) ([]awstypes.CompletedPart, error) {
	partSize := PartSize(size)
	numParts := (size + partSize - 1) / partSize

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.partConcurrency)

	var mu sync.Mutex
	parts := make([]awstypes.CompletedPart, 0, numParts)

	for partNumber := int32(1); int64(partNumber) <= numParts; partNumber++ {
		start := int64(partNumber-1) * partSize
		end := min(start+partSize, size)

		g.Go(func() error {
			out, err := c.s3Client.UploadPartCopy(gctx, &s3.UploadPartCopyInput{
				Bucket:          aws.String(task.DestinationBucket),
				Key:             aws.String(task.Key),
				CopySource:      aws.String(CopySource(task.SourceBucket, task.Key)),
				CopySourceRange: aws.String(fmt.Sprintf("bytes=%d-%d", start, end-1)),
				UploadId:        aws.String(uploadID),
				PartNumber:      aws.Int32(partNumber),
			})
			if err != nil {
				return errors.NewObjectError("copy", task.DestinationBucket, task.Key, errors.ConvertAWSError(err)).
					WithMessage(fmt.Sprintf("failed to copy part %d", partNumber))
			}

			part := awstypes.CompletedPart{PartNumber: aws.Int32(partNumber)}
			if out.CopyPartResult != nil {
				part.ETag = out.CopyPartResult.ETag
				part.ChecksumCRC32 = out.CopyPartResult.ChecksumCRC32
				part.ChecksumCRC32C = out.CopyPartResult.ChecksumCRC32C
				part.ChecksumSHA1 = out.CopyPartResult.ChecksumSHA1
				part.ChecksumSHA256 = out.CopyPartResult.ChecksumSHA256
			}

			mu.Lock()
			parts = append(parts, part)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Parts must be ordered by part number
	sort.Slice(parts, func(i, j int) bool {
		return aws.ToInt32(parts[i].PartNumber) < aws.ToInt32(parts[j].PartNumber)
	})
	return parts, nil
}

// abortMultipartUpload cleans up a failed multipart copy
func (c *Copier) abortMultipartUpload(ctx context.Context, task archivetypes.CopyTask, uploadID string) {
	// Cleanup must run even when the run was interrupted
	_, _ = c.s3Client.AbortMultipartUpload(context.WithoutCancel(ctx), &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(task.DestinationBucket),
		Key:      aws.String(task.Key),
		UploadId: aws.String(uploadID),
	})
}
