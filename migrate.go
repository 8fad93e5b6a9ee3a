package s3archiver

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/internal/operations/copy"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/internal/operations/list"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/internal/operations/restore"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/internal/validation"
)

// Run defaults
const (
	DefaultPollInterval    = 300 * time.Second
	DefaultRestoreDays     = 7
	DefaultRestoreTier     = archivetypes.RestoreTierStandard
	DefaultCopyConcurrency = copy.DefaultConcurrency
	DefaultArchiveClass    = archivetypes.StorageClassGlacier
)

// DefaultRunConfig returns the configuration used when no RunOption is given.
func DefaultRunConfig() archivetypes.RunConfig {
	return archivetypes.RunConfig{
		PollInterval:        DefaultPollInterval,
		RestoreDays:         DefaultRestoreDays,
		RestoreTier:         DefaultRestoreTier,
		CopyConcurrency:     DefaultCopyConcurrency,
		ArchiveStorageClass: DefaultArchiveClass,
	}
}

// Migrate copies every object of srcBucket to dstBucket under the same key.
//
// Both buckets must exist; a missing bucket fails the run with
// ErrBucketNotFound before any object is touched. Objects held in GLACIER
// or DEEP_ARCHIVE are restored first. The source is re-polled every poll
// interval until no restore is pending, then the objects are copied by a
// bounded pool of workers. The wait is unbounded; cancel ctx to stop.
//
// Unless fast access is enabled, copies are written in the archive storage
// class.
func (c *Client) Migrate(
	ctx context.Context,
	srcBucket, dstBucket string,
	opts ...archivetypes.RunOption,
) (*archivetypes.MigrateResult, error) {
	start := time.Now()

	run := DefaultRunConfig()
	for _, opt := range opts {
		opt(&run)
	}
	run.SourceBucket = srcBucket
	run.DestinationBucket = dstBucket

	if err := validateRun(&run); err != nil {
		return nil, err
	}

	if err := c.requireBucket(ctx, c.source, srcBucket); err != nil {
		return nil, err
	}
	if err := c.requireBucket(ctx, c.dest, dstBucket); err != nil {
		return nil, err
	}

	c.logger.Info("populating list of objects", "bucket", srcBucket, "prefix", run.Prefix)
	objects, err := list.New(c.source).ListAll(ctx, &list.Config{Bucket: srcBucket, Prefix: run.Prefix})
	if err != nil {
		return nil, err
	}
	result := &archivetypes.MigrateResult{Objects: len(objects)}

	c.logger.Info("objects in GLACIER or DEEP_ARCHIVE are restored before they are copied")
	classifier := restore.NewClassifier(c.source, restore.ClassifierConfig{
		Days: run.RestoreDays,
		Tier: run.RestoreTier,
	}, c.progress, c.logger)
	tracker := restore.NewTracker(classifier, srcBucket, run.PollInterval, c.progress, c.logger)

	restored, err := tracker.Run(ctx, objects)
	result.Passes = restored.Passes
	result.RestoresRequested = restored.Requested
	if err != nil {
		result.Duration = time.Since(start)
		return result, err
	}

	c.logger.Info("copying objects",
		"from", srcBucket,
		"to", dstBucket,
		"objects", len(restored.Copyable),
		"workers", run.CopyConcurrency,
		"storage_class", string(run.TargetStorageClass()))

	// Copies run on the source credentials, which must be able to write to
	// the destination bucket
	dispatcher := copy.NewDispatcher(copy.NewCopier(c.source), copy.DispatchConfig{
		SourceBucket:      srcBucket,
		DestinationBucket: dstBucket,
		StorageClass:      run.TargetStorageClass(),
		Concurrency:       run.CopyConcurrency,
	}, c.progress, c.logger)

	result.Copied, err = dispatcher.Dispatch(ctx, restored.Copyable)
	result.Duration = time.Since(start)
	if err != nil {
		return result, err
	}

	c.logger.Info("objects copied", "copied", result.Copied, "duration", result.Duration.String())
	c.logger.Info("restoration complete")
	return result, nil
}

func validateRun(run *archivetypes.RunConfig) error {
	if err := validation.ValidateBucketName(run.SourceBucket); err != nil {
		return err
	}
	if err := validation.ValidateBucketName(run.DestinationBucket); err != nil {
		return err
	}
	return validation.ValidatePrefix(run.Prefix)
}

// BucketExists reports whether bucket exists and is reachable with the
// destination credentials. A service error such as NotFound or Forbidden
// yields false; transport failures are returned.
func (c *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return c.bucketExists(ctx, c.dest, bucket)
}

// SourceBucketExists is BucketExists with the source credentials.
func (c *Client) SourceBucketExists(ctx context.Context, bucket string) (bool, error) {
	return c.bucketExists(ctx, c.source, bucket)
}

func (c *Client) bucketExists(ctx context.Context, client s3api.S3API, bucket string) (bool, error) {
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return true, nil
	}

	if errors.IsAPIError(err) {
		c.logger.Debug("bucket check failed", "bucket", bucket, "error", err)
		return false, nil
	}

	return false, errors.NewBucketError("exists", bucket, err)
}

// requireBucket fails with ErrBucketNotFound when bucket does not exist.
func (c *Client) requireBucket(ctx context.Context, client s3api.S3API, bucket string) error {
	exists, err := c.bucketExists(ctx, client, bucket)
	if err != nil {
		return err
	}
	if !exists {
		c.logger.Error("bucket doesn't exist", "bucket", bucket)
		return errors.NewBucketError("exists", bucket, errors.ErrBucketNotFound)
	}
	return nil
}
