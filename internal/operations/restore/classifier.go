// Package restore drives cold-archive objects to a readable state.
// The Classifier inspects one object and requests its restore when needed;
// the Tracker re-polls the whole object set until nothing is pending.
package restore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/errors"
)

// S3Interface defines the S3 operations we need.
type S3Interface interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	RestoreObject(
		ctx context.Context,
		params *s3.RestoreObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.RestoreObjectOutput, error)
}

// ClassifierConfig holds the restore request parameters.
type ClassifierConfig struct {
	Days int32
	Tier archivetypes.RestoreTier
}

// Classifier determines the restoration state of single objects.
// A Classifier belongs to one run: it remembers which keys it has already
// requested so that no object is requested twice.
type Classifier struct {
	client   S3Interface
	config   ClassifierConfig
	progress archivetypes.ProgressReporter
	logger   *slog.Logger

	mu        sync.Mutex
	requested map[string]struct{}
}

// NewClassifier creates a classifier for one run.
func NewClassifier(
	client S3Interface,
	config ClassifierConfig,
	progress archivetypes.ProgressReporter,
	logger *slog.Logger,
) *Classifier {
	if progress == nil {
		progress = archivetypes.NopProgress{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Classifier{
		client:    client,
		config:    config,
		progress:  progress,
		logger:    logger,
		requested: make(map[string]struct{}),
	}
}

// Classify reads the live metadata of bucket/key and returns its state.
// An archived object without a restore marker gets a restore request,
// unless this classifier already requested it.
func (c *Classifier) Classify(ctx context.Context, bucket, key string) (archivetypes.RestorationState, error) {
	head, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, errors.NewObjectError("classify", bucket, key, errors.ConvertAWSError(err))
	}

	state, err := c.classify(ctx, bucket, key, head)
	if err != nil {
		return 0, err
	}

	c.progress.Classified(key, state)
	return state, nil
}

func (c *Classifier) classify(
	ctx context.Context,
	bucket, key string,
	head *s3.HeadObjectOutput,
) (archivetypes.RestorationState, error) {
	if !archivetypes.StorageClass(head.StorageClass).Normalize().IsColdArchive() {
		return archivetypes.StateNotApplicable, nil
	}

	marker, err := ParseMarker(head.Restore)
	if err != nil {
		return 0, errors.NewObjectError("classify", bucket, key, err)
	}

	switch marker.Status {
	case MarkerInProgress:
		return archivetypes.StateInProgress, nil
	case MarkerComplete:
		return archivetypes.StateReady, nil
	}

	if c.wasRequested(key) {
		// The backend has not published the marker yet
		return archivetypes.StateInProgress, nil
	}

	return c.request(ctx, bucket, key)
}

func (c *Classifier) request(ctx context.Context, bucket, key string) (archivetypes.RestorationState, error) {
	_, err := c.client.RestoreObject(ctx, &s3.RestoreObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		RestoreRequest: &awstypes.RestoreRequest{
			Days: aws.Int32(c.config.Days),
			GlacierJobParameters: &awstypes.GlacierJobParameters{
				Tier: awstypes.Tier(c.config.Tier),
			},
		},
	})

	c.markRequested(key)

	if err != nil {
		err = errors.ConvertAWSError(err)
		if errors.IsRestoreInProgress(err) {
			c.logger.Debug("restore already in progress", "bucket", bucket, "key", key)
			return archivetypes.StateInProgress, nil
		}
		return 0, errors.NewObjectError("restore", bucket, key, fmt.Errorf("request restore: %w", err))
	}

	c.logger.Debug("restore requested",
		"bucket", bucket,
		"key", key,
		"days", c.config.Days,
		"tier", string(c.config.Tier))
	return archivetypes.StateRequested, nil
}

// Requested returns the number of keys this classifier has requested.
func (c *Classifier) Requested() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requested)
}

func (c *Classifier) wasRequested(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.requested[key]
	return ok
}

func (c *Classifier) markRequested(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requested[key] = struct{}{}
}
