package s3archiver

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/internal/validation"
)

// Archive uploads every regular file directly under dir to bucket, keyed
// as prefix/filename. Subdirectories are skipped. Files are written with a
// private ACL in the GLACIER storage class unless WithStorageClass says
// otherwise. Leading slashes of prefix are dropped. The first failed
// upload stops the run.
func (c *Client) Archive(
	ctx context.Context,
	dir, bucket, prefix string,
	opts ...archivetypes.UploadOption,
) (*archivetypes.ArchiveResult, error) {
	cfg := archivetypes.UploadConfig{StorageClass: archivetypes.StorageClassGlacier}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}
	// Local folder prefixes are often written as absolute paths.
	prefix = strings.TrimLeft(prefix, "/")
	if err := validation.ValidatePrefix(prefix); err != nil {
		return nil, err
	}

	if c.localFS {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, errors.NewError("archive", err).WithMessage("failed to resolve " + dir)
		}
		dir = abs
	}

	if err := c.requireBucket(ctx, c.dest, bucket); err != nil {
		return nil, err
	}

	c.logger.Info("archiving directory", "dir", dir, "bucket", bucket, "prefix", prefix,
		"storage_class", string(cfg.StorageClass))

	result, err := upload.New(c.dest, c.fs, cfg, c.progress, c.logger).UploadDir(ctx, dir, bucket, prefix)
	if err != nil {
		return result, err
	}

	c.logger.Info("archive complete", "files", len(result.Uploaded), "bytes", result.Bytes,
		"duration", result.Duration.String())
	return result, nil
}
