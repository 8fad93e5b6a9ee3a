package s3archiver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/input-output-hk/catalyst-forge-libs/fs"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
)

// WithRegion sets the AWS region for both sides.
// If not specified, uses the region from the shared config, or us-east-1.
func WithRegion(region string) archivetypes.Option {
	return func(c *archivetypes.ClientConfig) {
		c.Region = region
	}
}

// WithEndpoint sets a custom S3 endpoint URL for both sides.
// This is useful for S3-compatible services or local testing.
func WithEndpoint(endpoint string) archivetypes.Option {
	return func(c *archivetypes.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithForcePathStyle forces the use of path-style URLs instead of virtual-hosted style.
func WithForcePathStyle(forcePathStyle bool) archivetypes.Option {
	return func(c *archivetypes.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithSourceProfile selects the shared-config profile for the source bucket.
func WithSourceProfile(profile string) archivetypes.Option {
	return func(c *archivetypes.ClientConfig) {
		c.SourceProfile = profile
	}
}

// WithDestinationProfile selects the shared-config profile for the destination bucket.
func WithDestinationProfile(profile string) archivetypes.Option {
	return func(c *archivetypes.ClientConfig) {
		c.DestinationProfile = profile
	}
}

// WithMaxRetries sets the maximum number of attempts the SDK makes per request.
// Default is 3.
func WithMaxRetries(maxRetries int) archivetypes.Option {
	return func(c *archivetypes.ClientConfig) {
		c.MaxRetries = maxRetries
	}
}

// WithMaxConnections sets the HTTP connection pool width of each S3 client.
// Default is 100. It should not be lower than the copy concurrency.
func WithMaxConnections(n int) archivetypes.Option {
	return func(c *archivetypes.ClientConfig) {
		if n > 0 {
			c.MaxConnections = n
		}
	}
}

// WithTimeout sets the timeout for individual HTTP requests.
// Default is no timeout (0).
func WithTimeout(timeout time.Duration) archivetypes.Option {
	return func(c *archivetypes.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithSourceAWSConfig provides the AWS configuration of the source side,
// bypassing shared-config loading.
func WithSourceAWSConfig(cfg *aws.Config) archivetypes.Option {
	return func(c *archivetypes.ClientConfig) {
		c.SourceAWSConfig = cfg
	}
}

// WithDestinationAWSConfig provides the AWS configuration of the destination side.
func WithDestinationAWSConfig(cfg *aws.Config) archivetypes.Option {
	return func(c *archivetypes.ClientConfig) {
		c.DestAWSConfig = cfg
	}
}

// WithCustomHTTPClient allows providing a custom HTTP client.
// WithMaxConnections and WithTimeout have no effect when it is set.
func WithCustomHTTPClient(client *http.Client) archivetypes.Option {
	return func(c *archivetypes.ClientConfig) {
		c.CustomHTTPClient = client
	}
}

// WithLogger sets the structured logger. Logs are discarded by default.
func WithLogger(logger *slog.Logger) archivetypes.Option {
	return func(c *archivetypes.ClientConfig) {
		c.Logger = logger
	}
}

// WithProgress sets the reporter receiving per-object progress events.
func WithProgress(progress archivetypes.ProgressReporter) archivetypes.Option {
	return func(c *archivetypes.ClientConfig) {
		c.Progress = progress
	}
}

// WithFilesystem sets the filesystem Archive reads from.
// If not specified, defaults to the OS filesystem.
func WithFilesystem(filesystem fs.Filesystem) archivetypes.Option {
	return func(c *archivetypes.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// WithPollInterval sets the wait between two restore polling passes.
// Default is 5 minutes.
func WithPollInterval(interval time.Duration) archivetypes.RunOption {
	return func(c *archivetypes.RunConfig) {
		if interval > 0 {
			c.PollInterval = interval
		}
	}
}

// WithRestoreDays sets how long restored copies stay readable. Default is 7.
func WithRestoreDays(days int32) archivetypes.RunOption {
	return func(c *archivetypes.RunConfig) {
		if days > 0 {
			c.RestoreDays = days
		}
	}
}

// WithRestoreTier sets the retrieval tier of restore requests. Default is Standard.
func WithRestoreTier(tier archivetypes.RestoreTier) archivetypes.RunOption {
	return func(c *archivetypes.RunConfig) {
		if tier != "" {
			c.RestoreTier = tier
		}
	}
}

// WithCopyConcurrency sets the number of objects copied in parallel. Default is 10.
func WithCopyConcurrency(n int) archivetypes.RunOption {
	return func(c *archivetypes.RunConfig) {
		if n > 0 {
			c.CopyConcurrency = n
		}
	}
}

// WithFastAccess keeps copied objects in the destination default storage
// class instead of the archive class.
func WithFastAccess(fastAccess bool) archivetypes.RunOption {
	return func(c *archivetypes.RunConfig) {
		c.FastAccess = fastAccess
	}
}

// WithArchiveStorageClass sets the class copies are written in when fast
// access is off. Default is GLACIER.
func WithArchiveStorageClass(class archivetypes.StorageClass) archivetypes.RunOption {
	return func(c *archivetypes.RunConfig) {
		if class != "" {
			c.ArchiveStorageClass = class
		}
	}
}

// WithPrefix restricts a migration to keys starting with prefix.
func WithPrefix(prefix string) archivetypes.RunOption {
	return func(c *archivetypes.RunConfig) {
		c.Prefix = prefix
	}
}

// WithStorageClass sets the storage class of archived files. Default is GLACIER.
func WithStorageClass(class archivetypes.StorageClass) archivetypes.UploadOption {
	return func(c *archivetypes.UploadConfig) {
		if class != "" {
			c.StorageClass = class
		}
	}
}

// WithPartSize sets the part size for multipart uploads.
// Must be at least 5MB for S3 multipart uploads.
func WithPartSize(partSize int64) archivetypes.UploadOption {
	return func(c *archivetypes.UploadConfig) {
		if partSize > 0 {
			c.PartSize = partSize
		}
	}
}

// WithUploadConcurrency sets the number of parts uploaded in parallel per file.
func WithUploadConcurrency(concurrency int) archivetypes.UploadOption {
	return func(c *archivetypes.UploadConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}
