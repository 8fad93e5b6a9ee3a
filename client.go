package s3archiver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/internal/s3api"
)

const (
	// DefaultRegion is used when neither the options nor the shared config set one
	DefaultRegion = "us-east-1"

	// DefaultMaxConnections is the HTTP connection pool width per client
	DefaultMaxConnections = 100

	// DefaultMaxRetries is the number of attempts the SDK makes per request
	DefaultMaxRetries = 3
)

// Client runs archive workflows against a source and a destination S3
// client. Both may be the same. It is safe for concurrent use.
type Client struct {
	// source reads, restores and copies the objects being migrated
	source s3api.S3API

	// dest checks the destination bucket and receives uploads
	dest s3api.S3API

	logger   *slog.Logger
	progress archivetypes.ProgressReporter
	fs       fs.Filesystem

	// localFS is set when fs is the OS filesystem rooted at /
	localFS bool
}

// New creates a client with two S3 clients built from the shared AWS
// configuration. WithSourceProfile and WithDestinationProfile select the
// credentials of each side; without them both sides use the default chain.
//
// Example:
//
//	client, err := s3archiver.New(ctx,
//	    s3archiver.WithRegion("eu-west-1"),
//	    s3archiver.WithSourceProfile("legacy-account"),
//	)
func New(ctx context.Context, opts ...archivetypes.Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	source, err := newS3Client(ctx, cfg, cfg.SourceProfile, cfg.SourceAWSConfig)
	if err != nil {
		return nil, errors.NewError("client initialization", err).WithMessage("source")
	}

	dest, err := newS3Client(ctx, cfg, cfg.DestinationProfile, cfg.DestAWSConfig)
	if err != nil {
		return nil, errors.NewError("client initialization", err).WithMessage("destination")
	}

	return newClient(source, dest, cfg), nil
}

// NewWithClients creates a client around existing S3 implementations.
// This is primarily used for testing with fake backends.
func NewWithClients(source, dest s3api.S3API, opts ...archivetypes.Option) *Client {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return newClient(source, dest, cfg)
}

func defaultClientConfig() *archivetypes.ClientConfig {
	return &archivetypes.ClientConfig{
		MaxRetries:     DefaultMaxRetries,
		MaxConnections: DefaultMaxConnections,
	}
}

func newClient(source, dest s3api.S3API, cfg *archivetypes.ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	progress := cfg.Progress
	if progress == nil {
		progress = archivetypes.NopProgress{}
	}

	filesystem, localFS := cfg.Filesystem, false
	if filesystem == nil {
		filesystem, localFS = billy.NewOSFS("/"), true
	}

	return &Client{
		source:   source,
		dest:     dest,
		logger:   logger,
		progress: progress,
		fs:       filesystem,
		localFS:  localFS,
	}
}

// newS3Client builds an S3 client for one side of a migration.
func newS3Client(
	ctx context.Context,
	cfg *archivetypes.ClientConfig,
	profile string,
	custom *aws.Config,
) (*s3.Client, error) {
	var awsCfg aws.Config

	if custom != nil {
		awsCfg = custom.Copy()
	} else {
		loadOpts := []func(*config.LoadOptions) error{
			config.WithHTTPClient(httpClient(cfg)),
		}
		if profile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(profile))
		}
		if cfg.MaxRetries > 0 {
			loadOpts = append(loadOpts, config.WithRetryMaxAttempts(cfg.MaxRetries))
		}

		var err error
		awsCfg, err = config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, err
		}
	}

	// Apply region from options if specified, otherwise ensure a region is set
	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	} else if awsCfg.Region == "" {
		awsCfg.Region = DefaultRegion
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	}), nil
}

// httpClient returns the configured HTTP client, or a pooled client sized
// to MaxConnections so that every copy worker can hold a connection.
func httpClient(cfg *archivetypes.ClientConfig) config.HTTPClient {
	if cfg.CustomHTTPClient != nil {
		return cfg.CustomHTTPClient
	}

	client := awshttp.NewBuildableClient().WithTransportOptions(func(tr *http.Transport) {
		if cfg.MaxConnections > 0 {
			tr.MaxIdleConns = cfg.MaxConnections
			tr.MaxIdleConnsPerHost = cfg.MaxConnections
			tr.MaxConnsPerHost = cfg.MaxConnections
		}
	})
	if cfg.Timeout > 0 {
		client = client.WithTimeout(cfg.Timeout)
	}
	return client
}
