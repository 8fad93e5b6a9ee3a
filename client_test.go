package s3archiver

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/internal/testutil"
)

func TestNewWithClients_Defaults(t *testing.T) {
	backend := testutil.NewFakeBackend()
	client := NewWithClients(backend, backend)

	assert.NotNil(t, client.logger)
	assert.IsType(t, archivetypes.NopProgress{}, client.progress)
	assert.IsType(t, &billy.FS{}, client.fs)
	assert.True(t, client.localFS)
}

func TestNewWithClients_Options(t *testing.T) {
	backend := testutil.NewFakeBackend()
	logger := slog.New(slog.DiscardHandler)
	progress := &testutil.MockProgress{}
	memFS := billy.NewInMemoryFS()

	client := NewWithClients(backend, backend,
		WithLogger(logger),
		WithProgress(progress),
		WithFilesystem(memFS),
	)

	assert.Same(t, logger, client.logger)
	assert.Same(t, progress, client.progress)
	assert.Same(t, memFS, client.fs)
	assert.False(t, client.localFS)
}

func TestClientOptions(t *testing.T) {
	custom := &http.Client{}
	cfg := defaultClientConfig()

	for _, opt := range []archivetypes.Option{
		WithRegion("eu-west-1"),
		WithEndpoint("http://localhost:4566"),
		WithForcePathStyle(true),
		WithSourceProfile("source_archive_profile"),
		WithDestinationProfile("backup"),
		WithMaxRetries(5),
		WithMaxConnections(0),
		WithTimeout(30 * time.Second),
		WithCustomHTTPClient(custom),
	} {
		opt(cfg)
	}

	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, "http://localhost:4566", cfg.Endpoint)
	assert.True(t, cfg.ForcePathStyle)
	assert.Equal(t, "source_archive_profile", cfg.SourceProfile)
	assert.Equal(t, "backup", cfg.DestinationProfile)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, DefaultMaxConnections, cfg.MaxConnections, "non-positive width is ignored")
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Same(t, custom, httpClient(cfg))
}

func TestRunOptions(t *testing.T) {
	cfg := DefaultRunConfig()

	for _, opt := range []archivetypes.RunOption{
		WithPollInterval(0),
		WithRestoreDays(-1),
		WithRestoreTier(""),
		WithCopyConcurrency(0),
		WithArchiveStorageClass(""),
	} {
		opt(&cfg)
	}
	assert.Equal(t, DefaultRunConfig(), cfg, "zero values keep defaults")

	for _, opt := range []archivetypes.RunOption{
		WithPollInterval(time.Minute),
		WithRestoreDays(2),
		WithRestoreTier(archivetypes.RestoreTierBulk),
		WithCopyConcurrency(32),
		WithFastAccess(true),
		WithPrefix("2019/"),
	} {
		opt(&cfg)
	}
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, int32(2), cfg.RestoreDays)
	assert.Equal(t, archivetypes.RestoreTierBulk, cfg.RestoreTier)
	assert.Equal(t, 32, cfg.CopyConcurrency)
	assert.Equal(t, "2019/", cfg.Prefix)
	assert.Empty(t, cfg.TargetStorageClass())
}

func TestUploadOptions(t *testing.T) {
	var cfg archivetypes.UploadConfig
	WithStorageClass(archivetypes.StorageClassDeepArchive)(&cfg)
	WithPartSize(16 << 20)(&cfg)
	WithUploadConcurrency(3)(&cfg)

	assert.Equal(t, archivetypes.StorageClassDeepArchive, cfg.StorageClass)
	assert.Equal(t, int64(16<<20), cfg.PartSize)
	assert.Equal(t, 3, cfg.Concurrency)
}

func TestNew_WithAWSConfig(t *testing.T) {
	source := aws.Config{Region: "eu-central-1", Credentials: aws.AnonymousCredentials{}}
	dest := aws.Config{Credentials: aws.AnonymousCredentials{}}

	client, err := New(context.Background(),
		WithSourceAWSConfig(&source),
		WithDestinationAWSConfig(&dest),
		WithEndpoint("http://localhost:9000"),
		WithForcePathStyle(true),
	)
	require.NoError(t, err)

	src, ok := client.source.(*s3.Client)
	require.True(t, ok)
	assert.Equal(t, "eu-central-1", src.Options().Region)
	assert.Equal(t, "http://localhost:9000", aws.ToString(src.Options().BaseEndpoint))
	assert.True(t, src.Options().UsePathStyle)

	dst, ok := client.dest.(*s3.Client)
	require.True(t, ok)
	assert.Equal(t, DefaultRegion, dst.Options().Region, "region falls back to the default")

	assert.Empty(t, dest.Region, "caller config is not modified")
}

func TestNew_RegionOverride(t *testing.T) {
	cfg := aws.Config{Region: "eu-central-1", Credentials: aws.AnonymousCredentials{}}

	client, err := New(context.Background(),
		WithSourceAWSConfig(&cfg),
		WithDestinationAWSConfig(&cfg),
		WithRegion("ap-south-1"),
	)
	require.NoError(t, err)

	assert.Equal(t, "ap-south-1", client.source.(*s3.Client).Options().Region)
	assert.Equal(t, "ap-south-1", client.dest.(*s3.Client).Options().Region)
	assert.False(t, client.dest.(*s3.Client).Options().UsePathStyle)
}
