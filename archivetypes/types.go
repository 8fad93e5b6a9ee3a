// Package archivetypes provides shared type definitions for the s3archiver module.
package archivetypes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
)

// StorageClass represents the S3 storage class for objects.
type StorageClass string

// Predefined S3 storage classes
const (
	// StorageClassStandard is the default S3 storage class
	StorageClassStandard StorageClass = "STANDARD"

	// StorageClassReducedRedundancy provides reduced redundancy storage
	StorageClassReducedRedundancy StorageClass = "REDUCED_REDUNDANCY"

	// StorageClassStandardIA provides infrequent access storage
	StorageClassStandardIA StorageClass = "STANDARD_IA"

	// StorageClassOneZoneIA provides one zone infrequent access storage
	StorageClassOneZoneIA StorageClass = "ONEZONE_IA"

	// StorageClassIntelligentTiering provides intelligent tiering storage
	StorageClassIntelligentTiering StorageClass = "INTELLIGENT_TIERING"

	// StorageClassGlacier provides Glacier Flexible Retrieval storage
	StorageClassGlacier StorageClass = "GLACIER"

	// StorageClassDeepArchive provides Deep Archive storage
	StorageClassDeepArchive StorageClass = "DEEP_ARCHIVE"

	// StorageClassGlacierIR provides Glacier Instant Retrieval storage
	StorageClassGlacierIR StorageClass = "GLACIER_IR"
)

// IsColdArchive reports whether objects in this class must be restored
// before they can be read. GLACIER_IR is readable directly and is not cold.
func (s StorageClass) IsColdArchive() bool {
	return s == StorageClassGlacier || s == StorageClassDeepArchive
}

// Normalize maps the empty class reported by S3 for STANDARD objects to
// StorageClassStandard.
func (s StorageClass) Normalize() StorageClass {
	if s == "" {
		return StorageClassStandard
	}
	return s
}

// RestoreTier is the retrieval priority of a restore request.
type RestoreTier string

// Retrieval tiers accepted by RestoreObject
const (
	RestoreTierExpedited RestoreTier = "Expedited"
	RestoreTierStandard  RestoreTier = "Standard"
	RestoreTierBulk      RestoreTier = "Bulk"
)

// RestorationState is the restore status of one object as observed on a
// single classification pass.
type RestorationState int

const (
	// StateNotApplicable means the object is not in a cold-archive class and
	// can be copied as is.
	StateNotApplicable RestorationState = iota

	// StateRequested means a restore request was issued on this pass.
	StateRequested

	// StateInProgress means a restore job is running on the backend.
	StateInProgress

	// StateReady means the restore job finished and the object is readable.
	StateReady
)

// String returns the state name used in logs.
func (s RestorationState) String() string {
	switch s {
	case StateNotApplicable:
		return "not-applicable"
	case StateRequested:
		return "requested"
	case StateInProgress:
		return "in-progress"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Remaining reports whether the object still blocks the copy phase.
func (s RestorationState) Remaining() bool {
	return s == StateRequested || s == StateInProgress
}

// Copyable reports whether the object may be copied.
func (s RestorationState) Copyable() bool {
	return s == StateNotApplicable || s == StateReady
}

// Object represents an S3 object captured by a listing.
// The captured storage class is informational; classification always
// re-reads live metadata.
type Object struct {
	// Key is the S3 object key (path)
	Key string

	// Size is the object size in bytes
	Size int64

	// LastModified is when the object was last modified
	LastModified time.Time

	// ETag is the S3 entity tag for the object
	ETag string

	// StorageClass is the S3 storage class at listing time
	StorageClass StorageClass
}

// CopyTask describes one server-side copy.
type CopyTask struct {
	SourceBucket      string
	DestinationBucket string
	Key               string

	// StorageClass overrides the destination class. Empty means the
	// destination default.
	StorageClass StorageClass

	// Size is the source object size, used to pick simple or multipart copy
	Size int64
}

// PassSummary counts the outcomes of one classification pass.
type PassSummary struct {
	Pass          int
	NotApplicable int
	Requested     int
	InProgress    int
	Ready         int
}

// Add counts one classification outcome.
func (p *PassSummary) Add(state RestorationState) {
	switch state {
	case StateNotApplicable:
		p.NotApplicable++
	case StateRequested:
		p.Requested++
	case StateInProgress:
		p.InProgress++
	case StateReady:
		p.Ready++
	}
}

// Remaining returns the number of objects that are not yet copyable.
func (p PassSummary) Remaining() int {
	return p.Requested + p.InProgress
}

// Total returns the number of classified objects.
func (p PassSummary) Total() int {
	return p.NotApplicable + p.Requested + p.InProgress + p.Ready
}

// ProgressReporter receives per-object progress events.
// Implementations must be safe for concurrent use; Copied is called from
// copy workers.
type ProgressReporter interface {
	// Classified is called once per object per classification pass
	Classified(key string, state RestorationState)

	// Copied is called when an object has been copied to the destination
	Copied(key string)

	// Uploaded is called when a local file has been archived
	Uploaded(key string)

	// Flush ends the current line of progress output
	Flush()
}

// NopProgress discards all progress events.
type NopProgress struct{}

func (NopProgress) Classified(string, RestorationState) {}
func (NopProgress) Copied(string)                       {}
func (NopProgress) Uploaded(string)                     {}
func (NopProgress) Flush()                              {}

// MigrateResult contains the result of a bucket migration.
type MigrateResult struct {
	// Objects is the number of objects found in the source bucket
	Objects int

	// Passes is the number of classification passes performed
	Passes int

	// RestoresRequested is the number of restore requests issued by this run
	RestoresRequested int

	// Copied is the number of objects copied to the destination
	Copied int

	// Duration is how long the migration took
	Duration time.Duration
}

// ArchiveResult contains the result of archiving a local directory.
type ArchiveResult struct {
	// Uploaded contains the keys written to the bucket, in upload order
	Uploaded []string

	// Bytes is the total number of bytes uploaded
	Bytes int64

	// Duration is how long the upload took
	Duration time.Duration
}

// Configuration types for functional options

// ClientConfig holds configuration for the archiver client.
type ClientConfig struct {
	Region             string
	Endpoint           string
	SourceProfile      string
	DestinationProfile string
	MaxRetries         int
	MaxConnections     int
	Timeout            time.Duration
	ForcePathStyle     bool
	SourceAWSConfig    *aws.Config
	DestAWSConfig      *aws.Config
	CustomHTTPClient   *http.Client
	Logger             *slog.Logger
	Progress           ProgressReporter
	Filesystem         fs.Filesystem
}

// RunConfig is the immutable configuration of one migration run.
type RunConfig struct {
	SourceBucket      string
	DestinationBucket string
	Prefix            string

	PollInterval time.Duration
	RestoreDays  int32
	RestoreTier  RestoreTier

	CopyConcurrency int

	// FastAccess leaves copied objects in the destination default class
	FastAccess bool

	// ArchiveStorageClass is applied to copies when FastAccess is false
	ArchiveStorageClass StorageClass
}

// TargetStorageClass returns the storage class override for copied objects.
func (r *RunConfig) TargetStorageClass() StorageClass {
	if r.FastAccess {
		return ""
	}
	return r.ArchiveStorageClass
}

// UploadConfig holds configuration for archiving local files.
type UploadConfig struct {
	StorageClass StorageClass
	PartSize     int64
	Concurrency  int
}

// Option is a functional option for configuring the archiver client.
type (
	Option func(*ClientConfig)
	// RunOption is a functional option for configuring a migration run.
	RunOption func(*RunConfig)
	// UploadOption is a functional option for configuring an archive upload.
	UploadOption func(*UploadConfig)
)
