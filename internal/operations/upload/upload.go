// Package upload archives the files of a local directory into a bucket.
// Files are uploaded one after another through the S3 transfer manager,
// which switches to multipart uploads for large files.
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/input-output-hk/catalyst-forge-libs/fs"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/internal/validation"
)

// DefaultContentType is used when neither the content nor the extension
// identify the file type.
const DefaultContentType = "application/octet-stream"

// Uploader uploads local files to S3.
type Uploader struct {
	uploader *manager.Uploader
	fs       fs.Filesystem
	config   archivetypes.UploadConfig
	progress archivetypes.ProgressReporter
	logger   *slog.Logger
}

// New creates a new Uploader reading from filesystem.
func New(
	s3Client s3api.S3API,
	filesystem fs.Filesystem,
	config archivetypes.UploadConfig,
	progress archivetypes.ProgressReporter,
	logger *slog.Logger,
) *Uploader {
	if config.StorageClass == "" {
		config.StorageClass = archivetypes.StorageClassGlacier
	}
	if progress == nil {
		progress = archivetypes.NopProgress{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Uploader{
		uploader: manager.NewUploader(s3Client, func(u *manager.Uploader) {
			if config.PartSize > 0 {
				u.PartSize = config.PartSize
			}
			if config.Concurrency > 0 {
				u.Concurrency = config.Concurrency
			}
		}),
		fs:       filesystem,
		config:   config,
		progress: progress,
		logger:   logger,
	}
}

// Key returns the object key for a file name under prefix.
func Key(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Files returns the regular files directly under dir, sorted by name.
// Subdirectories are not descended into.
func (u *Uploader) Files(dir string) ([]os.FileInfo, error) {
	var files []os.FileInfo

	err := u.fs.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p == dir {
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}
			return nil
		}
		if info.IsDir() {
			return filepath.SkipDir
		}

		if info.Mode()&os.ModeSymlink != 0 {
			target, err := u.fs.Stat(p)
			if err != nil || target.IsDir() {
				return nil
			}
			info = target
		}
		if info.Mode().IsRegular() {
			files = append(files, info)
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewError("upload", err).WithMessage("failed to read directory " + dir)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })
	return files, nil
}

// UploadDir uploads every regular file directly under dir to bucket.
// The first failure stops the upload.
func (u *Uploader) UploadDir(ctx context.Context, dir, bucket, prefix string) (*archivetypes.ArchiveResult, error) {
	start := time.Now()
	result := &archivetypes.ArchiveResult{}

	files, err := u.Files(dir)
	if err != nil {
		return nil, err
	}

	for _, info := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		key := Key(prefix, info.Name())
		if err := validation.ValidateObjectKey(key); err != nil {
			return result, err
		}

		if err := u.uploadFile(ctx, filepath.Join(dir, info.Name()), bucket, key); err != nil {
			return result, err
		}

		result.Uploaded = append(result.Uploaded, key)
		result.Bytes += info.Size()
		u.progress.Uploaded(key)
		u.logger.Info("uploaded file", "bucket", bucket, "key", key, "size", info.Size())
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (u *Uploader) uploadFile(ctx context.Context, name, bucket, key string) error {
	file, err := u.fs.Open(name)
	if err != nil {
		return errors.NewObjectError("upload", bucket, key, err).WithMessage("failed to open " + name)
	}
	defer file.Close()

	contentType, err := DetectContentType(file, name)
	if err != nil {
		return errors.NewObjectError("upload", bucket, key, err).WithMessage("failed to read " + name)
	}

	_, err = u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(bucket),
		Key:          aws.String(key),
		Body:         file,
		ContentType:  aws.String(contentType),
		StorageClass: awstypes.StorageClass(u.config.StorageClass),
		ACL:          awstypes.ObjectCannedACLPrivate,
	})
	if err != nil {
		return errors.NewObjectError("upload", bucket, key, errors.ConvertAWSError(err))
	}

	return nil
}

// DetectContentType sniffs the content of r, falling back to the extension
// of name. r is rewound to its start afterwards.
func DetectContentType(r io.ReadSeeker, name string) (string, error) {
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return "", err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	if mt != nil && !mt.Is(DefaultContentType) {
		return mt.String(), nil
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt, nil
		}
	}

	return DefaultContentType, nil
}
