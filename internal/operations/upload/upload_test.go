package upload

import (
	"bytes"
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/internal/testutil"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func seedFS(t *testing.T) *billy.FS {
	t.Helper()

	memFS := billy.NewInMemoryFS()
	require.NoError(t, memFS.MkdirAll("photos/nested", 0o755))
	require.NoError(t, memFS.WriteFile("photos/b.png", pngHeader, 0o644))
	require.NoError(t, memFS.WriteFile("photos/a.txt", []byte("hello archive"), 0o644))
	require.NoError(t, memFS.WriteFile("photos/nested/skip.txt", []byte("not uploaded"), 0o644))
	return memFS
}

func TestKey(t *testing.T) {
	tests := []struct {
		prefix string
		name   string
		want   string
	}{
		{"", "a.txt", "a.txt"},
		{"backups", "a.txt", "backups/a.txt"},
		{"backups/", "a.txt", "backups/a.txt"},
		{"backups/2024", "a.txt", "backups/2024/a.txt"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Key(tt.prefix, tt.name))
	}
}

func TestUploader_Files(t *testing.T) {
	u := New(testutil.NewFakeBackend("dst"), seedFS(t), archivetypes.UploadConfig{}, nil, nil)

	files, err := u.Files("photos")
	require.NoError(t, err)

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"a.txt", "b.png"}, names, "directories are skipped")
}

func TestUploader_Files_Errors(t *testing.T) {
	tests := []struct {
		name string
		dir  string
	}{
		{name: "missing", dir: "nowhere"},
		{name: "regular file", dir: "photos/a.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := New(testutil.NewFakeBackend("dst"), seedFS(t), archivetypes.UploadConfig{}, nil, nil)

			_, err := u.Files(tt.dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.dir)
		})
	}
}

func TestUploader_UploadDir_OSFilesystem(t *testing.T) {
	dir := t.TempDir()
	osFS := billy.NewOSFS(dir)
	require.NoError(t, osFS.MkdirAll("logs/rotated", 0o755))
	require.NoError(t, osFS.WriteFile("logs/app.log", []byte("started"), 0o644))
	require.NoError(t, osFS.WriteFile("logs/rotated/app.log.1", []byte("old"), 0o644))

	backend := testutil.NewFakeBackend("dst")
	result, err := New(backend, osFS, archivetypes.UploadConfig{}, nil, nil).UploadDir(context.Background(), "logs", "dst", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"app.log"}, result.Uploaded)
	obj, ok := backend.Object("dst", "app.log")
	require.True(t, ok)
	assert.Equal(t, "started", string(obj.Body))
}

func TestUploader_UploadDir(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		class     archivetypes.StorageClass
		wantKeys  []string
		wantClass archivetypes.StorageClass
	}{
		{
			name:      "no prefix",
			wantKeys:  []string{"a.txt", "b.png"},
			wantClass: archivetypes.StorageClassGlacier,
		},
		{
			name:      "prefix and deep archive",
			prefix:    "2024/photos",
			class:     archivetypes.StorageClassDeepArchive,
			wantKeys:  []string{"2024/photos/a.txt", "2024/photos/b.png"},
			wantClass: archivetypes.StorageClassDeepArchive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := testutil.NewFakeBackend("dst")
			progress := &testutil.MockProgress{}
			u := New(backend, seedFS(t), archivetypes.UploadConfig{StorageClass: tt.class}, progress, nil)

			result, err := u.UploadDir(context.Background(), "photos", "dst", tt.prefix)
			require.NoError(t, err)

			assert.Equal(t, tt.wantKeys, result.Uploaded)
			assert.Equal(t, tt.wantKeys, progress.UploadedKeys)
			assert.Equal(t, tt.wantKeys, backend.Keys("dst"))
			assert.Equal(t, int64(len("hello archive")+len(pngHeader)), result.Bytes)

			text, ok := backend.Object("dst", tt.wantKeys[0])
			require.True(t, ok)
			assert.Equal(t, "hello archive", string(text.Body))
			assert.Equal(t, tt.wantClass, text.StorageClass)
			assert.Contains(t, text.ContentType, "text/plain")

			image, ok := backend.Object("dst", tt.wantKeys[1])
			require.True(t, ok)
			assert.Equal(t, "image/png", image.ContentType)
		})
	}
}

func TestUploader_UploadDir_StopsOnFirstError(t *testing.T) {
	backend := testutil.NewFakeBackend("dst")
	backend.FailOn("PutObject", "a.txt", &smithy.GenericAPIError{Code: "AccessDenied"})

	u := New(backend, seedFS(t), archivetypes.UploadConfig{}, nil, nil)
	result, err := u.UploadDir(context.Background(), "photos", "dst", "")

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAccessDenied)
	assert.Empty(t, result.Uploaded)
	assert.Equal(t, 1, backend.Calls("PutObject"), "b.png is never attempted")
}

func TestUploader_UploadDir_MissingDirectory(t *testing.T) {
	backend := testutil.NewFakeBackend("dst")
	u := New(backend, billy.NewInMemoryFS(), archivetypes.UploadConfig{}, nil, nil)

	_, err := u.UploadDir(context.Background(), "nowhere", "dst", "")
	require.Error(t, err)
	assert.Equal(t, 0, backend.TotalCalls())
}

func TestUploader_UploadDir_EmptyDirectory(t *testing.T) {
	memFS := billy.NewInMemoryFS()
	require.NoError(t, memFS.MkdirAll("empty", 0o755))

	backend := testutil.NewFakeBackend("dst")
	result, err := New(backend, memFS, archivetypes.UploadConfig{}, nil, nil).UploadDir(context.Background(), "empty", "dst", "x")
	require.NoError(t, err)
	assert.Empty(t, result.Uploaded)
	assert.Equal(t, 0, backend.Calls("PutObject"))
}

func TestUploader_RequestShape(t *testing.T) {
	var got *s3.PutObjectInput
	mock := &testutil.MockS3Client{
		PutObjectFunc: func(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			got = input
			return &s3.PutObjectOutput{}, nil
		},
	}

	memFS := billy.NewInMemoryFS()
	require.NoError(t, memFS.MkdirAll("in", 0o755))
	require.NoError(t, memFS.WriteFile("in/data.bin", []byte{0x00, 0x01, 0x02, 0x03}, 0o644))

	_, err := New(mock, memFS, archivetypes.UploadConfig{}, nil, nil).UploadDir(context.Background(), "in", "dst", "p")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "dst", *got.Bucket)
	assert.Equal(t, "p/data.bin", *got.Key)
	assert.Equal(t, "private", string(got.ACL))
	assert.Equal(t, "GLACIER", string(got.StorageClass))
	assert.Equal(t, DefaultContentType, *got.ContentType)
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		file    string
		want    string
	}{
		{name: "sniffed png", content: pngHeader, file: "image.dat", want: "image/png"},
		{name: "extension fallback", content: []byte{0x00, 0x01, 0x02, 0x03}, file: "blob.json", want: "application/json"},
		{name: "octet stream", content: []byte{0x00, 0x01, 0x02, 0x03}, file: "blob", want: DefaultContentType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(tt.content)
			got, err := DetectContentType(r, tt.file)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			pos, err := r.Seek(0, 1)
			require.NoError(t, err)
			assert.Zero(t, pos, "reader is rewound")
		})
	}
}
