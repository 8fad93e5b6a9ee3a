package testutil

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/internal/s3api"
)

// Restore marker values as returned in the x-amz-restore header.
const (
	RestoreOngoing  = `ongoing-request="true"`
	RestoreComplete = `ongoing-request="false", expiry-date="Fri, 21 Dec 2012 00:00:00 GMT"`
)

// FakeObject is an object held by FakeBackend.
type FakeObject struct {
	Key          string
	Body         []byte
	StorageClass archivetypes.StorageClass
	Restore      string
	ContentType  string
	Metadata     map[string]string
	LastModified time.Time

	// headsUntilRestored counts the HeadObject calls that still observe an
	// ongoing restore
	headsUntilRestored int
}

func (o *FakeObject) readable() bool {
	return !o.StorageClass.Normalize().IsColdArchive() || strings.Contains(o.Restore, `ongoing-request="false"`)
}

// FakeBackend is an in-memory S3 that models storage classes, restore jobs,
// pagination and server-side copies. Operations it does not model fall
// through to the embedded MockS3Client. It is safe for concurrent use.
type FakeBackend struct {
	MockS3Client

	// AutoCompleteRestores finishes restore jobs on their own after
	// RestoreLatency HeadObject calls have observed them as ongoing.
	AutoCompleteRestores bool
	RestoreLatency       int

	// PageSize caps the number of keys per ListObjectsV2 page
	PageSize int32

	mu              sync.Mutex
	buckets         map[string]map[string]*FakeObject
	calls           map[string]int
	restoreRequests map[string]int
	copies          []s3.CopyObjectInput
	failures        map[string]error
}

// NewFakeBackend creates a backend holding the given, empty, buckets.
func NewFakeBackend(buckets ...string) *FakeBackend {
	b := &FakeBackend{
		buckets:         make(map[string]map[string]*FakeObject),
		calls:           make(map[string]int),
		restoreRequests: make(map[string]int),
		failures:        make(map[string]error),
	}
	for _, name := range buckets {
		b.buckets[name] = make(map[string]*FakeObject)
	}
	return b
}

// AddObject stores obj in bucket, creating the bucket if needed.
func (b *FakeBackend) AddObject(bucket string, obj FakeObject) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buckets[bucket] == nil {
		b.buckets[bucket] = make(map[string]*FakeObject)
	}
	if obj.LastModified.IsZero() {
		obj.LastModified = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	o := obj
	b.buckets[bucket][obj.Key] = &o
}

// Object returns a copy of the stored object.
func (b *FakeBackend) Object(bucket, key string) (FakeObject, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.buckets[bucket][key]
	if !ok {
		return FakeObject{}, false
	}
	return *o, true
}

// Keys returns the sorted keys of bucket.
func (b *FakeBackend) Keys(bucket string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sortedKeys(bucket)
}

// CompleteRestores finishes every ongoing restore job in bucket.
func (b *FakeBackend) CompleteRestores(bucket string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, o := range b.buckets[bucket] {
		if o.Restore == RestoreOngoing {
			o.Restore = RestoreComplete
		}
	}
}

// FailOn makes the next and all following calls of op on key return err.
// An empty key matches bucket-level calls and every key.
func (b *FakeBackend) FailOn(op, key string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[op+":"+key] = err
}

// Calls returns how often op was invoked.
func (b *FakeBackend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// TotalCalls returns the number of calls across all operations.
func (b *FakeBackend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := 0
	for _, n := range b.calls {
		total += n
	}
	return total
}

// RestoreRequests returns the number of RestoreObject calls for bucket/key.
func (b *FakeBackend) RestoreRequests(bucket, key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.restoreRequests[bucket+"/"+key]
}

// CopyInputs returns the CopyObject inputs received, in arrival order.
func (b *FakeBackend) CopyInputs() []s3.CopyObjectInput {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]s3.CopyObjectInput(nil), b.copies...)
}

func (b *FakeBackend) enter(op, key string) error {
	b.calls[op]++
	if err, ok := b.failures[op+":"+key]; ok {
		return err
	}
	if err, ok := b.failures[op+":"]; ok {
		return err
	}
	return nil
}

func (b *FakeBackend) sortedKeys(bucket string) []string {
	keys := make([]string, 0, len(b.buckets[bucket]))
	for k := range b.buckets[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HeadBucket reports whether the bucket exists.
func (b *FakeBackend) HeadBucket(
	_ context.Context,
	params *s3.HeadBucketInput,
	_ ...func(*s3.Options),
) (*s3.HeadBucketOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.enter("HeadBucket", ""); err != nil {
		return nil, err
	}
	if _, ok := b.buckets[aws.ToString(params.Bucket)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

// ListObjectsV2 pages through the bucket in key order.
func (b *FakeBackend) ListObjectsV2(
	_ context.Context,
	params *s3.ListObjectsV2Input,
	_ ...func(*s3.Options),
) (*s3.ListObjectsV2Output, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.enter("ListObjectsV2", aws.ToString(params.ContinuationToken)); err != nil {
		return nil, err
	}
	bucket := aws.ToString(params.Bucket)
	if _, ok := b.buckets[bucket]; !ok {
		return nil, &types.NoSuchBucket{}
	}

	limit := aws.ToInt32(params.MaxKeys)
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	if b.PageSize > 0 && b.PageSize < limit {
		limit = b.PageSize
	}

	start := 0
	if token := aws.ToString(params.ContinuationToken); token != "" {
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, &smithy.GenericAPIError{Code: "InvalidArgument", Message: "bad continuation token"}
		}
		start = n
	}

	prefix := aws.ToString(params.Prefix)
	var matched []string
	for _, k := range b.sortedKeys(bucket) {
		if strings.HasPrefix(k, prefix) {
			matched = append(matched, k)
		}
	}

	if start > len(matched) {
		start = len(matched)
	}

	out := &s3.ListObjectsV2Output{Name: params.Bucket, Prefix: params.Prefix}
	end := start + int(limit)
	if end < len(matched) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	} else {
		end = len(matched)
		out.IsTruncated = aws.Bool(false)
	}

	for _, k := range matched[start:end] {
		o := b.buckets[bucket][k]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(o.Key),
			Size:         aws.Int64(int64(len(o.Body))),
			LastModified: aws.Time(o.LastModified),
			ETag:         aws.String(etag(o.Body)),
			StorageClass: types.ObjectStorageClass(o.StorageClass.Normalize()),
		})
	}
	out.KeyCount = aws.Int32(int32(len(out.Contents)))

	return out, nil
}

// HeadObject returns live metadata, advancing auto-completing restores.
func (b *FakeBackend) HeadObject(
	_ context.Context,
	params *s3.HeadObjectInput,
	_ ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := aws.ToString(params.Key)
	if err := b.enter("HeadObject", key); err != nil {
		return nil, err
	}
	o, ok := b.buckets[aws.ToString(params.Bucket)][key]
	if !ok {
		return nil, &types.NotFound{}
	}

	if o.Restore == RestoreOngoing && b.AutoCompleteRestores {
		if o.headsUntilRestored <= 0 {
			o.Restore = RestoreComplete
		} else {
			o.headsUntilRestored--
		}
	}

	out := &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(o.Body))),
		ContentType:   aws.String(o.ContentType),
		ETag:          aws.String(etag(o.Body)),
		LastModified:  aws.Time(o.LastModified),
		Metadata:      o.Metadata,
	}
	// S3 omits the header for STANDARD objects
	if sc := o.StorageClass.Normalize(); sc != archivetypes.StorageClassStandard {
		out.StorageClass = types.StorageClass(sc)
	}
	if o.Restore != "" {
		out.Restore = aws.String(o.Restore)
	}
	return out, nil
}

// RestoreObject starts a restore job on an archived object.
func (b *FakeBackend) RestoreObject(
	_ context.Context,
	params *s3.RestoreObjectInput,
	_ ...func(*s3.Options),
) (*s3.RestoreObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bucket, key := aws.ToString(params.Bucket), aws.ToString(params.Key)
	if err := b.enter("RestoreObject", key); err != nil {
		return nil, err
	}
	b.restoreRequests[bucket+"/"+key]++

	o, ok := b.buckets[bucket][key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	if !o.StorageClass.Normalize().IsColdArchive() {
		return nil, &types.InvalidObjectState{}
	}
	if params.RestoreRequest == nil || aws.ToInt32(params.RestoreRequest.Days) <= 0 {
		return nil, &smithy.GenericAPIError{Code: "MalformedXML", Message: "missing restore days"}
	}

	switch o.Restore {
	case RestoreOngoing:
		return nil, &smithy.GenericAPIError{
			Code:    "RestoreAlreadyInProgress",
			Message: "Object restore is already in progress",
		}
	case "":
		o.Restore = RestoreOngoing
		o.headsUntilRestored = b.RestoreLatency
	}
	return &s3.RestoreObjectOutput{}, nil
}

// CopyObject copies a readable object between buckets.
func (b *FakeBackend) CopyObject(
	_ context.Context,
	params *s3.CopyObjectInput,
	_ ...func(*s3.Options),
) (*s3.CopyObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dstKey := aws.ToString(params.Key)
	if err := b.enter("CopyObject", dstKey); err != nil {
		return nil, err
	}
	b.copies = append(b.copies, *params)

	srcBucket, srcKey, err := parseCopySource(aws.ToString(params.CopySource))
	if err != nil {
		return nil, err
	}
	src, ok := b.buckets[srcBucket][srcKey]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	if !src.readable() {
		return nil, &types.InvalidObjectState{}
	}
	dst, ok := b.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, &types.NoSuchBucket{}
	}

	sc := archivetypes.StorageClass(params.StorageClass).Normalize()
	dst[dstKey] = &FakeObject{
		Key:          dstKey,
		Body:         append([]byte(nil), src.Body...),
		StorageClass: sc,
		ContentType:  src.ContentType,
		Metadata:     src.Metadata,
		LastModified: src.LastModified,
	}
	return &s3.CopyObjectOutput{
		CopyObjectResult: &types.CopyObjectResult{ETag: aws.String(etag(src.Body))},
	}, nil
}

// PutObject stores the request body.
func (b *FakeBackend) PutObject(
	_ context.Context,
	params *s3.PutObjectInput,
	_ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	key := aws.ToString(params.Key)

	var body []byte
	if params.Body != nil {
		data, err := io.ReadAll(params.Body)
		if err != nil {
			return nil, err
		}
		body = data
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.enter("PutObject", key); err != nil {
		return nil, err
	}
	dst, ok := b.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, &types.NoSuchBucket{}
	}
	dst[key] = &FakeObject{
		Key:          key,
		Body:         body,
		StorageClass: archivetypes.StorageClass(params.StorageClass).Normalize(),
		ContentType:  aws.ToString(params.ContentType),
		Metadata:     params.Metadata,
		LastModified: time.Now().UTC(),
	}
	return &s3.PutObjectOutput{ETag: aws.String(etag(body))}, nil
}

func parseCopySource(source string) (string, string, error) {
	bucket, escaped, ok := strings.Cut(strings.TrimPrefix(source, "/"), "/")
	if !ok {
		return "", "", &smithy.GenericAPIError{Code: "InvalidArgument", Message: "bad copy source " + source}
	}
	// S3 unescapes the copy source like a query value: '+' is a space
	key, err := url.QueryUnescape(escaped)
	if err != nil {
		return "", "", &smithy.GenericAPIError{Code: "InvalidArgument", Message: err.Error()}
	}
	return bucket, key, nil
}

func etag(body []byte) string {
	return fmt.Sprintf("%q", fmt.Sprintf("%x", md5.Sum(body)))
}

var _ s3api.S3API = (*FakeBackend)(nil)
