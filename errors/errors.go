// Package errors provides error types and handling for archiver operations.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// Error represents an archiver operation error with context about the
// operation that failed. It wraps the underlying AWS SDK error.
type Error struct {
	// Op is the operation that failed (e.g., "list", "restore", "copy")
	Op string

	// Bucket is the S3 bucket name (if applicable)
	Bucket string

	// Key is the S3 object key (if applicable)
	Key string

	// Err is the underlying error from the AWS SDK or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("s3archiver.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("s3archiver.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("s3archiver.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("s3archiver.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the classification of the wrapped error.
func (e *Error) Code() ErrorCode {
	return CodeOf(e.Err)
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewBucketError creates a new Error with bucket context.
func NewBucketError(op, bucket string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Err:    err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// Sentinel errors for common archiver failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("s3archiver: object not found")

	// ErrBucketNotFound indicates that the requested bucket does not exist
	ErrBucketNotFound = errors.New("s3archiver: bucket not found")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("s3archiver: access denied")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("s3archiver: invalid input")

	// ErrInvalidBucketName indicates that the bucket name is invalid
	ErrInvalidBucketName = errors.New("s3archiver: invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("s3archiver: invalid object key")

	// ErrInvalidRestoreMarker indicates an x-amz-restore value that could not be parsed
	ErrInvalidRestoreMarker = errors.New("s3archiver: invalid restore marker")

	// ErrRestoreInProgress indicates the backend already runs a restore job for the object
	ErrRestoreInProgress = errors.New("s3archiver: restore already in progress")

	// ErrInvalidObjectState indicates the object is archived and not restored
	ErrInvalidObjectState = errors.New("s3archiver: invalid object state")

	// ErrTooManyRequests indicates that the request rate is too high
	ErrTooManyRequests = errors.New("s3archiver: too many requests")
)

// AWS error codes the archiver reacts to.
const (
	codeNoSuchBucket             = "NoSuchBucket"
	codeNotFound                 = "NotFound"
	codeNoSuchKey                = "NoSuchKey"
	codeAccessDenied             = "AccessDenied"
	codeForbidden                = "Forbidden"
	codeRestoreAlreadyInProgress = "RestoreAlreadyInProgress"
	codeInvalidObjectState       = "InvalidObjectState"
	codeSlowDown                 = "SlowDown"
)

// ConvertAWSError maps an AWS SDK error onto the sentinel errors of this
// package. The original error stays in the chain so the SDK details are not
// lost. Errors that match no sentinel are returned unchanged.
func ConvertAWSError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	var sentinel error
	switch apiErr.ErrorCode() {
	case codeNoSuchBucket:
		sentinel = ErrBucketNotFound
	case codeNoSuchKey:
		sentinel = ErrObjectNotFound
	case codeNotFound:
		// HEAD requests carry no body, so a bare 404 is all S3 returns
		sentinel = ErrObjectNotFound
	case codeAccessDenied, codeForbidden:
		sentinel = ErrAccessDenied
	case codeRestoreAlreadyInProgress:
		sentinel = ErrRestoreInProgress
	case codeInvalidObjectState:
		sentinel = ErrInvalidObjectState
	case codeSlowDown:
		sentinel = ErrTooManyRequests
	default:
		if StatusCode(err) == http.StatusForbidden {
			sentinel = ErrAccessDenied
		}
	}

	if sentinel == nil {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// IsAPIError reports whether err was returned by the S3 service itself, as
// opposed to a transport or client-side failure.
func IsAPIError(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr)
}

// StatusCode returns the HTTP status of the response that produced err, or 0.
func StatusCode(err error) int {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}

// IsObjectNotFound checks if an error indicates that an object was not found.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsBucketNotFound checks if an error indicates that a bucket was not found.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsAccessDenied checks if an error indicates access was denied.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidBucketName) ||
		errors.Is(err, ErrInvalidObjectKey)
}

// IsRestoreInProgress checks if an error indicates a restore job is already running.
func IsRestoreInProgress(err error) bool {
	return errors.Is(err, ErrRestoreInProgress)
}
