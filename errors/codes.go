package errors

import (
	"context"
	"errors"
)

// ErrorCode classifies an archiver error for exit handling and structured logs.
type ErrorCode string

const (
	// CodeNotFound indicates a bucket or object does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeForbidden indicates the credentials lack permission for the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidState indicates the object is not readable in its current
	// storage class, e.g. an archived object without a completed restore.
	CodeInvalidState ErrorCode = "INVALID_OBJECT_STATE"

	// CodeRateLimit indicates the backend is throttling requests.
	CodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"

	// CodeCanceled indicates the run was interrupted.
	CodeCanceled ErrorCode = "CANCELED"

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// CodeOf returns the code matching the first sentinel found in err's chain.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBucketNotFound), errors.Is(err, ErrObjectNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAccessDenied):
		return CodeForbidden
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidBucketName),
		errors.Is(err, ErrInvalidObjectKey),
		errors.Is(err, ErrInvalidRestoreMarker):
		return CodeInvalidInput
	case errors.Is(err, ErrInvalidObjectState):
		return CodeInvalidState
	case errors.Is(err, ErrTooManyRequests):
		return CodeRateLimit
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	default:
		return CodeUnknown
	}
}
