// Package validation provides centralized input validation logic.
// Bucket names, upload keys and listing prefixes are checked before any
// request is sent to S3.
package validation

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/errors"
)

// maxKeyLength is the S3 limit for object keys, in bytes.
const maxKeyLength = 1024

// ValidateBucketName validates that a bucket name is DNS-compliant according to AWS S3 rules.
// Returns ErrInvalidBucketName if the bucket name is invalid.
func ValidateBucketName(bucket string) error {
	if err := validateBucketNameBasics(bucket); err != nil {
		return err
	}

	if err := validateBucketNameCharacters(bucket); err != nil {
		return err
	}

	return validateBucketNameStructure(bucket)
}

// ValidateObjectKey validates a key this module is about to write.
// Keys read back from a listing are never validated; they are copied as is.
func ValidateObjectKey(key string) error {
	if key == "" {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithMessage("object key cannot be empty")
	}

	if hasPathTraversal(key) {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot contain path traversal sequences")
	}

	if len(key) > maxKeyLength {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot exceed 1024 characters")
	}

	if hasControlCharacters(key) {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot contain control characters")
	}

	return nil
}

// ValidatePrefix validates a key prefix. The empty prefix is valid.
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return nil
	}

	if strings.HasPrefix(prefix, "/") {
		return errors.NewError("validatePrefix", errors.ErrInvalidInput).
			WithMessage("prefix cannot start with a slash")
	}

	if len(prefix) > maxKeyLength {
		return errors.NewError("validatePrefix", errors.ErrInvalidInput).
			WithMessage("prefix cannot exceed 1024 characters")
	}

	if hasControlCharacters(prefix) {
		return errors.NewError("validatePrefix", errors.ErrInvalidInput).
			WithMessage("prefix cannot contain control characters")
	}

	return nil
}

// validateBucketNameBasics validates basic bucket name requirements
func validateBucketNameBasics(bucket string) error {
	if bucket == "" {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithMessage("bucket name cannot be empty")
	}

	// Bucket names must be between 3 and 63 characters long
	if len(bucket) < 3 || len(bucket) > 63 {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage("bucket name must be between 3 and 63 characters long")
	}

	return nil
}

// validateBucketNameCharacters validates allowed characters in bucket names
func validateBucketNameCharacters(bucket string) error {
	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
				WithBucket(bucket).
				WithMessage("bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}

	return nil
}

// validateBucketNameStructure validates bucket name structural requirements
func validateBucketNameStructure(bucket string) error {
	first, last := bucket[0], bucket[len(bucket)-1]
	if first == '-' || first == '.' || last == '-' || last == '.' {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage("bucket name cannot start or end with a hyphen or dot")
	}

	if isIPAddress(bucket) {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage("bucket name cannot be formatted as an IP address")
	}

	if strings.Contains(bucket, "..") {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage("bucket name cannot contain two adjacent periods")
	}

	if strings.HasPrefix(bucket, "xn--") || strings.HasSuffix(bucket, "-s3alias") {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage("bucket name uses a reserved prefix or suffix")
	}

	return nil
}

// isValidBucketChar checks if a character is valid in a bucket name
func isValidBucketChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '.' || char == '-'
}

// isIPAddress checks if a string is formatted as an IPv4 address
func isIPAddress(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}

	for _, part := range parts {
		if part == "" || len(part) > 3 {
			return false
		}
		num := 0
		for _, char := range part {
			if char < '0' || char > '9' {
				return false
			}
			num = num*10 + int(char-'0')
		}
		if num > 255 {
			return false
		}
	}

	return true
}

// hasPathTraversal checks for path traversal attempts in object keys
func hasPathTraversal(key string) bool {
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return true
		}
	}

	cleaned := filepath.ToSlash(filepath.Clean(key))
	if strings.HasPrefix(cleaned, "/") {
		return true
	}

	// Windows-style absolute paths
	return len(cleaned) >= 3 && cleaned[1] == ':' && (cleaned[2] == '\\' || cleaned[2] == '/')
}

// hasControlCharacters checks for control characters in the key
func hasControlCharacters(key string) bool {
	return strings.IndexFunc(key, unicode.IsControl) >= 0
}
