// Package internal contains private implementation details of s3archiver.
// These packages are not intended for external use and may change without notice.
//
// The internal packages are organized as follows:
//   - operations: listing, restore tracking, copy and upload
//   - progress: terminal progress markers
//   - s3api: the S3 client surface used by the operations
//   - validation: input validation logic
//   - testutil: mocks and an in-memory S3 backend for tests
package internal
