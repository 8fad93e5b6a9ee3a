// Package operations contains the S3 workflows behind a migration.
//
// Each step is isolated into its own subpackage: list enumerates the source,
// restore drives archived objects back to a readable state, copy moves them
// server-side, and upload archives local files.
package operations
