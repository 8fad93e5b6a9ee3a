// Package s3archiver moves object sets into and between S3 cold-storage
// tiers.
//
// Two workflows are supported:
//   - Migrate copies every object of a source bucket to a destination
//     bucket. Objects held in GLACIER or DEEP_ARCHIVE are restored first;
//     the bucket is re-polled at a fixed interval until every restore has
//     finished, then the objects are copied server-side by a bounded pool
//     of workers.
//   - Archive uploads the files of a local directory to a bucket in an
//     archival storage class.
//
// The source and destination sides may use different credentials, which
// are selected through named shared-config profiles.
//
// Example usage:
//
//	client, err := s3archiver.New(ctx,
//	    s3archiver.WithSourceProfile("source_archive_profile"),
//	)
//	if err != nil {
//	    return err
//	}
//
//	result, err := client.Migrate(ctx, "old-archive", "new-archive",
//	    s3archiver.WithPollInterval(5*time.Minute),
//	)
//	if err != nil {
//	    return err
//	}
package s3archiver
