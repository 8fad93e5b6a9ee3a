package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/internal/progress"
)

// DefaultSourceProfile is the shared-config profile of the source side.
const DefaultSourceProfile = "source_archive_profile"

const (
	flagFastAccess         = "fast-access"
	flagSourceProfile      = "source-profile"
	flagDestinationProfile = "destination-profile"
	flagPollInterval       = "poll-interval"
	flagRestoreDays        = "restore-days"
	flagRestoreTier        = "restore-tier"
	flagWorkers            = "workers"
	flagStorageClass       = "storage-class"
	flagPrefix             = "prefix"
)

func newCopyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy <source-bucket> <destination-bucket>",
		Short: "Restore archived objects and copy a bucket",
		Long: "Copy every object of the source bucket to the destination bucket under the same key.\n" +
			"Objects in GLACIER or DEEP_ARCHIVE are restored first and the source is polled until\n" +
			"every restore has finished. Copies are stored in the archive storage class unless\n" +
			"--fast-access is set.",
		Args: cobra.ExactArgs(2),
		RunE: a.runCopy,
	}
	addCopyFlags(cmd.Flags())
	return cmd
}

func addCopyFlags(flags *pflag.FlagSet) {
	flags.BoolP(flagFastAccess, "f", false, "keep copies in the destination default storage class")
	flags.String(flagSourceProfile, DefaultSourceProfile, "shared-config profile of the source bucket")
	flags.String(flagDestinationProfile, "", "shared-config profile of the destination bucket")
	flags.Duration(flagPollInterval, s3archiver.DefaultPollInterval, "wait between restore polling passes")
	flags.Int32(flagRestoreDays, s3archiver.DefaultRestoreDays, "days restored copies stay readable")
	flags.String(flagRestoreTier, string(s3archiver.DefaultRestoreTier), "restore tier: Expedited, Standard or Bulk")
	flags.Int(flagWorkers, s3archiver.DefaultCopyConcurrency, "number of objects copied in parallel")
	flags.String(flagStorageClass, string(s3archiver.DefaultArchiveClass), "storage class of copies when not in fast-access mode")
	flags.String(flagPrefix, "", "only copy keys starting with this prefix")
}

func (a *app) runCopy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	src, dst := args[0], args[1]

	runOpts, err := a.runOptions()
	if err != nil {
		return err
	}

	client, err := a.newClient(ctx, a.clientOptions(
		s3archiver.WithSourceProfile(a.v.GetString(flagSourceProfile)),
		s3archiver.WithDestinationProfile(a.v.GetString(flagDestinationProfile)),
	)...)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, progress.Legend)

	result, err := client.Migrate(ctx, src, dst, runOpts...)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "copied %d of %d objects from %s to %s in %s (%d restores, %d passes)\n",
		result.Copied, result.Objects, src, dst, result.Duration.Round(time.Millisecond), result.RestoresRequested, result.Passes)
	return nil
}

func (a *app) runOptions() ([]archivetypes.RunOption, error) {
	tier, err := restoreTier(a.v.GetString(flagRestoreTier))
	if err != nil {
		return nil, err
	}

	class, err := storageClass(a.v, flagStorageClass)
	if err != nil {
		return nil, err
	}

	return []archivetypes.RunOption{
		s3archiver.WithFastAccess(a.v.GetBool(flagFastAccess)),
		s3archiver.WithPollInterval(a.v.GetDuration(flagPollInterval)),
		s3archiver.WithRestoreDays(a.v.GetInt32(flagRestoreDays)),
		s3archiver.WithRestoreTier(tier),
		s3archiver.WithCopyConcurrency(a.v.GetInt(flagWorkers)),
		s3archiver.WithArchiveStorageClass(class),
		s3archiver.WithPrefix(a.v.GetString(flagPrefix)),
	}, nil
}

func restoreTier(raw string) (archivetypes.RestoreTier, error) {
	for _, tier := range []archivetypes.RestoreTier{
		archivetypes.RestoreTierExpedited,
		archivetypes.RestoreTierStandard,
		archivetypes.RestoreTierBulk,
	} {
		if strings.EqualFold(raw, string(tier)) {
			return tier, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported --%s %q", errors.ErrInvalidInput, flagRestoreTier, raw)
}
