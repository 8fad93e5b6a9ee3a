package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver"
)

const flagProfile = "profile"

func newUploadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <folder> <bucket> [prefix]",
		Short: "Archive the files of a local folder",
		Long: "Upload every regular file directly under folder to bucket as prefix/filename.\n" +
			"Subfolders are skipped. Files are stored privately in the GLACIER storage class\n" +
			"unless --storage-class says otherwise.",
		Args: cobra.RangeArgs(2, 3),
		RunE: a.runUpload,
	}
	cmd.Flags().String(flagStorageClass, string(s3archiver.DefaultArchiveClass), "storage class of uploaded files")
	cmd.Flags().String(flagProfile, "", "shared-config profile of the bucket")
	return cmd
}

func (a *app) runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir, bucket := args[0], args[1]
	var prefix string
	if len(args) == 3 {
		prefix = args[2]
	}

	class, err := storageClass(a.v, flagStorageClass)
	if err != nil {
		return err
	}

	client, err := a.newClient(ctx, a.clientOptions(
		s3archiver.WithDestinationProfile(a.v.GetString(flagProfile)),
	)...)
	if err != nil {
		return err
	}

	result, err := client.Archive(ctx, dir, bucket, prefix, s3archiver.WithStorageClass(class))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "\nuploaded %d files (%d bytes) to %s in %s\n",
		len(result.Uploaded), result.Bytes, bucket, result.Duration.Round(time.Millisecond))
	return nil
}
