// Command s3archiver restores archived S3 objects and migrates them between
// buckets, or uploads a local folder straight into an archival tier.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/errors"
)

// Exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

// clientFactory builds the client a command runs against.
type clientFactory func(ctx context.Context, opts ...archivetypes.Option) (*s3archiver.Client, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, s3archiver.New)
	stop()
	os.Exit(code)
}

// run executes the command line in args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, factory clientFactory) int {
	a := newApp(stdout, stderr, factory)
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case ctx.Err() != nil:
		fmt.Fprintln(stderr, "s3archiver: interrupted")
		return exitInterrupted
	default:
		a.logger.Error("command failed", "code", errors.CodeOf(err), "error", err)
		fmt.Fprintf(stderr, "s3archiver: %v\n", err)
		return exitFailure
	}
}
