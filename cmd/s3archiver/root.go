package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/internal/progress"
)

// EnvPrefix prefixes every environment variable read by the command.
const EnvPrefix = "S3ARCHIVER"

// Flag names shared by all commands.
const (
	flagRegion         = "region"
	flagEndpoint       = "endpoint"
	flagPathStyle      = "path-style"
	flagMaxConnections = "max-connections"
	flagVerbose        = "verbose"
	flagLogFormat      = "log-format"
	flagConfig         = "config"
)

// app carries the state shared by the commands of one invocation.
type app struct {
	stdout    io.Writer
	stderr    io.Writer
	newClient clientFactory

	// envFiles are loaded into the environment before flags are resolved.
	// Missing files are ignored.
	envFiles []string

	v      *viper.Viper
	logger *slog.Logger
}

func newApp(stdout, stderr io.Writer, factory clientFactory) *app {
	return &app{
		stdout:    stdout,
		stderr:    stderr,
		newClient: factory,
		envFiles:  []string{".env"},
		v:         viper.New(),
		logger:    slog.New(slog.DiscardHandler),
	}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "s3archiver",
		Short: "Restore and migrate objects held in S3 cold storage",
		Long: "s3archiver copies buckets whose objects live in GLACIER or DEEP_ARCHIVE, " +
			"restoring them first, and archives local folders into cold storage.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	flags := cmd.PersistentFlags()
	flags.String(flagRegion, "", "AWS region of both buckets")
	flags.String(flagEndpoint, "", "custom S3 endpoint URL")
	flags.Bool(flagPathStyle, false, "use path-style bucket addressing")
	flags.Int(flagMaxConnections, s3archiver.DefaultMaxConnections, "HTTP connection pool size per client")
	flags.BoolP(flagVerbose, "v", false, "enable debug logging")
	flags.String(flagLogFormat, "text", "log format: text or json")
	flags.String(flagConfig, "", "configuration file")

	cmd.AddCommand(newCopyCmd(a), newUploadCmd(a))
	return cmd
}

// setup resolves configuration for the command about to run. Values come
// from flags, then S3ARCHIVER_* variables, then the config file.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.loadEnvFiles(); err != nil {
		return err
	}

	a.v.SetEnvPrefix(EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	if path := a.v.GetString(flagConfig); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	logger, err := newLogger(a.stderr, a.v.GetString(flagLogFormat), a.v.GetBool(flagVerbose))
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func (a *app) loadEnvFiles() error {
	for _, name := range a.envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return fmt.Errorf("loading %s: %w", name, err)
		}
	}
	return nil
}

func newLogger(w io.Writer, format string, verbose bool) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}

	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("%w: unknown log format %q", errors.ErrInvalidInput, format)
	}
}

// clientOptions returns the options common to every command followed by
// extra.
func (a *app) clientOptions(extra ...archivetypes.Option) []archivetypes.Option {
	opts := []archivetypes.Option{
		s3archiver.WithLogger(a.logger),
		s3archiver.WithProgress(progress.NewConsole(a.stdout)),
		s3archiver.WithMaxConnections(a.v.GetInt(flagMaxConnections)),
	}
	if region := a.v.GetString(flagRegion); region != "" {
		opts = append(opts, s3archiver.WithRegion(region))
	}
	if endpoint := a.v.GetString(flagEndpoint); endpoint != "" {
		opts = append(opts, s3archiver.WithEndpoint(endpoint))
	}
	if a.v.GetBool(flagPathStyle) {
		opts = append(opts, s3archiver.WithForcePathStyle(true))
	}
	return append(opts, extra...)
}

// storageClass reads and validates the storage class flag name.
func storageClass(v *viper.Viper, name string) (archivetypes.StorageClass, error) {
	class := archivetypes.StorageClass(strings.ToUpper(strings.TrimSpace(v.GetString(name))))
	switch class {
	case archivetypes.StorageClassStandard,
		archivetypes.StorageClassStandardIA,
		archivetypes.StorageClassOneZoneIA,
		archivetypes.StorageClassIntelligentTiering,
		archivetypes.StorageClassGlacierIR,
		archivetypes.StorageClassGlacier,
		archivetypes.StorageClassDeepArchive:
		return class, nil
	}
	return "", fmt.Errorf("%w: unsupported --%s %q", errors.ErrInvalidInput, name, class)
}
