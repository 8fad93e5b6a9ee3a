package copy

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/errors"
)

// DefaultConcurrency is the number of objects copied in parallel.
const DefaultConcurrency = 10

// ObjectCopier copies a single object.
type ObjectCopier interface {
	Copy(ctx context.Context, task archivetypes.CopyTask) error
}

// DispatchConfig describes one copy batch.
type DispatchConfig struct {
	SourceBucket      string
	DestinationBucket string

	// StorageClass is applied to every copy. Empty keeps the destination default.
	StorageClass archivetypes.StorageClass

	Concurrency int
}

// Dispatcher fans copy tasks out over a bounded pool of workers.
type Dispatcher struct {
	copier   ObjectCopier
	config   DispatchConfig
	progress archivetypes.ProgressReporter
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher for one batch.
func NewDispatcher(
	copier ObjectCopier,
	config DispatchConfig,
	progress archivetypes.ProgressReporter,
	logger *slog.Logger,
) *Dispatcher {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	if progress == nil {
		progress = archivetypes.NopProgress{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Dispatcher{
		copier:   copier,
		config:   config,
		progress: progress,
		logger:   logger,
	}
}

// Tasks builds one copy task per object.
func (d *Dispatcher) Tasks(objects []archivetypes.Object) []archivetypes.CopyTask {
	tasks := make([]archivetypes.CopyTask, 0, len(objects))
	for _, obj := range objects {
		tasks = append(tasks, archivetypes.CopyTask{
			SourceBucket:      d.config.SourceBucket,
			DestinationBucket: d.config.DestinationBucket,
			Key:               obj.Key,
			StorageClass:      d.config.StorageClass,
			Size:              obj.Size,
		})
	}
	return tasks
}

// Dispatch copies every object and returns the number of completed copies.
// The first failure cancels the remaining work and is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, objects []archivetypes.Object) (int, error) {
	var copied atomic.Int64

	defer d.progress.Flush()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.Concurrency)

	tasks := d.Tasks(objects)
	for _, task := range tasks {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := d.copier.Copy(gctx, task); err != nil {
				d.logger.Error("copy failed", "key", task.Key, "code", errors.CodeOf(err), "error", err)
				return err
			}
			copied.Add(1)
			d.progress.Copied(task.Key)
			return nil
		})
	}

	err := g.Wait()
	n := int(copied.Load())
	if err == nil && n < len(tasks) {
		err = ctx.Err()
	}
	return n, err
}
