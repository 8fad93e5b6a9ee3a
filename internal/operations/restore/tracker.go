package restore

import (
	"context"
	"log/slog"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
)

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Tracker re-classifies an object set at a fixed interval until no object
// is pending a restore.
type Tracker struct {
	classifier *Classifier
	bucket     string
	interval   time.Duration
	progress   archivetypes.ProgressReporter
	logger     *slog.Logger

	// Wait is used between passes. Defaults to a context-aware timer.
	Wait WaitFunc
}

// NewTracker creates a tracker polling bucket through classifier.
func NewTracker(
	classifier *Classifier,
	bucket string,
	interval time.Duration,
	progress archivetypes.ProgressReporter,
	logger *slog.Logger,
) *Tracker {
	if progress == nil {
		progress = archivetypes.NopProgress{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Tracker{
		classifier: classifier,
		bucket:     bucket,
		interval:   interval,
		progress:   progress,
		logger:     logger,
		Wait:       sleep,
	}
}

// Result summarizes a finished restore phase.
type Result struct {
	Passes    int
	Requested int
	Last      archivetypes.PassSummary

	// Copyable holds the objects whose state in the last pass allows a
	// copy, in listing order.
	Copyable []archivetypes.Object
}

// Pass classifies every object once, in order. The first error ends the
// pass.
func (t *Tracker) Pass(ctx context.Context, objects []archivetypes.Object) (archivetypes.PassSummary, error) {
	summary, _, err := t.pass(ctx, objects)
	return summary, err
}

func (t *Tracker) pass(
	ctx context.Context,
	objects []archivetypes.Object,
) (archivetypes.PassSummary, []archivetypes.Object, error) {
	var summary archivetypes.PassSummary
	copyable := make([]archivetypes.Object, 0, len(objects))

	defer t.progress.Flush()

	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return summary, copyable, err
		}

		state, err := t.classifier.Classify(ctx, t.bucket, obj.Key)
		if err != nil {
			return summary, copyable, err
		}
		summary.Add(state)
		if state.Copyable() {
			copyable = append(copyable, obj)
		}
	}

	return summary, copyable, nil
}

// Run repeats passes until no object remains pending. There is no cap on
// the number of passes; cancel ctx to give up.
func (t *Tracker) Run(ctx context.Context, objects []archivetypes.Object) (Result, error) {
	var result Result

	t.logger.Info("checking storage class of listed objects", "bucket", t.bucket, "objects", len(objects))

	for {
		summary, copyable, err := t.pass(ctx, objects)
		result.Passes++
		summary.Pass = result.Passes
		result.Last = summary
		result.Copyable = copyable
		result.Requested = t.classifier.Requested()
		if err != nil {
			return result, err
		}

		t.logger.Info("restore pass finished",
			"pass", summary.Pass,
			"ready", summary.NotApplicable,
			"requested", summary.Requested,
			"restoring", summary.InProgress,
			"restored", summary.Ready,
			"remaining", summary.Remaining())

		if summary.Remaining() == 0 {
			return result, nil
		}

		t.logger.Info("sleeping before next pass", "interval", t.interval.String())
		if err := t.Wait(ctx, t.interval); err != nil {
			return result, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
