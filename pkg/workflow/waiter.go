package workflow

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/vyvo/iobuilds/pkg/rapyuta"
)

// backoffFunc runs condition until it reports done, returns an error, or the
// backoff runs out of steps.
type backoffFunc func(ctx context.Context, backoff wait.Backoff, condition wait.ConditionWithContextFunc) error

// Waiter polls a build until it reaches a terminal state or the retry budget
// is spent.
type Waiter struct {
	api      BuildService
	logger   Logger
	retries  int
	interval time.Duration
	backoff  backoffFunc
}

func NewWaiter(api BuildService, logger Logger, retries int, interval time.Duration) *Waiter {
	return &Waiter{
		api:      api,
		logger:   logger,
		retries:  retries,
		interval: interval,
		backoff:  wait.ExponentialBackoffWithContext,
	}
}

// Wait blocks until sb completes. A failed build returns BuildFailedError; a
// build still running after the last poll returns PollTimeoutError.
func (w *Waiter) Wait(ctx context.Context, sb SubmittedBuild) (rapyuta.Build, error) {
	name := sb.Request.BuildName
	w.logger.Info("polling build", "build", name, "retry_count", w.retries, "sleep_interval", w.interval)

	last := sb.Build
	condition := func(ctx context.Context) (bool, error) {
		build, err := w.api.GetBuild(ctx, sb.ProjectID, sb.Build.GUID)
		if err != nil {
			return false, &RemoteError{Op: "get build", Build: name, Err: err}
		}
		last = build

		// A terminal status left over from an earlier generation does not count.
		if build.BuildGeneration < sb.Generation || !build.Status.Terminal() {
			return false, nil
		}
		if build.Status == rapyuta.StatusFailed {
			return false, &BuildFailedError{BuildName: name, GUID: build.GUID}
		}
		return true, nil
	}

	// Factor 1 keeps the interval fixed; the backoff never sleeps after its last step.
	err := w.backoff(ctx, wait.Backoff{
		Duration: w.interval,
		Factor:   1,
		Steps:    w.retries,
	}, condition)

	switch {
	case err == nil:
		return last, nil
	case ctx.Err() == nil && wait.Interrupted(err):
		return last, &PollTimeoutError{
			BuildName: name,
			GUID:      sb.Build.GUID,
			Attempts:  w.retries,
			Interval:  w.interval,
			Status:    string(last.Status),
		}
	default:
		return last, err
	}
}
