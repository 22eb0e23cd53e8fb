package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/vyvo/iobuilds/pkg/manifest"
	"github.com/vyvo/iobuilds/pkg/rapyuta"
)

// scriptedService replays a fixed sequence of GetBuild results.
type scriptedService struct {
	BuildService
	script []rapyuta.Build
	err    error
	gets   int
}

func (s *scriptedService) GetBuild(ctx context.Context, projectID, guid string) (rapyuta.Build, error) {
	if s.err != nil {
		return rapyuta.Build{}, s.err
	}
	idx := s.gets
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.gets++
	return s.script[idx], nil
}

// newTestWaiter runs the real backoff with the interval zeroed and records the
// backoff it was asked to use.
func newTestWaiter(api BuildService, retries int) (*Waiter, *wait.Backoff) {
	var used wait.Backoff
	w := NewWaiter(api, nopLogger{}, retries, 5*time.Second)
	w.backoff = func(ctx context.Context, b wait.Backoff, cond wait.ConditionWithContextFunc) error {
		used = b
		b.Duration = 0
		return wait.ExponentialBackoffWithContext(ctx, b, cond)
	}
	return w, &used
}

func submitted(generation int) SubmittedBuild {
	return SubmittedBuild{
		Request:    manifest.BuildRequest{BuildName: "b1"},
		ProjectID:  "p1",
		Build:      rapyuta.Build{GUID: "g1"},
		Generation: generation,
	}
}

func TestWaitIgnoresPreviousGeneration(t *testing.T) {
	api := &scriptedService{script: []rapyuta.Build{
		{GUID: "g1", Status: rapyuta.StatusComplete, BuildGeneration: 2},
		{GUID: "g1", Status: rapyuta.StatusInProgress, BuildGeneration: 3},
		{GUID: "g1", Status: rapyuta.StatusComplete, BuildGeneration: 3},
	}}
	w, used := newTestWaiter(api, 10)

	build, err := w.Wait(context.Background(), submitted(3))
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if build.BuildGeneration != 3 || build.Status != rapyuta.StatusComplete {
		t.Fatalf("unexpected build: %#v", build)
	}
	if api.gets != 3 {
		t.Fatalf("expected 3 polls, got %d", api.gets)
	}
	if used.Duration != 5*time.Second || used.Factor != 1 || used.Steps != 10 {
		t.Fatalf("expected fixed 5s backoff over 10 steps, got %+v", *used)
	}
}

func TestWaitExhaustsRetries(t *testing.T) {
	api := &scriptedService{script: []rapyuta.Build{
		{GUID: "g1", Status: rapyuta.StatusInProgress},
	}}
	w, _ := newTestWaiter(api, 4)

	_, err := w.Wait(context.Background(), submitted(0))
	var timeout *PollTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected PollTimeoutError, got %v", err)
	}
	if timeout.Attempts != 4 || timeout.Status != string(rapyuta.StatusInProgress) {
		t.Fatalf("unexpected timeout: %+v", timeout)
	}
	if api.gets != 4 {
		t.Fatalf("expected 4 polls, got %d", api.gets)
	}
}

func TestWaitRemoteError(t *testing.T) {
	api := &scriptedService{err: rapyuta.ErrNotFound}
	w, _ := newTestWaiter(api, 2)

	_, err := w.Wait(context.Background(), submitted(0))
	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) || !errors.Is(err, rapyuta.ErrNotFound) {
		t.Fatalf("expected RemoteError wrapping ErrNotFound, got %v", err)
	}
}

func TestWaitStopsOnCancel(t *testing.T) {
	api := &scriptedService{script: []rapyuta.Build{
		{GUID: "g1", Status: rapyuta.StatusInProgress},
	}}
	w := NewWaiter(api, nopLogger{}, 100, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Wait(ctx, submitted(0))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if api.gets > 1 {
		t.Fatalf("expected at most one poll, got %d", api.gets)
	}
}

func TestWaitFailedBuild(t *testing.T) {
	api := &scriptedService{script: []rapyuta.Build{
		{GUID: "g1", Status: rapyuta.StatusInProgress, BuildGeneration: 1},
		{GUID: "g1", Status: rapyuta.StatusFailed, BuildGeneration: 1},
	}}
	w, _ := newTestWaiter(api, 5)

	build, err := w.Wait(context.Background(), submitted(0))
	var failed *BuildFailedError
	if !errors.As(err, &failed) || failed.GUID != "g1" {
		t.Fatalf("expected BuildFailedError, got %v", err)
	}
	if build.Status != rapyuta.StatusFailed || api.gets != 2 {
		t.Fatalf("expected failure on second poll, got %s after %d polls", build.Status, api.gets)
	}
}

func TestWaitDoesNotSleepAfterLastPoll(t *testing.T) {
	api := &scriptedService{script: []rapyuta.Build{
		{GUID: "g1", Status: rapyuta.StatusInProgress},
	}}
	w := NewWaiter(api, nopLogger{}, 1, time.Hour)

	done := make(chan error, 1)
	go func() {
		_, err := w.Wait(context.Background(), submitted(0))
		done <- err
	}()

	select {
	case err := <-done:
		var timeout *PollTimeoutError
		if !errors.As(err, &timeout) {
			t.Fatalf("expected PollTimeoutError, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Wait slept after its only poll")
	}
}
