package workflow

import (
	"fmt"
	"time"
)

// ResolutionError reports a manifest project that the auth token cannot see.
type ResolutionError struct {
	Project string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("project %s not available for the given auth token", e.Project)
}

// ConflictMismatchError reports an existing build whose source differs from
// the one requested under the same name.
type ConflictMismatchError struct {
	BuildName string
	Existing  string
	Requested string
}

func (e *ConflictMismatchError) Error() string {
	return fmt.Sprintf("build %s has repository as %s instead of %s", e.BuildName, e.Existing, e.Requested)
}

// RemoteError wraps a failed call to the build service.
type RemoteError struct {
	Op    string
	Build string
	Err   error
}

func (e *RemoteError) Error() string {
	if e.Build == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Build, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// BuildFailedError reports a build that reached the failed terminal state.
type BuildFailedError struct {
	BuildName string
	GUID      string
}

func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("build %s (%s) failed", e.BuildName, e.GUID)
}

// PollTimeoutError reports a build still running after the poll budget ran out.
type PollTimeoutError struct {
	BuildName string
	GUID      string
	Attempts  int
	Interval  time.Duration
	Status    string
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("build %s (%s) still %s after %d polls every %s",
		e.BuildName, e.GUID, e.Status, e.Attempts, e.Interval)
}
