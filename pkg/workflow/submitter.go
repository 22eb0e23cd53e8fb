package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/vyvo/iobuilds/pkg/manifest"
	"github.com/vyvo/iobuilds/pkg/rapyuta"
)

// SubmittedBuild binds a manifest entry to the remote build running it.
type SubmittedBuild struct {
	Request   manifest.BuildRequest
	ProjectID string
	Build     rapyuta.Build
	// Generation is the build generation the waiter must observe before a
	// terminal status counts. Zero means any generation.
	Generation int
	Triggered  bool
}

// Submitter creates builds, or re-triggers an existing build of the same name
// when its repository matches.
type Submitter struct {
	api    BuildService
	logger Logger
}

func NewSubmitter(api BuildService, logger Logger) *Submitter {
	return &Submitter{api: api, logger: logger}
}

// Submit creates or re-triggers the build described by req in projectID.
func (s *Submitter) Submit(ctx context.Context, projectID string, req manifest.BuildRequest) (SubmittedBuild, error) {
	created, err := s.api.CreateBuild(ctx, projectID, rapyuta.NewCreateBuildRequest(req))
	if err == nil {
		s.logger.Info("build created", "build", req.BuildName, "guid", created.GUID, "project", req.ProjectName)
		return SubmittedBuild{Request: req, ProjectID: projectID, Build: created}, nil
	}
	if !errors.Is(err, rapyuta.ErrConflict) {
		return SubmittedBuild{}, &RemoteError{Op: "create build", Build: req.BuildName, Err: err}
	}

	s.logger.Info("build already exists", "build", req.BuildName, "error", err)
	existing, err := s.findByName(ctx, projectID, req.BuildName)
	if err != nil {
		return SubmittedBuild{}, err
	}

	// The remote record is the source of truth for what the existing build compiles.
	if existing.BuildInfo.Repository != req.Repository {
		return SubmittedBuild{}, &ConflictMismatchError{
			BuildName: req.BuildName,
			Existing:  existing.BuildInfo.Repository,
			Requested: req.Repository,
		}
	}

	s.logger.Info("triggering existing build", "build", existing.BuildName, "guid", existing.GUID)
	generation, err := s.api.TriggerBuild(ctx, projectID, existing.GUID)
	if err != nil {
		return SubmittedBuild{}, &RemoteError{Op: "trigger build", Build: req.BuildName, Err: err}
	}

	return SubmittedBuild{
		Request:    req,
		ProjectID:  projectID,
		Build:      existing,
		Generation: generation,
		Triggered:  true,
	}, nil
}

func (s *Submitter) findByName(ctx context.Context, projectID, name string) (rapyuta.Build, error) {
	builds, err := s.api.ListBuilds(ctx, projectID)
	if err != nil {
		return rapyuta.Build{}, &RemoteError{Op: "list builds", Build: name, Err: err}
	}
	for _, b := range builds {
		if b.BuildName == name {
			return b, nil
		}
	}
	return rapyuta.Build{}, &RemoteError{
		Op:    "list builds",
		Build: name,
		Err:   fmt.Errorf("create reported a conflict but no build with that name exists: %w", rapyuta.ErrNotFound),
	}
}
