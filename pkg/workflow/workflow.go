// Package workflow submits the builds listed in a manifest to rapyuta.io and
// waits for them. Steps run strictly in order: load, resolve, validate,
// submit, wait. The first failure stops the run; nothing already submitted is
// rolled back.
package workflow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyvo/iobuilds/pkg/config"
	"github.com/vyvo/iobuilds/pkg/manifest"
	"github.com/vyvo/iobuilds/pkg/rapyuta"
)

const tracerName = "github.com/vyvo/iobuilds/pkg/workflow"

// Logger is the subset of *slog.Logger the workflow writes progress to.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// ProjectLister lists the projects visible to an auth token.
type ProjectLister interface {
	ListProjects(ctx context.Context) ([]rapyuta.Project, error)
}

// BuildService is the catalog surface used to submit and poll builds.
type BuildService interface {
	CreateBuild(ctx context.Context, projectID string, req rapyuta.CreateBuildRequest) (rapyuta.Build, error)
	ListBuilds(ctx context.Context, projectID string) ([]rapyuta.Build, error)
	GetBuild(ctx context.Context, projectID, guid string) (rapyuta.Build, error)
	TriggerBuild(ctx context.Context, projectID, guid string) (int, error)
}

// API combines both remote surfaces; *rapyuta.Client implements it.
type API interface {
	ProjectLister
	BuildService
}

var _ API = (*rapyuta.Client)(nil)

// Runner executes one pass over a manifest.
type Runner struct {
	cfg       config.ActionConfig
	api       API
	logger    Logger
	submitter *Submitter
	waiter    *Waiter
}

func NewRunner(cfg config.ActionConfig, api API, logger Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		api:       api,
		logger:    logger,
		submitter: NewSubmitter(api, logger),
		waiter:    NewWaiter(api, logger, cfg.PollRetryCount, cfg.PollInterval),
	}
}

// Run loads the configured manifest and drives every build to completion.
func (r *Runner) Run(ctx context.Context) (_ []rapyuta.Build, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "io-builds run")
	defer func() { endSpan(span, err) }()

	builds, err := manifest.Load(r.cfg.BuildsFile, r.cfg.DefaultRepository())
	if err != nil {
		return nil, err
	}
	r.logger.Info("parsed manifest", "file", r.cfg.BuildsFile, "builds", len(builds))
	span.SetAttributes(attribute.Int("iobuilds.builds", len(builds)))

	return r.Execute(ctx, builds)
}

// Execute resolves, validates, submits, and waits for builds.
func (r *Runner) Execute(ctx context.Context, builds []manifest.BuildRequest) ([]rapyuta.Build, error) {
	dir, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	r.logger.Info("retrieved project ids", "projects", len(dir))

	if err := ValidateProjects(builds, dir); err != nil {
		return nil, err
	}

	submitted := make([]SubmittedBuild, 0, len(builds))
	for _, req := range builds {
		projectID, _ := dir.Lookup(req.ProjectName)
		sb, err := r.submit(ctx, projectID, req)
		if err != nil {
			return nil, err
		}
		if sb.Triggered {
			r.logger.Info("re-triggered existing build", "build", req.BuildName, "guid", sb.Build.GUID, "generation", sb.Generation)
		} else {
			r.logger.Info("created new build", "build", req.BuildName, "guid", sb.Build.GUID)
		}
		submitted = append(submitted, sb)
	}

	finished := make([]rapyuta.Build, 0, len(submitted))
	for _, sb := range submitted {
		r.logger.Info("waiting for build to either complete or fail", "build", sb.Request.BuildName)
		build, err := r.wait(ctx, sb)
		if err != nil {
			return finished, err
		}
		r.logger.Info("build is complete", "build", sb.Request.BuildName, "guid", build.GUID)
		finished = append(finished, build)
	}
	return finished, nil
}

func (r *Runner) submit(ctx context.Context, projectID string, req manifest.BuildRequest) (sb SubmittedBuild, err error) {
	ctx, span := r.startBuildSpan(ctx, "submit build", req)
	defer func() { endSpan(span, err) }()
	return r.submitter.Submit(ctx, projectID, req)
}

func (r *Runner) wait(ctx context.Context, sb SubmittedBuild) (build rapyuta.Build, err error) {
	ctx, span := r.startBuildSpan(ctx, "wait build", sb.Request)
	defer func() { endSpan(span, err) }()
	start := time.Now()
	build, err = r.waiter.Wait(ctx, sb)
	span.SetAttributes(attribute.String("iobuilds.elapsed", time.Since(start).String()))
	return build, err
}

func (r *Runner) startBuildSpan(ctx context.Context, name string, req manifest.BuildRequest) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(
		attribute.String("iobuilds.project", req.ProjectName),
		attribute.String("iobuilds.build", req.BuildName),
	))
}

func (r *Runner) resolve(ctx context.Context) (dir ProjectDirectory, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "resolve projects")
	defer func() { endSpan(span, err) }()
	return ResolveProjects(ctx, r.api)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
