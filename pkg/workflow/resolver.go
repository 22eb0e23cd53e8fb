package workflow

import (
	"context"

	"github.com/vyvo/iobuilds/pkg/manifest"
)

// ProjectDirectory maps project names to project identifiers.
type ProjectDirectory map[string]string

// Lookup returns the identifier of a project name.
func (d ProjectDirectory) Lookup(name string) (string, bool) {
	id, ok := d[name]
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// ResolveProjects builds the directory from a single listing call.
func ResolveProjects(ctx context.Context, lister ProjectLister) (ProjectDirectory, error) {
	projects, err := lister.ListProjects(ctx)
	if err != nil {
		return nil, &RemoteError{Op: "list projects", Err: err}
	}
	dir := make(ProjectDirectory, len(projects))
	for _, p := range projects {
		dir[p.Name] = p.GUID
	}
	return dir, nil
}

// ValidateProjects fails on the first manifest project missing from dir.
func ValidateProjects(builds []manifest.BuildRequest, dir ProjectDirectory) error {
	for _, name := range manifest.ProjectNames(builds) {
		if _, ok := dir.Lookup(name); !ok {
			return &ResolutionError{Project: name}
		}
	}
	return nil
}
