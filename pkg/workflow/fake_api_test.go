package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/vyvo/iobuilds/pkg/rapyuta"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// fakeAPI records calls and serves builds from memory. statuses queues the
// statuses GetBuild returns per guid; the last one repeats.
type fakeAPI struct {
	mu sync.Mutex

	projects    []rapyuta.Project
	projectsErr error
	builds      map[string][]rapyuta.Build
	createErr   error
	statuses    map[string][]rapyuta.BuildStatus
	generations map[string]int
	triggerErr  error

	calls    []string
	creates  []rapyuta.CreateBuildRequest
	triggers []string
	gets     int
}

func newFakeAPI(projects ...rapyuta.Project) *fakeAPI {
	return &fakeAPI{
		projects:    projects,
		builds:      make(map[string][]rapyuta.Build),
		statuses:    make(map[string][]rapyuta.BuildStatus),
		generations: make(map[string]int),
	}
}

func (f *fakeAPI) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) ListProjects(ctx context.Context) ([]rapyuta.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list-projects")
	if f.projectsErr != nil {
		return nil, f.projectsErr
	}
	return f.projects, nil
}

func (f *fakeAPI) CreateBuild(ctx context.Context, projectID string, req rapyuta.CreateBuildRequest) (rapyuta.Build, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create:" + req.BuildName)
	f.creates = append(f.creates, req)
	if f.createErr != nil {
		return rapyuta.Build{}, f.createErr
	}
	for _, b := range f.builds[projectID] {
		if b.BuildName == req.BuildName {
			return rapyuta.Build{}, &rapyuta.APIError{Method: "POST", Endpoint: "/build", StatusCode: 409}
		}
	}
	build := rapyuta.Build{
		GUID:            fmt.Sprintf("build-%s-%d", req.BuildName, len(f.creates)),
		BuildName:       req.BuildName,
		Status:          rapyuta.StatusInProgress,
		BuildGeneration: 1,
		BuildInfo:       req.BuildInfo,
	}
	f.builds[projectID] = append(f.builds[projectID], build)
	f.generations[build.GUID] = 1
	return build, nil
}

func (f *fakeAPI) ListBuilds(ctx context.Context, projectID string) ([]rapyuta.Build, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list-builds:" + projectID)
	return append([]rapyuta.Build(nil), f.builds[projectID]...), nil
}

func (f *fakeAPI) GetBuild(ctx context.Context, projectID, guid string) (rapyuta.Build, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	for _, b := range f.builds[projectID] {
		if b.GUID != guid {
			continue
		}
		if queue := f.statuses[guid]; len(queue) > 0 {
			b.Status = queue[0]
			if len(queue) > 1 {
				f.statuses[guid] = queue[1:]
			}
		}
		b.BuildGeneration = f.generations[guid]
		return b, nil
	}
	return rapyuta.Build{}, &rapyuta.APIError{Method: "GET", Endpoint: "/build/" + guid, StatusCode: 404}
}

func (f *fakeAPI) TriggerBuild(ctx context.Context, projectID, guid string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("trigger:" + guid)
	f.triggers = append(f.triggers, guid)
	if f.triggerErr != nil {
		return 0, f.triggerErr
	}
	f.generations[guid]++
	return f.generations[guid], nil
}

// seed registers a pre-existing build.
func (f *fakeAPI) seed(projectID string, b rapyuta.Build) {
	f.builds[projectID] = append(f.builds[projectID], b)
	f.generations[b.GUID] = b.BuildGeneration
}

// recordingLogger keeps the messages it was given.
type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) Info(msg string, _ ...any)  { l.add(msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.add(msg) }

func (l *recordingLogger) add(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

func (l *recordingLogger) has(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.msgs {
		if m == msg {
			return true
		}
	}
	return false
}
