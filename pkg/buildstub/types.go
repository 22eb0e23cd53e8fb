package buildstub

import (
	"errors"
	"time"

	"github.com/vyvo/iobuilds/pkg/rapyuta"
)

var (
	// ErrBuildExists is returned when a project already has a build of that name.
	ErrBuildExists = errors.New("build already exists")
	// ErrBuildNotFound is returned for unknown build guids.
	ErrBuildNotFound = errors.New("build not found")
)

// Record is a build tracked by the stub together with its bookkeeping.
type Record struct {
	ProjectID string
	Build     rapyuta.Build
	// Reads counts status reads since the current generation started.
	Reads     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists stub build records.
type Store interface {
	Create(rec Record) (Record, error)
	List(projectID string) ([]Record, error)
	Get(projectID, guid string) (Record, error)
	Update(projectID, guid string, fn func(rec *Record) error) (Record, error)
}

var (
	_ Store = (*MemStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
