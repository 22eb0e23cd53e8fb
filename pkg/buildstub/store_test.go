package buildstub

import (
	"errors"
	"os"
	"testing"

	"github.com/vyvo/iobuilds/pkg/rapyuta"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	rec, err := s.Create(Record{ProjectID: "p1", Build: rapyuta.Build{GUID: "g1", BuildName: "nav", Status: rapyuta.StatusInProgress}})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatalf("expected created timestamp")
	}
	if _, err := s.Create(Record{ProjectID: "p1", Build: rapyuta.Build{GUID: "g2", BuildName: "nav"}}); !errors.Is(err, ErrBuildExists) {
		t.Fatalf("expected ErrBuildExists, got %v", err)
	}

	if _, err := s.Get("p2", "g1"); !errors.Is(err, ErrBuildNotFound) {
		t.Fatalf("expected ErrBuildNotFound for other project, got %v", err)
	}

	updated, err := s.Update("p1", "g1", func(rec *Record) error {
		rec.Reads = 3
		rec.Build.Status = rapyuta.StatusComplete
		return nil
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Reads != 3 || updated.Build.Status != rapyuta.StatusComplete {
		t.Fatalf("unexpected update result: %#v", updated)
	}

	if _, err := s.Update("p1", "g1", func(*Record) error { return errors.New("refused") }); err == nil {
		t.Fatalf("expected update error")
	}
	got, err := s.Get("p1", "g1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Reads != 3 {
		t.Fatalf("failed update must not persist, got %#v", got)
	}

	list, err := s.List("p1")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 1 || list[0].Build.GUID != "g1" {
		t.Fatalf("unexpected list: %#v", list)
	}
}

func TestMemStore(t *testing.T) {
	exerciseStore(t, NewMemStore())
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("BUILDSTUB_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("BUILDSTUB_TEST_DATABASE_URL not set")
	}
	s, err := NewPostgresStore(dsn)
	if err != nil {
		t.Fatalf("NewPostgresStore returned error: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.Exec(`DELETE FROM stub_builds WHERE project_id IN ('p1','p2')`)
		_ = s.Close()
	})
	_, _ = s.db.Exec(`DELETE FROM stub_builds WHERE project_id IN ('p1','p2')`)
	exerciseStore(t, s)
}
