package buildstub

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vyvo/iobuilds/pkg/rapyuta"
)

// PostgresStore persists stub builds to Postgres.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(conn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", conn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	db.SetMaxIdleConns(2)
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &PostgresStore{db: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS stub_builds (
    guid TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    build_name TEXT NOT NULL,
    build JSONB NOT NULL,
    reads INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    UNIQUE (project_id, build_name)
);
`
	_, err := s.db.Exec(schema)
	return err
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *PostgresStore) Create(rec Record) (Record, error) {
	payload, err := json.Marshal(rec.Build)
	if err != nil {
		return Record{}, fmt.Errorf("marshal build: %w", err)
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	query := `INSERT INTO stub_builds (guid, project_id, build_name, build, reads, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err = s.db.Exec(query, rec.Build.GUID, rec.ProjectID, rec.Build.BuildName, payload, rec.Reads, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Record{}, ErrBuildExists
		}
		return Record{}, err
	}
	return rec, nil
}

func (s *PostgresStore) List(projectID string) ([]Record, error) {
	rows, err := s.db.Query(`SELECT project_id, build, reads, created_at, updated_at FROM stub_builds WHERE project_id=$1 ORDER BY created_at ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PostgresStore) Get(projectID, guid string) (Record, error) {
	row := s.db.QueryRow(`SELECT project_id, build, reads, created_at, updated_at FROM stub_builds WHERE project_id=$1 AND guid=$2`, projectID, guid)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrBuildNotFound
	}
	return rec, err
}

func (s *PostgresStore) Update(projectID, guid string, fn func(rec *Record) error) (Record, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRow(`SELECT project_id, build, reads, created_at, updated_at FROM stub_builds WHERE project_id=$1 AND guid=$2 FOR UPDATE`, projectID, guid)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrBuildNotFound
	}
	if err != nil {
		return Record{}, err
	}

	if err := fn(&rec); err != nil {
		return Record{}, err
	}
	rec.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(rec.Build)
	if err != nil {
		return Record{}, fmt.Errorf("marshal build: %w", err)
	}
	if _, err := tx.Exec(`UPDATE stub_builds SET build=$1, reads=$2, updated_at=$3 WHERE guid=$4`, payload, rec.Reads, rec.UpdatedAt, guid); err != nil {
		return Record{}, err
	}
	if err := tx.Commit(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec     Record
		payload []byte
	)
	if err := row.Scan(&rec.ProjectID, &payload, &rec.Reads, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	var build rapyuta.Build
	if err := json.Unmarshal(payload, &build); err != nil {
		return Record{}, fmt.Errorf("decode build: %w", err)
	}
	rec.Build = build
	return rec, nil
}
