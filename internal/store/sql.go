package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/sanathsadiga/jobautomate/internal/model"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS jobs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	company        TEXT NOT NULL DEFAULT '',
	title          TEXT NOT NULL DEFAULT '',
	location       TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	apply_url      TEXT NOT NULL UNIQUE,
	experience_min INTEGER,
	experience_max INTEGER,
	"match"        BOOLEAN NOT NULL DEFAULT 0,
	match_reason   TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL
)`

const postgresSchema = `CREATE TABLE IF NOT EXISTS jobs (
	id             BIGSERIAL PRIMARY KEY,
	company        TEXT NOT NULL DEFAULT '',
	title          TEXT NOT NULL DEFAULT '',
	location       TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	apply_url      TEXT NOT NULL UNIQUE,
	experience_min INTEGER,
	experience_max INTEGER,
	"match"        BOOLEAN NOT NULL DEFAULT FALSE,
	match_reason   TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL
)`

// id and created_at are never part of the update set.
const upsertQuery = `INSERT INTO jobs (
	company, title, location, description, apply_url,
	experience_min, experience_max, "match", match_reason, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (apply_url) DO UPDATE SET
	company        = excluded.company,
	title          = excluded.title,
	location       = excluded.location,
	description    = excluded.description,
	experience_min = excluded.experience_min,
	experience_max = excluded.experience_max,
	"match"        = excluded."match",
	match_reason   = excluded.match_reason`

const listColumns = `id, company, title, location, description, apply_url,
	experience_min, experience_max, "match", match_reason, created_at`

// SQLStore persists postings in a jobs table keyed on apply_url.
type SQLStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ model.JobStore = (*SQLStore)(nil)

// Open connects to the database and ensures the jobs table exists. driver is
// "sqlite" or "postgres".
func Open(driver, dsn string, logger *slog.Logger) (*SQLStore, error) {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = sqliteSchema
	case DriverPostgres:
		schema = postgresSchema
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One writer at a time; also keeps ":memory:" on a single connection.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating jobs table: %w", err)
	}

	logger.Info("database ready", "driver", driver)
	return &SQLStore{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Upsert writes postings in a single transaction. A posting whose apply URL
// already exists has its content fields replaced; its id and created_at are
// kept. Postings missing a title or apply URL are skipped.
func (s *SQLStore) Upsert(ctx context.Context, postings []model.Posting) (model.UpsertResult, error) {
	var res model.UpsertResult
	if len(postings) == 0 {
		return res, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("beginning upsert transaction: %w", err)
	}
	defer tx.Rollback()

	existsQuery := tx.Rebind("SELECT COUNT(*) FROM jobs WHERE apply_url = ?")
	insertQuery := tx.Rebind(upsertQuery)
	createdAt := s.now()

	for _, p := range postings {
		if !p.Storable() {
			res.Skipped++
			s.logger.Warn("skipping posting without title or apply url",
				"company", p.Company, "title", p.Title, "apply_url", p.ApplyURL)
			continue
		}

		var existing int
		if err := tx.GetContext(ctx, &existing, existsQuery, p.ApplyURL); err != nil {
			return model.UpsertResult{}, fmt.Errorf("checking %s: %w", p.ApplyURL, err)
		}

		_, err := tx.ExecContext(ctx, insertQuery,
			p.Company, p.Title, p.Location, p.Description, p.ApplyURL,
			p.ExperienceMin, p.ExperienceMax, p.Match, p.MatchReason, createdAt,
		)
		if err != nil {
			return model.UpsertResult{}, fmt.Errorf("upserting %s: %w", p.ApplyURL, err)
		}

		res.Stored++
		if existing == 0 {
			res.Inserted = append(res.Inserted, p.ApplyURL)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.UpsertResult{}, fmt.Errorf("committing upsert: %w", err)
	}
	return res, nil
}

// List returns stored jobs, newest first.
func (s *SQLStore) List(ctx context.Context, filter model.ListFilter) ([]model.StoredJob, error) {
	query := "SELECT " + listColumns + " FROM jobs WHERE 1=1"
	var args []any

	if filter.MatchOnly {
		query += ` AND "match" = ?`
		args = append(args, true)
	}
	if filter.Company != "" {
		query += " AND LOWER(company) = LOWER(?)"
		args = append(args, filter.Company)
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	jobs := []model.StoredJob{}
	if err := s.db.SelectContext(ctx, &jobs, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, nil
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
