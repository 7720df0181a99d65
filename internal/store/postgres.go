package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"snapscreen/internal/config"
	"snapscreen/internal/errors"
	"snapscreen/internal/types"

	"github.com/lib/pq"
	pkgerrors "github.com/pkg/errors"
)

// pq error code for a missing relation
const undefinedTable = "42P01"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS scans (
	seq            BIGSERIAL,
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	company        TEXT NOT NULL DEFAULT '',
	file_name      TEXT NOT NULL DEFAULT '',
	date_scanned   DATE NOT NULL,
	score          INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
	passing_checks INTEGER NOT NULL,
	total_checks   INTEGER NOT NULL,
	categories     JSONB NOT NULL,
	hard_skills    JSONB NOT NULL,
	soft_skills    JSONB NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS scans_title_lower_idx ON scans (lower(title));
`

// requiredTables lists the tables VerifySchema checks for
var requiredTables = []string{"scans"}

// PostgresStore keeps scans in PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *errors.Logger
}

// NewPostgresStore opens and pings a connection pool.
func NewPostgresStore(ctx context.Context, cfg config.PostgresConfig, logger *errors.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, storageError("failed to open database", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, storageError("failed to connect to database", err).
			WithContext("host", cfg.Host).
			WithContext("database", cfg.Database)
	}

	logger.Info("Connected to PostgreSQL", "host", cfg.Host, "database", cfg.Database)
	return &PostgresStore{db: db, logger: logger}, nil
}

// EnsureSchema creates the scans table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return storageError("failed to create schema", err)
	}
	return nil
}

// VerifySchema checks that every required table exists.
func (s *PostgresStore) VerifySchema(ctx context.Context) error {
	const query = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)`

	for _, table := range requiredTables {
		var exists bool
		if err := s.db.QueryRowContext(ctx, query, table).Scan(&exists); err != nil {
			return storageError("failed to inspect schema", err)
		}
		if !exists {
			return errors.NewStorageError(errors.ErrCodeStorageFailed,
				"required table "+table+" does not exist (run 'snapscreen db init')", nil)
		}
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter string) ([]types.ScanSummary, error) {
	query := `SELECT id, title, company, date_scanned, score FROM scans`
	var args []any
	if !BlankFilter(filter) {
		query += ` WHERE title ILIKE $1 ESCAPE '\'`
		args = append(args, likePattern(filter))
	}
	query += ` ORDER BY date_scanned DESC, seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError("failed to list scans", err)
	}
	defer rows.Close()

	out := []types.ScanSummary{}
	for rows.Next() {
		var sum types.ScanSummary
		var date time.Time
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.Company, &date, &sum.Score); err != nil {
			return nil, storageError("failed to read scan row", err)
		}
		sum.Date = date.Format(types.DateLayout)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to list scans", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*types.ScanDetail, error) {
	const query = `
		SELECT id, title, company, file_name, date_scanned, score,
		       passing_checks, total_checks, categories, hard_skills, soft_skills
		FROM scans WHERE id = $1`

	var (
		d                      types.ScanDetail
		date                   time.Time
		categories, hard, soft []byte
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.Title, &d.Company, &d.FileName, &date, &d.Score,
		&d.PassingChecks, &d.TotalChecks, &categories, &hard, &soft,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storageError("failed to load scan", err).WithContext("scan_id", id)
	}
	d.DateScanned = date.Format(types.DateLayout)

	if err := decodeJSONColumns(&d, categories, hard, soft); err != nil {
		return nil, storageError("corrupt scan row", err).WithContext("scan_id", id)
	}
	return &d, nil
}

func (s *PostgresStore) Save(ctx context.Context, detail *types.ScanDetail) error {
	if err := prepare(detail); err != nil {
		return err
	}

	categories, hard, soft, err := encodeJSONColumns(detail)
	if err != nil {
		return storageError("failed to encode scan", err)
	}

	const upsert = `
		INSERT INTO scans (id, title, company, file_name, date_scanned, score,
		                   passing_checks, total_checks, categories, hard_skills, soft_skills)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			company = EXCLUDED.company,
			file_name = EXCLUDED.file_name,
			date_scanned = EXCLUDED.date_scanned,
			score = EXCLUDED.score,
			passing_checks = EXCLUDED.passing_checks,
			total_checks = EXCLUDED.total_checks,
			categories = EXCLUDED.categories,
			hard_skills = EXCLUDED.hard_skills,
			soft_skills = EXCLUDED.soft_skills,
			updated_at = now()`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, upsert,
		detail.ID, detail.Title, detail.Company, detail.FileName, detail.DateScanned, detail.Score,
		detail.PassingChecks, detail.TotalChecks, categories, hard, soft,
	); err != nil {
		return storageError("failed to save scan", err).WithContext("scan_id", detail.ID)
	}
	if err := tx.Commit(); err != nil {
		return storageError("failed to commit scan", err).WithContext("scan_id", detail.ID)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE id = $1`, id)
	if err != nil {
		return storageError("failed to delete scan", err).WithContext("scan_id", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageError("failed to delete scan", err).WithContext("scan_id", id)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

// Seed inserts the sample scans that are not stored yet.
func (s *PostgresStore) Seed(ctx context.Context) (int, error) {
	inserted := 0
	for _, d := range SampleScans() {
		_, err := s.Get(ctx, d.ID)
		if err == nil {
			continue
		}
		if !IsNotFound(err) {
			return inserted, err
		}
		d := d
		if err := s.Save(ctx, &d); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// likePattern escapes LIKE metacharacters and wraps the filter for a substring match.
func likePattern(filter string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(filter) + "%"
}

func encodeJSONColumns(d *types.ScanDetail) (categories, hard, soft []byte, err error) {
	if categories, err = json.Marshal(d.Categories); err != nil {
		return nil, nil, nil, pkgerrors.Wrap(err, "encoding categories")
	}
	if hard, err = json.Marshal(d.HardSkills); err != nil {
		return nil, nil, nil, pkgerrors.Wrap(err, "encoding hard skills")
	}
	if soft, err = json.Marshal(d.SoftSkills); err != nil {
		return nil, nil, nil, pkgerrors.Wrap(err, "encoding soft skills")
	}
	return categories, hard, soft, nil
}

func decodeJSONColumns(d *types.ScanDetail, categories, hard, soft []byte) error {
	if err := json.Unmarshal(categories, &d.Categories); err != nil {
		return pkgerrors.Wrap(err, "decoding categories")
	}
	if err := json.Unmarshal(hard, &d.HardSkills); err != nil {
		return pkgerrors.Wrap(err, "decoding hard skills")
	}
	if err := json.Unmarshal(soft, &d.SoftSkills); err != nil {
		return pkgerrors.Wrap(err, "decoding soft skills")
	}
	return nil
}

// storageError wraps a database failure, adding a schema hint for missing tables.
func storageError(message string, err error) *errors.AppError {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) && pqErr.Code == undefinedTable {
		message += " (table missing, run 'snapscreen db init')"
	}
	return errors.NewStorageError(errors.ErrCodeStorageFailed, message, err)
}
