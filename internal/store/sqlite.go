package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/temp-anomaly/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS datasets (
	id         TEXT PRIMARY KEY,
	hash       TEXT NOT NULL UNIQUE,
	source     TEXT NOT NULL DEFAULT '',
	rows       INTEGER NOT NULL DEFAULT 0,
	cities     INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS baselines (
	dataset_id TEXT NOT NULL REFERENCES datasets(id),
	city       TEXT NOT NULL,
	season     TEXT NOT NULL,
	mean_temp  REAL NOT NULL,
	std_temp   REAL,
	count      INTEGER NOT NULL,
	PRIMARY KEY (dataset_id, city, season)
);

CREATE TABLE IF NOT EXISTS checks (
	id          TEXT PRIMARY KEY,
	dataset_id  TEXT NOT NULL REFERENCES datasets(id),
	city        TEXT NOT NULL,
	status      TEXT NOT NULL,
	code        INTEGER NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	season      TEXT NOT NULL DEFAULT '',
	temperature REAL NOT NULL DEFAULT 0,
	anomalous   INTEGER NOT NULL DEFAULT 0,
	checked_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_datasets_created_at ON datasets(created_at);
CREATE INDEX IF NOT EXISTS idx_checks_dataset_id ON checks(dataset_id);
CREATE INDEX IF NOT EXISTS idx_checks_city ON checks(city);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveDataset(ctx context.Context, ds model.Dataset) (*model.Dataset, error) {
	existing, err := s.GetDatasetByHash(ctx, ds.Hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if ds.ID == "" {
		ds.ID = uuid.New().String()
	}
	if ds.CreatedAt.IsZero() {
		ds.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO datasets (id, hash, source, rows, cities, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ds.ID, ds.Hash, ds.Source, ds.Rows, ds.Cities, ds.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert dataset")
	}
	return &ds, nil
}

func (s *SQLiteStore) GetDataset(ctx context.Context, id string) (*model.Dataset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, hash, source, rows, cities, created_at FROM datasets WHERE id = ?`, id)
	ds, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get dataset %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get dataset %s", id)
	}
	return ds, nil
}

func (s *SQLiteStore) GetDatasetByHash(ctx context.Context, hash string) (*model.Dataset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, hash, source, rows, cities, created_at FROM datasets WHERE hash = ?`, hash)
	ds, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get dataset by hash")
	}
	return ds, nil
}

func (s *SQLiteStore) ListDatasets(ctx context.Context, limit int) ([]model.Dataset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, hash, source, rows, cities, created_at FROM datasets ORDER BY created_at DESC LIMIT ?`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list datasets")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dataset")
		}
		out = append(out, *ds)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate datasets")
}

// SaveBaselines replaces the dataset's baseline rows.
func (s *SQLiteStore) SaveBaselines(ctx context.Context, datasetID string, table *model.BaselineTable) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM baselines WHERE dataset_id = ?`, datasetID); err != nil {
		return eris.Wrapf(err, "sqlite: delete baselines %s", datasetID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO baselines (dataset_id, city, season, mean_temp, std_temp, count) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare baseline insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, b := range table.Baselines() {
		if _, err := stmt.ExecContext(ctx, datasetID, b.City, string(b.Season), b.MeanTemp, nullFloat(b.StdTemp), b.Count); err != nil {
			return eris.Wrapf(err, "sqlite: insert baseline %s/%s", b.City, b.Season)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit baselines")
}

func (s *SQLiteStore) GetBaselines(ctx context.Context, datasetID string) (*model.BaselineTable, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT city, season, mean_temp, std_temp, count FROM baselines WHERE dataset_id = ?`, datasetID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get baselines %s", datasetID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.SeasonalBaseline
	for rows.Next() {
		b, err := scanBaseline(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan baseline")
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate baselines")
	}
	return model.NewBaselineTable(out), nil
}

func (s *SQLiteStore) SaveCheck(ctx context.Context, datasetID string, c model.LiveClassification) (*model.CheckRecord, error) {
	rec := model.CheckRecord{
		ID:             uuid.New().String(),
		DatasetID:      datasetID,
		Classification: c,
		CheckedAt:      time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checks (id, dataset_id, city, status, code, message, season, temperature, anomalous, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, datasetID, c.City, string(c.Status), c.Code, c.Message, string(c.Season), c.Temperature, c.Anomalous, rec.CheckedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert check")
	}
	return &rec, nil
}

func (s *SQLiteStore) ListChecks(ctx context.Context, filter CheckFilter) ([]model.CheckRecord, error) {
	query := `SELECT id, dataset_id, city, status, code, message, season, temperature, anomalous, checked_at FROM checks WHERE 1=1`
	var args []any

	if filter.DatasetID != "" {
		query += ` AND dataset_id = ?`
		args = append(args, filter.DatasetID)
	}
	if filter.City != "" {
		query += ` AND city = ?`
		args = append(args, filter.City)
	}
	query += ` ORDER BY checked_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list checks")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.CheckRecord
	for rows.Next() {
		rec, err := scanCheck(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan check")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate checks")
}
