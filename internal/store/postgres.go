package store

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/temp-anomaly/internal/db"
	"github.com/sells-group/temp-anomaly/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_dataset":      `INSERT INTO datasets (id, hash, source, rows, cities, created_at) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (hash) DO NOTHING`,
	"get_dataset":         `SELECT id, hash, source, rows, cities, created_at FROM datasets WHERE id = $1`,
	"get_dataset_by_hash": `SELECT id, hash, source, rows, cities, created_at FROM datasets WHERE hash = $1`,
	"get_baselines":       `SELECT city, season, mean_temp, std_temp, count FROM baselines WHERE dataset_id = $1`,
}

var baselineColumns = []string{"dataset_id", "city", "season", "mean_temp", "std_temp", "count"}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS datasets (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	hash       TEXT NOT NULL UNIQUE,
	source     TEXT NOT NULL DEFAULT '',
	rows       INTEGER NOT NULL DEFAULT 0,
	cities     INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS baselines (
	dataset_id TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	city       TEXT NOT NULL,
	season     TEXT NOT NULL,
	mean_temp  DOUBLE PRECISION NOT NULL,
	std_temp   DOUBLE PRECISION,
	count      INTEGER NOT NULL,
	PRIMARY KEY (dataset_id, city, season)
);

CREATE TABLE IF NOT EXISTS checks (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	dataset_id  TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	city        TEXT NOT NULL,
	status      TEXT NOT NULL,
	code        INTEGER NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	season      TEXT NOT NULL DEFAULT '',
	temperature DOUBLE PRECISION NOT NULL DEFAULT 0,
	anomalous   BOOLEAN NOT NULL DEFAULT false,
	checked_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_datasets_created_at ON datasets(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_checks_dataset_id ON checks(dataset_id, checked_at DESC);
CREATE INDEX IF NOT EXISTS idx_checks_city ON checks(city);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveDataset(ctx context.Context, ds model.Dataset) (*model.Dataset, error) {
	if ds.ID == "" {
		ds.ID = uuid.New().String()
	}
	if ds.CreatedAt.IsZero() {
		ds.CreatedAt = time.Now().UTC()
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO datasets (id, hash, source, rows, cities, created_at) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (hash) DO NOTHING`,
		ds.ID, ds.Hash, ds.Source, ds.Rows, ds.Cities, ds.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert dataset")
	}
	if tag.RowsAffected() == 0 {
		existing, err := s.GetDatasetByHash(ctx, ds.Hash)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, eris.Errorf("postgres: dataset %s vanished after conflict", ds.Hash)
		}
		return existing, nil
	}
	return &ds, nil
}

func (s *PostgresStore) GetDataset(ctx context.Context, id string) (*model.Dataset, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, hash, source, rows, cities, created_at FROM datasets WHERE id = $1`, id)
	ds, err := scanDataset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get dataset %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get dataset %s", id)
	}
	return ds, nil
}

func (s *PostgresStore) GetDatasetByHash(ctx context.Context, hash string) (*model.Dataset, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, hash, source, rows, cities, created_at FROM datasets WHERE hash = $1`, hash)
	ds, err := scanDataset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get dataset by hash")
	}
	return ds, nil
}

func (s *PostgresStore) ListDatasets(ctx context.Context, limit int) ([]model.Dataset, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, hash, source, rows, cities, created_at FROM datasets ORDER BY created_at DESC LIMIT $1`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list datasets")
	}
	defer rows.Close()

	var out []model.Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan dataset")
		}
		out = append(out, *ds)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate datasets")
}

// SaveBaselines replaces the dataset's baseline rows in one transaction using COPY.
func (s *PostgresStore) SaveBaselines(ctx context.Context, datasetID string, table *model.BaselineTable) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM baselines WHERE dataset_id = $1`, datasetID); err != nil {
		return eris.Wrapf(err, "postgres: delete baselines %s", datasetID)
	}

	baselines := table.Baselines()
	rows := make([][]any, 0, len(baselines))
	for _, b := range baselines {
		var std any
		if !math.IsNaN(b.StdTemp) {
			std = b.StdTemp
		}
		rows = append(rows, []any{datasetID, b.City, string(b.Season), b.MeanTemp, std, b.Count})
	}
	if _, err := db.CopyFrom(ctx, tx, "baselines", baselineColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: copy baselines %s", datasetID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit baselines")
}

func (s *PostgresStore) GetBaselines(ctx context.Context, datasetID string) (*model.BaselineTable, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT city, season, mean_temp, std_temp, count FROM baselines WHERE dataset_id = $1`, datasetID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get baselines %s", datasetID)
	}
	defer rows.Close()

	var out []model.SeasonalBaseline
	for rows.Next() {
		b, err := scanBaseline(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan baseline")
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate baselines")
	}
	return model.NewBaselineTable(out), nil
}

func (s *PostgresStore) SaveCheck(ctx context.Context, datasetID string, c model.LiveClassification) (*model.CheckRecord, error) {
	rec := model.CheckRecord{
		ID:             uuid.New().String(),
		DatasetID:      datasetID,
		Classification: c,
		CheckedAt:      time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO checks (id, dataset_id, city, status, code, message, season, temperature, anomalous, checked_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, datasetID, c.City, string(c.Status), c.Code, c.Message, string(c.Season), c.Temperature, c.Anomalous, rec.CheckedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert check")
	}
	return &rec, nil
}

func (s *PostgresStore) ListChecks(ctx context.Context, filter CheckFilter) ([]model.CheckRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, dataset_id, city, status, code, message, season, temperature, anomalous, checked_at
		 FROM checks
		 WHERE ($1 = '' OR dataset_id = $1) AND ($2 = '' OR city = $2)
		 ORDER BY checked_at DESC LIMIT $3`,
		filter.DatasetID, filter.City, listLimit(filter.Limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list checks")
	}
	defer rows.Close()

	var out []model.CheckRecord
	for rows.Next() {
		rec, err := scanCheck(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan check")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate checks")
}
