// Package store persists datasets, their seasonal baselines and live-check history.
package store

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/temp-anomaly/internal/model"
)

// ErrNotFound is returned when a requested dataset does not exist.
var ErrNotFound = errors.New("store: not found")

// CheckFilter specifies criteria for listing live checks.
type CheckFilter struct {
	DatasetID string `json:"dataset_id,omitempty"`
	City      string `json:"city,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// Store defines the persistence interface.
type Store interface {
	// Datasets
	SaveDataset(ctx context.Context, ds model.Dataset) (*model.Dataset, error)
	GetDataset(ctx context.Context, id string) (*model.Dataset, error)
	GetDatasetByHash(ctx context.Context, hash string) (*model.Dataset, error)
	ListDatasets(ctx context.Context, limit int) ([]model.Dataset, error)

	// Baselines
	SaveBaselines(ctx context.Context, datasetID string, table *model.BaselineTable) error
	GetBaselines(ctx context.Context, datasetID string) (*model.BaselineTable, error)

	// Live checks
	SaveCheck(ctx context.Context, datasetID string, c model.LiveClassification) (*model.CheckRecord, error)
	ListChecks(ctx context.Context, filter CheckFilter) ([]model.CheckRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store selected by driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
