package db

import (
	"context"
	"fmt"
	"strings"

	"bifurcation/config"
	"bifurcation/models"
)

// RunStore persists long-run summaries and their transition gaps.
type RunStore interface {
	SaveRun(ctx context.Context, run models.Run) error
	SaveGaps(ctx context.Context, runID string, gaps []float64) error
	GetRun(ctx context.Context, id string) (models.Run, bool, error)
	GetGaps(ctx context.Context, runID string) ([]float64, error)
	ListRuns(ctx context.Context) ([]models.Run, error)
	Close() error
}

var (
	_ RunStore = (*SQLiteClient)(nil)
	_ RunStore = (*MongoClient)(nil)
)

// Options selects and configures a RunStore implementation.
type Options struct {
	Driver        string // sqlite | mongo
	SQLitePath    string
	MongoURI      string
	MongoDatabase string
}

// Open returns the RunStore named by opts.Driver.
func Open(ctx context.Context, opts Options) (RunStore, error) {
	switch strings.ToLower(opts.Driver) {
	case "", "sqlite":
		client, err := NewSQLiteClient(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "mongo", "mongodb":
		client, err := NewMongoClient(ctx, opts.MongoURI, opts.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q: %w", opts.Driver, models.ErrInvalidArgument)
	}
}

// NewDBClient opens the store selected by the storage section of the configuration.
// The "none" driver disables storage and yields a nil store.
func NewDBClient(ctx context.Context, storage config.StorageConfig) (RunStore, error) {
	if strings.EqualFold(storage.Driver, "none") {
		return nil, nil
	}
	return Open(ctx, Options{
		Driver:        storage.Driver,
		SQLitePath:    storage.SQLitePath,
		MongoURI:      storage.MongoURI,
		MongoDatabase: storage.MongoDatabase,
	})
}
