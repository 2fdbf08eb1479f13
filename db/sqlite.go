package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"bifurcation/models"
	"bifurcation/utils"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

type SQLiteClient struct {
	db *sql.DB
}

func NewSQLiteClient(dataSourceName string) (*SQLiteClient, error) {
	// Extract the file path before query parameters
	dbPath := dataSourceName
	if idx := strings.Index(dataSourceName, "?"); idx != -1 {
		dbPath = dataSourceName[:idx]
	}

	dbDir := filepath.Dir(dbPath)
	if dbDir != "." && dbDir != "" {
		if err := utils.CreateFolder(dbDir); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	if !strings.Contains(dataSourceName, "_busy_timeout") {
		if strings.Contains(dataSourceName, "?") {
			dataSourceName += "&_busy_timeout=5000"
		} else {
			dataSourceName += "?_busy_timeout=5000"
		}
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("error connecting to SQLite: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	return &SQLiteClient{db: db}, nil
}

// createTables creates the required tables if they don't exist
func createTables(db *sql.DB) error {
	createRunsTable := `
    CREATE TABLE IF NOT EXISTS runs (
        id TEXT PRIMARY KEY,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        series_path TEXT,
        spectrum TEXT NOT NULL,
        seed INTEGER NOT NULL,
        step_size REAL NOT NULL,
        alpha REAL NOT NULL,
        samples INTEGER NOT NULL,
        transitions INTEGER NOT NULL,
        final_state REAL NOT NULL,
        stats TEXT
    );
    CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
    `

	createGapsTable := `
    CREATE TABLE IF NOT EXISTS gaps (
        run_id TEXT NOT NULL,
        idx INTEGER NOT NULL,
        value REAL NOT NULL,
        PRIMARY KEY (run_id, idx)
    );
    `

	if _, err := db.Exec(createRunsTable); err != nil {
		return fmt.Errorf("error creating runs table: %w", err)
	}
	if _, err := db.Exec(createGapsTable); err != nil {
		return fmt.Errorf("error creating gaps table: %w", err)
	}
	return nil
}

func (db *SQLiteClient) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// SaveRun inserts or replaces a run summary.
func (db *SQLiteClient) SaveRun(ctx context.Context, run models.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run without id: %w", models.ErrInvalidArgument)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	var stats *string
	if len(run.Stats) > 0 {
		s := string(run.Stats)
		stats = &s
	}

	_, err := db.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			id, created_at, series_path, spectrum, seed, step_size,
			alpha, samples, transitions, final_state, stats
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.CreatedAt,
		run.SeriesPath,
		run.Spectrum,
		run.Seed,
		run.StepSize,
		run.Alpha,
		run.Samples,
		run.Transitions,
		run.FinalState,
		stats,
	)
	if err != nil {
		return fmt.Errorf("error storing run: %w", err)
	}
	return nil
}

// SaveGaps replaces the gaps recorded for runID.
func (db *SQLiteClient) SaveGaps(ctx context.Context, runID string, gaps []float64) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM gaps WHERE run_id = ?", runID); err != nil {
		tx.Rollback()
		return fmt.Errorf("error clearing gaps: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO gaps (run_id, idx, value) VALUES (?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, gap := range gaps {
		if _, err := stmt.ExecContext(ctx, runID, i, gap); err != nil {
			tx.Rollback()
			return fmt.Errorf("error executing statement: %w", err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run by id.
func (db *SQLiteClient) GetRun(ctx context.Context, id string) (models.Run, bool, error) {
	row := db.db.QueryRowContext(ctx, `
		SELECT id, created_at, series_path, spectrum, seed, step_size,
		       alpha, samples, transitions, final_state, stats
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Run{}, false, nil
		}
		return models.Run{}, false, fmt.Errorf("failed to retrieve run: %w", err)
	}
	return run, true, nil
}

// GetGaps returns the gaps of runID in their original order.
func (db *SQLiteClient) GetGaps(ctx context.Context, runID string) ([]float64, error) {
	rows, err := db.db.QueryContext(ctx, "SELECT value FROM gaps WHERE run_id = ? ORDER BY idx", runID)
	if err != nil {
		return nil, fmt.Errorf("error querying gaps: %w", err)
	}
	defer rows.Close()

	gaps := []float64{}
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("error scanning gap: %w", err)
		}
		gaps = append(gaps, v)
	}
	return gaps, rows.Err()
}

// ListRuns returns every run, newest first.
func (db *SQLiteClient) ListRuns(ctx context.Context) ([]models.Run, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, created_at, series_path, spectrum, seed, step_size,
		       alpha, samples, transitions, final_state, stats
		FROM runs
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("error querying runs: %w", err)
	}
	defer rows.Close()

	runs := []models.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (models.Run, error) {
	var run models.Run
	var seriesPath sql.NullString
	var stats sql.NullString
	err := s.Scan(
		&run.ID,
		&run.CreatedAt,
		&seriesPath,
		&run.Spectrum,
		&run.Seed,
		&run.StepSize,
		&run.Alpha,
		&run.Samples,
		&run.Transitions,
		&run.FinalState,
		&stats,
	)
	if err != nil {
		return models.Run{}, err
	}
	run.SeriesPath = seriesPath.String
	if stats.Valid {
		run.Stats = json.RawMessage(stats.String)
	}
	return run, nil
}
