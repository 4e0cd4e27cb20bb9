// Package history keeps one row per successful training run in a sqlite
// database so score drift can be followed over time.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is a finished training run.
type Entry struct {
	ID               int64         `json:"id"`
	Brain            string        `json:"brain"`
	Estimator        string        `json:"estimator"`
	Score            float64       `json:"score"`
	TrainingDataSize int           `json:"training_data_size"`
	Features         []string      `json:"features"`
	TrainedAt        time.Time     `json:"trained_at"`
	Duration         time.Duration `json:"duration_ns"`
}

type Store struct {
	db     *sql.DB
	dbPath string
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	s := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := s.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) initializeSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS training_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		brain TEXT NOT NULL,
		estimator TEXT NOT NULL,
		score REAL NOT NULL,
		training_data_size INTEGER NOT NULL,
		features TEXT NOT NULL,
		trained_at DATETIME NOT NULL,
		duration_ns INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_training_runs_brain ON training_runs(brain, trained_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Record(ctx context.Context, e Entry) error {
	features, err := json.Marshal(e.Features)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO training_runs (brain, estimator, score, training_data_size, features, trained_at, duration_ns)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		e.Brain, e.Estimator, e.Score, e.TrainingDataSize, string(features),
		e.TrainedAt.UTC(), int64(e.Duration))
	if err != nil {
		return fmt.Errorf("failed to record training run of %s: %w", e.Brain, err)
	}
	return nil
}

// List returns the latest runs of a brain, newest first. limit <= 0 returns
// all runs.
func (s *Store) List(ctx context.Context, brain string, limit int) ([]Entry, error) {
	query := `
	SELECT id, brain, estimator, score, training_data_size, features, trained_at, duration_ns
	FROM training_runs
	WHERE brain = ?
	ORDER BY trained_at DESC, id DESC`

	args := []any{brain}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query training runs of %s: %w", brain, err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var features string
		var duration int64

		if err := rows.Scan(&e.ID, &e.Brain, &e.Estimator, &e.Score, &e.TrainingDataSize,
			&features, &e.TrainedAt, &duration); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(features), &e.Features); err != nil {
			return nil, err
		}
		e.Duration = time.Duration(duration)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Forget removes all runs of a brain.
func (s *Store) Forget(ctx context.Context, brain string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM training_runs WHERE brain = ?`, brain)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
