// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/intentbot/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS training_runs (
		id TEXT PRIMARY KEY,
		snapshot_id TEXT NOT NULL,
		snapshot_path TEXT NOT NULL,
		corpus_path TEXT NOT NULL,
		examples INTEGER NOT NULL,
		vocabulary INTEGER NOT NULL,
		tags INTEGER NOT NULL,
		hidden_size INTEGER NOT NULL,
		epochs INTEGER NOT NULL,
		loss REAL NOT NULL,
		accuracy REAL NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_training_runs_created_at ON training_runs(created_at);

	CREATE TABLE IF NOT EXISTS exchanges (
		id TEXT PRIMARY KEY,
		message TEXT NOT NULL,
		response TEXT NOT NULL,
		tag TEXT,
		confidence REAL NOT NULL DEFAULT 0,
		matched INTEGER NOT NULL DEFAULT 0,
		engine TEXT NOT NULL,
		snapshot_id TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_exchanges_created_at ON exchanges(created_at);
	CREATE INDEX IF NOT EXISTS idx_exchanges_tag ON exchanges(tag);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordTrainingRun inserts a training run. ID and CreatedAt are set when empty.
func (s *SQLiteStorage) RecordTrainingRun(ctx context.Context, run *models.TrainingRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO training_runs (id, snapshot_id, snapshot_path, corpus_path, examples, vocabulary,
		 tags, hidden_size, epochs, loss, accuracy, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SnapshotID, run.SnapshotPath, run.CorpusPath, run.Examples, run.Vocabulary,
		run.Tags, run.HiddenSize, run.Epochs, run.Loss, run.Accuracy, run.DurationMS, run.CreatedAt,
	)
	return err
}

// ListTrainingRuns returns training runs, newest first.
func (s *SQLiteStorage) ListTrainingRuns(ctx context.Context, offset, limit int) ([]*models.TrainingRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, snapshot_id, snapshot_path, corpus_path, examples, vocabulary, tags,
		 hidden_size, epochs, loss, accuracy, duration_ms, created_at
		 FROM training_runs ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.TrainingRun
	for rows.Next() {
		var r models.TrainingRun
		if err := rows.Scan(&r.ID, &r.SnapshotID, &r.SnapshotPath, &r.CorpusPath, &r.Examples, &r.Vocabulary,
			&r.Tags, &r.HiddenSize, &r.Epochs, &r.Loss, &r.Accuracy, &r.DurationMS, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// CountTrainingRuns returns the total number of training runs.
func (s *SQLiteStorage) CountTrainingRuns(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM training_runs`).Scan(&count)
	return count, err
}

// RecordExchange inserts a chat exchange. ID and CreatedAt are set when empty.
func (s *SQLiteStorage) RecordExchange(ctx context.Context, ex *models.Exchange) error {
	if ex.ID == "" {
		ex.ID = uuid.New().String()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exchanges (id, message, response, tag, confidence, matched, engine, snapshot_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.ID, ex.Message, ex.Response, nullString(ex.Tag), ex.Confidence, ex.Matched, ex.Engine,
		nullString(ex.SnapshotID), ex.CreatedAt,
	)
	return err
}

// ListExchanges returns exchanges, newest first.
func (s *SQLiteStorage) ListExchanges(ctx context.Context, offset, limit int) ([]*models.Exchange, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message, response, tag, confidence, matched, engine, snapshot_id, created_at
		 FROM exchanges ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Exchange
	for rows.Next() {
		var ex models.Exchange
		var tag, snapID sql.NullString
		if err := rows.Scan(&ex.ID, &ex.Message, &ex.Response, &tag, &ex.Confidence, &ex.Matched,
			&ex.Engine, &snapID, &ex.CreatedAt); err != nil {
			return nil, err
		}
		ex.Tag = tag.String
		ex.SnapshotID = snapID.String
		out = append(out, &ex)
	}
	return out, rows.Err()
}

// CountExchanges returns the total number of exchanges.
func (s *SQLiteStorage) CountExchanges(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exchanges`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
