package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/printshop-tools/kdpcover/internal/models"
)

// SQLiteStore keeps history in a local SQLite file. Searchable columns are
// stored individually; the full record is kept as JSON.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if needed) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps :memory: databases shared and serialises writers
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		prompt TEXT NOT NULL DEFAULT '',
		trim_size TEXT NOT NULL DEFAULT '',
		page_count INTEGER NOT NULL DEFAULT 0,
		paper_color TEXT NOT NULL DEFAULT '',
		record_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_created ON history(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec models.HistoryRecord) (models.HistoryRecord, error) {
	rec = prepare(rec)
	data, err := json.Marshal(rec)
	if err != nil {
		return models.HistoryRecord{}, fmt.Errorf("failed to marshal history record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO history (id, prompt, trim_size, page_count, paper_color, record_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			prompt = excluded.prompt,
			trim_size = excluded.trim_size,
			page_count = excluded.page_count,
			paper_color = excluded.paper_color,
			record_json = excluded.record_json,
			created_at = excluded.created_at`,
		rec.ID, rec.Prompt, rec.TrimSize, rec.PageCount, string(rec.PaperColor), string(data), rec.CreatedAt.UnixNano())
	if err != nil {
		return models.HistoryRecord{}, fmt.Errorf("failed to save history record: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (models.HistoryRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT record_json FROM history WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.HistoryRecord{}, ErrNotFound
	}
	if err != nil {
		return models.HistoryRecord{}, fmt.Errorf("failed to query history record: %w", err)
	}
	return decodeRecord(data)
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_json FROM history ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	out := []models.HistoryRecord{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete history record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodeRecord(data string) (models.HistoryRecord, error) {
	var rec models.HistoryRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return models.HistoryRecord{}, fmt.Errorf("failed to decode history record: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.In(time.UTC)
	return rec, nil
}
