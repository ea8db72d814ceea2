package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteService struct {
	db *sql.DB
}

func NewSQLiteService(dbPath string) (*SQLiteService, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteRunSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteService{db: db}, nil
}

func (s *SQLiteService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteService) SaveRun(ctx context.Context, run *Run) error {
	if err := prepareRun(run); err != nil {
		return err
	}
	rec, err := encodeRun(run)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO training_runs (
    id, created_at_ms, rewards, episodes, win_rate,
    config_json, table_b64, policy_b64, evaluation_json, progress_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    win_rate = excluded.win_rate,
    config_json = excluded.config_json,
    table_b64 = excluded.table_b64,
    policy_b64 = excluded.policy_b64,
    evaluation_json = excluded.evaluation_json,
    progress_json = excluded.progress_json`,
		rec.id, rec.createdAtMs, rec.rewards, rec.episodes, rec.winRate,
		rec.configJSON, rec.tableB64, rec.policyB64, rec.evaluationJSON, rec.progressJSON,
	)
	return err
}

func (s *SQLiteService) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM training_runs WHERE id = ?`, id)
	return scanRun(row)
}

func (s *SQLiteService) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM training_runs ORDER BY created_at_ms DESC, id DESC LIMIT 1`)
	return scanRun(row)
}

func (s *SQLiteService) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, created_at_ms, rewards, episodes, win_rate
FROM training_runs
ORDER BY created_at_ms DESC, id DESC
LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func scanSummaries(rows *sql.Rows) ([]RunSummary, error) {
	items := make([]RunSummary, 0)
	for rows.Next() {
		var (
			item        RunSummary
			createdAtMs int64
		)
		if err := rows.Scan(&item.ID, &createdAtMs, &item.Rewards, &item.Episodes, &item.WinRate); err != nil {
			return nil, err
		}
		item.CreatedAt = time.UnixMilli(createdAtMs).UTC()
		items = append(items, item)
	}
	return items, rows.Err()
}

func ensureSQLiteRunSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS training_runs (
    id TEXT PRIMARY KEY,
    created_at_ms INTEGER NOT NULL,
    rewards TEXT NOT NULL,
    episodes INTEGER NOT NULL,
    win_rate REAL NOT NULL DEFAULT 0,
    config_json TEXT NOT NULL DEFAULT '{}',
    table_b64 TEXT NOT NULL,
    policy_b64 TEXT NOT NULL,
    evaluation_json TEXT NOT NULL DEFAULT '[]',
    progress_json TEXT NOT NULL DEFAULT '[]'
)`,
		`CREATE INDEX IF NOT EXISTS idx_training_runs_created_at ON training_runs(created_at_ms)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
