package ledger

import (
	"context"
	"database/sql"
	"time"
)

type PostgresService struct {
	db *sql.DB
}

func NewPostgresService(dsn string) (*PostgresService, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS training_runs (
    id TEXT PRIMARY KEY,
    created_at_ms BIGINT NOT NULL,
    rewards TEXT NOT NULL,
    episodes INTEGER NOT NULL,
    win_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
    config_json JSONB NOT NULL DEFAULT '{}'::jsonb,
    table_b64 TEXT NOT NULL,
    policy_b64 TEXT NOT NULL,
    evaluation_json JSONB NOT NULL DEFAULT '[]'::jsonb,
    progress_json JSONB NOT NULL DEFAULT '[]'::jsonb
)`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresService{db: db}, nil
}

func (s *PostgresService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresService) SaveRun(ctx context.Context, run *Run) error {
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
) VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9::jsonb, $10::jsonb)
ON CONFLICT (id) DO UPDATE SET
    win_rate = EXCLUDED.win_rate,
    config_json = EXCLUDED.config_json,
    table_b64 = EXCLUDED.table_b64,
    policy_b64 = EXCLUDED.policy_b64,
    evaluation_json = EXCLUDED.evaluation_json,
    progress_json = EXCLUDED.progress_json`,
		rec.id, rec.createdAtMs, rec.rewards, rec.episodes, rec.winRate,
		rec.configJSON, rec.tableB64, rec.policyB64, rec.evaluationJSON, rec.progressJSON,
	)
	return err
}

func (s *PostgresService) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pgRunColumns+` FROM training_runs WHERE id = $1`, id)
	return scanRun(row)
}

func (s *PostgresService) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pgRunColumns+` FROM training_runs ORDER BY created_at_ms DESC, id DESC LIMIT 1`)
	return scanRun(row)
}

func (s *PostgresService) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, created_at_ms, rewards, episodes, win_rate
FROM training_runs
ORDER BY created_at_ms DESC, id DESC
LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// jsonb columns come back as text so scanRun can share the sqlite decoding.
const pgRunColumns = `id, created_at_ms, config_json::text, table_b64, policy_b64, evaluation_json::text, progress_json::text`
