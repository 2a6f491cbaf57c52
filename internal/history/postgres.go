package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"crossquery/internal/models"
)

const createRunsTable = `CREATE TABLE IF NOT EXISTS query_runs (
	run_id        TEXT PRIMARY KEY,
	template_name TEXT NOT NULL,
	params        JSONB,
	outcomes      JSONB NOT NULL,
	succeeded     INTEGER NOT NULL,
	failed        INTEGER NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL
)`

const insertRun = `INSERT INTO query_runs
	(run_id, template_name, params, outcomes, succeeded, failed, started_at, finished_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const selectRecentRuns = `SELECT run_id, template_name, params, outcomes, started_at, finished_at
	FROM query_runs WHERE template_name = $1 ORDER BY started_at DESC LIMIT $2`

// PostgresStore writes one row per run into query_runs.
type PostgresStore struct {
	db      *sql.DB
	maxRuns int
}

func NewPostgresStore(db *sql.DB, maxRuns int) *PostgresStore {
	if maxRuns <= 0 {
		maxRuns = 50
	}
	return &PostgresStore{db: db, maxRuns: maxRuns}
}

// EnsureSchema creates the query_runs table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createRunsTable); err != nil {
		return fmt.Errorf("failed to create query_runs: %w", err)
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, run *models.ResultSet) error {
	params, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	outcomes, err := json.Marshal(run.Outcomes)
	if err != nil {
		return fmt.Errorf("failed to encode outcomes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, insertRun,
		run.RunID, run.TemplateName, params, outcomes,
		run.Succeeded(), run.Failed(), run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, template string, limit int) ([]models.ResultSet, error) {
	if limit <= 0 || limit > s.maxRuns {
		limit = s.maxRuns
	}

	rows, err := s.db.QueryContext(ctx, selectRecentRuns, template, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read run history: %w", err)
	}
	defer rows.Close()

	var runs []models.ResultSet
	for rows.Next() {
		var (
			run              models.ResultSet
			params, outcomes []byte
		)
		if err := rows.Scan(&run.RunID, &run.TemplateName, &params, &outcomes, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if len(params) > 0 {
			if err := json.Unmarshal(params, &run.Params); err != nil {
				return nil, fmt.Errorf("failed to decode params of run %s: %w", run.RunID, err)
			}
		}
		if err := json.Unmarshal(outcomes, &run.Outcomes); err != nil {
			return nil, fmt.Errorf("failed to decode outcomes of run %s: %w", run.RunID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
