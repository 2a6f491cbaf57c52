// Package history records finished template runs so operators can look back
// at what a template returned. Runs are only ever listed; they never stand in
// for a live query.
package history

import (
	"context"
	"encoding/json"
	"fmt"

	"crossquery/internal/models"
)

// Store persists finished runs.
type Store interface {
	Record(ctx context.Context, run *models.ResultSet) error
	// Recent returns up to limit runs of template, newest first.
	Recent(ctx context.Context, template string, limit int) ([]models.ResultSet, error)
}

// NopStore discards runs. It backs the "none" history backend.
type NopStore struct{}

func (NopStore) Record(context.Context, *models.ResultSet) error { return nil }

func (NopStore) Recent(context.Context, string, int) ([]models.ResultSet, error) {
	return nil, nil
}

func encode(run *models.ResultSet) ([]byte, error) {
	data, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run %s: %w", run.RunID, err)
	}
	return data, nil
}
