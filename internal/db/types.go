package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/luxury-studio/internal/types"
)

// Run is one row of run history
type Run struct {
	ID        uuid.UUID           `json:"id"`
	File      string              `json:"file"`
	Status    string              `json:"status"`
	Score     int                 `json:"score"`
	Retries   int                 `json:"retries"`
	Result    *types.ResultRecord `json:"result,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// RunFilters holds optional filters for listing runs
type RunFilters struct {
	File   string
	Status string
	Limit  int
}

// query builds the listing statement and its arguments.
func (f RunFilters) query() (string, []any) {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}

	query := `SELECT id, file, status, score, retries, result, created_at
		FROM studio_runs WHERE 1=1`
	args := []any{}
	argNum := 1

	if f.File != "" {
		query += fmt.Sprintf(" AND file = $%d", argNum)
		args = append(args, f.File)
		argNum++
	}
	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, f.Status)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, f.Limit)
	return query, args
}
