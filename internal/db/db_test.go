package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/luxury-studio/internal/types"
)

func TestRunFilters_Query(t *testing.T) {
	tests := []struct {
		name     string
		filters  RunFilters
		contains []string
		args     []any
	}{
		{
			name:     "defaults",
			filters:  RunFilters{},
			contains: []string{"FROM studio_runs", "ORDER BY created_at DESC LIMIT $1"},
			args:     []any{DefaultListLimit},
		},
		{
			name:     "status only",
			filters:  RunFilters{Status: "accepted", Limit: 5},
			contains: []string{"AND status = $1", "LIMIT $2"},
			args:     []any{"accepted", 5},
		},
		{
			name:     "file and status",
			filters:  RunFilters{File: "ring.jpg", Status: "rejected", Limit: 10},
			contains: []string{"AND file = $1", "AND status = $2", "LIMIT $3"},
			args:     []any{"ring.jpg", "rejected", 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := tt.filters.query()
			for _, fragment := range tt.contains {
				assert.Contains(t, query, fragment)
			}
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestSaveRun_InvalidRunID(t *testing.T) {
	db := &DB{}
	err := db.SaveRun(context.Background(), &types.ResultRecord{RunID: "not-a-uuid"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid run id")
}

func getTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	db, err := Connect(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, db.EnsureSchema(ctx))
	return db
}

func TestIntegration_RunHistory(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()

	runID := uuid.New()
	record := &types.ResultRecord{
		File:      "integration-ring.jpg",
		RunID:     runID.String(),
		Status:    types.StageRejected,
		Judgement: &types.JudgeEvaluation{Score: 40, Feedback: "stone color drifted"},
		Retries:   3,
		StartedAt: time.Now().UTC(),
	}
	defer func() { _ = db.DeleteRun(ctx, runID) }()

	require.NoError(t, db.SaveRun(ctx, record))

	run, err := db.GetRun(ctx, runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "rejected", run.Status)
	assert.Equal(t, 40, run.Score)
	assert.Equal(t, 3, run.Retries)
	require.NotNil(t, run.Result)
	assert.Equal(t, "stone color drifted", run.Result.Judgement.Feedback)

	record.Status = types.StageAccepted
	record.Judgement = &types.JudgeEvaluation{Score: 95, Feedback: "sharp"}
	require.NoError(t, db.SaveRun(ctx, record))

	runs, err := db.ListRunsFiltered(ctx, RunFilters{File: "integration-ring.jpg"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 95, runs[0].Score)

	missing, err := db.GetRun(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
