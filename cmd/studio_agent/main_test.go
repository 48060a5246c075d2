package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/luxury-studio/internal/agents"
	"github.com/jonathan/luxury-studio/internal/artifacts"
	"github.com/jonathan/luxury-studio/internal/batch"
	"github.com/jonathan/luxury-studio/internal/config"
	"github.com/jonathan/luxury-studio/internal/llm"
	"github.com/jonathan/luxury-studio/internal/types"
)

type fakeRunner struct {
	results []batch.Result
	items   []batch.Item
}

func (f *fakeRunner) Process(_ context.Context, items []batch.Item) []batch.Result {
	f.items = items
	return f.results
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLLMConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Models.Judge = "judge-model"
	cfg.CallTimeout = config.Duration(45 * time.Second)

	got := llmConfig(&cfg)

	assert.Equal(t, llm.ProviderGemini, got.Provider)
	assert.Equal(t, "judge-model", got.GetModel(llm.RoleJudge))
	assert.Equal(t, cfg.Models.Inpaint, got.GetModel(llm.RoleInpaint))
	assert.Equal(t, 45*time.Second, got.CallTimeout)
}

func TestNewStore_Local(t *testing.T) {
	cfg := config.Defaults()
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")

	store, err := newStore(context.Background(), &cfg)
	require.NoError(t, err)

	local, ok := store.(*artifacts.LocalStore)
	require.True(t, ok, "expected local store, got %T", store)
	assert.Equal(t, cfg.OutputDir, local.Dir())
	assert.DirExists(t, cfg.OutputDir)
}

func TestNewAgents(t *testing.T) {
	tests := []struct {
		name     string
		revision string
		wantErr  bool
	}{
		{name: "notes", revision: "notes"},
		{name: "model", revision: string(agents.RevisionModel)},
		{name: "empty defaults to notes", revision: ""},
		{name: "unknown", revision: "freestyle", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.DirectorRevision = tt.revision

			got, err := newAgents(nil, &cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, got.Analyst)
			assert.NotNil(t, got.Director)
			assert.NotNil(t, got.Producer)
			assert.NotNil(t, got.Judge)
		})
	}
}

func TestNewApp_RequiresAPIKey(t *testing.T) {
	cfg := config.Defaults()
	cfg.APIKey = ""

	_, err := newApp(context.Background(), &cfg, nil)
	assert.Error(t, err)
}

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()
	valid := writeFile(t, dir, "valid.json", `{"file":"ring.png","run_id":"r1","status":"accepted","retries":0}`)
	invalid := writeFile(t, dir, "invalid.json", `{"file":"ring.png","status":"maybe","retries":-1}`)

	tests := []struct {
		name     string
		schema   string
		path     string
		wantErr  bool
		contains string
	}{
		{name: "valid record", schema: "result_record", path: valid, contains: "Validation passed"},
		{name: "invalid record", schema: "result_record", path: invalid, wantErr: true, contains: "Validation failed"},
		{name: "missing file", schema: "result_record", path: filepath.Join(dir, "nope.json"), wantErr: true, contains: "Validation failed"},
		{name: "unknown schema path", schema: filepath.Join(dir, "missing.schema.json"), path: valid, wantErr: true, contains: "Validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := runValidate(&out, tt.schema, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, out.String(), tt.contains)
		})
	}
}

func TestRunValidate_ListsFieldErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "record.json", `{"file":"ring.png"}`)

	var out bytes.Buffer
	err := runValidate(&out, "result_record", path)

	require.Error(t, err)
	assert.Contains(t, out.String(), "run_id")
}

func TestPrintRun_PrintsStoredRecord(t *testing.T) {
	store, err := artifacts.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	record := &types.ResultRecord{File: "ring.png", RunID: "r1", Status: types.StageAccepted}
	ref, err := store.SaveResult(context.Background(), "ring.png", record)
	require.NoError(t, err)

	runner := &fakeRunner{results: []batch.Result{{File: "ring.png", Status: batch.StatusProcessed, ResultRef: ref}}}

	var out bytes.Buffer
	err = printRun(context.Background(), &out, nil, runner, store, batch.Item{File: "ring.png", Path: "ring.png"})
	require.NoError(t, err)

	var got types.ResultRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "r1", got.RunID)
	assert.Equal(t, types.StageAccepted, got.Status)
	require.Len(t, runner.items, 1)
	assert.Equal(t, "ring.png", runner.items[0].File)
}

func TestPrintRun_ErrorStatus(t *testing.T) {
	runner := &fakeRunner{results: []batch.Result{{File: "ring.png", Status: batch.StatusError, Error: "not an image"}}}

	var out bytes.Buffer
	err := printRun(context.Background(), &out, nil, runner, nil, batch.Item{File: "ring.png"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an image")
	assert.Contains(t, out.String(), `"status": "error"`)
}

func TestPrintBatch(t *testing.T) {
	tests := []struct {
		name    string
		results []batch.Result
		wantErr bool
	}{
		{
			name: "mixed outcomes succeed",
			results: []batch.Result{
				{File: "a.png", Status: batch.StatusProcessed},
				{File: "b.png", Status: batch.StatusError, Error: "boom"},
			},
		},
		{
			name: "all failed",
			results: []batch.Result{
				{File: "a.png", Status: batch.StatusError},
				{File: "b.png", Status: batch.StatusError},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{results: tt.results}
			items := []batch.Item{{File: "a.png"}, {File: "b.png"}}

			var out bytes.Buffer
			err := printBatch(context.Background(), &out, runner, items)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			var got struct {
				Results []batch.Result `json:"results"`
			}
			require.NoError(t, json.Unmarshal(out.Bytes(), &got))
			assert.Len(t, got.Results, len(tt.results))
		})
	}
}
