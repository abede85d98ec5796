package seed

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wansing/releasecab/core"
	"github.com/wansing/releasecab/sqldb"
)

const workflow = `
tenant: acme
environments: [production]
roles: [QA, Release Manager]
teams: [Platform]
stages:
  - name: Draft
    initial: true
    allow_release_delete: true
  - name: Approved
  - name: Done
    end: true
connections:
  - from: Draft
    to: Approved
    approvers:
      - roles: [QA]
        teams: [Platform]
      - roles: [Release Manager]
      - roles: [QA]
        teams: [Platform]
  - from: Approved
    to: Done
    owner_only: true
blackouts:
  - name: Freeze
    start: 2024-12-20T00:00:00Z
    end: 2025-01-02T00:00:00Z
    environments: [production]
`

func openTestDB(t *testing.T) *core.CoreDB {
	sqlDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return sqldb.Open(sqlDB, sqldb.SQLite3)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"valid", workflow, ""},
		{"no tenant", "stages: [{name: Draft}]", "no tenant"},
		{"unknown field", "tenant: acme\ncolor: blue", "decoding workflow"},
		{"two initial stages", "tenant: acme\nstages: [{name: A, initial: true}, {name: B, initial: true}]", "2 initial stages"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Parse(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "acme", w.Tenant)
			require.Len(t, w.Stages, 3)
			assert.True(t, w.Stages[0].Initial)
			assert.True(t, w.Stages[2].IsEndStage)
			require.Len(t, w.Blackouts, 1)
			assert.Equal(t, 2025, w.Blackouts[0].End.Year())
		})
	}
}

func TestLoad(t *testing.T) {

	var db = openTestDB(t)

	w, err := Parse(strings.NewReader(workflow))
	require.NoError(t, err)

	tenant, err := Load(db, w)
	require.NoError(t, err)

	draft, err := db.GetStageByName(tenant.ID, "Draft")
	require.NoError(t, err)
	assert.Equal(t, draft.ID, tenant.InitialStage)

	conns, err := db.GetConnections(tenant.ID)
	require.NoError(t, err)
	require.Len(t, conns, 2)
	assert.Len(t, conns[0].Approvers, 2, "duplicate groups are dropped")
	assert.True(t, conns[1].OwnerOnly)

	blackouts, err := db.GetBlackouts(tenant.ID)
	require.NoError(t, err)
	require.Len(t, blackouts, 1)
	assert.Len(t, blackouts[0].Environments, 1)

	// loading again changes nothing
	again, err := Load(db, w)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, again.ID)

	conns, err = db.GetConnections(tenant.ID)
	require.NoError(t, err)
	assert.Len(t, conns, 2)

	stages, err := db.GetStages(tenant.ID)
	require.NoError(t, err)
	assert.Len(t, stages, 3)

	blackouts, err = db.GetBlackouts(tenant.ID)
	require.NoError(t, err)
	assert.Len(t, blackouts, 1)
}

func TestLoadUnknownNames(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			"stage",
			"tenant: acme\nstages: [{name: A}]\nconnections: [{from: A, to: B}]",
			"unknown stage B",
		},
		{
			"role",
			"tenant: acme\nstages: [{name: A}, {name: B}]\nconnections: [{from: A, to: B, approvers: [{roles: [QA]}]}]",
			"unknown role QA",
		},
		{
			"environment",
			"tenant: acme\nblackouts:\n  - name: X\n    start: 2024-01-01T00:00:00Z\n    end: 2024-01-02T00:00:00Z\n    environments: [prod]",
			"unknown environment prod",
		},
		{
			"dates",
			"tenant: acme\nblackouts:\n  - name: X\n    start: 2024-01-02T00:00:00Z\n    end: 2024-01-01T00:00:00Z",
			core.ErrInvalidDates.Error(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			_, err = Load(openTestDB(t), w)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFile(t *testing.T) {

	var filename = filepath.Join(t.TempDir(), "workflow.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(workflow), 0600))

	tenant, err := LoadFile(openTestDB(t), filename)
	require.NoError(t, err)
	assert.Equal(t, "acme", tenant.Name)

	_, err = LoadFile(openTestDB(t), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
