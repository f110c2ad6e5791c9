package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestDB(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	require.NoError(t, InitDB(context.Background(), path))
	t.Cleanup(func() {
		Close()
		DB = nil
	})
}

func TestRunLifecycle(t *testing.T) {
	initTestDB(t)

	started := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, AddRun("run-1", "api", started))
	require.NoError(t, AddRunRow("run-1", 1, "group", "media", "created", "gid=2001"))
	require.NoError(t, AddRunRow("run-1", 1, "user", "plex", "created", "uid=3001"))
	require.NoError(t, FinishRun("run-1", true, started.Add(3*time.Second)))

	runs, err := GetRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "api", runs[0].Mode)
	assert.True(t, runs[0].Ok)
	require.NotNil(t, runs[0].FinishedAt)

	rows, err := GetRunRows("run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "media", rows[0].Name)
	assert.Equal(t, "plex", rows[1].Name)
}

func TestGetRunsOrderAndLimit(t *testing.T) {
	initTestDB(t)

	base := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, AddRun("old", "api", base))
	require.NoError(t, AddRun("new", "api", base.Add(time.Minute)))

	runs, err := GetRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "new", runs[0].ID)
}

func TestDoesRunExist(t *testing.T) {
	initTestDB(t)

	require.NoError(t, AddRun("run-x", "local", time.Now().UTC()))

	exists, err := DoesRunExist("run-x")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = DoesRunExist("nope")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpsertApplied(t *testing.T) {
	initTestDB(t)

	require.NoError(t, UpsertApplied("tunable", "zfs_arc_max", "17179869184"))
	require.NoError(t, UpsertApplied("tunable", "zfs_arc_max", "8589934592"))
	require.NoError(t, UpsertApplied("dataset", "tank/apps", "128K"))

	tunables, err := GetApplied("tunable")
	require.NoError(t, err)
	require.Len(t, tunables, 1)
	assert.Equal(t, "8589934592", tunables[0].Value)

	all, err := GetAllApplied()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
