package sqlite_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepagent/selfloop-go/pkg/storage"
	"github.com/deepagent/selfloop-go/pkg/storage/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Client {
	t.Helper()
	client, err := sqlite.NewClient(&sqlite.Config{
		DBPath: filepath.Join(t.TempDir(), "cycles.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func record(id int64) *storage.CycleRecord {
	payload, _ := json.Marshal(map[string]any{"overall_score": 0.7})
	return &storage.CycleRecord{
		ID:        id,
		AgentID:   "agent-1",
		Updated:   true,
		Priority:  "medium",
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

func TestSaveAndRecentCycles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		require.NoError(t, store.SaveCycle(ctx, record(id)))
	}

	records, err := store.RecentCycles(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, int64(3), records[0].ID)
	assert.Equal(t, int64(2), records[1].ID)
	assert.Equal(t, "agent-1", records[0].AgentID)
	assert.True(t, records[0].Updated)
	assert.Equal(t, "medium", records[0].Priority)
	assert.JSONEq(t, `{"overall_score":0.7}`, string(records[0].Payload))
}

func TestCountAndPruneCycles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for id := int64(1); id <= 5; id++ {
		require.NoError(t, store.SaveCycle(ctx, record(id)))
	}

	count, err := store.CountCycles(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)

	deleted, err := store.PruneCycles(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)

	records, err := store.RecentCycles(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(5), records[0].ID)
	assert.Equal(t, int64(4), records[1].ID)
}

func TestRecentCyclesEmptyStore(t *testing.T) {
	store := newTestStore(t)

	records, err := store.RecentCycles(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
