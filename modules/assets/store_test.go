package assets

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecordExpiresAfter24h(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	record := NewRecord("ast_x", "memory://clean/a.png", created)

	assert.Equal(t, created.Add(24*time.Hour), record.ExpiresAt)
	assert.False(t, record.Expired(created.Add(23*time.Hour)))
	assert.True(t, record.Expired(created.Add(24*time.Hour)))
}

func TestMemoryStoreConcurrentPuts(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			require.NoError(t, store.Put(context.Background(), NewRecord(fmt.Sprintf("id-%d", i), "loc", now)))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		record, err := store.Get(context.Background(), fmt.Sprintf("id-%d", i))
		require.NoError(t, err)
		require.NotNil(t, record)
	}

	missing, err := store.Get(context.Background(), "id-999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryStoreSweepExpired(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	require.NoError(t, store.Put(context.Background(), NewRecord("old", "a", now.Add(-25*time.Hour))))
	require.NoError(t, store.Put(context.Background(), NewRecord("fresh", "b", now)))

	removed, err := store.SweepExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	old, _ := store.Get(context.Background(), "old")
	assert.Nil(t, old)
	fresh, _ := store.Get(context.Background(), "fresh")
	assert.NotNil(t, fresh)
}

func TestAssetIDs(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := NewAssetID()
		require.NoError(t, err)
		assert.True(t, ValidAssetID(id))
		assert.False(t, seen[id])
		seen[id] = true
	}

	assert.False(t, ValidAssetID(""))
	assert.False(t, ValidAssetID("ast_short"))
	assert.False(t, ValidAssetID("1"))
}
