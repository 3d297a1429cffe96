package assets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"family-portrait-server/modules/common/database"
)

type fakeRows struct {
	rows map[string]database.AssetRow
}

func (f *fakeRows) InsertAssetRow(row database.AssetRow) error {
	f.rows[row.AssetID] = row
	return nil
}

func (f *fakeRows) FetchAssetRow(assetID string) (*database.AssetRow, error) {
	row, ok := f.rows[assetID]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (f *fakeRows) DeleteExpiredAssetRows(now time.Time) (int, error) {
	removed := 0
	for id, row := range f.rows {
		if row.ExpiresAt.Before(now) {
			delete(f.rows, id)
			removed++
		}
	}
	return removed, nil
}

func TestSupabaseStoreMapsRows(t *testing.T) {
	rows := &fakeRows{rows: map[string]database.AssetRow{}}
	store := NewSupabaseStore(rows)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, store.Put(context.Background(), NewRecord("ast_1", "https://private/clean.png", created)))

	record, err := store.Get(context.Background(), "ast_1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "https://private/clean.png", record.CleanLocator)
	assert.Equal(t, created.Add(RecordTTL), record.ExpiresAt)

	missing, err := store.Get(context.Background(), "ast_2")
	require.NoError(t, err)
	assert.Nil(t, missing)

	removed, err := store.SweepExpired(context.Background(), created.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
