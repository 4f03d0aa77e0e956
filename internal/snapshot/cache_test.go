package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/apperrors"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/kv"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/models"
)

func sampleData() map[string]models.SheetRows {
	return map[string]models.SheetRows{
		"FCL": {
			Headers: []string{"Port", "Rate"},
			Rows: []map[string]any{
				{"Port": "Haiphong", "Rate": float64(120)},
				{"Port": "Singapore"},
			},
		},
	}
}

func TestCache_SaveThenLoad(t *testing.T) {
	cache := New(kv.NewMemory(), 24*time.Hour)

	require.NoError(t, cache.Save("rates.xlsx", []string{"FCL"}, sampleData()))

	snap, err := cache.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Equal(t, "rates.xlsx", snap.FileName)
	require.Equal(t, []string{"FCL"}, snap.SheetOrder)
	require.Equal(t, []string{"Port", "Rate"}, snap.Data["FCL"].Headers)
	require.Len(t, snap.Data["FCL"].Rows, 2)
}

func TestCache_EmptyStoreIsMiss(t *testing.T) {
	cache := New(kv.NewMemory(), 24*time.Hour)

	snap, err := cache.Load()
	require.NoError(t, err)
	require.Nil(t, snap)
}

func TestCache_StaleSnapshotIsMiss(t *testing.T) {
	store := kv.NewMemory()
	current := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	cache := NewWithClock(store, 24*time.Hour, func() time.Time { return current })

	require.NoError(t, cache.Save("rates.xlsx", []string{"FCL"}, sampleData()))

	// One second short of the window: still fresh
	current = current.Add(24*time.Hour - time.Second)
	snap, err := cache.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)

	// Exactly at the window boundary: miss
	current = current.Add(time.Second)
	snap, err = cache.Load()
	require.NoError(t, err)
	require.Nil(t, snap)

	// The stale blob stays in place until the next save
	_, ok, err := store.Get(StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCache_CorruptedPayloadIsReadError(t *testing.T) {
	store := kv.NewMemory()
	require.NoError(t, store.Set(StorageKey, []byte("{not json")))

	cache := New(store, 24*time.Hour)
	snap, err := cache.Load()
	require.Nil(t, snap)
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.ErrCacheRead))
}

func TestCache_SaveOverwritesPriorSnapshot(t *testing.T) {
	cache := New(kv.NewMemory(), 24*time.Hour)

	require.NoError(t, cache.Save("old.xlsx", []string{"FCL"}, sampleData()))
	require.NoError(t, cache.Save("new.xlsx", []string{"LCL"}, map[string]models.SheetRows{
		"LCL": {Headers: []string{"Port"}, Rows: []map[string]any{{"Port": "Haiphong"}}},
	}))

	snap, err := cache.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Equal(t, "new.xlsx", snap.FileName)
	require.Equal(t, []string{"LCL"}, snap.SheetOrder)
	_, hasOld := snap.Data["FCL"]
	require.False(t, hasOld)
}

func TestCache_GridReshapeFollowsStoredHeaderOrder(t *testing.T) {
	cache := New(kv.NewMemory(), 24*time.Hour)
	require.NoError(t, cache.Save("rates.xlsx", []string{"FCL"}, sampleData()))

	snap, err := cache.Load()
	require.NoError(t, err)

	grid := snap.Data["FCL"].Grid()
	require.Len(t, grid, 3)
	require.Equal(t, models.Cell{Value: "Port"}, grid[0][0])
	require.Equal(t, models.Cell{Value: "Rate"}, grid[0][1])
	require.Equal(t, models.Cell{Value: "Haiphong"}, grid[1][0])
	// The second row has no Rate key; it reshapes to an empty cell
	require.Equal(t, models.Cell{Value: models.EmptyCell}, grid[2][1])
}
