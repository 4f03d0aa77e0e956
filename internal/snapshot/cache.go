// Package snapshot implements the local snapshot cache: one timestamped blob
// under a fixed key holding the last successfully ingested dataset, served
// back within a freshness window so the admin UI reloads without remote I/O.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/apperrors"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/kv"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/models"
)

// StorageKey is the fixed key the snapshot blob lives under
const StorageKey = "excelData"

// Cache reads and writes the single snapshot blob through an injected
// key-value store
type Cache struct {
	store kv.Store
	ttl   time.Duration
	now   func() time.Time
}

// New returns a Cache over the given store with the given freshness window
func New(store kv.Store, ttl time.Duration) *Cache {
	return &Cache{store: store, ttl: ttl, now: time.Now}
}

// NewWithClock is New with an injected clock, for tests
func NewWithClock(store kv.Store, ttl time.Duration, now func() time.Time) *Cache {
	return &Cache{store: store, ttl: ttl, now: now}
}

// Save stamps the dataset with the current time and overwrites whatever blob
// was stored before. The write is whole-blob: there is no partial update.
func (c *Cache) Save(fileName string, sheetOrder []string, data map[string]models.SheetRows) error {
	snap := models.Snapshot{
		Timestamp:  c.now(),
		FileName:   fileName,
		SheetOrder: sheetOrder,
		Data:       data,
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	if err := c.store.Set(StorageKey, payload); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

// Load returns the cached snapshot if one exists and is still fresh.
// A missing key, a stale snapshot, or any read failure all come back as
// (nil, err) with err only set for genuinely unreadable state; the caller
// treats every nil snapshot as a miss. Stale entries are left in place until
// the next Save overwrites them.
func (c *Cache) Load() (*models.Snapshot, error) {
	payload, ok, err := c.store.Get(StorageKey)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCacheRead)
	}
	if !ok {
		return nil, nil
	}

	var snap models.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCacheRead, "corrupted local snapshot payload")
	}

	if c.now().Sub(snap.Timestamp) >= c.ttl {
		return nil, nil
	}
	return &snap, nil
}
