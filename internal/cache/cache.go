// Package cache stores acquisition results keyed by entity signature.
//
// Records are read once and maybe written once per entity per run; concurrent
// batch runs are unsynchronized (last writer wins). This is a known
// limitation, not a correctness bug under the sequential scheduling model.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/user/image-pipeline/internal/domain"
)

const keyPrefix = "imgcache:"

// Record is a cached acquisition result.
type Record struct {
	ResultRef  string    `json:"result_ref"`
	CachedAt   time.Time `json:"cached_at"`
	TTLSeconds int64     `json:"ttl_seconds"`
}

// Expired reports whether the record's TTL has elapsed at the given time.
func (r *Record) Expired(now time.Time) bool {
	return now.Sub(r.CachedAt) >= time.Duration(r.TTLSeconds)*time.Second
}

// KV is the key-value surface the cache needs from its backing store.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Cache maps entity signatures to previously accepted results.
type Cache struct {
	kv  KV
	ttl time.Duration
	now func() time.Time
}

func New(kv KV, ttl time.Duration) *Cache {
	return &Cache{kv: kv, ttl: ttl, now: time.Now}
}

// Get returns the record for the entity's signature, or a miss when no record
// exists or an existing record's TTL has elapsed. Expired records are not
// deleted, only never surfaced as hits.
func (c *Cache) Get(ctx context.Context, e domain.Entity) (*Record, bool, error) {
	raw, ok, err := c.kv.Get(ctx, keyPrefix+domain.Signature(e))
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, false, fmt.Errorf("cache get: decode record: %w", err)
	}
	if rec.Expired(c.now()) {
		return nil, false, nil
	}
	return &rec, true, nil
}

// Set writes a record for the entity's signature, overwriting any prior
// record. Values are JSON so records can be inspected with redis-cli.
func (c *Cache) Set(ctx context.Context, e domain.Entity, resultRef string) error {
	rec := Record{
		ResultRef:  resultRef,
		CachedAt:   c.now(),
		TTLSeconds: int64(c.ttl.Seconds()),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cache set: encode record: %w", err)
	}
	if err := c.kv.Set(ctx, keyPrefix+domain.Signature(e), string(raw)); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
