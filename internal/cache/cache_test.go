package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/image-pipeline/internal/domain"
)

type fakeKV struct {
	data map[string]string
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string) error {
	f.data[key] = value
	return nil
}

func TestGetMissOnEmptyStore(t *testing.T) {
	c := New(newFakeKV(), time.Hour)

	_, ok, err := c.Get(context.Background(), domain.Entity{Brand: "Acme"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetThenGetRoundTrip(t *testing.T) {
	c := New(newFakeKV(), time.Hour)
	e := domain.Entity{Category: "driver", Brand: "Acme", Model: "X1"}

	require.NoError(t, c.Set(context.Background(), e, "https://cdn.example.com/entities/1.png"))

	rec, ok, err := c.Get(context.Background(), e)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/entities/1.png", rec.ResultRef)
}

func TestExpiredRecordIsMiss(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, time.Hour)
	e := domain.Entity{Category: "driver", Brand: "Acme", Model: "X1"}

	require.NoError(t, c.Set(context.Background(), e, "ref"))

	// Move the clock past the TTL; the record must stay in the store but
	// never surface as a hit.
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, ok, err := c.Get(context.Background(), e)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, kv.data, 1)
}

func TestSetOverwritesPriorRecord(t *testing.T) {
	c := New(newFakeKV(), time.Hour)
	e := domain.Entity{Category: "driver", Brand: "Acme", Model: "X1"}

	require.NoError(t, c.Set(context.Background(), e, "old"))
	require.NoError(t, c.Set(context.Background(), e, "new"))

	rec, ok, err := c.Get(context.Background(), e)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", rec.ResultRef)
}

func TestRecordsAreHumanReadableJSON(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, time.Hour)

	require.NoError(t, c.Set(context.Background(), domain.Entity{Brand: "Acme"}, "ref"))

	for _, raw := range kv.data {
		assert.True(t, strings.Contains(raw, `"result_ref"`))
		assert.True(t, strings.Contains(raw, `"cached_at"`))
	}
}
