package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flysch/matchd/internal/model"
)

func TestGetEmpty(t *testing.T) {
	c := New(DefaultTTL)
	_, ok := c.Get(time.Now())
	assert.False(t, ok)
}

func TestPutGetWithinTTL(t *testing.T) {
	c := New(5 * time.Minute)
	now := time.Now()

	c.Put([]model.School{{ID: "a"}}, now)

	got, ok := c.Get(now.Add(4 * time.Minute))
	require.True(t, ok)
	assert.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestGetExpired(t *testing.T) {
	c := New(5 * time.Minute)
	now := time.Now()

	c.Put([]model.School{{ID: "a"}}, now)

	_, ok := c.Get(now.Add(5 * time.Minute))
	assert.False(t, ok, "entry exactly at TTL must be treated as expired")
}

func TestPutStaleStampDropped(t *testing.T) {
	c := New(5 * time.Minute)
	now := time.Now()

	c.Put([]model.School{{ID: "fresh"}}, now)
	c.Put([]model.School{{ID: "stale"}}, now.Add(-time.Minute))

	got, ok := c.Get(now)
	require.True(t, ok)
	assert.Equal(t, "fresh", got[0].ID)
}

func TestPutNewerStampOverwrites(t *testing.T) {
	c := New(5 * time.Minute)
	now := time.Now()

	c.Put([]model.School{{ID: "old"}}, now)
	c.Put([]model.School{{ID: "new"}}, now.Add(time.Second))

	got, ok := c.Get(now.Add(2 * time.Second))
	require.True(t, ok)
	assert.Equal(t, "new", got[0].ID)
}

func TestClear(t *testing.T) {
	c := New(5 * time.Minute)
	now := time.Now()

	c.Put([]model.School{{ID: "a"}}, now)
	c.Clear()

	_, ok := c.Get(now)
	assert.False(t, ok)
}

func TestZeroTTLUsesDefault(t *testing.T) {
	c := New(0)
	now := time.Now()

	c.Put([]model.School{{ID: "a"}}, now)

	_, ok := c.Get(now.Add(DefaultTTL - time.Second))
	assert.True(t, ok)
}
