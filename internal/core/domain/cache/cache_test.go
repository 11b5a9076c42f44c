package cache_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/tiered-cache/go/internal/core/domain/cache"
)

func TestParseKind(t *testing.T) {
	k, err := cache.ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, cache.KindCache, k)

	for _, s := range []string{"cache", "fetch", "composable"} {
		k, err := cache.ParseKind(s)
		require.NoError(t, err)
		assert.Equal(t, cache.Kind(s), k)
	}

	_, err = cache.ParseKind("page")
	require.Error(t, err)
}

func TestEntryAge(t *testing.T) {
	now := time.UnixMilli(10_000)
	e := cache.Entry{LastModified: 7_500}
	assert.Equal(t, 2500*time.Millisecond, e.Age(now))
}

func TestTombstone(t *testing.T) {
	now := time.Unix(0, 1_234_567_890) // 1234.56789 ms
	rec := cache.Tombstone(now)
	assert.True(t, rec.Deleted)
	assert.Equal(t, int64(1234), rec.RevalidatedAt)
	assert.GreaterOrEqual(t, rec.RevalidatedAt, rec.LastModified)
}

func TestErrorClassification(t *testing.T) {
	notFound := cache.Ignorable(cache.TierObject, "get", "k", nil)
	assert.True(t, cache.IsIgnorable(notFound))
	assert.False(t, cache.IsRecoverable(notFound))
	assert.ErrorIs(t, notFound, cache.ErrNotFound)

	cause := errors.New("connection refused")
	rec := cache.Recoverable(cache.TierMetadata, "get", "k", cause)
	assert.True(t, cache.IsRecoverable(rec))
	assert.ErrorIs(t, rec, cause)
	assert.Contains(t, rec.Error(), "connection refused")

	wrapped := fmt.Errorf("outer: %w", rec)
	assert.Equal(t, cache.KindRecoverable, cache.KindOf(wrapped))

	assert.True(t, cache.IsRecoverable(context.DeadlineExceeded))
	assert.Nil(t, cache.Recoverable(cache.TierObject, "set", "k", nil))
	assert.Equal(t, cache.ErrorKind(0), cache.KindOf(nil))
}
