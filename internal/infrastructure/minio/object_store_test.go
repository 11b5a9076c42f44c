package minio

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/tiered-cache/go/configs"
	"github.com/avatarctic/tiered-cache/go/internal/core/domain/cache"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, classify("get", "k", nil))

	err := classify("get", "k", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404})
	assert.True(t, cache.IsIgnorable(err))
	assert.ErrorIs(t, err, cache.ErrNotFound)

	for _, code := range []string{"NoSuchBucket", "AccessDenied", "SlowDown", "InternalError"} {
		err := classify("get", "k", minio.ErrorResponse{Code: code})
		assert.True(t, cache.IsRecoverable(err), code)
	}

	err = classify("set", "k", context.DeadlineExceeded)
	assert.True(t, cache.IsRecoverable(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var te *cache.TierError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, cache.TierObject, te.Tier)
	assert.Equal(t, "set", te.Op)
}

func TestClientProvider_Memoizes(t *testing.T) {
	p := NewClientProvider(configs.ObjectStoreConfig{Endpoint: "localhost:9000", Bucket: "b", UseSSL: false})
	c1, err := p.Client()
	require.NoError(t, err)
	c2, err := p.Client()
	require.NoError(t, err)
	assert.Same(t, c1, c2)
}

func TestObjectStore_ClientConstructionFailureIsRecoverable(t *testing.T) {
	store := NewObjectStore(NewClientProvider(configs.ObjectStoreConfig{}), Config{Bucket: "b", BuildID: "x"})
	ctx := context.Background()

	_, err := store.Get(ctx, "k", cache.KindCache)
	assert.True(t, cache.IsRecoverable(err))
	assert.True(t, cache.IsRecoverable(store.Set(ctx, "k", cache.KindCache, json.RawMessage(`{}`))))
	assert.True(t, cache.IsRecoverable(store.Delete(ctx, "k", cache.KindCache)))
}

func TestObjectStore_UnreachableEndpointIsBounded(t *testing.T) {
	clients := NewClientProvider(configs.ObjectStoreConfig{
		Endpoint: "127.0.0.1:1", Bucket: "b", AccessKey: "a", SecretKey: "s", UseSSL: false,
	})
	store := NewObjectStore(clients, Config{Bucket: "b", BuildID: "x", Timeout: 200 * time.Millisecond})

	start := time.Now()
	_, err := store.Get(context.Background(), "k", cache.KindCache)
	require.Error(t, err)
	assert.True(t, cache.IsRecoverable(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}
