package services_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	impl "github.com/avatarctic/tiered-cache/go/internal/application/services"
	"github.com/avatarctic/tiered-cache/go/internal/core/domain/cache"
	"github.com/avatarctic/tiered-cache/go/internal/core/ports"
	"github.com/avatarctic/tiered-cache/go/internal/infrastructure/memory"
	"github.com/avatarctic/tiered-cache/go/test/mocks"
)

func TestCacheHandler_GetResolvesKind(t *testing.T) {
	tests := []struct {
		name string
		opts ports.GetOptions
		want cache.Kind
	}{
		{"default", ports.GetOptions{}, cache.KindCache},
		{"fetch cache flag", ports.GetOptions{FetchCache: true}, cache.KindFetch},
		{"explicit wins", ports.GetOptions{Kind: cache.KindComposable, FetchCache: true}, cache.KindComposable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotKind cache.Kind
			tiers := &mocks.TieredCacheMock{GetFn: func(ctx context.Context, key string, kind cache.Kind) (cache.Entry, bool) {
				gotKind = kind
				return cache.Entry{Value: json.RawMessage(`1`), LastModified: 9}, true
			}}
			h := impl.NewCacheHandlerService(tiers, quietLogger())
			e := h.Get(context.Background(), "k", tt.opts)
			require.NotNil(t, e)
			assert.Equal(t, int64(9), e.LastModified)
			assert.Equal(t, tt.want, gotKind)
		})
	}
}

func TestCacheHandler_GetMissIsNil(t *testing.T) {
	h := impl.NewCacheHandlerService(&mocks.TieredCacheMock{}, nil)
	assert.Nil(t, h.Get(context.Background(), "k", ports.GetOptions{}))
}

func TestCacheHandler_GetReturnsPrivateCopy(t *testing.T) {
	svc := impl.NewTieredCacheService(memory.NewRecencyCache(10), time.Minute)
	h := impl.NewCacheHandlerService(svc, quietLogger())
	ctx := context.Background()

	h.Set(ctx, "k", json.RawMessage(`"aaa"`), ports.SetContext{})
	first := h.Get(ctx, "k", ports.GetOptions{})
	require.NotNil(t, first)
	first.Value[1] = 'b'

	second := h.Get(ctx, "k", ports.GetOptions{})
	require.NotNil(t, second)
	assert.Equal(t, `"aaa"`, string(second.Value))
}

func TestCacheHandler_SetNullDeletes(t *testing.T) {
	for _, data := range []json.RawMessage{nil, json.RawMessage(`null`), json.RawMessage(" null \n")} {
		var deleted, set int
		tiers := &mocks.TieredCacheMock{
			SetFn:    func(ctx context.Context, key string, kind cache.Kind, value json.RawMessage) { set++ },
			DeleteFn: func(ctx context.Context, key string, kind cache.Kind) { deleted++ },
		}
		h := impl.NewCacheHandlerService(tiers, quietLogger())
		h.Set(context.Background(), "k", data, ports.SetContext{})
		assert.Equal(t, 1, deleted, "data %q", data)
		assert.Equal(t, 0, set, "data %q", data)
	}
}

func TestCacheHandler_SetStoresWithResolvedKind(t *testing.T) {
	var gotKind cache.Kind
	var gotValue json.RawMessage
	tiers := &mocks.TieredCacheMock{SetFn: func(ctx context.Context, key string, kind cache.Kind, value json.RawMessage) {
		gotKind, gotValue = kind, value
	}}
	h := impl.NewCacheHandlerService(tiers, quietLogger())
	rev := int64(60)
	h.Set(context.Background(), "k", json.RawMessage(`{"a":1}`), ports.SetContext{FetchCache: true, Revalidate: &rev, Tags: []string{"t"}})

	assert.Equal(t, cache.KindFetch, gotKind)
	assert.JSONEq(t, `{"a":1}`, string(gotValue))
}

func TestCacheHandler_RevalidateTagIsNoop(t *testing.T) {
	tiers := &mocks.TieredCacheMock{
		SetFn:    func(ctx context.Context, key string, kind cache.Kind, value json.RawMessage) { t.Fatal("unexpected set") },
		DeleteFn: func(ctx context.Context, key string, kind cache.Kind) { t.Fatal("unexpected delete") },
	}
	h := impl.NewCacheHandlerService(tiers, quietLogger())
	assert.NotPanics(t, func() { h.RevalidateTag(context.Background(), "posts", "users") })
}

func TestCacheHandler_MetadataDefaultsKind(t *testing.T) {
	var gotKind cache.Kind
	tiers := &mocks.TieredCacheMock{FreshnessFn: func(ctx context.Context, kind cache.Kind, keys []string) []cache.KeyedMetadata {
		gotKind = kind
		return []cache.KeyedMetadata{{Key: keys[0]}}
	}}
	h := impl.NewCacheHandlerService(tiers, nil)
	got := h.Metadata(context.Background(), "", []string{"x"})
	assert.Equal(t, cache.KindCache, gotKind)
	assert.Len(t, got, 1)
}
