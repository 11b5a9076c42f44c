package mocks

import (
	"context"
	"encoding/json"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avatarctic/tiered-cache/go/internal/core/domain/cache"
	"github.com/avatarctic/tiered-cache/go/internal/core/ports"
)

// ObjectStoreMock is a lightweight mock for ports.ObjectStore. Unset functions
// behave like an empty bucket.
type ObjectStoreMock struct {
	GetFn    func(ctx context.Context, key string, kind cache.Kind) (cache.Entry, error)
	SetFn    func(ctx context.Context, key string, kind cache.Kind, value json.RawMessage) error
	DeleteFn func(ctx context.Context, key string, kind cache.Kind) error

	GetCalls    atomic.Int32
	SetCalls    atomic.Int32
	DeleteCalls atomic.Int32
}

func (m *ObjectStoreMock) Get(ctx context.Context, key string, kind cache.Kind) (cache.Entry, error) {
	m.GetCalls.Add(1)
	if m.GetFn != nil {
		return m.GetFn(ctx, key, kind)
	}
	return cache.Entry{}, cache.Ignorable(cache.TierObject, "get", key, cache.ErrNotFound)
}
func (m *ObjectStoreMock) Set(ctx context.Context, key string, kind cache.Kind, value json.RawMessage) error {
	m.SetCalls.Add(1)
	if m.SetFn != nil {
		return m.SetFn(ctx, key, kind, value)
	}
	return nil
}
func (m *ObjectStoreMock) Delete(ctx context.Context, key string, kind cache.Kind) error {
	m.DeleteCalls.Add(1)
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, key, kind)
	}
	return nil
}

// Calls returns the total number of calls across all methods.
func (m *ObjectStoreMock) Calls() int {
	return int(m.GetCalls.Load() + m.SetCalls.Load() + m.DeleteCalls.Load())
}

// MetadataStoreMock is a lightweight mock for ports.MetadataStore. Unset
// functions behave like an empty table.
type MetadataStoreMock struct {
	GetMetaFn      func(ctx context.Context, key string, kind cache.Kind) (cache.MetadataRecord, bool, error)
	SetMetaFn      func(ctx context.Context, key string, kind cache.Kind, rec cache.MetadataRecord) error
	DeleteMetaFn   func(ctx context.Context, key string, kind cache.Kind) error
	BatchGetMetaFn func(ctx context.Context, kind cache.Kind, keys []string) (iter.Seq2[string, cache.MetadataRecord], error)

	GetMetaCalls      atomic.Int32
	SetMetaCalls      atomic.Int32
	DeleteMetaCalls   atomic.Int32
	BatchGetMetaCalls atomic.Int32
}

func (m *MetadataStoreMock) GetMeta(ctx context.Context, key string, kind cache.Kind) (cache.MetadataRecord, bool, error) {
	m.GetMetaCalls.Add(1)
	if m.GetMetaFn != nil {
		return m.GetMetaFn(ctx, key, kind)
	}
	return cache.MetadataRecord{}, false, nil
}
func (m *MetadataStoreMock) SetMeta(ctx context.Context, key string, kind cache.Kind, rec cache.MetadataRecord) error {
	m.SetMetaCalls.Add(1)
	if m.SetMetaFn != nil {
		return m.SetMetaFn(ctx, key, kind, rec)
	}
	return nil
}
func (m *MetadataStoreMock) DeleteMeta(ctx context.Context, key string, kind cache.Kind) error {
	m.DeleteMetaCalls.Add(1)
	if m.DeleteMetaFn != nil {
		return m.DeleteMetaFn(ctx, key, kind)
	}
	return nil
}
func (m *MetadataStoreMock) BatchGetMeta(ctx context.Context, kind cache.Kind, keys []string) (iter.Seq2[string, cache.MetadataRecord], error) {
	m.BatchGetMetaCalls.Add(1)
	if m.BatchGetMetaFn != nil {
		return m.BatchGetMetaFn(ctx, kind, keys)
	}
	return func(func(string, cache.MetadataRecord) bool) {}, nil
}

// Calls returns the total number of calls across all methods.
func (m *MetadataStoreMock) Calls() int {
	return int(m.GetMetaCalls.Load() + m.SetMetaCalls.Load() + m.DeleteMetaCalls.Load() + m.BatchGetMetaCalls.Load())
}

// MetadataTable is an in-memory MetadataStore for scenario tests.
type MetadataTable struct {
	mu      sync.Mutex
	records map[string]cache.MetadataRecord
	// Err, when set, fails every call.
	Err error
}

func NewMetadataTable() *MetadataTable {
	return &MetadataTable{records: make(map[string]cache.MetadataRecord)}
}

func (t *MetadataTable) GetMeta(ctx context.Context, key string, kind cache.Kind) (cache.MetadataRecord, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return cache.MetadataRecord{}, false, t.Err
	}
	rec, ok := t.records[cache.LocalKey(key, kind)]
	return rec, ok, nil
}
func (t *MetadataTable) SetMeta(ctx context.Context, key string, kind cache.Kind, rec cache.MetadataRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.records[cache.LocalKey(key, kind)] = rec
	return nil
}
func (t *MetadataTable) DeleteMeta(ctx context.Context, key string, kind cache.Kind) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.records[cache.LocalKey(key, kind)] = cache.Tombstone(time.Now())
	return nil
}
func (t *MetadataTable) BatchGetMeta(ctx context.Context, kind cache.Kind, keys []string) (iter.Seq2[string, cache.MetadataRecord], error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return nil, t.Err
	}
	found := make([]cache.KeyedMetadata, 0, len(keys))
	for _, k := range keys {
		if rec, ok := t.records[cache.LocalKey(k, kind)]; ok {
			found = append(found, cache.KeyedMetadata{Key: k, Record: rec})
		}
	}
	return func(yield func(string, cache.MetadataRecord) bool) {
		for _, km := range found {
			if !yield(km.Key, km.Record) {
				return
			}
		}
	}, nil
}

// Record returns the stored record for key, if any.
func (t *MetadataTable) Record(key string, kind cache.Kind) (cache.MetadataRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[cache.LocalKey(key, kind)]
	return rec, ok
}

// CacheMetricsMock records observations in memory.
type CacheMetricsMock struct {
	mu           sync.Mutex
	Lookups      map[string]int
	TierErrors   map[string]int
	LocalEntries int
}

func NewCacheMetricsMock() *CacheMetricsMock {
	return &CacheMetricsMock{Lookups: map[string]int{}, TierErrors: map[string]int{}}
}

func (m *CacheMetricsMock) ObserveLookup(tier, outcome string) {
	m.mu.Lock()
	m.Lookups[tier+"/"+outcome]++
	m.mu.Unlock()
}
func (m *CacheMetricsMock) ObserveTierError(tier, op string) {
	m.mu.Lock()
	m.TierErrors[tier+"/"+op]++
	m.mu.Unlock()
}
func (m *CacheMetricsMock) SetLocalEntries(n int) {
	m.mu.Lock()
	m.LocalEntries = n
	m.mu.Unlock()
}

// Lookup returns the count for tier/outcome.
func (m *CacheMetricsMock) Lookup(tier, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Lookups[tier+"/"+outcome]
}

// TierError returns the count for tier/op.
func (m *CacheMetricsMock) TierError(tier, op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.TierErrors[tier+"/"+op]
}

// TieredCacheMock is a lightweight mock for ports.TieredCache.
type TieredCacheMock struct {
	GetFn       func(ctx context.Context, key string, kind cache.Kind) (cache.Entry, bool)
	SetFn       func(ctx context.Context, key string, kind cache.Kind, value json.RawMessage)
	DeleteFn    func(ctx context.Context, key string, kind cache.Kind)
	FreshnessFn func(ctx context.Context, kind cache.Kind, keys []string) []cache.KeyedMetadata
	Entries     int
}

func (m *TieredCacheMock) Get(ctx context.Context, key string, kind cache.Kind) (cache.Entry, bool) {
	if m.GetFn != nil {
		return m.GetFn(ctx, key, kind)
	}
	return cache.Entry{}, false
}
func (m *TieredCacheMock) Set(ctx context.Context, key string, kind cache.Kind, value json.RawMessage) {
	if m.SetFn != nil {
		m.SetFn(ctx, key, kind, value)
	}
}
func (m *TieredCacheMock) Delete(ctx context.Context, key string, kind cache.Kind) {
	if m.DeleteFn != nil {
		m.DeleteFn(ctx, key, kind)
	}
}
func (m *TieredCacheMock) Freshness(ctx context.Context, kind cache.Kind, keys []string) []cache.KeyedMetadata {
	if m.FreshnessFn != nil {
		return m.FreshnessFn(ctx, kind, keys)
	}
	return nil
}
func (m *TieredCacheMock) LocalEntries() int { return m.Entries }

// CacheHandlerMock is a lightweight mock for ports.CacheHandler.
type CacheHandlerMock struct {
	GetFn           func(ctx context.Context, key string, opts ports.GetOptions) *cache.Entry
	SetFn           func(ctx context.Context, key string, data json.RawMessage, sc ports.SetContext)
	RevalidateTagFn func(ctx context.Context, tags ...string)
	MetadataFn      func(ctx context.Context, kind cache.Kind, keys []string) []cache.KeyedMetadata
}

func (m *CacheHandlerMock) Get(ctx context.Context, key string, opts ports.GetOptions) *cache.Entry {
	if m.GetFn != nil {
		return m.GetFn(ctx, key, opts)
	}
	return nil
}
func (m *CacheHandlerMock) Set(ctx context.Context, key string, data json.RawMessage, sc ports.SetContext) {
	if m.SetFn != nil {
		m.SetFn(ctx, key, data, sc)
	}
}
func (m *CacheHandlerMock) RevalidateTag(ctx context.Context, tags ...string) {
	if m.RevalidateTagFn != nil {
		m.RevalidateTagFn(ctx, tags...)
	}
}
func (m *CacheHandlerMock) Metadata(ctx context.Context, kind cache.Kind, keys []string) []cache.KeyedMetadata {
	if m.MetadataFn != nil {
		return m.MetadataFn(ctx, kind, keys)
	}
	return nil
}

var (
	_ ports.ObjectStore   = (*ObjectStoreMock)(nil)
	_ ports.MetadataStore = (*MetadataStoreMock)(nil)
	_ ports.MetadataStore = (*MetadataTable)(nil)
	_ ports.CacheMetrics  = (*CacheMetricsMock)(nil)
	_ ports.TieredCache   = (*TieredCacheMock)(nil)
	_ ports.CacheHandler  = (*CacheHandlerMock)(nil)
)
