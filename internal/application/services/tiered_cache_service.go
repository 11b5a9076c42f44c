package services

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/avatarctic/tiered-cache/go/internal/core/domain/cache"
	"github.com/avatarctic/tiered-cache/go/internal/core/ports"
)

// TieredCacheService coordinates the local, metadata and object tiers.
//
// The local tier answers alone while an entry is younger than the local TTL.
// Past that, the metadata tier decides whether the local copy is still current
// and the object tier is only consulted when it is not. Either remote tier may
// be absent; failures in them never escape this type.
type TieredCacheService struct {
	local    ports.LocalCache
	objects  ports.ObjectStore
	meta     ports.MetadataStore
	localTTL time.Duration
	metrics  ports.CacheMetrics
	logger   *logrus.Logger
	now      func() time.Time
	sf       singleflight.Group

	mu       sync.Mutex
	fetching map[string]*inflightFetch
}

// inflightFetch is marked superseded when a Set or Delete of the same key
// lands while the fetch is running; its result is then not written through.
type inflightFetch struct{ superseded bool }

// TieredCacheOption configures optional collaborators.
type TieredCacheOption func(*TieredCacheService)

// WithObjectStore enables the persistent tier.
func WithObjectStore(store ports.ObjectStore) TieredCacheOption {
	return func(s *TieredCacheService) { s.objects = store }
}

// WithMetadataStore enables the freshness tier.
func WithMetadataStore(store ports.MetadataStore) TieredCacheOption {
	return func(s *TieredCacheService) { s.meta = store }
}

func WithLogger(logger *logrus.Logger) TieredCacheOption {
	return func(s *TieredCacheService) { s.logger = logger }
}

func WithMetrics(m ports.CacheMetrics) TieredCacheOption {
	return func(s *TieredCacheService) { s.metrics = m }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) TieredCacheOption {
	return func(s *TieredCacheService) { s.now = now }
}

func NewTieredCacheService(local ports.LocalCache, localTTL time.Duration, opts ...TieredCacheOption) *TieredCacheService {
	s := &TieredCacheService{
		local:    local,
		localTTL: localTTL,
		now:      time.Now,
		fetching: make(map[string]*inflightFetch),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TieredCacheService) Get(ctx context.Context, key string, kind cache.Kind) (cache.Entry, bool) {
	lk := cache.LocalKey(key, kind)
	local, hasLocal := s.local.Get(lk)
	if hasLocal {
		if local.Age(s.now()) < s.localTTL {
			s.observeLookup(cache.TierLocal, cache.OutcomeHit)
			return local, true
		}
		if s.meta != nil {
			rec, ok, err := s.getMeta(ctx, key, kind)
			switch {
			case err != nil:
				s.logTierError(cache.TierMetadata, "get", key, kind, err)
			case !ok:
			case rec.Deleted:
				s.local.Delete(lk)
				s.syncLocalEntries()
				s.observeLookup(cache.TierMetadata, cache.OutcomeEvicted)
				return cache.Entry{}, false
			case rec.RevalidatedAt <= local.LastModified:
				s.observeLookup(cache.TierMetadata, cache.OutcomeHit)
				return local, true
			}
		}
	}
	return s.getPersistent(ctx, key, kind, local, hasLocal)
}

func (s *TieredCacheService) getMeta(ctx context.Context, key string, kind cache.Kind) (cache.MetadataRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return cache.MetadataRecord{}, false, cache.Recoverable(cache.TierMetadata, "get", key, err)
	}
	return s.meta.GetMeta(ctx, key, kind)
}

// getPersistent reads through the object tier. Concurrent reads of the same key
// share one fetch; each caller still gives up when its own context ends.
func (s *TieredCacheService) getPersistent(ctx context.Context, key string, kind cache.Kind, local cache.Entry, hasLocal bool) (cache.Entry, bool) {
	if s.objects == nil {
		s.observeLookup(cache.TierObject, cache.OutcomeMiss)
		return cache.Entry{}, false
	}

	var (
		entry cache.Entry
		err   error
	)
	if cerr := ctx.Err(); cerr != nil {
		err = cache.Recoverable(cache.TierObject, "get", key, cerr)
	} else {
		ch := s.sf.DoChan(cache.LocalKey(key, kind), func() (any, error) {
			return s.fetch(context.WithoutCancel(ctx), key, kind)
		})
		select {
		case <-ctx.Done():
			err = cache.Recoverable(cache.TierObject, "get", key, ctx.Err())
		case res := <-ch:
			if res.Err != nil {
				err = res.Err
			} else {
				entry = res.Val.(cache.Entry)
			}
		}
	}

	switch {
	case err == nil:
		s.observeLookup(cache.TierObject, cache.OutcomeHit)
		return entry, true
	case cache.IsIgnorable(err):
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": key, "kind": kind}).Debug("cache miss")
		}
		s.observeLookup(cache.TierObject, cache.OutcomeMiss)
		return cache.Entry{}, false
	}

	s.logTierError(cache.TierObject, "get", key, kind, err)
	if hasLocal {
		s.observeLookup(cache.TierObject, cache.OutcomeStale)
		return local, true
	}
	s.observeLookup(cache.TierObject, cache.OutcomeDegraded)
	return cache.Entry{}, false
}

// fetch loads key from the object tier and writes it through to the faster
// tiers, unless a Set or Delete of the key overtook it.
func (s *TieredCacheService) fetch(ctx context.Context, key string, kind cache.Kind) (cache.Entry, error) {
	lk := cache.LocalKey(key, kind)
	f := s.beginFetch(lk)
	defer s.endFetch(lk, f)

	fetched, err := s.objects.Get(ctx, key, kind)
	if err != nil {
		return cache.Entry{}, err
	}
	entry := cache.Entry{Value: fetched.Value, LastModified: s.now().UnixMilli()}
	if !s.writeLocal(lk, f, entry) {
		return entry, nil
	}
	s.syncLocalEntries()

	if s.meta != nil && !s.isSuperseded(f) {
		rec := cache.NewRecord(fetched.LastModified, len(fetched.Value))
		if err := s.meta.SetMeta(ctx, key, kind, rec); err != nil {
			s.logTierError(cache.TierMetadata, "set", key, kind, err)
		}
	}
	return entry, nil
}

func (s *TieredCacheService) beginFetch(lk string) *inflightFetch {
	f := &inflightFetch{}
	s.mu.Lock()
	s.fetching[lk] = f
	s.mu.Unlock()
	return f
}

func (s *TieredCacheService) endFetch(lk string, f *inflightFetch) {
	s.mu.Lock()
	if s.fetching[lk] == f {
		delete(s.fetching, lk)
	}
	s.mu.Unlock()
}

// writeLocal stores a fetched entry unless f was superseded.
func (s *TieredCacheService) writeLocal(lk string, f *inflightFetch, entry cache.Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.superseded {
		return false
	}
	s.local.Set(lk, entry)
	return true
}

func (s *TieredCacheService) isSuperseded(f *inflightFetch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f.superseded
}

// supersede stops a running fetch of lk from writing through and detaches it
// so later reads start a new one.
func (s *TieredCacheService) supersede(lk string) {
	s.sf.Forget(lk)
	s.mu.Lock()
	if f, ok := s.fetching[lk]; ok {
		f.superseded = true
		delete(s.fetching, lk)
	}
	s.mu.Unlock()
}

// Set writes value to every configured tier. A failing tier is logged and
// skipped; the local tier is always updated.
func (s *TieredCacheService) Set(ctx context.Context, key string, kind cache.Kind, value json.RawMessage) {
	value = bytes.Clone(value)
	now := s.now().UnixMilli()
	lk := cache.LocalKey(key, kind)
	s.supersede(lk)

	if s.objects != nil {
		if err := s.objects.Set(ctx, key, kind, value); err != nil {
			s.logTierError(cache.TierObject, "set", key, kind, err)
		}
	}
	if s.meta != nil {
		if err := s.meta.SetMeta(ctx, key, kind, cache.NewRecord(now, len(value))); err != nil {
			s.logTierError(cache.TierMetadata, "set", key, kind, err)
		}
	}
	s.local.Set(lk, cache.Entry{Value: value, LastModified: now})
	s.syncLocalEntries()
}

// Delete removes key from the object tier, tombstones it in the metadata tier
// and drops the local copy. The steps do not depend on each other.
func (s *TieredCacheService) Delete(ctx context.Context, key string, kind cache.Kind) {
	lk := cache.LocalKey(key, kind)
	s.supersede(lk)

	if s.objects != nil {
		if err := s.objects.Delete(ctx, key, kind); err != nil {
			s.logTierError(cache.TierObject, "delete", key, kind, err)
		}
	}
	if s.meta != nil {
		if err := s.meta.DeleteMeta(ctx, key, kind); err != nil {
			s.logTierError(cache.TierMetadata, "delete", key, kind, err)
		}
	}
	s.local.Delete(lk)
	s.syncLocalEntries()
}

// Freshness returns the metadata records that exist for keys, in request order.
// It is empty when no metadata tier is configured or the tier fails.
func (s *TieredCacheService) Freshness(ctx context.Context, kind cache.Kind, keys []string) []cache.KeyedMetadata {
	if s.meta == nil || len(keys) == 0 {
		return nil
	}
	seq, err := s.meta.BatchGetMeta(ctx, kind, keys)
	if err != nil {
		s.logTierError(cache.TierMetadata, "batch_get", "", kind, err)
		return nil
	}
	out := make([]cache.KeyedMetadata, 0, len(keys))
	for k, rec := range seq {
		out = append(out, cache.KeyedMetadata{Key: k, Record: rec})
	}
	return out
}

func (s *TieredCacheService) LocalEntries() int {
	return s.local.Len()
}

// logTierError logs err at a level matching its kind. Ignorable errors are
// expected outcomes and only show up at debug.
func (s *TieredCacheService) logTierError(tier, op, key string, kind cache.Kind, err error) {
	ignorable := cache.IsIgnorable(err)
	if !ignorable && s.metrics != nil {
		s.metrics.ObserveTierError(tier, op)
	}
	if s.logger == nil {
		return
	}
	entry := s.logger.WithFields(logrus.Fields{"tier": tier, "op": op, "key": key, "kind": kind}).WithError(err)
	if ignorable {
		entry.Debug("cache tier returned ignorable error")
		return
	}
	entry.Warn("cache tier unavailable, degrading")
}

func (s *TieredCacheService) observeLookup(tier, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveLookup(tier, outcome)
	}
}

func (s *TieredCacheService) syncLocalEntries() {
	if s.metrics != nil {
		s.metrics.SetLocalEntries(s.local.Len())
	}
}

var _ ports.TieredCache = (*TieredCacheService)(nil)
