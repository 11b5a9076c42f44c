package nats

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/avatarctic/tiered-cache/go/internal/core/domain/cache"
	"github.com/avatarctic/tiered-cache/go/internal/core/ports"
)

const defaultTimeout = 2 * time.Second

type MetadataConfig struct {
	BuildID string
	Timeout time.Duration
}

// MetadataStore stores JSON-encoded freshness records in a KV bucket.
type MetadataStore struct {
	buckets *BucketProvider
	buildID string
	timeout time.Duration
	now     func() time.Time
}

func NewMetadataStore(buckets *BucketProvider, cfg MetadataConfig) *MetadataStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &MetadataStore{buckets: buckets, buildID: sanitize(cfg.BuildID), timeout: timeout, now: time.Now}
}

// kvKey encodes key so arbitrary cache keys fit the KV key alphabet.
func (s *MetadataStore) kvKey(key string, kind cache.Kind) string {
	return s.buildID + "." + string(kind) + "." + base64.RawURLEncoding.EncodeToString([]byte(key))
}

func (s *MetadataStore) GetMeta(ctx context.Context, key string, kind cache.Kind) (cache.MetadataRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	kv, err := s.buckets.KeyValue(ctx)
	if err != nil {
		return cache.MetadataRecord{}, false, cache.Recoverable(cache.TierMetadata, "get", key, err)
	}
	rec, ok, err := s.get(ctx, kv, key, kind)
	if err != nil {
		return cache.MetadataRecord{}, false, cache.Recoverable(cache.TierMetadata, "get", key, err)
	}
	return rec, ok, nil
}

func (s *MetadataStore) get(ctx context.Context, kv jetstream.KeyValue, key string, kind cache.Kind) (cache.MetadataRecord, bool, error) {
	entry, err := kv.Get(ctx, s.kvKey(key, kind))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return cache.MetadataRecord{}, false, nil
		}
		return cache.MetadataRecord{}, false, err
	}
	var rec cache.MetadataRecord
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return cache.MetadataRecord{}, false, fmt.Errorf("corrupt metadata record: %w", err)
	}
	return rec, true, nil
}

func (s *MetadataStore) SetMeta(ctx context.Context, key string, kind cache.Kind, rec cache.MetadataRecord) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	kv, err := s.buckets.KeyValue(ctx)
	if err != nil {
		return cache.Recoverable(cache.TierMetadata, "set", key, err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return cache.Recoverable(cache.TierMetadata, "set", key, err)
	}
	if _, err := kv.Put(ctx, s.kvKey(key, kind), data); err != nil {
		return cache.Recoverable(cache.TierMetadata, "set", key, err)
	}
	return nil
}

func (s *MetadataStore) DeleteMeta(ctx context.Context, key string, kind cache.Kind) error {
	return s.SetMeta(ctx, key, kind, cache.Tombstone(s.now()))
}

// BatchGetMeta reads keys one by one; KV buckets have no multi-get.
func (s *MetadataStore) BatchGetMeta(ctx context.Context, kind cache.Kind, keys []string) (iter.Seq2[string, cache.MetadataRecord], error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	label := fmt.Sprintf("%d keys", len(keys))
	kv, err := s.buckets.KeyValue(ctx)
	if err != nil {
		return nil, cache.Recoverable(cache.TierMetadata, "batch_get", label, err)
	}
	found := make([]cache.KeyedMetadata, 0, len(keys))
	for _, key := range keys {
		rec, ok, err := s.get(ctx, kv, key, kind)
		if err != nil {
			return nil, cache.Recoverable(cache.TierMetadata, "batch_get", label, err)
		}
		if ok {
			found = append(found, cache.KeyedMetadata{Key: key, Record: rec})
		}
	}

	consumed := false
	return func(yield func(string, cache.MetadataRecord) bool) {
		if consumed {
			return
		}
		consumed = true
		for _, it := range found {
			if !yield(it.Key, it.Record) {
				return
			}
		}
	}, nil
}

// sanitize keeps a build id inside the KV key alphabet.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

var _ ports.MetadataStore = (*MetadataStore)(nil)
