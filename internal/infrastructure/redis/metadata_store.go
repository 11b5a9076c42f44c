package redis

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/tiered-cache/go/internal/core/domain/cache"
	"github.com/avatarctic/tiered-cache/go/internal/core/ports"
)

const (
	fieldLastModified  = "lastModified"
	fieldRevalidatedAt = "revalidatedAt"
	fieldDeleted       = "deleted"
	fieldSize          = "size"

	defaultTimeout = 2 * time.Second
)

// MetadataConfig scopes a MetadataStore to a table and build.
type MetadataConfig struct {
	Table   string
	BuildID string
	Timeout time.Duration
}

// MetadataStore keeps one hash per key holding its freshness record.
type MetadataStore struct {
	clients *ClientProvider
	table   string
	buildID string
	timeout time.Duration
	now     func() time.Time
}

func NewMetadataStore(clients *ClientProvider, cfg MetadataConfig) *MetadataStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &MetadataStore{clients: clients, table: cfg.Table, buildID: cfg.BuildID, timeout: timeout, now: time.Now}
}

func (s *MetadataStore) namespaced(key string, kind cache.Kind) string {
	return fmt.Sprintf("%s:%s:%s:%s", s.table, s.buildID, kind, key)
}

// GetMeta implements ports.MetadataStore.GetMeta.
func (s *MetadataStore) GetMeta(ctx context.Context, key string, kind cache.Kind) (cache.MetadataRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vals, err := s.clients.Client().HGetAll(ctx, s.namespaced(key, kind)).Result()
	if err == redis.Nil || (err == nil && len(vals) == 0) {
		return cache.MetadataRecord{}, false, nil
	}
	if err != nil {
		return cache.MetadataRecord{}, false, cache.Recoverable(cache.TierMetadata, "get", key, err)
	}
	rec, err := decodeRecord(vals)
	if err != nil {
		return cache.MetadataRecord{}, false, cache.Recoverable(cache.TierMetadata, "get", key, err)
	}
	return rec, true, nil
}

// SetMeta implements ports.MetadataStore.SetMeta. All fields are written so the
// previous record is fully replaced.
func (s *MetadataStore) SetMeta(ctx context.Context, key string, kind cache.Kind, rec cache.MetadataRecord) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.clients.Client().HSet(ctx, s.namespaced(key, kind), encodeRecord(rec)).Err(); err != nil {
		return cache.Recoverable(cache.TierMetadata, "set", key, err)
	}
	return nil
}

// DeleteMeta implements ports.MetadataStore.DeleteMeta.
func (s *MetadataStore) DeleteMeta(ctx context.Context, key string, kind cache.Kind) error {
	return s.SetMeta(ctx, key, kind, cache.Tombstone(s.now()))
}

// BatchGetMeta implements ports.MetadataStore.BatchGetMeta with one pipelined round trip.
func (s *MetadataStore) BatchGetMeta(ctx context.Context, kind cache.Kind, keys []string) (iter.Seq2[string, cache.MetadataRecord], error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pipe := s.clients.Client().Pipeline()
	cmds := make([]*redis.StringStringMapCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, s.namespaced(key, kind))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, cache.Recoverable(cache.TierMetadata, "batch_get", fmt.Sprintf("%d keys", len(keys)), err)
	}

	found := make([]cache.KeyedMetadata, 0, len(keys))
	for i, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		rec, err := decodeRecord(vals)
		if err != nil {
			continue
		}
		found = append(found, cache.KeyedMetadata{Key: keys[i], Record: rec})
	}
	return oneShot(found), nil
}

// oneShot yields items on the first iteration only.
func oneShot(items []cache.KeyedMetadata) iter.Seq2[string, cache.MetadataRecord] {
	consumed := false
	return func(yield func(string, cache.MetadataRecord) bool) {
		if consumed {
			return
		}
		consumed = true
		for _, it := range items {
			if !yield(it.Key, it.Record) {
				return
			}
		}
	}
}

func encodeRecord(rec cache.MetadataRecord) map[string]interface{} {
	deleted := "0"
	if rec.Deleted {
		deleted = "1"
	}
	return map[string]interface{}{
		fieldLastModified:  rec.LastModified,
		fieldRevalidatedAt: rec.RevalidatedAt,
		fieldDeleted:       deleted,
		fieldSize:          rec.Size,
	}
}

func decodeRecord(vals map[string]string) (cache.MetadataRecord, error) {
	var rec cache.MetadataRecord
	var err error
	if rec.LastModified, err = parseInt(vals, fieldLastModified); err != nil {
		return rec, err
	}
	if rec.RevalidatedAt, err = parseInt(vals, fieldRevalidatedAt); err != nil {
		return rec, err
	}
	if rec.Size, err = parseInt(vals, fieldSize); err != nil {
		return rec, err
	}
	rec.Deleted = vals[fieldDeleted] == "1" || vals[fieldDeleted] == "true"
	return rec, nil
}

func parseInt(vals map[string]string, field string) (int64, error) {
	raw, ok := vals[field]
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt metadata field %s=%q: %w", field, raw, err)
	}
	return v, nil
}

var _ ports.MetadataStore = (*MetadataStore)(nil)
