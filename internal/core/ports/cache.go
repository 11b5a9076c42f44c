package ports

import (
	"context"
	"encoding/json"
	"iter"

	"github.com/avatarctic/tiered-cache/go/internal/core/domain/cache"
)

// LocalCache is the bounded in-process recency tier. It performs no I/O.
type LocalCache interface {
	// Get returns the entry and marks key most-recently used. ok=false if absent.
	Get(key string) (cache.Entry, bool)
	// Set inserts or replaces key at the most-recent position, evicting the
	// least-recent entry first when a new key would exceed capacity.
	Set(key string, entry cache.Entry)
	// Delete removes key and reports whether it was present.
	Delete(key string) bool
	Clear()
	Len() int
}

// ObjectStore is the persistent tier. Errors are *cache.TierError values:
// Ignorable for absent objects, Recoverable for everything else.
type ObjectStore interface {
	Get(ctx context.Context, key string, kind cache.Kind) (cache.Entry, error)
	Set(ctx context.Context, key string, kind cache.Kind, value json.RawMessage) error
	// Delete removes the object; absence is not an error.
	Delete(ctx context.Context, key string, kind cache.Kind) error
}

// MetadataStore holds freshness records only. Absence is ok=false, never an error.
type MetadataStore interface {
	GetMeta(ctx context.Context, key string, kind cache.Kind) (cache.MetadataRecord, bool, error)
	// SetMeta overwrites any existing record unconditionally.
	SetMeta(ctx context.Context, key string, kind cache.Kind, rec cache.MetadataRecord) error
	// DeleteMeta writes a tombstone; records are never physically removed.
	DeleteMeta(ctx context.Context, key string, kind cache.Kind) error
	// BatchGetMeta returns a one-shot sequence of the records that exist for keys.
	BatchGetMeta(ctx context.Context, kind cache.Kind, keys []string) (iter.Seq2[string, cache.MetadataRecord], error)
}

// TieredCache composes the local, metadata and object tiers. It never returns errors:
// every remote failure degrades to a stale value, a miss or a no-op.
type TieredCache interface {
	Get(ctx context.Context, key string, kind cache.Kind) (cache.Entry, bool)
	Set(ctx context.Context, key string, kind cache.Kind, value json.RawMessage)
	Delete(ctx context.Context, key string, kind cache.Kind)
	Freshness(ctx context.Context, kind cache.Kind, keys []string) []cache.KeyedMetadata
	LocalEntries() int
}

// GetOptions disambiguates the kind of a handler lookup.
type GetOptions struct {
	Kind       cache.Kind `json:"kind,omitempty"`
	FetchCache bool       `json:"fetchCache,omitempty"`
}

// SetContext carries revalidation hints from the host framework. Only Kind and
// FetchCache are interpreted; the rest is passed through.
type SetContext struct {
	Kind       cache.Kind `json:"kind,omitempty"`
	FetchCache bool       `json:"fetchCache,omitempty"`
	Revalidate *int64     `json:"revalidate,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
}

// CacheHandler is the contract consumed by the host framework. No method fails outward.
type CacheHandler interface {
	// Get returns nil on any miss or unresolved error.
	Get(ctx context.Context, key string, opts GetOptions) *cache.Entry
	// Set stores data; nil or JSON null data deletes the key.
	Set(ctx context.Context, key string, data json.RawMessage, sc SetContext)
	// RevalidateTag is accepted and logged only; no tag index is maintained.
	RevalidateTag(ctx context.Context, tags ...string)
	Metadata(ctx context.Context, kind cache.Kind, keys []string) []cache.KeyedMetadata
}

// CacheMetrics receives tier-level observations. Implementations must be safe for concurrent use.
type CacheMetrics interface {
	ObserveLookup(tier, outcome string)
	ObserveTierError(tier, op string)
	SetLocalEntries(n int)
}
