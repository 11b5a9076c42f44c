package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind tags which family of host entries a key belongs to.
type Kind string

const (
	KindCache      Kind = "cache"
	KindFetch      Kind = "fetch"
	KindComposable Kind = "composable"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCache, KindFetch, KindComposable:
		return true
	default:
		return false
	}
}

// ParseKind converts a raw kind string. Empty input defaults to KindCache.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return KindCache, nil
	}
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown cache kind %q", s)
	}
	return k, nil
}

// Entry is the value envelope held by every tier. LastModified is epoch milliseconds.
type Entry struct {
	Value        json.RawMessage `json:"value"`
	LastModified int64           `json:"lastModified"`
}

// Age returns how long ago the entry was written, relative to now.
func (e Entry) Age(now time.Time) time.Duration {
	return time.Duration(now.UnixMilli()-e.LastModified) * time.Millisecond
}

// MetadataRecord is the freshness record kept by the metadata tier.
// RevalidatedAt is the last time the value was confirmed fresh; LastModified is
// the last value write. A Deleted record invalidates every older copy of the key.
type MetadataRecord struct {
	LastModified  int64 `json:"lastModified"`
	RevalidatedAt int64 `json:"revalidatedAt"`
	Deleted       bool  `json:"deleted"`
	Size          int64 `json:"size"`
}

// KeyedMetadata pairs a metadata record with the key it describes.
type KeyedMetadata struct {
	Key    string         `json:"key"`
	Record MetadataRecord `json:"record"`
}

// NewRecord builds the record written after a successful value write or fetch.
func NewRecord(ts int64, size int) MetadataRecord {
	return MetadataRecord{LastModified: ts, RevalidatedAt: ts, Size: int64(size)}
}

// Tombstone builds the record that marks a key deleted at now.
func Tombstone(now time.Time) MetadataRecord {
	ms := now.UnixMilli()
	return MetadataRecord{LastModified: ms, RevalidatedAt: ms, Deleted: true}
}

// LocalKey scopes a key by kind for the in-process tier.
func LocalKey(key string, kind Kind) string {
	return string(kind) + ":" + key
}

// Lookup outcomes, reported per answering tier.
const (
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
	OutcomeStale    = "stale"
	OutcomeDegraded = "degraded"
	OutcomeEvicted  = "evicted"
)
