package services

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/tiered-cache/go/internal/core/domain/cache"
	"github.com/avatarctic/tiered-cache/go/internal/core/ports"
)

// CacheHandlerService adapts the tiered cache to the get/set/revalidateTag
// contract a page-rendering host expects.
type CacheHandlerService struct {
	tiers  ports.TieredCache
	logger *logrus.Logger
}

func NewCacheHandlerService(tiers ports.TieredCache, logger *logrus.Logger) ports.CacheHandler {
	return &CacheHandlerService{tiers: tiers, logger: logger}
}

func (s *CacheHandlerService) Get(ctx context.Context, key string, opts ports.GetOptions) *cache.Entry {
	entry, ok := s.tiers.Get(ctx, key, resolveKind(opts.Kind, opts.FetchCache))
	if !ok {
		return nil
	}
	entry.Value = bytes.Clone(entry.Value)
	return &entry
}

func (s *CacheHandlerService) Set(ctx context.Context, key string, data json.RawMessage, sc ports.SetContext) {
	kind := resolveKind(sc.Kind, sc.FetchCache)
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"key":        key,
			"kind":       kind,
			"revalidate": sc.Revalidate,
			"tags":       sc.Tags,
		}).Debug("cache set")
	}
	if isNull(data) {
		s.tiers.Delete(ctx, key, kind)
		return
	}
	s.tiers.Set(ctx, key, kind, data)
}

// RevalidateTag only records the request. No tag index is kept, so entries
// carrying the tags stay cached until they are overwritten or deleted.
func (s *CacheHandlerService) RevalidateTag(ctx context.Context, tags ...string) {
	if s.logger != nil {
		s.logger.WithField("tags", tags).Info("tag revalidation requested; tags are not indexed")
	}
}

func (s *CacheHandlerService) Metadata(ctx context.Context, kind cache.Kind, keys []string) []cache.KeyedMetadata {
	return s.tiers.Freshness(ctx, resolveKind(kind, false), keys)
}

// resolveKind picks the explicit kind, else fetch for fetch-cache lookups, else cache.
func resolveKind(kind cache.Kind, fetchCache bool) cache.Kind {
	switch {
	case kind != "":
		return kind
	case fetchCache:
		return cache.KindFetch
	default:
		return cache.KindCache
	}
}

func isNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
