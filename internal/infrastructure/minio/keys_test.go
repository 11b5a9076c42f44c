package minio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/avatarctic/tiered-cache/go/internal/core/domain/cache"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		key    string
		kind   cache.Kind
		want   string
	}{
		{"cache kind", "cache", "/blog/post", cache.KindCache, "cache/build-1//blog/post.cache"},
		{"composable kind", "cache", "abc", cache.KindComposable, "cache/build-1/abc.composable"},
		{"fetch kind has no extension", "cache", "f00d", cache.KindFetch, "cache/__fetch/build-1/f00d"},
		{"prefix slashes are trimmed", "/nested/cache/", "abc", cache.KindCache, "nested/cache/build-1/abc.cache"},
		{"empty prefix", "", "abc", cache.KindCache, "build-1/abc.cache"},
		{"empty prefix fetch", "", "f00d", cache.KindFetch, "__fetch/build-1/f00d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectKey(tt.prefix, "build-1", tt.key, tt.kind))
		})
	}
}
