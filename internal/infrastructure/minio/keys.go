package minio

import (
	"strings"

	"github.com/avatarctic/tiered-cache/go/internal/core/domain/cache"
)

// ObjectKey lays out the object name for key. External tooling reads these
// names directly, so the layout is fixed:
//
//	cache, composable: {prefix}/{buildId}/{key}.{kind}
//	fetch:             {prefix}/__fetch/{buildId}/{key}
//
// An empty prefix drops the leading segment.
func ObjectKey(prefix, buildID, key string, kind cache.Kind) string {
	var name string
	if kind == cache.KindFetch {
		name = "__fetch/" + buildID + "/" + key
	} else {
		name = buildID + "/" + key + "." + string(kind)
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
