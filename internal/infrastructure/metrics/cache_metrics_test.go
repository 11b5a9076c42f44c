package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/tiered-cache/go/internal/core/domain/cache"
)

func TestCacheMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCacheMetrics(reg)

	m.ObserveLookup("local", cache.OutcomeHit)
	m.ObserveLookup("local", cache.OutcomeHit)
	m.ObserveLookup("object", cache.OutcomeMiss)
	m.ObserveTierError("metadata", "get")
	m.SetLocalEntries(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.lookups.WithLabelValues("local", cache.OutcomeHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues("object", cache.OutcomeMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tierErrors.WithLabelValues("metadata", "get")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.localEntries))

	n, err := testutil.GatherAndCount(reg, "tiercache_lookups_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCacheMetrics_NilRegisterer(t *testing.T) {
	m := NewCacheMetrics(nil)
	assert.NotPanics(t, func() { m.ObserveLookup("local", cache.OutcomeMiss) })
}
