package minio

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/avatarctic/tiered-cache/go/internal/core/domain/cache"
)

// setupTestMinIO starts a MinIO container and returns a client with a fresh bucket.
func setupTestMinIO(t *testing.T) (*minio.Client, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minioadmin",
			"MINIO_ROOT_PASSWORD": "minioadmin",
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
	}
	minioC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start MinIO container")
	t.Cleanup(func() { _ = minioC.Terminate(ctx) })

	endpoint, err := minioC.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err)

	bucket := "tiered-cache"
	require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	return client, bucket
}

func TestIntegration_ObjectStoreRoundTrip(t *testing.T) {
	client, bucket := setupTestMinIO(t)
	store := NewObjectStore(StaticClientProvider(client), Config{Bucket: bucket, Prefix: "cache", BuildID: "b1"})
	ctx := context.Background()

	_, err := store.Get(ctx, "missing", cache.KindCache)
	assert.True(t, cache.IsIgnorable(err))

	value := json.RawMessage(`{"kind":"PAGE","html":"<p>hi</p>"}`)
	require.NoError(t, store.Set(ctx, "blog/post", cache.KindCache, value))
	require.NoError(t, store.Set(ctx, "abc123", cache.KindFetch, json.RawMessage(`{"status":200}`)))

	got, err := store.Get(ctx, "blog/post", cache.KindCache)
	require.NoError(t, err)
	assert.JSONEq(t, string(value), string(got.Value))
	assert.Positive(t, got.LastModified)

	// The raw layout is what external tooling inspects.
	obj, err := client.GetObject(ctx, bucket, "cache/__fetch/b1/abc123", minio.GetObjectOptions{})
	require.NoError(t, err)
	raw, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":200}`, string(raw))
	_, err = client.StatObject(ctx, bucket, "cache/b1/blog/post.cache", minio.StatObjectOptions{})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "blog/post", cache.KindCache))
	require.NoError(t, store.Delete(ctx, "blog/post", cache.KindCache), "deleting an absent key is not an error")
	_, err = store.Get(ctx, "blog/post", cache.KindCache)
	assert.True(t, cache.IsIgnorable(err))
}
