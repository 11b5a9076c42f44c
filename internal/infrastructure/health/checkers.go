package health

import (
	"context"
	"fmt"

	"github.com/avatarctic/tiered-cache/go/internal/core/ports"
	inframinio "github.com/avatarctic/tiered-cache/go/internal/infrastructure/minio"
	infranats "github.com/avatarctic/tiered-cache/go/internal/infrastructure/nats"
	infraredis "github.com/avatarctic/tiered-cache/go/internal/infrastructure/redis"
)

// redisHealthChecker pings the metadata Redis through the shared client.
type redisHealthChecker struct{ clients *infraredis.ClientProvider }

func (r *redisHealthChecker) Name() string { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error {
	return r.clients.Client().Ping(ctx).Err()
}

// objectStoreHealthChecker confirms the cache bucket is reachable.
type objectStoreHealthChecker struct {
	clients *inframinio.ClientProvider
	bucket  string
}

func (o *objectStoreHealthChecker) Name() string { return "object_store" }
func (o *objectStoreHealthChecker) Check(ctx context.Context) error {
	client, err := o.clients.Client()
	if err != nil {
		return err
	}
	exists, err := client.BucketExists(ctx, o.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", o.bucket)
	}
	return nil
}

// natsHealthChecker binds the metadata bucket and reads its status.
type natsHealthChecker struct{ bucket *infranats.BucketProvider }

func (n *natsHealthChecker) Name() string { return "nats" }
func (n *natsHealthChecker) Check(ctx context.Context) error {
	kv, err := n.bucket.KeyValue(ctx)
	if err != nil {
		return err
	}
	_, err = kv.Status(ctx)
	return err
}

// NewRedisHealthChecker creates a health checker for the Redis metadata tier.
func NewRedisHealthChecker(clients *infraredis.ClientProvider) ports.HealthChecker {
	return &redisHealthChecker{clients: clients}
}

// NewObjectStoreHealthChecker creates a health checker for the object tier.
func NewObjectStoreHealthChecker(clients *inframinio.ClientProvider, bucket string) ports.HealthChecker {
	return &objectStoreHealthChecker{clients: clients, bucket: bucket}
}

// NewNATSHealthChecker creates a health checker for the NATS metadata tier.
func NewNATSHealthChecker(bucket *infranats.BucketProvider) ports.HealthChecker {
	return &natsHealthChecker{bucket: bucket}
}
