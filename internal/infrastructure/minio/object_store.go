package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/avatarctic/tiered-cache/go/internal/core/domain/cache"
	"github.com/avatarctic/tiered-cache/go/internal/core/ports"
)

const defaultTimeout = 5 * time.Second

var errInvalidPayload = errors.New("stored object is not valid JSON")

// Config scopes an ObjectStore to one bucket and build.
type Config struct {
	Bucket  string
	Prefix  string
	BuildID string
	// Timeout bounds every call; zero means the default of 5s.
	Timeout time.Duration
}

// ObjectStore implements ports.ObjectStore.
type ObjectStore struct {
	clients *ClientProvider
	bucket  string
	prefix  string
	buildID string
	timeout time.Duration
	now     func() time.Time
}

func NewObjectStore(clients *ClientProvider, cfg Config) *ObjectStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ObjectStore{
		clients: clients,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		buildID: cfg.BuildID,
		timeout: timeout,
		now:     time.Now,
	}
}

func (s *ObjectStore) objectKey(key string, kind cache.Kind) string {
	return ObjectKey(s.prefix, s.buildID, key, kind)
}

// Get implements ports.ObjectStore.Get.
func (s *ObjectStore) Get(ctx context.Context, key string, kind cache.Kind) (cache.Entry, error) {
	client, err := s.clients.Client()
	if err != nil {
		return cache.Entry{}, cache.Recoverable(cache.TierObject, "get", key, err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	obj, err := client.GetObject(ctx, s.bucket, s.objectKey(key, kind), minio.GetObjectOptions{})
	if err != nil {
		return cache.Entry{}, classify("get", key, err)
	}
	defer func() {
		_ = obj.Close()
	}()

	info, err := obj.Stat()
	if err != nil {
		return cache.Entry{}, classify("get", key, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return cache.Entry{}, classify("get", key, err)
	}
	if !json.Valid(data) {
		return cache.Entry{}, cache.Recoverable(cache.TierObject, "get", key, errInvalidPayload)
	}

	lastModified := s.now().UnixMilli()
	if !info.LastModified.IsZero() {
		lastModified = info.LastModified.UnixMilli()
	}
	return cache.Entry{Value: json.RawMessage(data), LastModified: lastModified}, nil
}

// Set implements ports.ObjectStore.Set.
func (s *ObjectStore) Set(ctx context.Context, key string, kind cache.Kind, value json.RawMessage) error {
	client, err := s.clients.Client()
	if err != nil {
		return cache.Recoverable(cache.TierObject, "set", key, err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err = client.PutObject(ctx, s.bucket, s.objectKey(key, kind), bytes.NewReader(value), int64(len(value)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return cache.Recoverable(cache.TierObject, "set", key, fmt.Errorf("minio: %w", err))
	}
	return nil
}

// Delete implements ports.ObjectStore.Delete.
func (s *ObjectStore) Delete(ctx context.Context, key string, kind cache.Kind) error {
	client, err := s.clients.Client()
	if err != nil {
		return cache.Recoverable(cache.TierObject, "delete", key, err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = client.RemoveObject(ctx, s.bucket, s.objectKey(key, kind), minio.RemoveObjectOptions{})
	if err = classify("delete", key, err); err != nil && !cache.IsIgnorable(err) {
		return err
	}
	return nil
}

// classify maps minio failures onto the tier taxonomy.
func classify(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return cache.Ignorable(cache.TierObject, op, key, cache.ErrNotFound)
	}
	return cache.Recoverable(cache.TierObject, op, key, fmt.Errorf("minio: %w", err))
}

var _ ports.ObjectStore = (*ObjectStore)(nil)
