// Package minio implements the persistent object tier on an S3-compatible store.
package minio

import (
	"fmt"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/avatarctic/tiered-cache/go/configs"
)

// ClientProvider lazily builds one shared client on first use. Later calls
// return the same client, or the same construction error.
type ClientProvider struct {
	get func() (*minio.Client, error)
}

// NewClientProvider memoizes a client built from cfg. No network I/O happens here.
func NewClientProvider(cfg configs.ObjectStoreConfig) *ClientProvider {
	return &ClientProvider{get: sync.OnceValues(func() (*minio.Client, error) {
		return newClient(cfg)
	})}
}

// StaticClientProvider wraps an already constructed client.
func StaticClientProvider(client *minio.Client) *ClientProvider {
	return &ClientProvider{get: func() (*minio.Client, error) { return client, nil }}
}

// Client returns the shared client.
func (p *ClientProvider) Client() (*minio.Client, error) {
	return p.get()
}

func newClient(cfg configs.ObjectStoreConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return client, nil
}
