package redis

import (
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"

	config "github.com/avatarctic/tiered-cache/go/configs"
)

// ClientProvider hands out one shared client, built on first use.
type ClientProvider struct {
	build func() redis.UniversalClient

	mu     sync.Mutex
	client redis.UniversalClient
}

// NewClientProvider memoizes a client built from cfg. go-redis dials lazily,
// so nothing touches the network until the first command.
func NewClientProvider(cfg *config.RedisConfig) *ClientProvider {
	return &ClientProvider{build: func() redis.UniversalClient {
		return redis.NewClient(NewClientOptions(cfg))
	}}
}

// StaticClientProvider wraps an existing client.
func StaticClientProvider(client redis.UniversalClient) *ClientProvider {
	return &ClientProvider{client: client}
}

// Client returns the shared client.
func (p *ClientProvider) Client() redis.UniversalClient {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		p.client = p.build()
	}
	return p.client
}

// Close closes the client if one was built. It never builds one.
func (p *ClientProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

// NewClientOptions maps config onto go-redis options.
func NewClientOptions(cfg *config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
