// Package nats implements the metadata tier on a JetStream key-value bucket.
package nats

import (
	"context"
	"errors"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/singleflight"
)

const (
	defaultBindTimeout  = 5 * time.Second
	defaultRetryBackoff = time.Second
)

var errProviderClosed = errors.New("bucket provider closed")

type closeFunc = func()

// Connector opens a NATS connection.
type Connector func() (nc *natsgo.Conn, close closeFunc, err error)

// ConnectURL dials natsURL with a bounded reconnect budget. opts are applied
// after the defaults, so a caller can set natsgo.Timeout for the dial.
func ConnectURL(natsURL string, opts ...natsgo.Option) Connector {
	return func() (*natsgo.Conn, closeFunc, error) {
		nc, err := natsgo.Connect(
			natsURL,
			append([]natsgo.Option{natsgo.MaxReconnects(3)}, opts...)...,
		)
		if err != nil {
			return nil, nil, err
		}
		return nc, func() { nc.Close() }, nil
	}
}

// BucketProvider connects and binds the metadata bucket on first use.
//
// Only a successful bind is memoized. Concurrent callers share one bind
// attempt and each stops waiting when its own context ends. After a failed
// bind, callers get the same error without redialing until the retry backoff
// has passed.
type BucketProvider struct {
	connect      Connector
	bucket       string
	bindTimeout  time.Duration
	retryBackoff time.Duration
	now          func() time.Time

	sf singleflight.Group

	mu       sync.Mutex
	kv       jetstream.KeyValue
	close    closeFunc
	closed   bool
	lastErr  error
	failedAt time.Time
}

// BucketOption tunes a BucketProvider.
type BucketOption func(*BucketProvider)

// WithBindTimeout bounds one connect-and-bind attempt.
func WithBindTimeout(d time.Duration) BucketOption {
	return func(p *BucketProvider) {
		if d > 0 {
			p.bindTimeout = d
		}
	}
}

// WithRetryBackoff sets how long a failed bind is reported before redialing.
func WithRetryBackoff(d time.Duration) BucketOption {
	return func(p *BucketProvider) { p.retryBackoff = d }
}

func NewBucketProvider(connect Connector, bucket string, opts ...BucketOption) *BucketProvider {
	p := &BucketProvider{
		connect:      connect,
		bucket:       bucket,
		bindTimeout:  defaultBindTimeout,
		retryBackoff: defaultRetryBackoff,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// KeyValue returns the shared bucket handle.
func (p *BucketProvider) KeyValue(ctx context.Context) (jetstream.KeyValue, error) {
	if p.bucket == "" {
		return nil, errors.New("bucket is required")
	}

	p.mu.Lock()
	kv, closed, lastErr, failedAt := p.kv, p.closed, p.lastErr, p.failedAt
	p.mu.Unlock()
	switch {
	case kv != nil:
		return kv, nil
	case closed:
		return nil, errProviderClosed
	case lastErr != nil && p.now().Sub(failedAt) < p.retryBackoff:
		return nil, lastErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := p.sf.DoChan(p.bucket, func() (any, error) {
		return p.bind()
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(jetstream.KeyValue), nil
	}
}

// bind runs detached from any caller so a slow server is dialed once, not once
// per waiting request.
func (p *BucketProvider) bind() (jetstream.KeyValue, error) {
	kv, closeConn, err := p.dial()

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.lastErr, p.failedAt = err, p.now()
		return nil, err
	}
	if p.closed {
		closeConn()
		return nil, errProviderClosed
	}
	p.kv, p.close, p.lastErr = kv, closeConn, nil
	return kv, nil
}

func (p *BucketProvider) dial() (jetstream.KeyValue, closeFunc, error) {
	nc, closeConn, err := p.connect()
	if err != nil {
		return nil, nil, err
	}
	js, err := jetstream.New(nc)
	if err != nil {
		closeConn()
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.bindTimeout)
	defer cancel()
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      p.bucket,
		Description: "tiered cache freshness records",
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		closeConn()
		return nil, nil, err
	}
	return kv, closeConn, nil
}

// Close drops the connection if one was opened. A bind still in flight is
// discarded when it completes.
func (p *BucketProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.close != nil {
		p.close()
	}
	p.kv, p.close, p.closed = nil, nil, true
}
