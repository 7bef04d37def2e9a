/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bluele/gcache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/nanderstabel/identity/pkg/common/log"
	"github.com/nanderstabel/identity/pkg/iota/chain"
	"github.com/nanderstabel/identity/pkg/iota/did"
	"github.com/nanderstabel/identity/pkg/iota/document"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
)

const (
	defaultCacheSize   = 1000
	defaultParallelism = 8
)

var logger = log.New("identity/iota/resolver")

// ErrNetworkMismatch is returned when a DID of one network is published to another.
var ErrNetworkMismatch = errors.New("DID network does not match the client network")

// Resolver publishes documents to the Tangle and resolves them back.
type Resolver struct {
	client      tangle.Client
	cache       gcache.Cache
	group       singleflight.Group
	metrics     *Metrics
	mu          sync.Mutex
	generations map[string]uint64
	parallelism int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache caches resolved documents for ttl. A zero ttl disables the cache.
func WithCache(size int, ttl time.Duration) Option {
	return func(r *Resolver) {
		if size <= 0 {
			size = defaultCacheSize
		}

		r.cache = nil

		if ttl > 0 {
			r.cache = gcache.New(size).LRU().Expiration(ttl).Build()
		}
	}
}

// WithMetrics records resolver metrics.
func WithMetrics(m *Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithParallelism bounds the number of concurrent reads of ResolveDiffHistories.
func WithParallelism(n int) Option {
	return func(r *Resolver) {
		r.parallelism = n
	}
}

// New returns a resolver over client.
func New(client tangle.Client, opts ...Option) *Resolver {
	r := &Resolver{client: client, parallelism: defaultParallelism, generations: map[string]uint64{}}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Client returns the underlying Tangle client.
func (r *Resolver) Client() tangle.Client {
	return r.client
}

func (r *Resolver) checkNetwork(id did.IotaDID) error {
	n, ok := r.client.(tangle.Networked)
	if !ok {
		return nil
	}

	if n.Network().Name() != id.NetworkName() {
		return fmt.Errorf("%w: %s on %s", ErrNetworkMismatch, id, n.Network())
	}

	return nil
}

// Publish publishes msg on the integration index of its DID and sets its message id.
func (r *Resolver) Publish(ctx context.Context, msg *document.IntegrationMessage) (id tangle.MessageID, err error) {
	defer func(start time.Time) { r.metrics.observe("publish", err, start) }(time.Now())

	if err = r.checkNetwork(msg.DID()); err != nil {
		return tangle.NullMessageID, err
	}

	id, err = r.publish(ctx, msg.Identity.Document.IntegrationIndex(), msg)
	if err != nil {
		return tangle.NullMessageID, err
	}

	msg.SetMessageID(id)
	r.invalidate(msg.DID())

	logger.Infof("published integration message %s for %s", id, msg.DID())

	return id, nil
}

// PublishDiff publishes diff on the diff index of the integration message integrationID and
// sets its message id.
func (r *Resolver) PublishDiff(ctx context.Context, integrationID tangle.MessageID,
	diff *document.DiffMessage) (id tangle.MessageID, err error) {
	defer func(start time.Time) { r.metrics.observe("publish_diff", err, start) }(time.Now())

	if err = r.checkNetwork(diff.DID); err != nil {
		return tangle.NullMessageID, err
	}

	index, err := document.DiffIndex(integrationID)
	if err != nil {
		return tangle.NullMessageID, err
	}

	id, err = r.publish(ctx, index, diff)
	if err != nil {
		return tangle.NullMessageID, err
	}

	diff.SetMessageID(id)
	r.invalidate(diff.DID)

	logger.Infof("published diff message %s for %s", id, diff.DID)

	return id, nil
}

func (r *Resolver) publish(ctx context.Context, index string, v interface{}) (tangle.MessageID, error) {
	payload, err := tangle.EncodePayload(v)
	if err != nil {
		return tangle.NullMessageID, err
	}

	id, err := r.client.PublishMessage(ctx, index, payload)
	if err != nil {
		return tangle.NullMessageID, fmt.Errorf("publish on index %s: %w", index, err)
	}

	return id, nil
}

// invalidate drops the cached document of id. Reads started before the call neither populate
// the cache nor are shared with later resolutions.
func (r *Resolver) invalidate(id did.IotaDID) {
	key := id.String()

	r.mu.Lock()
	r.generations[key]++

	if r.cache != nil {
		r.cache.Remove(key)
	}
	r.mu.Unlock()

	r.group.Forget(key)
}

func (r *Resolver) generation(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.generations[key]
}

// store caches msg unless key was invalidated since gen was read.
func (r *Resolver) store(key string, gen uint64, msg *document.IntegrationMessage) {
	if r.cache == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.generations[key] != gen {
		logger.Debugf("not caching %s: invalidated during resolution", key)

		return
	}

	if err := r.cache.Set(key, msg); err != nil {
		logger.Warnf("failed to cache %s: %s", key, err)
	}
}

// ReadDocumentChain reads the integration and diff chains of id.
func (r *Resolver) ReadDocumentChain(ctx context.Context, id did.IotaDID) (*chain.DocumentChain, error) {
	return chain.ReadDocumentChain(ctx, r.client, id)
}

// Resolve returns the latest document of id with every diff applied. Concurrent resolutions of
// the same DID share one read.
func (r *Resolver) Resolve(ctx context.Context, id did.IotaDID) (msg *document.IntegrationMessage, err error) {
	defer func(start time.Time) { r.metrics.observe("resolve", err, start) }(time.Now())

	key := id.String()

	if r.cache != nil {
		if cached, err := r.cache.Get(key); err == nil {
			r.metrics.cacheLookup(true)

			return cached.(*document.IntegrationMessage).Clone(), nil
		}

		r.metrics.cacheLookup(false)
	}

	v, err, shared := r.group.Do(key, func() (interface{}, error) {
		gen := r.generation(key)

		c, err := r.ReadDocumentChain(ctx, id)
		if err != nil {
			return nil, err
		}

		current := c.Current()

		r.store(key, gen, current)

		return current, nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", id, err)
	}

	if shared {
		logger.Debugf("shared resolution of %s", id)
	}

	return v.(*document.IntegrationMessage).Clone(), nil
}

// ResolveHistory returns the history of id.
func (r *Resolver) ResolveHistory(ctx context.Context, id did.IotaDID) (h *chain.DocumentHistory, err error) {
	defer func(start time.Time) { r.metrics.observe("resolve_history", err, start) }(time.Now())

	return chain.ReadHistory(ctx, r.client, id)
}

// ResolveDiffHistory returns the diff chain history of any integration message.
func (r *Resolver) ResolveDiffHistory(ctx context.Context,
	msg *document.IntegrationMessage) (*chain.ChainHistory[*document.DiffMessage], error) {
	index, err := document.DiffIndex(msg.MessageID())
	if err != nil {
		return nil, err
	}

	messages, err := r.client.ReadMessages(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("read diff chain of %s: %w", msg.MessageID(), err)
	}

	return chain.DiffHistoryFromMessages(msg, messages)
}

// ResolveDiffHistories resolves the diff history of every message concurrently. The result is
// in the order of msgs.
func (r *Resolver) ResolveDiffHistories(ctx context.Context,
	msgs []*document.IntegrationMessage) ([]*chain.ChainHistory[*document.DiffMessage], error) {
	out := make([]*chain.ChainHistory[*document.DiffMessage], len(msgs))

	g, ctx := errgroup.WithContext(ctx)
	if r.parallelism > 0 {
		g.SetLimit(r.parallelism)
	}

	for i, msg := range msgs {
		i, msg := i, msg

		g.Go(func() error {
			h, err := r.ResolveDiffHistory(ctx, msg)
			if err != nil {
				return err
			}

			out[i] = h

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
