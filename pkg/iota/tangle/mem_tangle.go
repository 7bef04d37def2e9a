/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tangle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/nanderstabel/identity/spi/storage"
)

const (
	memTangleStore = "tangle"
	indexTag       = "index"
)

// MemTangle is an in-process ledger. Message ids are the blake2b-256 hash of index, payload and
// sequence number. When backed by a store, messages survive restarts.
type MemTangle struct {
	mu          sync.RWMutex
	network     Network
	messages    map[MessageID]Message
	indexes     map[string][]MessageID
	seq         uint64
	store       storage.Store
	subscribers map[string][]chan Message
}

// MemTangleOption configures a MemTangle.
type MemTangleOption func(*MemTangle)

// WithNetwork sets the network reported by the ledger.
func WithNetwork(n Network) MemTangleOption {
	return func(m *MemTangle) {
		m.network = n
	}
}

// NewMemTangle creates an empty in-memory ledger.
func NewMemTangle(opts ...MemTangleOption) *MemTangle {
	m := &MemTangle{
		network:     Devnet,
		messages:    make(map[MessageID]Message),
		indexes:     make(map[string][]MessageID),
		subscribers: make(map[string][]chan Message),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// NewPersistentMemTangle creates a ledger persisted in the provider, loading existing messages.
func NewPersistentMemTangle(provider storage.Provider, opts ...MemTangleOption) (*MemTangle, error) {
	store, err := provider.OpenStore(memTangleStore)
	if err != nil {
		return nil, fmt.Errorf("open tangle store: %w", err)
	}

	m := NewMemTangle(opts...)
	m.store = store

	iter, err := store.Query(indexTag)
	if err != nil {
		return nil, fmt.Errorf("query tangle store: %w", err)
	}

	defer storage.Close(iter, logger)

	var stored []storedMessage

	for {
		ok, err := iter.Next()
		if err != nil {
			return nil, err
		}

		if !ok {
			break
		}

		value, err := iter.Value()
		if err != nil {
			return nil, err
		}

		var sm storedMessage
		if err := json.Unmarshal(value, &sm); err != nil {
			return nil, fmt.Errorf("decode stored message: %w", err)
		}

		stored = append(stored, sm)
	}

	sort.Slice(stored, func(i, j int) bool { return stored[i].Seq < stored[j].Seq })

	for _, sm := range stored {
		m.messages[sm.Message.ID] = sm.Message
		m.indexes[sm.Message.Index] = append(m.indexes[sm.Message.Index], sm.Message.ID)

		if sm.Seq >= m.seq {
			m.seq = sm.Seq + 1
		}
	}

	logger.Infof("loaded %d messages from the tangle store", len(stored))

	return m, nil
}

type storedMessage struct {
	Seq     uint64  `json:"seq"`
	Message Message `json:"message"`
}

// Network returns the network reported by the ledger.
func (m *MemTangle) Network() Network {
	return m.network
}

// PublishMessage stores the message and notifies subscribers of index.
func (m *MemTangle) PublishMessage(ctx context.Context, index string, payload []byte) (MessageID, error) {
	if err := ctx.Err(); err != nil {
		return NullMessageID, err
	}

	if index == "" {
		return NullMessageID, errors.New("index is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seq := m.seq

	var buf []byte

	buf = append(buf, index...)
	buf = append(buf, payload...)
	buf = append(buf, byte(seq>>56), byte(seq>>48), byte(seq>>40), byte(seq>>32), //nolint:gomnd
		byte(seq>>24), byte(seq>>16), byte(seq>>8), byte(seq)) //nolint:gomnd

	id := MessageID(blake2b.Sum256(buf))
	msg := Message{ID: id, Index: index, Payload: append([]byte(nil), payload...)}

	if m.store != nil {
		value, err := json.Marshal(storedMessage{Seq: seq, Message: msg})
		if err != nil {
			return NullMessageID, err
		}

		err = m.store.Put(id.String(), value, storage.Tag{Name: indexTag, Value: EncodeIndex(index)})
		if err != nil {
			return NullMessageID, fmt.Errorf("persist message: %w", err)
		}
	}

	m.seq++
	m.messages[id] = msg
	m.indexes[index] = append(m.indexes[index], id)

	for _, ch := range m.subscribers[index] {
		select {
		case ch <- msg:
		default:
			logger.Warnf("dropping message %s for a slow subscriber of index %s", id, index)
		}
	}

	return id, nil
}

// ReadMessages returns the messages published under index in publication order.
func (m *MemTangle) ReadMessages(ctx context.Context, index string) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.indexes[index]
	out := make([]Message, 0, len(ids))

	for _, id := range ids {
		out = append(out, m.messages[id])
	}

	return out, nil
}

// MessageIDs returns the ids published under index.
func (m *MemTangle) MessageIDs(index string) []MessageID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]MessageID(nil), m.indexes[index]...)
}

// Message returns the message id.
func (m *MemTangle) Message(id MessageID) (Message, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msg, ok := m.messages[id]

	return msg, ok
}

// Subscribe returns a channel receiving messages published under index from now on, and a
// function cancelling the subscription.
func (m *MemTangle) Subscribe(index string, buffer int) (<-chan Message, func()) {
	ch := make(chan Message, buffer)

	m.mu.Lock()
	m.subscribers[index] = append(m.subscribers[index], ch)
	m.mu.Unlock()

	var once sync.Once

	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()

			subs := m.subscribers[index]
			for i, s := range subs {
				if s == ch {
					m.subscribers[index] = append(subs[:i], subs[i+1:]...)

					break
				}
			}

			if len(m.subscribers[index]) == 0 {
				delete(m.subscribers, index)
			}

			close(ch)
		})
	}

	return ch, cancel
}
