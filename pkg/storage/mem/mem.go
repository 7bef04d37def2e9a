/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mem is an in-memory implementation of the storage SPI.
package mem

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/nanderstabel/identity/spi/storage"
)

// Provider is an in-memory implementation of the storage.Provider interface.
type Provider struct {
	dbs  map[string]*memStore
	lock sync.RWMutex
}

type entry struct {
	value []byte
	tags  []storage.Tag
}

// NewProvider instantiates Provider.
func NewProvider() *Provider {
	return &Provider{dbs: make(map[string]*memStore)}
}

// OpenStore opens and returns a store for given name space.
func (p *Provider) OpenStore(name string) (storage.Store, error) {
	if name == "" {
		return nil, errors.New("store name cannot be blank")
	}

	name = strings.ToLower(name)

	p.lock.Lock()
	defer p.lock.Unlock()

	store, ok := p.dbs[name]
	if !ok {
		store = &memStore{name: name, db: make(map[string]entry)}
		p.dbs[name] = store
	}

	return store, nil
}

// GetOpenStores returns all Stores currently open in the Provider.
func (p *Provider) GetOpenStores() []storage.Store {
	p.lock.RLock()
	defer p.lock.RUnlock()

	stores := make([]storage.Store, 0, len(p.dbs))
	for _, s := range p.dbs {
		stores = append(stores, s)
	}

	return stores
}

// Close drops every store. Data does not survive closing the provider.
func (p *Provider) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.dbs = make(map[string]*memStore)

	return nil
}

type memStore struct {
	name string
	db   map[string]entry
	lock sync.RWMutex
}

// Put stores the key and the record.
func (m *memStore) Put(k string, v []byte, tags ...storage.Tag) error {
	if k == "" || v == nil {
		return errors.New("key and value are mandatory")
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	m.db[k] = entry{value: append([]byte(nil), v...), tags: append([]storage.Tag(nil), tags...)}

	return nil
}

// Get fetches the record based on key.
func (m *memStore) Get(k string) ([]byte, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	e, ok := m.db[k]
	if !ok {
		return nil, storage.WrapNotFound(k)
	}

	return append([]byte(nil), e.value...), nil
}

func (m *memStore) GetTags(k string) ([]storage.Tag, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	e, ok := m.db[k]
	if !ok {
		return nil, storage.WrapNotFound(k)
	}

	return append([]storage.Tag(nil), e.tags...), nil
}

func (m *memStore) Query(expression string) (storage.Iterator, error) {
	name, value, hasValue, err := storage.ParseQueryExpression(expression)
	if err != nil {
		return nil, err
	}

	m.lock.RLock()
	defer m.lock.RUnlock()

	it := &iterator{index: -1}

	for k, e := range m.db {
		if storage.MatchesTags(e.tags, name, value, hasValue) {
			it.keys = append(it.keys, k)
			it.entries = append(it.entries, e)
		}
	}

	sort.Sort(it)

	return it, nil
}

// Delete deletes the record for key. Deleting an unknown key is not an error.
func (m *memStore) Delete(k string) error {
	if k == "" {
		return errors.New("key is mandatory")
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.db, k)

	return nil
}

func (m *memStore) Batch(operations []storage.Operation) error {
	if len(operations) == 0 {
		return errors.New("batch requires at least one operation")
	}

	for _, op := range operations {
		if op.Value == nil {
			if err := m.Delete(op.Key); err != nil {
				return err
			}

			continue
		}

		if op.PutOptions != nil && op.PutOptions.IsNewKey {
			if _, err := m.Get(op.Key); err == nil {
				return storage.ErrDuplicateKey
			}
		}

		if err := m.Put(op.Key, op.Value, op.Tags...); err != nil {
			return err
		}
	}

	return nil
}

func (m *memStore) Close() error {
	return nil
}

type iterator struct {
	keys    []string
	entries []entry
	index   int
}

func (i *iterator) Len() int           { return len(i.keys) }
func (i *iterator) Less(a, b int) bool { return i.keys[a] < i.keys[b] }
func (i *iterator) Swap(a, b int) {
	i.keys[a], i.keys[b] = i.keys[b], i.keys[a]
	i.entries[a], i.entries[b] = i.entries[b], i.entries[a]
}

func (i *iterator) Next() (bool, error) {
	i.index++

	return i.index < len(i.keys), nil
}

func (i *iterator) Key() (string, error) {
	if i.index < 0 || i.index >= len(i.keys) {
		return "", errors.New("iterator is exhausted")
	}

	return i.keys[i.index], nil
}

func (i *iterator) Value() ([]byte, error) {
	if i.index < 0 || i.index >= len(i.keys) {
		return nil, errors.New("iterator is exhausted")
	}

	return i.entries[i.index].value, nil
}

func (i *iterator) Tags() ([]storage.Tag, error) {
	if i.index < 0 || i.index >= len(i.keys) {
		return nil, errors.New("iterator is exhausted")
	}

	return i.entries[i.index].tags, nil
}

func (i *iterator) Close() error {
	return nil
}
