/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package leveldb is a LevelDB implementation of the storage SPI. Each store lives in its own
// database directory under the provider path.
package leveldb

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	dberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"go.uber.org/multierr"

	"github.com/nanderstabel/identity/spi/storage"
)

const (
	pathPattern = "%s-%s"

	invalidTagName  = `"%s" is an invalid tag name since it contains one or more ':' characters`
	invalidTagValue = `"%s" is an invalid tag value since it contains one or more ':' characters`
)

// Provider is a LevelDB implementation of the storage.Provider interface.
type Provider struct {
	dbPath string
	dbs    map[string]*store
	lock   sync.RWMutex
}

type closer func(storeName string)

type dbEntry struct {
	Value []byte        `json:"value,omitempty"`
	Tags  []storage.Tag `json:"tags,omitempty"`
}

// NewProvider instantiates Provider.
func NewProvider(dbPath string) *Provider {
	return &Provider{dbs: make(map[string]*store), dbPath: dbPath}
}

// OpenStore opens and returns a store for given name space.
func (p *Provider) OpenStore(name string) (storage.Store, error) {
	if name == "" {
		return nil, errors.New("store name cannot be blank")
	}

	name = strings.ToLower(name)

	p.lock.Lock()
	defer p.lock.Unlock()

	if s, ok := p.dbs[name]; ok {
		return s, nil
	}

	db, err := leveldb.OpenFile(fmt.Sprintf(pathPattern, p.dbPath, name), nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb store %q: %w", name, err)
	}

	s := &store{db: db, name: name, close: p.removeStore}
	p.dbs[name] = s

	return s, nil
}

// GetOpenStores returns all Stores currently open in the Provider.
func (p *Provider) GetOpenStores() []storage.Store {
	p.lock.RLock()
	defer p.lock.RUnlock()

	openStores := make([]storage.Store, 0, len(p.dbs))
	for _, db := range p.dbs {
		openStores = append(openStores, db)
	}

	return openStores
}

// Close closes all stores created under this store provider.
func (p *Provider) Close() error {
	p.lock.RLock()

	snapshot := make([]*store, 0, len(p.dbs))
	for _, s := range p.dbs {
		snapshot = append(snapshot, s)
	}
	p.lock.RUnlock()

	var errs error

	for _, s := range snapshot {
		if err := s.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf(`failed to close open store with name "%s": %w`, s.name, err))
		}
	}

	return errs
}

func (p *Provider) removeStore(name string) {
	p.lock.Lock()
	defer p.lock.Unlock()

	delete(p.dbs, name)
}

type store struct {
	db    *leveldb.DB
	name  string
	close closer
}

// Put stores the key and the record.
func (s *store) Put(key string, value []byte, tags ...storage.Tag) error {
	entryBytes, err := newEntry(key, value, tags)
	if err != nil {
		return err
	}

	return s.db.Put([]byte(key), entryBytes, nil)
}

func newEntry(key string, value []byte, tags []storage.Tag) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be blank")
	}

	if value == nil {
		return nil, errors.New("value cannot be nil")
	}

	for _, tag := range tags {
		if strings.Contains(tag.Name, ":") {
			return nil, fmt.Errorf(invalidTagName, tag.Name)
		}

		if strings.Contains(tag.Value, ":") {
			return nil, fmt.Errorf(invalidTagValue, tag.Value)
		}
	}

	entryBytes, err := json.Marshal(dbEntry{Value: value, Tags: tags})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal new DB entry: %w", err)
	}

	return entryBytes, nil
}

// Get fetches the record based on key.
func (s *store) Get(k string) ([]byte, error) {
	entry, err := s.getDBEntry(k)
	if err != nil {
		return nil, fmt.Errorf("failed to get DB entry: %w", err)
	}

	return entry.Value, nil
}

func (s *store) GetTags(key string) ([]storage.Tag, error) {
	entry, err := s.getDBEntry(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get DB entry: %w", err)
	}

	return entry.Tags, nil
}

// Query scans the store and returns the entries with a tag matching expression, in key order.
func (s *store) Query(expression string) (storage.Iterator, error) {
	name, value, hasValue, err := storage.ParseQueryExpression(expression)
	if err != nil {
		return nil, err
	}

	dbIter := s.db.NewIterator(nil, nil)
	defer dbIter.Release()

	it := &iterator{index: -1}

	for dbIter.Next() {
		var entry dbEntry

		if err := json.Unmarshal(dbIter.Value(), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal DB entry: %w", err)
		}

		if storage.MatchesTags(entry.Tags, name, value, hasValue) {
			it.keys = append(it.keys, string(dbIter.Key()))
			it.entries = append(it.entries, entry)
		}
	}

	if err := dbIter.Error(); err != nil {
		return nil, fmt.Errorf("failed to scan store %q: %w", s.name, err)
	}

	return it, nil
}

// Delete will delete record with k key.
func (s *store) Delete(key string) error {
	if key == "" {
		return errors.New("key cannot be blank")
	}

	if err := s.db.Delete([]byte(key), nil); err != nil {
		return fmt.Errorf("failed to delete from underlying database: %w", err)
	}

	return nil
}

// Batch applies operations atomically through a LevelDB write batch.
func (s *store) Batch(operations []storage.Operation) error {
	if len(operations) == 0 {
		return errors.New("batch requires at least one operation")
	}

	batch := new(leveldb.Batch)

	for _, op := range operations {
		if op.Value == nil {
			if op.Key == "" {
				return errors.New("key cannot be blank")
			}

			batch.Delete([]byte(op.Key))

			continue
		}

		if op.PutOptions != nil && op.PutOptions.IsNewKey {
			exists, err := s.db.Has([]byte(op.Key), nil)
			if err != nil {
				return fmt.Errorf("failed to check key %q: %w", op.Key, err)
			}

			if exists {
				return fmt.Errorf("%q: %w", op.Key, storage.ErrDuplicateKey)
			}
		}

		entryBytes, err := newEntry(op.Key, op.Value, op.Tags)
		if err != nil {
			return err
		}

		batch.Put([]byte(op.Key), entryBytes)
	}

	return s.db.Write(batch, nil)
}

func (s *store) Close() error {
	s.close(s.name)

	err := s.db.Close()
	if err != nil && !errors.Is(err, leveldb.ErrClosed) {
		return err
	}

	return nil
}

func (s *store) getDBEntry(key string) (dbEntry, error) {
	raw, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, dberrors.ErrNotFound) {
			return dbEntry{}, storage.WrapNotFound(key)
		}

		return dbEntry{}, err
	}

	var entry dbEntry

	if err := json.Unmarshal(raw, &entry); err != nil {
		return dbEntry{}, fmt.Errorf("failed to unmarshal DB entry: %w", err)
	}

	return entry, nil
}

type iterator struct {
	keys    []string
	entries []dbEntry
	index   int
}

func (i *iterator) Next() (bool, error) {
	i.index++

	return i.index < len(i.keys), nil
}

func (i *iterator) current() (*dbEntry, error) {
	if i.index < 0 || i.index >= len(i.keys) {
		return nil, errors.New("iterator is not positioned on an entry")
	}

	return &i.entries[i.index], nil
}

func (i *iterator) Key() (string, error) {
	if _, err := i.current(); err != nil {
		return "", err
	}

	return i.keys[i.index], nil
}

func (i *iterator) Value() ([]byte, error) {
	e, err := i.current()
	if err != nil {
		return nil, err
	}

	return e.Value, nil
}

func (i *iterator) Tags() ([]storage.Tag, error) {
	e, err := i.current()
	if err != nil {
		return nil, err
	}

	return e.Tags, nil
}

func (i *iterator) Close() error {
	return nil
}
