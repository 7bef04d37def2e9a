/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package storage defines the key-value storage SPI used for account state, key material and the
// development Tangle ledger.
package storage

import (
	"errors"
	"fmt"

	spi "github.com/nanderstabel/identity/spi/log"
)

var (
	// ErrStoreNotFound is returned when a store is not found.
	ErrStoreNotFound = errors.New("store not found")
	// ErrDataNotFound is returned when data is not found.
	ErrDataNotFound = errors.New("data not found")
	// ErrDuplicateKey is returned when a call is made to Store.Batch using the IsNewKey optimization, but a key is
	// found to already exist.
	ErrDuplicateKey = errors.New("duplicate key")
)

// Tag represents a Name + Value pair that can be associated with a key + value pair for querying later.
type Tag struct {
	// Name can be used to tag a given key + value pair as belonging to some sort of common
	// group. Example: Identifying a key+value pair as being an identity state.
	Name string `json:"name,omitempty"`
	// Value can be used to indicate some optional metadata associated with a tag name.
	// Example: The name of the identity.
	Value string `json:"value,omitempty"`
}

// PutOptions represents options for a Put Operation.
type PutOptions struct {
	// IsNewKey indicates that the key is not expected to exist yet. Stores reject the write with
	// ErrDuplicateKey if it does.
	IsNewKey bool `json:"isNewKey,omitempty"`
}

// Operation represents an operation to be performed in the Batch method.
type Operation struct {
	Key        string      `json:"key,omitempty"`
	Value      []byte      `json:"value,omitempty"` // A nil value will result in a delete operation.
	Tags       []Tag       `json:"tags,omitempty"`
	PutOptions *PutOptions `json:"putOptions,omitempty"`
}

// Provider represents a storage provider.
type Provider interface {
	// OpenStore opens a store with the given name and returns a handle.
	// If the store has never been opened before, then it is created.
	// Store names are not case-sensitive.
	OpenStore(name string) (Store, error)

	// GetOpenStores returns all Stores currently open in the Provider.
	GetOpenStores() []Store

	// Close closes all stores created under this store provider.
	Close() error
}

// Store represents a storage database.
type Store interface {
	// Put stores the key + value pair along with the (optional) tags.
	// If the key already exists in the database, then the value and tags will be overwritten silently.
	Put(key string, value []byte, tags ...Tag) error

	// Get fetches the value associated with the given key.
	// If key cannot be found, then an error wrapping ErrDataNotFound will be returned.
	Get(key string) ([]byte, error)

	// GetTags fetches all tags associated with the given key.
	GetTags(key string) ([]Tag, error)

	// Query returns all data that satisfies the expression. Expression format: TagName:TagValue.
	// If TagValue is not provided, then all data associated with the TagName will be returned.
	Query(expression string) (Iterator, error)

	// Delete deletes the key + value pair (and all tags) associated with key.
	Delete(key string) error

	// Batch performs multiple Put and/or Delete operations in order.
	Batch(operations []Operation) error

	// Close closes this store object.
	Close() error
}

// Iterator allows for iteration over a collection of entries in a store.
type Iterator interface {
	// Next moves the pointer to the next entry in the iterator. It returns false if there are no more entries.
	Next() (bool, error)

	// Key returns the key of the current entry.
	Key() (string, error)

	// Value returns the value of the current entry.
	Value() ([]byte, error)

	// Tags returns the tags associated with the current entry.
	Tags() ([]Tag, error)

	// Close closes this iterator object, freeing resources.
	Close() error
}

// ParseQueryExpression splits a TagName[:TagValue] expression.
func ParseQueryExpression(expression string) (name, value string, hasValue bool, err error) {
	if expression == "" {
		return "", "", false, errors.New("invalid expression format: it must be in the following format: " +
			"TagName:TagValue or TagName")
	}

	for i := 0; i < len(expression); i++ {
		if expression[i] == ':' {
			return expression[:i], expression[i+1:], true, nil
		}
	}

	return expression, "", false, nil
}

// Close closes iterator and logs a failure to do so.
func Close(iterator Iterator, logger spi.Logger) {
	if errClose := iterator.Close(); errClose != nil && logger != nil {
		logger.Errorf("failed to close iterator: %s", errClose.Error())
	}
}

// MatchesTags reports whether one of tags satisfies the parsed query expression.
func MatchesTags(tags []Tag, name, value string, hasValue bool) bool {
	for _, tag := range tags {
		if tag.Name == name && (!hasValue || tag.Value == value) {
			return true
		}
	}

	return false
}

// WrapNotFound returns an error wrapping ErrDataNotFound for key.
func WrapNotFound(key string) error {
	return fmt.Errorf("%q: %w", key, ErrDataNotFound)
}
