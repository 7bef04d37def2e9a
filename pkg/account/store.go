/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package account

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nanderstabel/identity/pkg/iota/document"
	"github.com/nanderstabel/identity/spi/storage"
)

const (
	// NameSpace for the account state store.
	NameSpace = "account"

	identityTag     = "identity"
	stateKeyPattern = "state_%s"
	nameKeyPattern  = "name_%s"
	didKeyPattern   = "did_%s"
)

// Record is the stored form of an account identity.
type Record struct {
	Name  string         `json:"name"`
	State *IdentityState `json:"state"`
	// Published is the last published document with every published diff applied.
	Published *document.MetaDocument `json:"published,omitempty"`
	// Signer is the capability invocation key of Published.
	Signer *KeyLocation `json:"signer,omitempty"`
}

// Store persists account records, indexed by name and DID.
type Store struct {
	store storage.Store
}

// NewStore opens the account store of provider.
func NewStore(provider storage.Provider) (*Store, error) {
	store, err := provider.OpenStore(NameSpace)
	if err != nil {
		return nil, fmt.Errorf("failed to open account store: %w", err)
	}

	return &Store{store: store}, nil
}

// Save writes every record in one batch, replacing the name and DID index entries of each.
func (s *Store) Save(records ...*Record) error {
	var ops []storage.Operation

	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal identity %s: %w", r.State.ID, err)
		}

		id := r.State.ID.String()

		ops = append(ops,
			storage.Operation{
				Key:   fmt.Sprintf(stateKeyPattern, id),
				Value: data,
				Tags:  []storage.Tag{{Name: identityTag, Value: id}},
			},
			storage.Operation{Key: fmt.Sprintf(nameKeyPattern, r.Name), Value: []byte(id)},
		)

		if r.State.DID != nil {
			ops = append(ops, storage.Operation{Key: fmt.Sprintf(didKeyPattern, r.State.DID), Value: []byte(id)})
		}
	}

	if len(ops) == 0 {
		return nil
	}

	if err := s.store.Batch(ops); err != nil {
		return fmt.Errorf("failed to save identities: %w", err)
	}

	return nil
}

// Get returns the record of id.
func (s *Store) Get(id uuid.UUID) (*Record, error) {
	data, err := s.store.Get(fmt.Sprintf(stateKeyPattern, id))
	if errors.Is(err, storage.ErrDataNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrIdentityNotFound, id)
	}

	if err != nil {
		return nil, err
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal identity %s: %w", id, err)
	}

	if r.State == nil {
		return nil, fmt.Errorf("identity %s has no state", id)
	}

	if r.State.Methods == nil {
		r.State.Methods = Methods{}
	}

	return &r, nil
}

// Lookup returns the id indexed by name or DID.
func (s *Store) Lookup(key string) (uuid.UUID, error) {
	for _, pattern := range []string{nameKeyPattern, didKeyPattern} {
		raw, err := s.store.Get(fmt.Sprintf(pattern, key))
		if errors.Is(err, storage.ErrDataNotFound) {
			continue
		}

		if err != nil {
			return uuid.Nil, err
		}

		return uuid.ParseBytes(raw)
	}

	return uuid.Nil, fmt.Errorf("%w: %s", ErrIdentityNotFound, key)
}

// All returns every stored record.
func (s *Store) All() ([]*Record, error) {
	iter, err := s.store.Query(identityTag)
	if err != nil {
		return nil, err
	}

	defer storage.Close(iter, logger)

	var records []*Record

	for {
		more, err := iter.Next()
		if err != nil {
			return nil, err
		}

		if !more {
			break
		}

		data, err := iter.Value()
		if err != nil {
			return nil, err
		}

		var r Record
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal identity record: %w", err)
		}

		if r.State.Methods == nil {
			r.State.Methods = Methods{}
		}

		records = append(records, &r)
	}

	return records, nil
}

// Delete removes the record and its index entries.
func (s *Store) Delete(r *Record) error {
	ops := []storage.Operation{
		{Key: fmt.Sprintf(stateKeyPattern, r.State.ID)},
		{Key: fmt.Sprintf(nameKeyPattern, r.Name)},
	}

	if r.State.DID != nil {
		ops = append(ops, storage.Operation{Key: fmt.Sprintf(didKeyPattern, r.State.DID)})
	}

	return s.store.Batch(ops)
}
