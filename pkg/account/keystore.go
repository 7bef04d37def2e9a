/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package account

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nanderstabel/identity/pkg/doc/signature"
	"github.com/nanderstabel/identity/spi/storage"
)

const (
	keyStoreName = "keystore"
	keyOwnerTag  = "identity"
)

// KeyStore manages the private keys of account identities.
type KeyStore interface {
	// Generate creates a key at location and returns its public key.
	Generate(id uuid.UUID, location KeyLocation) (ed25519.PublicKey, error)
	// PublicKey returns the public key at location.
	PublicKey(id uuid.UUID, location KeyLocation) (ed25519.PublicKey, error)
	// Sign signs data with the key at location, as the verification method methodID.
	Sign(id uuid.UUID, location KeyLocation, data signature.Signable, methodID string) error
	// Delete removes the key at location.
	Delete(id uuid.UUID, location KeyLocation) error
	// DeleteAll removes every key of the identity.
	DeleteAll(id uuid.UUID) error
}

// StorageKeyStore is a KeyStore persisting keys in a storage.Store, tagged by owner.
type StorageKeyStore struct {
	store storage.Store
}

// NewKeyStore opens the key store of provider.
func NewKeyStore(provider storage.Provider) (*StorageKeyStore, error) {
	store, err := provider.OpenStore(keyStoreName)
	if err != nil {
		return nil, fmt.Errorf("failed to open key store: %w", err)
	}

	return &StorageKeyStore{store: store}, nil
}

func keyID(id uuid.UUID, location KeyLocation) string {
	return id.String() + "/" + location.String()
}

// Generate creates a key at location. It fails if a key is already stored there.
func (k *StorageKeyStore) Generate(id uuid.UUID, location KeyLocation) (ed25519.PublicKey, error) {
	kp, err := signature.NewEd25519KeyPair()
	if err != nil {
		return nil, err
	}

	err = k.store.Batch([]storage.Operation{{
		Key:        keyID(id, location),
		Value:      kp.Private,
		Tags:       []storage.Tag{{Name: keyOwnerTag, Value: id.String()}},
		PutOptions: &storage.PutOptions{IsNewKey: true},
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to store key %s: %w", location, err)
	}

	return kp.Public, nil
}

func (k *StorageKeyStore) keyPair(id uuid.UUID, location KeyLocation) (*signature.KeyPair, error) {
	raw, err := k.store.Get(keyID(id, location))
	if errors.Is(err, storage.ErrDataNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, location)
	}

	if err != nil {
		return nil, err
	}

	return signature.KeyPairFromPrivate(raw)
}

// PublicKey returns the public key at location.
func (k *StorageKeyStore) PublicKey(id uuid.UUID, location KeyLocation) (ed25519.PublicKey, error) {
	kp, err := k.keyPair(id, location)
	if err != nil {
		return nil, err
	}

	return kp.Public, nil
}

// Sign signs data with the key at location.
func (k *StorageKeyStore) Sign(id uuid.UUID, location KeyLocation, data signature.Signable, methodID string) error {
	kp, err := k.keyPair(id, location)
	if err != nil {
		return err
	}

	return signature.Sign(data, methodID, kp.Private)
}

// Delete removes the key at location.
func (k *StorageKeyStore) Delete(id uuid.UUID, location KeyLocation) error {
	return k.store.Delete(keyID(id, location))
}

// DeleteAll removes every key of the identity.
func (k *StorageKeyStore) DeleteAll(id uuid.UUID) error {
	iter, err := k.store.Query(keyOwnerTag + ":" + id.String())
	if err != nil {
		return err
	}

	defer storage.Close(iter, logger)

	var ops []storage.Operation

	for {
		more, err := iter.Next()
		if err != nil {
			return err
		}

		if !more {
			break
		}

		key, err := iter.Key()
		if err != nil {
			return err
		}

		ops = append(ops, storage.Operation{Key: key})
	}

	if len(ops) == 0 {
		return nil
	}

	return k.store.Batch(ops)
}
