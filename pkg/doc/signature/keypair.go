/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package signature

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// KeyType identifies the algorithm of a KeyPair.
type KeyType string

// Ed25519 is the only key type used for document signing.
const Ed25519 KeyType = "ed25519"

// KeyPair is an Ed25519 key pair.
type KeyPair struct {
	Type    KeyType
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// NewEd25519KeyPair generates a random key pair.
func NewEd25519KeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}

	return &KeyPair{Type: Ed25519, Public: pub, Private: priv}, nil
}

// KeyPairFromPrivate builds a key pair from a 32 byte seed or a 64 byte private key.
func KeyPairFromPrivate(private []byte) (*KeyPair, error) {
	var priv ed25519.PrivateKey

	switch len(private) {
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(private)
	case ed25519.PrivateKeySize:
		priv = ed25519.NewKeyFromSeed(private[:ed25519.SeedSize])
	default:
		return nil, fmt.Errorf("%w: ed25519 private key must be %d or %d bytes",
			ErrInvalidKey, ed25519.SeedSize, ed25519.PrivateKeySize)
	}

	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected public key type", ErrInvalidKey)
	}

	return &KeyPair{Type: Ed25519, Public: pub, Private: priv}, nil
}

// Sign signs message with the private key.
func (kp *KeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(kp.Private, message)
}
