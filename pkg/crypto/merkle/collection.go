/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package merkle

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/nanderstabel/identity/pkg/doc/signature"
)

const (
	// MaxKeys is the largest supported key collection.
	MaxKeys = 4096

	// SignatureTagEd25519 identifies Ed25519 keys in collection method data.
	SignatureTagEd25519 byte = 0x00
	// DigestTagSHA256 identifies SHA-256 digests in collection method data.
	DigestTagSHA256 byte = 0x00
)

// ErrInvalidCollection is returned for unsupported collection sizes or malformed method data.
var ErrInvalidCollection = errors.New("invalid key collection")

// KeyCollection is a power of two sized set of Ed25519 key pairs committed to by a Merkle root.
type KeyCollection struct {
	keys []*signature.KeyPair
}

// NewKeyCollection generates count key pairs.
func NewKeyCollection(count int) (*KeyCollection, error) {
	if count <= 0 || count > MaxKeys || count&(count-1) != 0 {
		return nil, fmt.Errorf("%w: size %d must be a power of two no larger than %d",
			ErrInvalidCollection, count, MaxKeys)
	}

	keys := make([]*signature.KeyPair, count)

	for i := range keys {
		kp, err := signature.NewEd25519KeyPair()
		if err != nil {
			return nil, err
		}

		keys[i] = kp
	}

	return &KeyCollection{keys: keys}, nil
}

// Len returns the number of keys.
func (c *KeyCollection) Len() int { return len(c.keys) }

// Key returns the key pair at index.
func (c *KeyCollection) Key(index int) (*signature.KeyPair, error) {
	if index < 0 || index >= len(c.keys) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(c.keys))
	}

	return c.keys[index], nil
}

func (c *KeyCollection) leaves() []Hash {
	leaves := make([]Hash, len(c.keys))
	for i, k := range c.keys {
		leaves[i] = HashLeaf(k.Public)
	}

	return leaves
}

// MerkleRoot returns the root over the public keys.
func (c *KeyCollection) MerkleRoot() Hash {
	root, _ := Root(c.leaves()) //nolint:errcheck // collections are never empty

	return root
}

// MerkleProof returns the inclusion proof of the public key at index.
func (c *KeyCollection) MerkleProof(index int) (*Proof, error) {
	return NewProof(c.leaves(), index)
}

// MethodData encodes the collection as MerkleKeyCollection2021 key material:
// signature tag, digest tag, root.
func (c *KeyCollection) MethodData() []byte {
	root := c.MerkleRoot()

	return append([]byte{SignatureTagEd25519, DigestTagSHA256}, root[:]...)
}

// DecodeMethodData parses MerkleKeyCollection2021 key material and returns the root.
func DecodeMethodData(data []byte) (Hash, error) {
	if len(data) != 2+HashSize {
		return Hash{}, fmt.Errorf("%w: method data length %d", ErrInvalidCollection, len(data))
	}

	if data[0] != SignatureTagEd25519 || data[1] != DigestTagSHA256 {
		return Hash{}, fmt.Errorf("%w: unsupported tags %d/%d", ErrInvalidCollection, data[0], data[1])
	}

	var root Hash

	copy(root[:], data[2:])

	return root, nil
}

// VerifyMember reports whether public is committed to by the collection root through proof.
func VerifyMember(root Hash, public ed25519.PublicKey, proof *Proof) bool {
	return proof.Verify(root, HashLeaf(public))
}
