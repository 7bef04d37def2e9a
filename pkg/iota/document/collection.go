/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package document

import (
	"crypto/ed25519"
	"fmt"

	"github.com/nanderstabel/identity/pkg/crypto/merkle"
	diddoc "github.com/nanderstabel/identity/pkg/doc/did"
	"github.com/nanderstabel/identity/pkg/iota/did"
)

// NewCollectionMethod returns a MerkleKeyCollection2021 method committing to every key of c.
func NewCollectionMethod(id did.IotaDID, c *merkle.KeyCollection,
	fragment string) (*diddoc.VerificationMethod, error) {
	return NewMethod(id, c.MethodData(), diddoc.MerkleKeyCollection2021, fragment)
}

// VerifyCollectionMember reports whether public belongs to the key collection of the method
// matching query.
func (d *IotaDocument) VerifyCollectionMember(query string, public ed25519.PublicKey,
	proof *merkle.Proof) (bool, error) {
	m, err := d.ResolveMethod(query)
	if err != nil {
		return false, err
	}

	if m.Type != diddoc.MerkleKeyCollection2021 {
		return false, fmt.Errorf("%w: %s is not a key collection", merkle.ErrInvalidCollection, m.ID)
	}

	data, err := m.Data.Decode()
	if err != nil {
		return false, err
	}

	root, err := merkle.DecodeMethodData(data)
	if err != nil {
		return false, err
	}

	return merkle.VerifyMember(root, public, proof), nil
}
