/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package account

import "github.com/nanderstabel/identity/pkg/doc/signature"

// IdentitySetup configures a new identity.
type IdentitySetup struct {
	KeyType signature.KeyType `json:"keyType"`
	Name    string            `json:"name,omitempty"`
	Network string            `json:"network,omitempty"`
}

// NewIdentitySetup returns the default setup: an Ed25519 key, a generated name and the account
// network.
func NewIdentitySetup() IdentitySetup {
	return IdentitySetup{KeyType: signature.Ed25519}
}

// WithKeyType sets the type of the initial capability invocation key.
func (s IdentitySetup) WithKeyType(t signature.KeyType) IdentitySetup {
	s.KeyType = t

	return s
}

// WithName sets the identity name.
func (s IdentitySetup) WithName(name string) IdentitySetup {
	s.Name = name

	return s
}

// WithNetwork sets the network of the identity DID.
func (s IdentitySetup) WithNetwork(network string) IdentitySetup {
	s.Network = network

	return s
}
