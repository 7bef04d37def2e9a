/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package signature defines embedded proofs and the JcsEd25519Signature2020 suite used to sign
// DID documents, diffs and credentials.
package signature

import "errors"

var (
	// ErrMissingSignature is returned when verifying data without a proof.
	ErrMissingSignature = errors.New("missing signature")
	// ErrUnsupportedType is returned when a proof has an unknown signature type.
	ErrUnsupportedType = errors.New("unsupported signature type")
	// ErrInvalidKey is returned for malformed key material.
	ErrInvalidKey = errors.New("invalid key")
	// ErrInvalidSignature is returned when a signature does not verify.
	ErrInvalidSignature = errors.New("invalid signature")
)

// Signature is an embedded proof.
type Signature struct {
	Type               string `json:"type"`
	VerificationMethod string `json:"verificationMethod"`
	SignatureValue     string `json:"signatureValue,omitempty"`
}

// New creates a proof of sigType without a value.
func New(sigType, method string) *Signature {
	return &Signature{Type: sigType, VerificationMethod: method}
}

// Clone returns a copy of s. A nil signature clones to nil.
func (s *Signature) Clone() *Signature {
	if s == nil {
		return nil
	}

	c := *s

	return &c
}

// Signable is implemented by data carrying an optional embedded proof.
type Signable interface {
	// Signature returns the proof, or nil if the data is unsigned.
	Signature() *Signature
	// SetSignature attaches a proof, replacing any existing one.
	SetSignature(*Signature)
}
