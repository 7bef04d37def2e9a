/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package signature

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/gowebpki/jcs"
)

// JcsEd25519Signature2020 is the proof type of the JCS Ed25519 suite.
const JcsEd25519Signature2020 = "JcsEd25519Signature2020"

// Canonicalize returns the JCS (RFC 8785) form of the JSON encoding of data.
func Canonicalize(data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal data for canonicalization: %w", err)
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize data: %w", err)
	}

	return canonical, nil
}

// Sign attaches a JcsEd25519Signature2020 proof created with privateKey for the verification
// method methodID. The signed bytes are the canonical JSON of data with the proof value omitted.
func Sign(data Signable, methodID string, privateKey ed25519.PrivateKey) error {
	if len(privateKey) != ed25519.PrivateKeySize {
		return fmt.Errorf("%w: ed25519 private key must be %d bytes", ErrInvalidKey, ed25519.PrivateKeySize)
	}

	data.SetSignature(New(JcsEd25519Signature2020, methodID))

	message, err := Canonicalize(data)
	if err != nil {
		data.SetSignature(nil)

		return err
	}

	sig := data.Signature().Clone()
	sig.SignatureValue = base58.Encode(ed25519.Sign(privateKey, message))
	data.SetSignature(sig)

	return nil
}

// Verify checks the JcsEd25519Signature2020 proof of data against publicKey.
func Verify(data Signable, publicKey ed25519.PublicKey) error {
	sig := data.Signature()
	if sig == nil {
		return ErrMissingSignature
	}

	if sig.Type != JcsEd25519Signature2020 {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, sig.Type)
	}

	// ed25519 panics if key size is wrong
	if len(publicKey) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: ed25519 public key must be %d bytes", ErrInvalidKey, ed25519.PublicKeySize)
	}

	value := base58.Decode(sig.SignatureValue)
	if len(value) != ed25519.SignatureSize {
		return fmt.Errorf("%w: malformed signature value", ErrInvalidSignature)
	}

	hidden := sig.Clone()
	hidden.SignatureValue = ""

	data.SetSignature(hidden)
	message, err := Canonicalize(data)
	data.SetSignature(sig)

	if err != nil {
		return err
	}

	if !ed25519.Verify(publicKey, message, value) {
		return ErrInvalidSignature
	}

	return nil
}
