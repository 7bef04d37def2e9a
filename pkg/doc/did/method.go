/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/multiformats/go-multibase"
)

const (
	jsonldID                 = "id"
	jsonldType               = "type"
	jsonldController         = "controller"
	jsonldPublicKeyMultibase = "publicKeyMultibase"
	jsonldPublicKeyBase58    = "publicKeyBase58"
)

// MethodType is the type of a verification method.
type MethodType string

const (
	// Ed25519VerificationKey2018 is an Ed25519 public key.
	Ed25519VerificationKey2018 MethodType = "Ed25519VerificationKey2018"
	// MerkleKeyCollection2021 is the Merkle root of a collection of public keys.
	MerkleKeyCollection2021 MethodType = "MerkleKeyCollection2021"
)

// ErrMethodData is returned when verification method key material cannot be decoded.
var ErrMethodData = errors.New("invalid method data")

// MethodData is the encoded key material of a verification method. Exactly one field is set.
type MethodData struct {
	PublicKeyMultibase string
	PublicKeyBase58    string
}

// NewMultibaseData encodes data as base58btc multibase.
func NewMultibaseData(data []byte) MethodData {
	// base58btc is always a supported encoding, the error cannot occur
	encoded, _ := multibase.Encode(multibase.Base58BTC, data) //nolint:errcheck

	return MethodData{PublicKeyMultibase: encoded}
}

// NewBase58Data encodes data as base58.
func NewBase58Data(data []byte) MethodData {
	return MethodData{PublicKeyBase58: base58.Encode(data)}
}

// Decode returns the raw key material.
func (d MethodData) Decode() ([]byte, error) {
	switch {
	case d.PublicKeyMultibase != "":
		_, data, err := multibase.Decode(d.PublicKeyMultibase)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMethodData, err.Error())
		}

		return data, nil
	case d.PublicKeyBase58 != "":
		data := base58.Decode(d.PublicKeyBase58)
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: bad base58 value", ErrMethodData)
		}

		return data, nil
	default:
		return nil, fmt.Errorf("%w: no key material", ErrMethodData)
	}
}

// VerificationMethod is a DID document verification method.
type VerificationMethod struct {
	ID         URL
	Controller DID
	Type       MethodType
	Data       MethodData
	Properties Properties
}

// Clone returns a deep copy of m.
func (m *VerificationMethod) Clone() *VerificationMethod {
	c := *m
	c.Properties = m.Properties.clone()

	return &c
}

// MarshalJSON implements json.Marshaler.
func (m VerificationMethod) MarshalJSON() ([]byte, error) {
	raw := map[string]interface{}{
		jsonldID:         m.ID.String(),
		jsonldController: m.Controller.String(),
		jsonldType:       string(m.Type),
	}

	if m.Data.PublicKeyMultibase != "" {
		raw[jsonldPublicKeyMultibase] = m.Data.PublicKeyMultibase
	}

	if m.Data.PublicKeyBase58 != "" {
		raw[jsonldPublicKeyBase58] = m.Data.PublicKeyBase58
	}

	m.Properties.merge(raw)

	return json.Marshal(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *VerificationMethod) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}

	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal verification method: %w", err)
	}

	id, err := ParseURL(stringEntry(raw[jsonldID]))
	if err != nil {
		return fmt.Errorf("verification method id: %w", err)
	}

	controller, err := Parse(stringEntry(raw[jsonldController]))
	if err != nil {
		return fmt.Errorf("verification method controller: %w", err)
	}

	methodType := stringEntry(raw[jsonldType])
	if methodType == "" {
		return errors.New("verification method type is required")
	}

	result := VerificationMethod{
		ID:         *id,
		Controller: *controller,
		Type:       MethodType(methodType),
		Data: MethodData{
			PublicKeyMultibase: stringEntry(raw[jsonldPublicKeyMultibase]),
			PublicKeyBase58:    stringEntry(raw[jsonldPublicKeyBase58]),
		},
	}

	if result.Data.PublicKeyMultibase == "" && result.Data.PublicKeyBase58 == "" {
		return fmt.Errorf("%w: verification method %s has no key material", ErrMethodData, id)
	}

	result.Properties = extract(raw, jsonldID, jsonldController, jsonldType,
		jsonldPublicKeyMultibase, jsonldPublicKeyBase58)

	*m = result

	return nil
}

// MethodRef is a verification relationship entry: either an embedded method or a reference to one.
type MethodRef struct {
	Embedded  *VerificationMethod
	Reference *URL
}

// EmbedRef returns a MethodRef embedding m.
func EmbedRef(m *VerificationMethod) MethodRef {
	return MethodRef{Embedded: m}
}

// ReferTo returns a MethodRef referring to u.
func ReferTo(u URL) MethodRef {
	return MethodRef{Reference: &u}
}

// ID returns the id of the referenced method.
func (r MethodRef) ID() URL {
	if r.Embedded != nil {
		return r.Embedded.ID
	}

	if r.Reference != nil {
		return *r.Reference
	}

	return URL{}
}

// IsReference reports whether r refers to a method by id.
func (r MethodRef) IsReference() bool {
	return r.Embedded == nil
}

// MarshalJSON implements json.Marshaler.
func (r MethodRef) MarshalJSON() ([]byte, error) {
	if r.Embedded != nil {
		return json.Marshal(r.Embedded)
	}

	if r.Reference != nil {
		return json.Marshal(r.Reference.String())
	}

	return nil, errors.New("empty method reference")
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *MethodRef) UnmarshalJSON(data []byte) error {
	var ref string

	if err := json.Unmarshal(data, &ref); err == nil {
		u, err := ParseURL(ref)
		if err != nil {
			return err
		}

		*r = MethodRef{Reference: u}

		return nil
	}

	var m VerificationMethod

	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	*r = MethodRef{Embedded: &m}

	return nil
}

func stringEntry(entry interface{}) string {
	s, _ := entry.(string) //nolint:errcheck

	return s
}
