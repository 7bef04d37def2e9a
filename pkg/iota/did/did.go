/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package did implements the "iota" DID method identifiers: did:iota[:network]:tag where tag is
// the base58 blake2b-256 hash of the initial authentication key.
package did

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/blake2b"

	diddoc "github.com/nanderstabel/identity/pkg/doc/did"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
)

// Method is the DID method name.
const Method = "iota"

const tagSize = blake2b.Size256

var (
	// ErrInvalidMethod is returned for DIDs of another method.
	ErrInvalidMethod = errors.New("invalid did method")
	// ErrInvalidMethodID is returned for malformed method specific ids.
	ErrInvalidMethodID = errors.New("invalid method id")
	// ErrInvalidController is returned when a method controller is not an IOTA DID.
	ErrInvalidController = errors.New("invalid method controller")
)

// IotaDID is a validated IOTA DID.
type IotaDID struct {
	network string // empty for the main network
	tag     string
}

// New creates the DID of the main network for publicKey.
func New(publicKey []byte) (*IotaDID, error) {
	return NewWithNetwork(publicKey, tangle.Mainnet)
}

// NewWithNetwork creates the DID of network for publicKey.
func NewWithNetwork(publicKey []byte, network tangle.Network) (*IotaDID, error) {
	if len(publicKey) == 0 {
		return nil, fmt.Errorf("%w: empty public key", ErrInvalidMethodID)
	}

	d := &IotaDID{tag: EncodeKey(publicKey)}
	if !network.IsMain() {
		d.network = network.Name()
	}

	return d, nil
}

// EncodeKey returns base58(blake2b-256(data)).
func EncodeKey(data []byte) string {
	sum := blake2b.Sum256(data)

	return base58.Encode(sum[:])
}

// Parse parses and validates an IOTA DID.
func Parse(s string) (*IotaDID, error) {
	core, err := diddoc.Parse(s)
	if err != nil {
		return nil, err
	}

	return FromCore(*core)
}

// FromCore validates a generic DID as an IOTA DID.
func FromCore(core diddoc.DID) (*IotaDID, error) {
	if core.Method != Method {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, core.Method)
	}

	segments := strings.Split(core.MethodSpecificID, ":")

	var d IotaDID

	switch len(segments) {
	case 1:
		d.tag = segments[0]
	case 2: //nolint:gomnd
		if !tangle.IsValidNetworkName(segments[0]) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidMethodID, tangle.ErrInvalidNetworkName)
		}

		d.network, d.tag = segments[0], segments[1]

		if d.network == tangle.Mainnet.Name() {
			d.network = ""
		}
	default:
		return nil, fmt.Errorf("%w: too many segments in %q", ErrInvalidMethodID, core.MethodSpecificID)
	}

	if len(base58.Decode(d.tag)) != tagSize {
		return nil, fmt.Errorf("%w: tag %q is not a base58 encoded %d byte hash", ErrInvalidMethodID, d.tag, tagSize)
	}

	return &d, nil
}

// IsValid reports whether s is an IOTA DID.
func IsValid(s string) bool {
	_, err := Parse(s)

	return err == nil
}

// Tag returns the method specific tag, which is also the integration chain index.
func (d IotaDID) Tag() string {
	return d.tag
}

// NetworkName returns the network segment, "main" when omitted.
func (d IotaDID) NetworkName() string {
	if d.network == "" {
		return tangle.Mainnet.Name()
	}

	return d.network
}

// Network returns the network the DID is published on.
func (d IotaDID) Network() tangle.Network {
	n, err := tangle.NetworkFromName(d.NetworkName())
	if err != nil {
		return tangle.Mainnet
	}

	return n
}

// String returns the DID.
func (d IotaDID) String() string {
	if d.network == "" {
		return "did:" + Method + ":" + d.tag
	}

	return "did:" + Method + ":" + d.network + ":" + d.tag
}

// Core returns the generic form of d.
func (d IotaDID) Core() diddoc.DID {
	specific := d.tag
	if d.network != "" {
		specific = d.network + ":" + d.tag
	}

	return diddoc.DID{Scheme: "did", Method: Method, MethodSpecificID: specific}
}

// URL returns a DID URL for d with the given fragment. An empty fragment yields the bare DID.
func (d IotaDID) URL(fragment string) (*diddoc.URL, error) {
	u := diddoc.NewURL(d.Core())
	if fragment == "" {
		return u, nil
	}

	return u.Join(fragment)
}

// MarshalText implements encoding.TextMarshaler.
func (d IotaDID) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *IotaDID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}

	*d = *parsed

	return nil
}

// CheckMethodValidity checks that a verification method id and controller are IOTA DIDs.
func CheckMethodValidity(m *diddoc.VerificationMethod) error {
	if _, err := FromCore(m.ID.DID); err != nil {
		return fmt.Errorf("method %s: %w", m.ID, err)
	}

	if m.ID.Fragment == "" {
		return fmt.Errorf("%w: method %s has no fragment", ErrInvalidMethodID, m.ID)
	}

	if _, err := FromCore(m.Controller); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidController, err.Error())
	}

	return nil
}
