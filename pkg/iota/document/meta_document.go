/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package document

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	diddoc "github.com/nanderstabel/identity/pkg/doc/did"
	"github.com/nanderstabel/identity/pkg/doc/signature"
	"github.com/nanderstabel/identity/pkg/iota/did"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
)

// DefaultMethodFragment is the fragment of the initial signing method.
const DefaultMethodFragment = "sign-0"

// ErrInvalidRootDocument is returned when a document cannot start an integration chain.
var ErrInvalidRootDocument = errors.New("invalid root document")

// Metadata is the signed metadata of a published document.
type Metadata struct {
	Created           time.Time
	Updated           time.Time
	PreviousMessageID tangle.MessageID
	Proof             *signature.Signature
}

// NewMetadata returns metadata created and updated now.
func NewMetadata() Metadata {
	now := Now()

	return Metadata{Created: now, Updated: now}
}

// Now returns the current time at the precision stored in metadata.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

type rawMetadata struct {
	Created           time.Time            `json:"created"`
	Updated           time.Time            `json:"updated"`
	PreviousMessageID *tangle.MessageID    `json:"previousMessageId,omitempty"`
	Proof             *signature.Signature `json:"proof,omitempty"`
}

// MarshalJSON implements json.Marshaler. A null previous message id is omitted.
func (m Metadata) MarshalJSON() ([]byte, error) {
	raw := rawMetadata{Created: m.Created.UTC(), Updated: m.Updated.UTC(), Proof: m.Proof}

	if !m.PreviousMessageID.IsNull() {
		prev := m.PreviousMessageID
		raw.PreviousMessageID = &prev
	}

	return json.Marshal(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw rawMetadata

	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal document metadata: %w", err)
	}

	*m = Metadata{Created: raw.Created, Updated: raw.Updated, Proof: raw.Proof}

	if raw.PreviousMessageID != nil {
		m.PreviousMessageID = *raw.PreviousMessageID
	}

	return nil
}

// MetaDocument is a document together with its signed metadata. It is the unit published on the
// integration chain.
type MetaDocument struct {
	Document *IotaDocument `json:"document"`
	Metadata Metadata      `json:"metadata"`
}

// New creates a main network document for keypair with the default signing method.
func New(keypair *signature.KeyPair) (*MetaDocument, error) {
	return NewWithOptions(keypair, tangle.Mainnet, "")
}

// NewWithOptions creates a document for keypair on network. The signing method gets fragment, or
// DefaultMethodFragment when empty.
func NewWithOptions(keypair *signature.KeyPair, network tangle.Network, fragment string) (*MetaDocument, error) {
	if fragment == "" {
		fragment = DefaultMethodFragment
	}

	id, err := did.NewWithNetwork(keypair.Public, network)
	if err != nil {
		return nil, err
	}

	method, err := NewMethod(*id, keypair.Public, diddoc.Ed25519VerificationKey2018, fragment)
	if err != nil {
		return nil, err
	}

	doc, err := FromVerificationMethod(method)
	if err != nil {
		return nil, err
	}

	return &MetaDocument{Document: doc, Metadata: NewMetadata()}, nil
}

// NewMethod builds a verification method of id controlled by id.
func NewMethod(id did.IotaDID, public []byte, methodType diddoc.MethodType,
	fragment string) (*diddoc.VerificationMethod, error) {
	u, err := id.URL(fragment)
	if err != nil {
		return nil, err
	}

	return &diddoc.VerificationMethod{
		ID:         *u,
		Controller: id.Core(),
		Type:       methodType,
		Data:       diddoc.NewMultibaseData(public),
	}, nil
}

// Signature returns the metadata proof.
func (m *MetaDocument) Signature() *signature.Signature {
	return m.Metadata.Proof
}

// SetSignature sets the metadata proof.
func (m *MetaDocument) SetSignature(s *signature.Signature) {
	m.Metadata.Proof = s
}

// ID returns the document DID.
func (m *MetaDocument) ID() did.IotaDID {
	return m.Document.ID()
}

// Clone returns a deep copy of m.
func (m *MetaDocument) Clone() *MetaDocument {
	return &MetaDocument{
		Document: m.Document.Clone(),
		Metadata: Metadata{
			Created:           m.Metadata.Created,
			Updated:           m.Metadata.Updated,
			PreviousMessageID: m.Metadata.PreviousMessageID,
			Proof:             m.Metadata.Proof.Clone(),
		},
	}
}

// SignSelf signs the document with its own capability invocation method matching query. Methods
// of the document itself are referenced by fragment only.
func (m *MetaDocument) SignSelf(privateKey ed25519.PrivateKey, query string) error {
	method, err := m.Document.ResolveMethodWithScope(query, diddoc.ScopeCapabilityInvocation)
	if err != nil {
		return err
	}

	if err := CheckSigningMethod(method); err != nil {
		return err
	}

	methodID := method.ID.String()
	if method.ID.DID == m.Document.Core().ID {
		methodID = "#" + method.ID.Fragment
	}

	return signature.Sign(m, methodID, privateKey)
}

// VerifyMetaDocument verifies that signed was signed by a capability invocation method of signer.
func VerifyMetaDocument(signed *MetaDocument, signer *IotaDocument) error {
	sig := signed.Signature()
	if sig == nil {
		return signature.ErrMissingSignature
	}

	method, err := signer.ResolveMethodWithScope(sig.VerificationMethod, diddoc.ScopeCapabilityInvocation)
	if err != nil {
		return err
	}

	return verifyWithMethod(signed, method)
}

// VerifySelfSigned verifies the document against its own capability invocation methods.
func (m *MetaDocument) VerifySelfSigned() error {
	return VerifyMetaDocument(m, m.Document)
}

// VerifyRoot checks that m can start an integration chain: it has no previous message, it is
// signed with the key whose hash is the DID tag, and the signature is valid.
func VerifyRoot(m *MetaDocument) error {
	if !m.Metadata.PreviousMessageID.IsNull() {
		return fmt.Errorf("%w: previous message id is set", ErrInvalidRootDocument)
	}

	sig := m.Signature()
	if sig == nil {
		return signature.ErrMissingSignature
	}

	method, err := m.Document.ResolveMethod(sig.VerificationMethod)
	if err != nil {
		return err
	}

	public, err := method.Data.Decode()
	if err != nil {
		return err
	}

	if m.Document.ID().Tag() != did.EncodeKey(public) {
		return fmt.Errorf("%w: signing key does not match the DID tag", ErrInvalidRootDocument)
	}

	return m.VerifySelfSigned()
}

// Diff creates a diff from m to other, linked to previous and signed with the capability
// invocation method of m matching query.
func (m *MetaDocument) Diff(other *MetaDocument, previous tangle.MessageID, privateKey ed25519.PrivateKey,
	query string) (*DiffMessage, error) {
	diff, err := NewDiffMessage(m, other, previous)
	if err != nil {
		return nil, err
	}

	if _, err := m.Document.ResolveMethodWithScope(query, diddoc.ScopeCapabilityInvocation); err != nil {
		return nil, err
	}

	if err := m.Document.SignData(diff, privateKey, query); err != nil {
		return nil, err
	}

	return diff, nil
}

// VerifyDiff verifies that diff was signed by a capability invocation method of m.
func (m *MetaDocument) VerifyDiff(diff *DiffMessage) error {
	return m.Document.VerifyDataWithScope(diff, diddoc.ScopeCapabilityInvocation)
}

// MergeDiff verifies diff and applies it. m is left unchanged on failure.
func (m *MetaDocument) MergeDiff(diff *DiffMessage) error {
	if err := m.VerifyDiff(diff); err != nil {
		return err
	}

	merged, err := diff.Merge(m)
	if err != nil {
		return err
	}

	*m = *merged

	return nil
}

// String returns the JSON form of m.
func (m *MetaDocument) String() string {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprintf("<invalid document: %s>", err)
	}

	return string(data)
}
