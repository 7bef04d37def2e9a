/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package document implements IOTA DID documents, their signed metadata wrapper and the
// messages that carry them on the Tangle.
package document

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nanderstabel/identity/pkg/common/log"
	diddoc "github.com/nanderstabel/identity/pkg/doc/did"
	"github.com/nanderstabel/identity/pkg/doc/signature"
	"github.com/nanderstabel/identity/pkg/iota/did"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
)

var logger = log.New("identity/iota/document")

var (
	// ErrMissingSigningKey is returned when a document has no capability invocation method.
	ErrMissingSigningKey = errors.New("document has no signing method")
	// ErrInvalidSigningMethodType is returned when a method that cannot sign documents is used.
	ErrInvalidSigningMethodType = errors.New("invalid document signing method type")
	// ErrInvalidMessageID is returned for null message ids where one is required.
	ErrInvalidMessageID = errors.New("invalid document message id")
	// ErrInvalidService is returned for services without a fragment.
	ErrInvalidService = errors.New("invalid service")
)

// IotaDocument is a DID document whose identifiers are all IOTA DIDs.
type IotaDocument struct {
	doc *diddoc.Document
}

// FromVerificationMethod creates a document whose only method is the capability invocation m.
func FromVerificationMethod(m *diddoc.VerificationMethod) (*IotaDocument, error) {
	if err := CheckSigningMethod(m); err != nil {
		return nil, err
	}

	core := diddoc.NewDocument(m.ID.DID)
	core.InsertMethod(m, diddoc.ScopeCapabilityInvocation)

	return TryFromCore(core)
}

// TryFromCore validates that every identifier of core is an IOTA DID.
func TryFromCore(core *diddoc.Document) (*IotaDocument, error) {
	if _, err := did.FromCore(core.ID); err != nil {
		return nil, fmt.Errorf("document id: %w", err)
	}

	for _, c := range core.Controller {
		if _, err := did.FromCore(c); err != nil {
			return nil, fmt.Errorf("document controller: %w", err)
		}
	}

	for _, m := range core.Methods() {
		if err := did.CheckMethodValidity(m); err != nil {
			return nil, err
		}
	}

	for _, ref := range core.References() {
		if _, err := did.FromCore(ref.DID); err != nil {
			return nil, fmt.Errorf("method reference %s: %w", ref, err)
		}
	}

	return &IotaDocument{doc: core}, nil
}

// ParseDocument parses and validates a JSON document.
func ParseDocument(data []byte) (*IotaDocument, error) {
	var doc IotaDocument

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

// CheckSigningMethod checks that m can sign documents.
func CheckSigningMethod(m *diddoc.VerificationMethod) error {
	if err := did.CheckMethodValidity(m); err != nil {
		return err
	}

	if m.Type != diddoc.Ed25519VerificationKey2018 {
		return fmt.Errorf("%w: %s", ErrInvalidSigningMethodType, m.Type)
	}

	return nil
}

// Core returns the underlying document. Changes made through it bypass IOTA validation.
func (d *IotaDocument) Core() *diddoc.Document {
	return d.doc
}

// ID returns the document DID.
func (d *IotaDocument) ID() did.IotaDID {
	id, err := did.FromCore(d.doc.ID)
	if err != nil {
		logger.Errorf("document holds an invalid id %s: %s", d.doc.ID, err)

		return did.IotaDID{}
	}

	return *id
}

// Controller returns the first controller, or nil.
func (d *IotaDocument) Controller() *did.IotaDID {
	if len(d.doc.Controller) == 0 {
		return nil
	}

	c, err := did.FromCore(d.doc.Controller[0])
	if err != nil {
		return nil
	}

	return c
}

// AlsoKnownAs returns the alsoKnownAs list.
func (d *IotaDocument) AlsoKnownAs() []string {
	return d.doc.AlsoKnownAs
}

// DefaultSigningMethod returns the first capability invocation method.
func (d *IotaDocument) DefaultSigningMethod() (*diddoc.VerificationMethod, error) {
	if len(d.doc.CapabilityInvocation) == 0 {
		return nil, ErrMissingSigningKey
	}

	m, err := d.doc.ResolveMethodWithScope(d.doc.CapabilityInvocation[0].ID().String(),
		diddoc.ScopeCapabilityInvocation)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingSigningKey, err.Error())
	}

	return m, nil
}

// Methods returns every embedded method.
func (d *IotaDocument) Methods() []*diddoc.VerificationMethod {
	return d.doc.Methods()
}

// InsertMethod validates m and embeds it in scope. It returns false on a duplicate id.
func (d *IotaDocument) InsertMethod(m *diddoc.VerificationMethod, scope diddoc.MethodScope) (bool, error) {
	if err := did.CheckMethodValidity(m); err != nil {
		return false, err
	}

	return d.doc.InsertMethod(m, scope), nil
}

// RemoveMethod removes every occurrence of the method id.
func (d *IotaDocument) RemoveMethod(id diddoc.URL) error {
	if _, err := did.FromCore(id.DID); err != nil {
		return err
	}

	d.doc.RemoveMethod(id)

	return nil
}

// ResolveMethod returns the method matching query in any scope.
func (d *IotaDocument) ResolveMethod(query string) (*diddoc.VerificationMethod, error) {
	return d.doc.ResolveMethod(query)
}

// ResolveMethodWithScope returns the method matching query in scope.
func (d *IotaDocument) ResolveMethodWithScope(query string,
	scope diddoc.MethodScope) (*diddoc.VerificationMethod, error) {
	return d.doc.ResolveMethodWithScope(query, scope)
}

// Services returns the services.
func (d *IotaDocument) Services() []*diddoc.Service {
	return d.doc.Service
}

// InsertService adds s. It returns false for duplicates and services without a fragment.
func (d *IotaDocument) InsertService(s *diddoc.Service) (bool, error) {
	if s.ID.Fragment == "" {
		return false, fmt.Errorf("%w: %s has no fragment", ErrInvalidService, s.ID)
	}

	if _, err := did.FromCore(s.ID.DID); err != nil {
		return false, err
	}

	return d.doc.InsertService(s), nil
}

// RemoveService removes the service id.
func (d *IotaDocument) RemoveService(id diddoc.URL) error {
	if _, err := did.FromCore(id.DID); err != nil {
		return err
	}

	d.doc.RemoveService(id)

	return nil
}

// SignData signs data with the method matching query. The proof refers to the method by its
// full DID URL.
func (d *IotaDocument) SignData(data signature.Signable, privateKey ed25519.PrivateKey, query string) error {
	m, err := d.doc.ResolveMethod(query)
	if err != nil {
		return err
	}

	if err := checkSigningKey(m, privateKey); err != nil {
		return err
	}

	return signature.Sign(data, m.ID.String(), privateKey)
}

// VerifyData verifies the proof of data with the method it refers to, in any scope.
func (d *IotaDocument) VerifyData(data signature.Signable) error {
	sig := data.Signature()
	if sig == nil {
		return signature.ErrMissingSignature
	}

	m, err := d.doc.ResolveMethod(sig.VerificationMethod)
	if err != nil {
		return err
	}

	return verifyWithMethod(data, m)
}

// VerifyDataWithScope verifies the proof of data with a method of scope.
func (d *IotaDocument) VerifyDataWithScope(data signature.Signable, scope diddoc.MethodScope) error {
	sig := data.Signature()
	if sig == nil {
		return signature.ErrMissingSignature
	}

	m, err := d.doc.ResolveMethodWithScope(sig.VerificationMethod, scope)
	if err != nil {
		return err
	}

	return verifyWithMethod(data, m)
}

func verifyWithMethod(data signature.Signable, m *diddoc.VerificationMethod) error {
	if m.Type != diddoc.Ed25519VerificationKey2018 {
		return fmt.Errorf("%w: %s", ErrInvalidSigningMethodType, m.Type)
	}

	public, err := m.Data.Decode()
	if err != nil {
		return err
	}

	return signature.Verify(data, public)
}

func checkSigningKey(m *diddoc.VerificationMethod, privateKey ed25519.PrivateKey) error {
	if m.Type != diddoc.Ed25519VerificationKey2018 {
		return fmt.Errorf("%w: %s", ErrInvalidSigningMethodType, m.Type)
	}

	if len(privateKey) != ed25519.PrivateKeySize {
		return fmt.Errorf("%w: ed25519 private key must be %d bytes", signature.ErrInvalidKey, ed25519.PrivateKeySize)
	}

	return nil
}

// IntegrationIndex returns the index of the integration chain: the DID tag.
func (d *IotaDocument) IntegrationIndex() string {
	return d.ID().Tag()
}

// DiffIndex returns the index of the diff chain opened by the integration message id.
func DiffIndex(id tangle.MessageID) (string, error) {
	if id.IsNull() {
		return "", ErrInvalidMessageID
	}

	return did.EncodeKey([]byte(id.String())), nil
}

// Clone returns a deep copy of d.
func (d *IotaDocument) Clone() *IotaDocument {
	return &IotaDocument{doc: d.doc.Clone()}
}

// MarshalJSON implements json.Marshaler.
func (d IotaDocument) MarshalJSON() ([]byte, error) {
	if d.doc == nil {
		return nil, errors.New("empty document")
	}

	return json.Marshal(d.doc)
}

// UnmarshalJSON implements json.Unmarshaler. The document is checked against the IOTA document
// schema and every identifier is validated.
func (d *IotaDocument) UnmarshalJSON(data []byte) error {
	if err := validate(data); err != nil {
		return err
	}

	var core diddoc.Document

	if err := json.Unmarshal(data, &core); err != nil {
		return err
	}

	parsed, err := TryFromCore(&core)
	if err != nil {
		return err
	}

	*d = *parsed

	return nil
}

// String returns the JSON form of d.
func (d *IotaDocument) String() string {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf("<invalid document: %s>", err)
	}

	return string(data)
}
