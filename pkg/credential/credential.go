/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package credential implements verifiable credentials and presentations signed by DID
// document methods, as embedded JcsEd25519Signature2020 proofs or as JWTs.
package credential

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slices"

	"github.com/nanderstabel/identity/pkg/common/log"
	diddoc "github.com/nanderstabel/identity/pkg/doc/did"
	"github.com/nanderstabel/identity/pkg/doc/signature"
	"github.com/nanderstabel/identity/pkg/iota/document"
)

var logger = log.New("identity/credential")

const (
	// BaseContext is the first context of every credential and presentation.
	BaseContext = "https://www.w3.org/2018/credentials/v1"
	// CredentialType is the base credential type.
	CredentialType = "VerifiableCredential"
	// PresentationType is the base presentation type.
	PresentationType = "VerifiablePresentation"
)

var (
	// ErrInvalidCredential is returned for credentials missing required members.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrInvalidPresentation is returned for presentations missing required members.
	ErrInvalidPresentation = errors.New("invalid presentation")
	// ErrIssuerMismatch is returned when the signing document is not the issuer or holder.
	ErrIssuerMismatch = errors.New("signer does not match issuer")
	// ErrExpired is returned for credentials past their expiration date.
	ErrExpired = errors.New("credential expired")
)

// Subject is a credential subject: an optional id and its claims.
type Subject struct {
	ID         string
	Properties diddoc.Properties
}

// MarshalJSON implements json.Marshaler.
func (s Subject) MarshalJSON() ([]byte, error) {
	raw := make(map[string]interface{}, len(s.Properties)+1)

	for k, v := range s.Properties {
		raw[k] = v
	}

	if s.ID != "" {
		raw["id"] = s.ID
	}

	return json.Marshal(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Subject) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}

	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal credential subject: %w", err)
	}

	*s = Subject{}

	if id, ok := raw["id"].(string); ok {
		s.ID = id
		delete(raw, "id")
	}

	if len(raw) > 0 {
		s.Properties = raw
	}

	return nil
}

// Subjects is serialized as an object when it holds one subject and as an array otherwise.
type Subjects []Subject

// MarshalJSON implements json.Marshaler.
func (ss Subjects) MarshalJSON() ([]byte, error) {
	if len(ss) == 1 {
		return json.Marshal(ss[0])
	}

	return json.Marshal([]Subject(ss))
}

// UnmarshalJSON implements json.Unmarshaler.
func (ss *Subjects) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var one Subject
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return err
		}

		*ss = Subjects{one}

		return nil
	}

	var many []Subject
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("unmarshal credential subjects: %w", err)
	}

	*ss = many

	return nil
}

// Credential is a verifiable credential with an optional embedded proof.
type Credential struct {
	Context        []string             `json:"@context"`
	ID             string               `json:"id,omitempty"`
	Types          []string             `json:"type"`
	Issuer         string               `json:"issuer"`
	IssuanceDate   time.Time            `json:"issuanceDate"`
	ExpirationDate *time.Time           `json:"expirationDate,omitempty"`
	Subject        Subjects             `json:"credentialSubject"`
	Proof          *signature.Signature `json:"proof,omitempty"`
}

// New returns an unsigned credential about subjects with the base context and type plus types.
func New(id string, subjects []Subject, types ...string) *Credential {
	return &Credential{
		Context: []string{BaseContext},
		ID:      id,
		Types:   append([]string{CredentialType}, types...),
		Subject: subjects,
	}
}

// Parse decodes a JSON credential and checks its structure.
func Parse(data []byte) (*Credential, error) {
	var c Credential

	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredential, err.Error())
	}

	if err := c.Check(); err != nil {
		return nil, err
	}

	return &c, nil
}

// Check verifies the credential has the base context and type, an issuer and a subject.
func (c *Credential) Check() error {
	if len(c.Context) == 0 || c.Context[0] != BaseContext {
		return fmt.Errorf("%w: first context must be %s", ErrInvalidCredential, BaseContext)
	}

	if !slices.Contains(c.Types, CredentialType) {
		return fmt.Errorf("%w: missing type %s", ErrInvalidCredential, CredentialType)
	}

	if c.Issuer == "" {
		return fmt.Errorf("%w: missing issuer", ErrInvalidCredential)
	}

	if len(c.Subject) == 0 {
		return fmt.Errorf("%w: missing credential subject", ErrInvalidCredential)
	}

	return nil
}

// Signature returns the embedded proof.
func (c *Credential) Signature() *signature.Signature {
	return c.Proof
}

// SetSignature sets the embedded proof.
func (c *Credential) SetSignature(s *signature.Signature) {
	c.Proof = s
}

// Issue signs the credential with the method fragment of issuer, which becomes the credential
// issuer. A zero issuance date is set to now.
func (c *Credential) Issue(issuer *document.IotaDocument, privateKey ed25519.PrivateKey, fragment string) error {
	c.Issuer = issuer.ID().String()

	if c.IssuanceDate.IsZero() {
		c.IssuanceDate = document.Now()
	}

	if err := c.Check(); err != nil {
		return err
	}

	if err := issuer.SignData(c, privateKey, "#"+fragment); err != nil {
		return fmt.Errorf("sign credential: %w", err)
	}

	logger.Debugf("issued credential %s by %s", c.ID, c.Issuer)

	return nil
}

// Verify checks the proof of the credential against the issuer document. The signing method may
// belong to any scope unless one is given.
func (c *Credential) Verify(issuer *document.IotaDocument, scope ...diddoc.MethodScope) error {
	if err := c.Check(); err != nil {
		return err
	}

	if c.Issuer != issuer.ID().String() {
		return fmt.Errorf("%w: %s is not %s", ErrIssuerMismatch, issuer.ID(), c.Issuer)
	}

	if c.ExpirationDate != nil && c.ExpirationDate.Before(time.Now()) {
		return fmt.Errorf("%w: %s", ErrExpired, c.ExpirationDate)
	}

	return verifyProof(issuer, c, scope)
}

func verifyProof(doc *document.IotaDocument, data signature.Signable, scope []diddoc.MethodScope) error {
	if len(scope) > 0 {
		return doc.VerifyDataWithScope(data, scope[0])
	}

	return doc.VerifyData(data)
}

// Presentation is a verifiable presentation of credentials by a holder.
type Presentation struct {
	Context    []string             `json:"@context"`
	ID         string               `json:"id,omitempty"`
	Types      []string             `json:"type"`
	Holder     string               `json:"holder"`
	Credential []UnknownCredential  `json:"verifiableCredential"`
	Proof      *signature.Signature `json:"proof,omitempty"`
}

// NewPresentation returns an unsigned presentation of credentials.
func NewPresentation(id string, credentials ...UnknownCredential) *Presentation {
	return &Presentation{
		Context:    []string{BaseContext},
		ID:         id,
		Types:      []string{PresentationType},
		Credential: credentials,
	}
}

// Signature returns the embedded proof.
func (p *Presentation) Signature() *signature.Signature {
	return p.Proof
}

// SetSignature sets the embedded proof.
func (p *Presentation) SetSignature(s *signature.Signature) {
	p.Proof = s
}

func (p *Presentation) check() error {
	if len(p.Context) == 0 || p.Context[0] != BaseContext {
		return fmt.Errorf("%w: first context must be %s", ErrInvalidPresentation, BaseContext)
	}

	if !slices.Contains(p.Types, PresentationType) {
		return fmt.Errorf("%w: missing type %s", ErrInvalidPresentation, PresentationType)
	}

	if p.Holder == "" {
		return fmt.Errorf("%w: missing holder", ErrInvalidPresentation)
	}

	return nil
}

// Sign signs the presentation with the method fragment of holder, which becomes the presentation
// holder.
func (p *Presentation) Sign(holder *document.IotaDocument, privateKey ed25519.PrivateKey, fragment string) error {
	p.Holder = holder.ID().String()

	if err := p.check(); err != nil {
		return err
	}

	if err := holder.SignData(p, privateKey, "#"+fragment); err != nil {
		return fmt.Errorf("sign presentation: %w", err)
	}

	return nil
}

// Verify checks the proof of the presentation against the holder document. The credentials are
// not verified.
func (p *Presentation) Verify(holder *document.IotaDocument, scope ...diddoc.MethodScope) error {
	if err := p.check(); err != nil {
		return err
	}

	if p.Holder != holder.ID().String() {
		return fmt.Errorf("%w: %s is not %s", ErrIssuerMismatch, holder.ID(), p.Holder)
	}

	return verifyProof(holder, p, scope)
}
