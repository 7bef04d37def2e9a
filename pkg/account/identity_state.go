/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package account

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	diddoc "github.com/nanderstabel/identity/pkg/doc/did"
	"github.com/nanderstabel/identity/pkg/iota/did"
	"github.com/nanderstabel/identity/pkg/iota/document"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
)

// IdentityState is the local state of an identity: the chain position and generations, and the
// content of the DID document in a compact form.
type IdentityState struct {
	ID                       uuid.UUID        `json:"id"`
	IntegrationGeneration    Generation       `json:"integrationGeneration"`
	DiffGeneration           Generation       `json:"diffGeneration"`
	ThisMessageID            tangle.MessageID `json:"thisMessageId"`
	LastIntegrationMessageID tangle.MessageID `json:"lastIntegrationMessageId"`
	LastDiffMessageID        tangle.MessageID `json:"lastDiffMessageId"`

	DID         *did.IotaDID `json:"did,omitempty"`
	Controller  *did.IotaDID `json:"controller,omitempty"`
	AlsoKnownAs []string     `json:"alsoKnownAs,omitempty"`
	Methods     Methods      `json:"methods,omitempty"`
	Services    Services     `json:"services,omitempty"`
	Created     time.Time    `json:"created"`
	Updated     time.Time    `json:"updated"`
}

// NewIdentityState returns an empty state for id.
func NewIdentityState(id uuid.UUID) *IdentityState {
	return &IdentityState{ID: id, Methods: Methods{}}
}

// IncrementIntegrationGeneration moves to the next integration generation and resets the diff
// generation.
func (s *IdentityState) IncrementIntegrationGeneration() error {
	next, err := s.IntegrationGeneration.TryIncrement()
	if err != nil {
		return err
	}

	s.IntegrationGeneration = next
	s.DiffGeneration = 0

	return nil
}

// IncrementDiffGeneration moves to the next diff generation.
func (s *IdentityState) IncrementDiffGeneration() error {
	next, err := s.DiffGeneration.TryIncrement()
	if err != nil {
		return err
	}

	s.DiffGeneration = next

	return nil
}

// DiffMessageID returns the message a new diff must reference: the last diff, or the current
// integration message.
func (s *IdentityState) DiffMessageID() tangle.MessageID {
	if s.LastDiffMessageID.IsNull() {
		return s.ThisMessageID
	}

	return s.LastDiffMessageID
}

// SetIntegrationMessageID records a newly published integration message.
func (s *IdentityState) SetIntegrationMessageID(id tangle.MessageID) {
	s.LastIntegrationMessageID = s.ThisMessageID
	s.LastDiffMessageID = tangle.NullMessageID
	s.ThisMessageID = id
}

// SetDiffMessageID records a newly published diff message.
func (s *IdentityState) SetDiffMessageID(id tangle.MessageID) {
	s.LastDiffMessageID = id
}

// TryDID returns the DID or ErrMissingDocumentID.
func (s *IdentityState) TryDID() (did.IotaDID, error) {
	if s.DID == nil {
		return did.IotaDID{}, ErrMissingDocumentID
	}

	return *s.DID, nil
}

// Authentication returns the latest authentication method.
func (s *IdentityState) Authentication() (*TinyMethod, error) {
	return s.latest(diddoc.ScopeAuthentication)
}

// CapabilityInvocation returns the latest capability invocation method.
func (s *IdentityState) CapabilityInvocation() (*TinyMethod, error) {
	return s.latest(diddoc.ScopeCapabilityInvocation)
}

func (s *IdentityState) latest(scope diddoc.MethodScope) (*TinyMethod, error) {
	var found *TinyMethod

	for _, ref := range s.Methods[scope] {
		m := s.Methods.Get(ref.Fragment())
		if m == nil {
			continue
		}

		if found == nil || m.Location.IntegrationGeneration >= found.Location.IntegrationGeneration {
			found = m
		}
	}

	if found == nil {
		return nil, fmt.Errorf("%w: no %s method", ErrMethodNotFound, scope)
	}

	return found, nil
}

// KeyLocation returns the location of a new key at the current generations.
func (s *IdentityState) KeyLocation(m diddoc.MethodType, fragment string) KeyLocation {
	return KeyLocation{
		Method:                m,
		Fragment:              fragment,
		IntegrationGeneration: s.IntegrationGeneration,
		DiffGeneration:        s.DiffGeneration,
	}
}

// ToDocument builds the DID document described by the state.
func (s *IdentityState) ToDocument() (*document.IotaDocument, error) {
	id, err := s.TryDID()
	if err != nil {
		return nil, err
	}

	core := diddoc.NewDocument(id.Core())

	if s.Controller != nil {
		core.Controller = []diddoc.DID{s.Controller.Core()}
	}

	core.AlsoKnownAs = slices.Clone(s.AlsoKnownAs)

	for _, scope := range diddoc.Scopes() {
		for _, ref := range s.Methods[scope] {
			if ref.Embedded != nil {
				m, err := ref.Embedded.ToCore(id)
				if err != nil {
					return nil, err
				}

				core.InsertMethod(m, scope)
			}
		}
	}

	for _, scope := range diddoc.Scopes()[1:] {
		for _, ref := range s.Methods[scope] {
			if ref.Embedded != nil {
				continue
			}

			u, err := id.URL(ref.Reference)
			if err != nil {
				return nil, err
			}

			if _, err := core.AttachMethodRelationship(*u, scope); err != nil {
				return nil, err
			}
		}
	}

	for i := range s.Services {
		svc, err := s.Services[i].ToCore(id)
		if err != nil {
			return nil, err
		}

		core.InsertService(svc)
	}

	return document.TryFromCore(core)
}

// ToMetaDocument wraps ToDocument with the state timestamps, linked to the last integration
// message.
func (s *IdentityState) ToMetaDocument() (*document.MetaDocument, error) {
	doc, err := s.ToDocument()
	if err != nil {
		return nil, err
	}

	return &document.MetaDocument{
		Document: doc,
		Metadata: document.Metadata{
			Created:           s.Created,
			Updated:           s.Updated,
			PreviousMessageID: s.ThisMessageID,
		},
	}, nil
}

// Clone returns a deep copy of s.
func (s *IdentityState) Clone() *IdentityState {
	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("identity state cannot be encoded: %s", err))
	}

	var out IdentityState
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("identity state cannot be decoded: %s", err))
	}

	if out.Methods == nil {
		out.Methods = Methods{}
	}

	return &out
}

// TinyMethodRef is a method in a relationship: either embedded or a reference by fragment.
type TinyMethodRef struct {
	Embedded  *TinyMethod
	Reference string
}

// Fragment returns the fragment of the referenced method.
func (r TinyMethodRef) Fragment() string {
	if r.Embedded != nil {
		return r.Embedded.Location.Fragment
	}

	return r.Reference
}

// MarshalJSON implements json.Marshaler. References encode as their fragment.
func (r TinyMethodRef) MarshalJSON() ([]byte, error) {
	if r.Embedded != nil {
		return json.Marshal(r.Embedded)
	}

	return json.Marshal(r.Reference)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *TinyMethodRef) UnmarshalJSON(data []byte) error {
	var fragment string
	if err := json.Unmarshal(data, &fragment); err == nil {
		*r = TinyMethodRef{Reference: fragment}

		return nil
	}

	var m TinyMethod
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	*r = TinyMethodRef{Embedded: &m}

	return nil
}

// TinyMethod is the stored form of a verification method: its key location and public key.
type TinyMethod struct {
	Location   KeyLocation       `json:"location"`
	KeyData    string            `json:"keyData"`
	Properties diddoc.Properties `json:"properties,omitempty"`
}

// ToCore builds the verification method of id.
func (m *TinyMethod) ToCore(id did.IotaDID) (*diddoc.VerificationMethod, error) {
	u, err := id.URL(m.Location.Fragment)
	if err != nil {
		return nil, err
	}

	return &diddoc.VerificationMethod{
		ID:         *u,
		Controller: id.Core(),
		Type:       m.Location.Method,
		Data:       diddoc.MethodData{PublicKeyMultibase: m.KeyData},
		Properties: m.Properties,
	}, nil
}

// Methods maps each scope to its methods.
type Methods map[diddoc.MethodScope][]TinyMethodRef

// Slice returns the methods of scope.
func (ms Methods) Slice(scope diddoc.MethodScope) []TinyMethodRef {
	return ms[scope]
}

// Embedded returns every embedded method, in scope order.
func (ms Methods) Embedded() []*TinyMethod {
	var out []*TinyMethod

	for _, scope := range diddoc.Scopes() {
		for _, ref := range ms[scope] {
			if ref.Embedded != nil {
				out = append(out, ref.Embedded)
			}
		}
	}

	return out
}

// Len returns the number of embedded methods.
func (ms Methods) Len() int {
	return len(ms.Embedded())
}

// Get returns the embedded method with fragment, or nil.
func (ms Methods) Get(fragment string) *TinyMethod {
	for _, m := range ms.Embedded() {
		if m.Location.Fragment == fragment {
			return m
		}
	}

	return nil
}

// Contains reports whether an embedded method has fragment.
func (ms Methods) Contains(fragment string) bool {
	return ms.Get(fragment) != nil
}

// Scopes returns the scopes fragment appears in.
func (ms Methods) Scopes(fragment string) []diddoc.MethodScope {
	var out []diddoc.MethodScope

	for _, scope := range diddoc.Scopes() {
		if slices.ContainsFunc(ms[scope], func(r TinyMethodRef) bool { return r.Fragment() == fragment }) {
			out = append(out, scope)
		}
	}

	return out
}

// Insert appends ref to scope without validation.
func (ms Methods) Insert(scope diddoc.MethodScope, ref TinyMethodRef) {
	ms[scope] = append(ms[scope], ref)
}

// Detach removes fragment from scope.
func (ms Methods) Detach(scope diddoc.MethodScope, fragment string) {
	ms[scope] = slices.DeleteFunc(ms[scope], func(r TinyMethodRef) bool { return r.Fragment() == fragment })

	if len(ms[scope]) == 0 {
		delete(ms, scope)
	}
}

// Delete removes fragment from every scope.
func (ms Methods) Delete(fragment string) {
	for _, scope := range diddoc.Scopes() {
		ms.Detach(scope, fragment)
	}
}

// TinyService is the stored form of a service.
type TinyService struct {
	Fragment   string                 `json:"fragment"`
	Type       string                 `json:"type"`
	Endpoint   diddoc.ServiceEndpoint `json:"endpoint"`
	Properties diddoc.Properties      `json:"properties,omitempty"`
}

// ToCore builds the service of id.
func (s *TinyService) ToCore(id did.IotaDID) (*diddoc.Service, error) {
	u, err := id.URL(s.Fragment)
	if err != nil {
		return nil, err
	}

	return &diddoc.Service{ID: *u, Type: s.Type, ServiceEndpoint: s.Endpoint, Properties: s.Properties}, nil
}

// Services lists the services of a state.
type Services []TinyService

// Get returns the service with fragment, or nil.
func (ss Services) Get(fragment string) *TinyService {
	for i := range ss {
		if ss[i].Fragment == fragment {
			return &ss[i]
		}
	}

	return nil
}

// Contains reports whether a service has fragment.
func (ss Services) Contains(fragment string) bool {
	return ss.Get(fragment) != nil
}

// Delete returns ss without the service fragment.
func (ss Services) Delete(fragment string) Services {
	return slices.DeleteFunc(ss, func(s TinyService) bool { return s.Fragment == fragment })
}
