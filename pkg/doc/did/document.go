/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
)

const (
	jsonldAlsoKnownAs = "alsoKnownAs"
	jsonldService     = "service"
)

// ErrMethodNotFound is returned when no verification method matches a query.
var ErrMethodNotFound = errors.New("verification method not found")

// Document is a W3C DID document. Methods and services are ordered sets keyed by id.
type Document struct {
	ID                   DID
	Controller           []DID
	AlsoKnownAs          []string
	VerificationMethod   []*VerificationMethod
	Authentication       []MethodRef
	AssertionMethod      []MethodRef
	KeyAgreement         []MethodRef
	CapabilityDelegation []MethodRef
	CapabilityInvocation []MethodRef
	Service              []*Service
	Properties           Properties
}

// NewDocument creates an empty document for id.
func NewDocument(id DID) *Document {
	return &Document{ID: id}
}

// relationship returns the list backing a verification relationship, or nil for
// ScopeVerificationMethod.
func (doc *Document) relationship(scope MethodScope) *[]MethodRef {
	switch scope {
	case ScopeAuthentication:
		return &doc.Authentication
	case ScopeAssertionMethod:
		return &doc.AssertionMethod
	case ScopeKeyAgreement:
		return &doc.KeyAgreement
	case ScopeCapabilityDelegation:
		return &doc.CapabilityDelegation
	case ScopeCapabilityInvocation:
		return &doc.CapabilityInvocation
	default:
		return nil
	}
}

// Relationship returns the entries of a verification relationship.
func (doc *Document) Relationship(scope MethodScope) []MethodRef {
	if rel := doc.relationship(scope); rel != nil {
		return *rel
	}

	refs := make([]MethodRef, 0, len(doc.VerificationMethod))
	for _, m := range doc.VerificationMethod {
		refs = append(refs, EmbedRef(m))
	}

	return refs
}

// Methods returns every embedded method: the verificationMethod list followed by methods
// embedded in relationships.
func (doc *Document) Methods() []*VerificationMethod {
	methods := slices.Clone(doc.VerificationMethod)

	for _, scope := range Scopes()[1:] {
		for _, ref := range *doc.relationship(scope) {
			if ref.Embedded != nil {
				methods = append(methods, ref.Embedded)
			}
		}
	}

	return methods
}

// References returns every relationship entry that refers to a method by id.
func (doc *Document) References() []URL {
	var refs []URL

	for _, scope := range Scopes()[1:] {
		for _, ref := range *doc.relationship(scope) {
			if ref.IsReference() {
				refs = append(refs, *ref.Reference)
			}
		}
	}

	return refs
}

func (doc *Document) containsMethod(id URL) bool {
	return slices.ContainsFunc(doc.Methods(), func(m *VerificationMethod) bool {
		return m.ID == id
	})
}

// InsertMethod embeds m in scope. It returns false if a method with the same id already exists.
func (doc *Document) InsertMethod(m *VerificationMethod, scope MethodScope) bool {
	if doc.containsMethod(m.ID) {
		return false
	}

	if rel := doc.relationship(scope); rel != nil {
		*rel = append(*rel, EmbedRef(m))
	} else {
		doc.VerificationMethod = append(doc.VerificationMethod, m)
	}

	return true
}

// AttachMethodRelationship adds a reference to the method id to scope. It returns false if the
// relationship already has an entry for id.
func (doc *Document) AttachMethodRelationship(id URL, scope MethodScope) (bool, error) {
	rel := doc.relationship(scope)
	if rel == nil {
		return false, errors.New("cannot attach a reference to the verificationMethod list")
	}

	if !slices.ContainsFunc(doc.VerificationMethod, func(m *VerificationMethod) bool { return m.ID == id }) {
		return false, fmt.Errorf("%w: %s is not in the verificationMethod list", ErrMethodNotFound, id)
	}

	if slices.ContainsFunc(*rel, func(r MethodRef) bool { return r.ID() == id }) {
		return false, nil
	}

	*rel = append(*rel, ReferTo(id))

	return true, nil
}

// DetachMethodRelationship removes the reference to id from scope. Embedded methods are left in place.
func (doc *Document) DetachMethodRelationship(id URL, scope MethodScope) bool {
	rel := doc.relationship(scope)
	if rel == nil {
		return false
	}

	n := len(*rel)
	*rel = slices.DeleteFunc(*rel, func(r MethodRef) bool { return r.IsReference() && r.ID() == id })

	return len(*rel) != n
}

// RemoveMethod removes every occurrence of the method id, embedded or referenced.
func (doc *Document) RemoveMethod(id URL) bool {
	removed := false

	n := len(doc.VerificationMethod)
	doc.VerificationMethod = slices.DeleteFunc(doc.VerificationMethod, func(m *VerificationMethod) bool {
		return m.ID == id
	})
	removed = removed || len(doc.VerificationMethod) != n

	for _, scope := range Scopes()[1:] {
		rel := doc.relationship(scope)
		n := len(*rel)
		*rel = slices.DeleteFunc(*rel, func(r MethodRef) bool { return r.ID() == id })
		removed = removed || len(*rel) != n
	}

	return removed
}

// ResolveMethod returns the method matching query in any scope. The query is a DID URL or a fragment.
func (doc *Document) ResolveMethod(query string) (*VerificationMethod, error) {
	for _, m := range doc.Methods() {
		if m.ID.Matches(query) {
			return m, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, query)
}

// ResolveMethodWithScope returns the method matching query within scope, following references.
func (doc *Document) ResolveMethodWithScope(query string, scope MethodScope) (*VerificationMethod, error) {
	if scope == ScopeVerificationMethod {
		for _, m := range doc.VerificationMethod {
			if m.ID.Matches(query) {
				return m, nil
			}
		}

		return nil, fmt.Errorf("%w: %s in %s", ErrMethodNotFound, query, scope)
	}

	for _, ref := range *doc.relationship(scope) {
		if !ref.ID().Matches(query) {
			continue
		}

		if ref.Embedded != nil {
			return ref.Embedded, nil
		}

		for _, m := range doc.VerificationMethod {
			if m.ID == *ref.Reference {
				return m, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s in %s", ErrMethodNotFound, query, scope)
}

// MethodScopes returns the scopes in which the method id is embedded or referenced.
func (doc *Document) MethodScopes(id URL) []MethodScope {
	var scopes []MethodScope

	if slices.ContainsFunc(doc.VerificationMethod, func(m *VerificationMethod) bool { return m.ID == id }) {
		scopes = append(scopes, ScopeVerificationMethod)
	}

	for _, scope := range Scopes()[1:] {
		if slices.ContainsFunc(*doc.relationship(scope), func(r MethodRef) bool { return r.ID() == id }) {
			scopes = append(scopes, scope)
		}
	}

	return scopes
}

// InsertService adds s. It returns false if a service with the same id already exists.
func (doc *Document) InsertService(s *Service) bool {
	if slices.ContainsFunc(doc.Service, func(e *Service) bool { return e.ID == s.ID }) {
		return false
	}

	doc.Service = append(doc.Service, s)

	return true
}

// RemoveService removes the service id.
func (doc *Document) RemoveService(id URL) bool {
	n := len(doc.Service)
	doc.Service = slices.DeleteFunc(doc.Service, func(s *Service) bool { return s.ID == id })

	return len(doc.Service) != n
}

// ResolveService returns the service matching query, a DID URL or a fragment.
func (doc *Document) ResolveService(query string) (*Service, bool) {
	for _, s := range doc.Service {
		if s.ID.Matches(query) {
			return s, true
		}
	}

	return nil, false
}

// Clone returns a deep copy of doc.
func (doc *Document) Clone() *Document {
	data, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("marshal of a valid document failed: %v", err))
	}

	var c Document
	if err := json.Unmarshal(data, &c); err != nil {
		panic(fmt.Sprintf("unmarshal of a marshalled document failed: %v", err))
	}

	return &c
}

// MarshalJSON implements json.Marshaler.
func (doc Document) MarshalJSON() ([]byte, error) {
	raw := map[string]interface{}{
		jsonldID: doc.ID.String(),
	}

	switch len(doc.Controller) {
	case 0:
	case 1:
		raw[jsonldController] = doc.Controller[0].String()
	default:
		controllers := make([]string, len(doc.Controller))
		for i, c := range doc.Controller {
			controllers[i] = c.String()
		}

		raw[jsonldController] = controllers
	}

	if len(doc.AlsoKnownAs) > 0 {
		raw[jsonldAlsoKnownAs] = doc.AlsoKnownAs
	}

	if len(doc.VerificationMethod) > 0 {
		raw[ScopeVerificationMethod.String()] = doc.VerificationMethod
	}

	for _, scope := range Scopes()[1:] {
		if rel := *doc.relationship(scope); len(rel) > 0 {
			raw[scope.String()] = rel
		}
	}

	if len(doc.Service) > 0 {
		raw[jsonldService] = doc.Service
	}

	doc.Properties.merge(raw)

	return json.Marshal(raw)
}

type rawDoc struct {
	ID                   DID                   `json:"id"`
	Controller           json.RawMessage       `json:"controller,omitempty"`
	AlsoKnownAs          []string              `json:"alsoKnownAs,omitempty"`
	VerificationMethod   []*VerificationMethod `json:"verificationMethod,omitempty"`
	Authentication       []MethodRef           `json:"authentication,omitempty"`
	AssertionMethod      []MethodRef           `json:"assertionMethod,omitempty"`
	KeyAgreement         []MethodRef           `json:"keyAgreement,omitempty"`
	CapabilityDelegation []MethodRef           `json:"capabilityDelegation,omitempty"`
	CapabilityInvocation []MethodRef           `json:"capabilityInvocation,omitempty"`
	Service              []*Service            `json:"service,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (doc *Document) UnmarshalJSON(data []byte) error {
	var raw rawDoc

	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("JSON unmarshalling of did doc bytes failed: %w", err)
	}

	controller, err := parseController(raw.Controller)
	if err != nil {
		return err
	}

	var props map[string]interface{}
	if err := json.Unmarshal(data, &props); err != nil {
		return err
	}

	reserved := []string{jsonldID, jsonldController, jsonldAlsoKnownAs, jsonldService}
	for _, scope := range Scopes() {
		reserved = append(reserved, scope.String())
	}

	*doc = Document{
		ID:                   raw.ID,
		Controller:           controller,
		AlsoKnownAs:          raw.AlsoKnownAs,
		VerificationMethod:   raw.VerificationMethod,
		Authentication:       raw.Authentication,
		AssertionMethod:      raw.AssertionMethod,
		KeyAgreement:         raw.KeyAgreement,
		CapabilityDelegation: raw.CapabilityDelegation,
		CapabilityInvocation: raw.CapabilityInvocation,
		Service:              raw.Service,
		Properties:           extract(props, reserved...),
	}

	return doc.checkUnique()
}

func parseController(data json.RawMessage) ([]DID, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var one DID
	if err := json.Unmarshal(data, &one); err == nil {
		return []DID{one}, nil
	}

	var set []DID
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("document controller: %w", err)
	}

	return set, nil
}

func (doc *Document) checkUnique() error {
	seen := make(map[URL]struct{})

	for _, m := range doc.Methods() {
		if _, ok := seen[m.ID]; ok {
			return fmt.Errorf("duplicate verification method %s", m.ID)
		}

		seen[m.ID] = struct{}{}
	}

	services := make(map[URL]struct{})

	for _, s := range doc.Service {
		if _, ok := services[s.ID]; ok {
			return fmt.Errorf("duplicate service %s", s.ID)
		}

		services[s.ID] = struct{}{}
	}

	return nil
}
