/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const testDID = "did:example:123456789abcdefghi"

func newTestMethod(t *testing.T, fragment string) *VerificationMethod {
	t.Helper()

	id, err := ParseURL(testDID + "#" + fragment)
	require.NoError(t, err)

	return &VerificationMethod{
		ID:         *id,
		Controller: id.DID,
		Type:       Ed25519VerificationKey2018,
		Data:       NewMultibaseData([]byte{1, 2, 3, 4}),
	}
}

func newTestDocument(t *testing.T) *Document {
	t.Helper()

	id, err := Parse(testDID)
	require.NoError(t, err)

	return NewDocument(*id)
}

func TestMethodData(t *testing.T) {
	data := []byte("public key bytes")

	decoded, err := NewMultibaseData(data).Decode()
	require.NoError(t, err)
	require.Equal(t, data, decoded)
	require.Equal(t, byte('z'), NewMultibaseData(data).PublicKeyMultibase[0])

	decoded, err = NewBase58Data(data).Decode()
	require.NoError(t, err)
	require.Equal(t, data, decoded)

	_, err = MethodData{}.Decode()
	require.ErrorIs(t, err, ErrMethodData)
}

func TestDocument_Methods(t *testing.T) {
	doc := newTestDocument(t)

	auth := newTestMethod(t, "auth")
	generic := newTestMethod(t, "generic")

	require.True(t, doc.InsertMethod(auth, ScopeAuthentication))
	require.True(t, doc.InsertMethod(generic, ScopeVerificationMethod))
	require.False(t, doc.InsertMethod(newTestMethod(t, "auth"), ScopeAssertionMethod))

	t.Run("resolve", func(t *testing.T) {
		m, err := doc.ResolveMethod("#auth")
		require.NoError(t, err)
		require.Equal(t, auth, m)

		m, err = doc.ResolveMethod(testDID + "#generic")
		require.NoError(t, err)
		require.Equal(t, generic, m)

		_, err = doc.ResolveMethod("#missing")
		require.ErrorIs(t, err, ErrMethodNotFound)
	})

	t.Run("resolve with scope", func(t *testing.T) {
		_, err := doc.ResolveMethodWithScope("#auth", ScopeCapabilityInvocation)
		require.ErrorIs(t, err, ErrMethodNotFound)

		m, err := doc.ResolveMethodWithScope("#auth", ScopeAuthentication)
		require.NoError(t, err)
		require.Equal(t, auth, m)
	})

	t.Run("attach and detach", func(t *testing.T) {
		ok, err := doc.AttachMethodRelationship(generic.ID, ScopeKeyAgreement)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = doc.AttachMethodRelationship(generic.ID, ScopeKeyAgreement)
		require.NoError(t, err)
		require.False(t, ok)

		_, err = doc.AttachMethodRelationship(auth.ID, ScopeKeyAgreement)
		require.ErrorIs(t, err, ErrMethodNotFound)

		m, err := doc.ResolveMethodWithScope("#generic", ScopeKeyAgreement)
		require.NoError(t, err)
		require.Equal(t, generic, m)

		require.Equal(t, []MethodScope{ScopeVerificationMethod, ScopeKeyAgreement}, doc.MethodScopes(generic.ID))

		require.True(t, doc.DetachMethodRelationship(generic.ID, ScopeKeyAgreement))
		require.False(t, doc.DetachMethodRelationship(generic.ID, ScopeKeyAgreement))
	})

	t.Run("remove removes references", func(t *testing.T) {
		_, err := doc.AttachMethodRelationship(generic.ID, ScopeAssertionMethod)
		require.NoError(t, err)

		require.True(t, doc.RemoveMethod(generic.ID))
		require.Empty(t, doc.AssertionMethod)
		require.Empty(t, doc.VerificationMethod)
		require.False(t, doc.RemoveMethod(generic.ID))
		require.Len(t, doc.Methods(), 1)
	})
}

func TestDocument_Services(t *testing.T) {
	doc := newTestDocument(t)

	id, err := ParseURL(testDID + "#linked-domain")
	require.NoError(t, err)

	svc := &Service{ID: *id, Type: "LinkedDomains", ServiceEndpoint: ServiceEndpoint{One: "https://iota.org"}}

	require.True(t, doc.InsertService(svc))
	require.False(t, doc.InsertService(svc))

	found, ok := doc.ResolveService("#linked-domain")
	require.True(t, ok)
	require.Equal(t, svc, found)

	require.True(t, doc.RemoveService(*id))
	require.False(t, doc.RemoveService(*id))
}

func TestDocument_JSON(t *testing.T) {
	const docJSON = `{
  "id": "did:example:123456789abcdefghi",
  "controller": "did:example:controller",
  "alsoKnownAs": ["https://example.com"],
  "verificationMethod": [{
    "id": "did:example:123456789abcdefghi#keys-1",
    "controller": "did:example:123456789abcdefghi",
    "type": "Ed25519VerificationKey2018",
    "publicKeyBase58": "H3C2AVvLMv6gmMNam3uVAjZpfkcJCwDwnZn6z3wXmqPV",
    "usage": "signing"
  }],
  "authentication": [
    "did:example:123456789abcdefghi#keys-1",
    {
      "id": "did:example:123456789abcdefghi#keys-2",
      "controller": "did:example:123456789abcdefghi",
      "type": "Ed25519VerificationKey2018",
      "publicKeyMultibase": "zH3C2AVvLMv6gmMNam3uVAjZpfkcJCwDwnZn6z3wXmqPV"
    }
  ],
  "service": [{
    "id": "did:example:123456789abcdefghi#hub",
    "type": "Hub",
    "serviceEndpoint": {"origins": ["https://a.example", "https://b.example"]},
    "priority": 1
  }],
  "created": "2021-05-01T00:00:00Z"
}`

	var doc Document

	require.NoError(t, json.Unmarshal([]byte(docJSON), &doc))
	require.Equal(t, testDID, doc.ID.String())
	require.Len(t, doc.Controller, 1)
	require.Len(t, doc.VerificationMethod, 1)
	require.Len(t, doc.Authentication, 2)
	require.True(t, doc.Authentication[0].IsReference())
	require.False(t, doc.Authentication[1].IsReference())
	require.Equal(t, "2021-05-01T00:00:00Z", doc.Properties["created"])
	require.Equal(t, "signing", doc.VerificationMethod[0].Properties["usage"])
	require.Equal(t, []string{"https://a.example", "https://b.example"},
		doc.Service[0].ServiceEndpoint.Map["origins"])

	var svcProps struct {
		Priority int `json:"priority"`
	}

	require.NoError(t, doc.Service[0].Properties.Decode(&svcProps))
	require.Equal(t, 1, svcProps.Priority)

	m, err := doc.ResolveMethodWithScope("#keys-1", ScopeAuthentication)
	require.NoError(t, err)
	require.Equal(t, doc.VerificationMethod[0], m)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.JSONEq(t, docJSON, string(data))

	clone := doc.Clone()
	require.Equal(t, &doc, clone)

	t.Run("duplicate method ids", func(t *testing.T) {
		const dup = `{"id":"did:example:1","verificationMethod":[
{"id":"did:example:1#a","controller":"did:example:1","type":"X","publicKeyBase58":"abc"}],
"authentication":[{"id":"did:example:1#a","controller":"did:example:1","type":"X","publicKeyBase58":"abc"}]}`

		require.Error(t, json.Unmarshal([]byte(dup), &Document{}))
	})
}
