/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package document

import (
	"crypto/ed25519"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanderstabel/identity/pkg/crypto/merkle"
	diddoc "github.com/nanderstabel/identity/pkg/doc/did"
	"github.com/nanderstabel/identity/pkg/doc/signature"
	"github.com/nanderstabel/identity/pkg/doc/signature/registry"
	"github.com/nanderstabel/identity/pkg/iota/did"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
)

const (
	testDID          = "did:iota:HGE4tecHWL2YiZv5qAGtH7gaeQcaz2Z1CR15GWmMjY1M"
	testMethodID     = testDID + "#sign-0"
	testMultibaseKey = "zFJsXMk9UqpJf3ZTKnfEQAhvBrVLKMSx9ZeYwQME6c6tT"
)

var testPublicKey = ed25519.PublicKey{ //nolint:gochecknoglobals
	212, 151, 158, 35, 16, 178, 19, 27, 83, 109, 212, 138, 141, 134, 122, 246, 156, 148, 227, 69, 68, 251, 190, 31,
	25, 101, 230, 20, 130, 188, 121, 196,
}

func newKeyPair(t *testing.T) *signature.KeyPair {
	t.Helper()

	kp, err := signature.NewEd25519KeyPair()
	require.NoError(t, err)

	return kp
}

func newSignedDocument(t *testing.T) (*MetaDocument, *signature.KeyPair) {
	t.Helper()

	kp := newKeyPair(t)

	doc, err := NewWithOptions(kp, tangle.Devnet, "")
	require.NoError(t, err)
	require.NoError(t, doc.SignSelf(kp.Private, "#"+DefaultMethodFragment))

	return doc, kp
}

func TestNew_KnownKey(t *testing.T) {
	doc, err := New(&signature.KeyPair{Type: signature.Ed25519, Public: testPublicKey})
	require.NoError(t, err)
	require.Equal(t, testDID, doc.ID().String())

	method, err := doc.Document.DefaultSigningMethod()
	require.NoError(t, err)
	require.Equal(t, testMethodID, method.ID.String())
	require.Equal(t, diddoc.Ed25519VerificationKey2018, method.Type)
	require.Equal(t, testMultibaseKey, method.Data.PublicKeyMultibase)
	require.Equal(t, doc.ID().Tag(), doc.Document.IntegrationIndex())
}

func TestNewWithOptions(t *testing.T) {
	kp := newKeyPair(t)

	doc, err := NewWithOptions(kp, tangle.Devnet, "key-x")
	require.NoError(t, err)
	require.Equal(t, "dev", doc.ID().NetworkName())

	m, err := doc.Document.DefaultSigningMethod()
	require.NoError(t, err)
	require.Equal(t, "key-x", m.ID.Fragment)
}

func TestTryFromCore(t *testing.T) {
	id, err := diddoc.Parse(testDID)
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		core := diddoc.NewDocument(*id)
		iotaID, err := did.FromCore(*id)
		require.NoError(t, err)

		m, err := NewMethod(*iotaID, testPublicKey, diddoc.Ed25519VerificationKey2018, "key-1")
		require.NoError(t, err)
		core.InsertMethod(m, diddoc.ScopeAuthentication)

		doc, err := TryFromCore(core)
		require.NoError(t, err)

		_, err = doc.DefaultSigningMethod()
		require.ErrorIs(t, err, ErrMissingSigningKey)
	})

	t.Run("foreign method", func(t *testing.T) {
		core := diddoc.NewDocument(*id)
		u, err := diddoc.ParseURL("did:example:123#key-1")
		require.NoError(t, err)

		core.InsertMethod(&diddoc.VerificationMethod{ID: *u, Controller: u.DID,
			Type: diddoc.Ed25519VerificationKey2018, Data: diddoc.NewBase58Data(testPublicKey)}, diddoc.ScopeAuthentication)

		_, err = TryFromCore(core)
		require.ErrorIs(t, err, did.ErrInvalidMethod)
	})

	t.Run("foreign id", func(t *testing.T) {
		other, err := diddoc.Parse("did:example:123")
		require.NoError(t, err)

		_, err = TryFromCore(diddoc.NewDocument(*other))
		require.ErrorIs(t, err, did.ErrInvalidMethod)
	})

	t.Run("merkle collection cannot sign", func(t *testing.T) {
		iotaID, err := did.FromCore(*id)
		require.NoError(t, err)

		m, err := NewMethod(*iotaID, make([]byte, 34), diddoc.MerkleKeyCollection2021, "merkle")
		require.NoError(t, err)

		_, err = FromVerificationMethod(m)
		require.ErrorIs(t, err, ErrInvalidSigningMethodType)
	})
}

func TestSignSelf(t *testing.T) {
	doc, kp := newSignedDocument(t)

	require.Equal(t, "#"+DefaultMethodFragment, doc.Signature().VerificationMethod)
	require.NoError(t, doc.VerifySelfSigned())
	require.NoError(t, VerifyRoot(doc))

	t.Run("tampered", func(t *testing.T) {
		tampered := doc.Clone()
		tampered.Document.Core().AlsoKnownAs = []string{"https://example.com"}
		require.ErrorIs(t, tampered.VerifySelfSigned(), signature.ErrInvalidSignature)
	})

	t.Run("not a root", func(t *testing.T) {
		next := doc.Clone()
		next.Metadata.PreviousMessageID = tangle.MessageID{1}
		require.NoError(t, next.SignSelf(kp.Private, DefaultMethodFragment))
		require.ErrorIs(t, VerifyRoot(next), ErrInvalidRootDocument)
	})

	t.Run("root signed by a key other than the tag key", func(t *testing.T) {
		other := newKeyPair(t)

		rotated := doc.Clone()
		m, err := NewMethod(rotated.ID(), other.Public, diddoc.Ed25519VerificationKey2018, "sign-1")
		require.NoError(t, err)

		ok, err := rotated.Document.InsertMethod(m, diddoc.ScopeCapabilityInvocation)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, rotated.SignSelf(other.Private, "#sign-1"))
		require.NoError(t, rotated.VerifySelfSigned())
		require.ErrorIs(t, VerifyRoot(rotated), ErrInvalidRootDocument)
	})

	t.Run("method outside capability invocation", func(t *testing.T) {
		auth := doc.Clone()
		m, err := NewMethod(auth.ID(), kp.Public, diddoc.Ed25519VerificationKey2018, "auth")
		require.NoError(t, err)

		_, err = auth.Document.InsertMethod(m, diddoc.ScopeAuthentication)
		require.NoError(t, err)

		require.ErrorIs(t, auth.SignSelf(kp.Private, "#auth"), diddoc.ErrMethodNotFound)
	})
}

func TestMetaDocumentJSON(t *testing.T) {
	doc, _ := newSignedDocument(t)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NotContains(t, string(data), "previousMessageId")

	var decoded MetaDocument
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NoError(t, decoded.VerifySelfSigned())
	require.Equal(t, doc.ID(), decoded.ID())
	require.True(t, doc.Metadata.Created.Equal(decoded.Metadata.Created))

	t.Run("schema violation", func(t *testing.T) {
		_, err := ParseDocument([]byte(`{"id":"did:example:123"}`))
		require.ErrorIs(t, err, ErrSchema)

		_, err = ParseDocument([]byte(`{"id":"did:iota:abc","verificationMethod":[{"id":"did:iota:abc#a"}]}`))
		require.ErrorIs(t, err, ErrSchema)
	})
}

func TestServices(t *testing.T) {
	doc, _ := newSignedDocument(t)

	u, err := doc.ID().URL("linked")
	require.NoError(t, err)

	ok, err := doc.Document.InsertService(&diddoc.Service{ID: *u, Type: "LinkedDomains",
		ServiceEndpoint: diddoc.ServiceEndpoint{One: "https://iota.org"}})
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, doc.Document.Services(), 1)

	bare, err := doc.ID().URL("")
	require.NoError(t, err)

	_, err = doc.Document.InsertService(&diddoc.Service{ID: *bare, Type: "X"})
	require.ErrorIs(t, err, ErrInvalidService)

	require.NoError(t, doc.Document.RemoveService(*u))
	require.Empty(t, doc.Document.Services())
}

func TestSignData(t *testing.T) {
	doc, kp := newSignedDocument(t)

	diff := &DiffMessage{DID: doc.ID(), Diff: "{}", Previous: tangle.MessageID{9}}

	require.NoError(t, doc.Document.SignData(diff, kp.Private, "#sign-0"))
	require.Equal(t, doc.ID().String()+"#sign-0", diff.Proof.VerificationMethod)
	require.NoError(t, doc.Document.VerifyData(diff))
	require.NoError(t, doc.Document.VerifyDataWithScope(diff, diddoc.ScopeCapabilityInvocation))

	_, err := doc.Document.ResolveMethodWithScope("#sign-0", diddoc.ScopeAuthentication)
	require.Error(t, err)
	require.Error(t, doc.Document.VerifyDataWithScope(diff, diddoc.ScopeAuthentication))
	require.ErrorIs(t, doc.Document.VerifyData(&DiffMessage{}), signature.ErrMissingSignature)
}

func TestDiffIndex(t *testing.T) {
	_, err := DiffIndex(tangle.NullMessageID)
	require.ErrorIs(t, err, ErrInvalidMessageID)

	id := tangle.MessageID{1, 2, 3}

	index, err := DiffIndex(id)
	require.NoError(t, err)
	require.Equal(t, did.EncodeKey([]byte(id.String())), index)
}

func TestImplementorsRegistered(t *testing.T) {
	impls, ok := registry.Default().Implementors("iota/document")
	require.True(t, ok)
	require.Len(t, impls, 10)
}

func TestKeyCollectionMethod(t *testing.T) {
	doc, _ := newSignedDocument(t)

	c, err := merkle.NewKeyCollection(8)
	require.NoError(t, err)

	m, err := NewCollectionMethod(doc.ID(), c, "collection")
	require.NoError(t, err)

	inserted, err := doc.Document.InsertMethod(m, diddoc.ScopeVerificationMethod)
	require.NoError(t, err)
	require.True(t, inserted)

	key, err := c.Key(3)
	require.NoError(t, err)

	proof, err := c.MerkleProof(3)
	require.NoError(t, err)

	ok, err := doc.Document.VerifyCollectionMember("#collection", key.Public, proof)
	require.NoError(t, err)
	require.True(t, ok)

	other, err := c.Key(4)
	require.NoError(t, err)

	ok, err = doc.Document.VerifyCollectionMember("#collection", other.Public, proof)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = doc.Document.VerifyCollectionMember("#"+DefaultMethodFragment, key.Public, proof)
	require.ErrorIs(t, err, merkle.ErrInvalidCollection)
}
