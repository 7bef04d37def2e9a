/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	diddoc "github.com/nanderstabel/identity/pkg/doc/did"
	"github.com/nanderstabel/identity/pkg/doc/signature"
	"github.com/nanderstabel/identity/pkg/doc/signature/registry"
	"github.com/nanderstabel/identity/pkg/iota/document"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
)

const assertionFragment = "vc"

type issuer struct {
	doc       *document.IotaDocument
	signing   *signature.KeyPair
	assertion *signature.KeyPair
}

func newIssuer(t *testing.T) *issuer {
	t.Helper()

	signing, err := signature.NewEd25519KeyPair()
	require.NoError(t, err)

	assertion, err := signature.NewEd25519KeyPair()
	require.NoError(t, err)

	meta, err := document.NewWithOptions(signing, tangle.Devnet, "")
	require.NoError(t, err)

	method, err := document.NewMethod(meta.ID(), assertion.Public, diddoc.Ed25519VerificationKey2018,
		assertionFragment)
	require.NoError(t, err)

	ok, err := meta.Document.InsertMethod(method, diddoc.ScopeAssertionMethod)
	require.NoError(t, err)
	require.True(t, ok)

	return &issuer{doc: meta.Document, signing: signing, assertion: assertion}
}

func newCredential() *Credential {
	return New("https://example.edu/credentials/3732", []Subject{{
		ID: "did:example:ebfeb1f712ebc6f1c276e12ec21",
		Properties: diddoc.Properties{
			"degree": map[string]interface{}{"type": "BachelorDegree", "name": "Bachelor of Science"},
			"GPA":    "4.0",
		},
	}}, "UniversityDegreeCredential")
}

func TestCredential_IssueAndVerify(t *testing.T) {
	iss := newIssuer(t)

	c := newCredential()
	require.NoError(t, c.Issue(iss.doc, iss.assertion.Private, assertionFragment))
	require.Equal(t, iss.doc.ID().String(), c.Issuer)
	require.False(t, c.IssuanceDate.IsZero())
	require.Equal(t, iss.doc.ID().String()+"#"+assertionFragment, c.Proof.VerificationMethod)

	require.NoError(t, c.Verify(iss.doc))
	require.NoError(t, c.Verify(iss.doc, diddoc.ScopeAssertionMethod))
	require.Error(t, c.Verify(iss.doc, diddoc.ScopeAuthentication))

	t.Run("json round trip", func(t *testing.T) {
		data, err := json.Marshal(c)
		require.NoError(t, err)

		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &raw))
		require.IsType(t, map[string]interface{}{}, raw["credentialSubject"])

		parsed, err := Parse(data)
		require.NoError(t, err)
		require.NoError(t, parsed.Verify(iss.doc))

		var props struct {
			GPA    string `json:"GPA"`
			Degree struct {
				Name string `json:"name"`
			} `json:"degree"`
		}

		require.NoError(t, parsed.Subject[0].Properties.Decode(&props))
		require.Equal(t, "4.0", props.GPA)
		require.Equal(t, "Bachelor of Science", props.Degree.Name)
	})

	t.Run("tampered", func(t *testing.T) {
		tampered := *c
		tampered.Types = append([]string{}, c.Types...)
		tampered.Types = append(tampered.Types, "Forged")

		require.ErrorIs(t, tampered.Verify(iss.doc), signature.ErrInvalidSignature)
	})

	t.Run("other issuer", func(t *testing.T) {
		require.ErrorIs(t, c.Verify(newIssuer(t).doc), ErrIssuerMismatch)
	})

	t.Run("expired", func(t *testing.T) {
		expired := newCredential()
		past := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
		expired.ExpirationDate = &past

		require.NoError(t, expired.Issue(iss.doc, iss.assertion.Private, assertionFragment))
		require.ErrorIs(t, expired.Verify(iss.doc), ErrExpired)
	})

	t.Run("wrong key", func(t *testing.T) {
		require.Error(t, newCredential().Issue(iss.doc, iss.signing.Private, "missing"))
	})
}

func TestCredential_Check(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Credential)
	}{
		{"context", func(c *Credential) { c.Context = []string{"https://example.org"} }},
		{"type", func(c *Credential) { c.Types = []string{"Other"} }},
		{"issuer", func(c *Credential) { c.Issuer = "" }},
		{"subject", func(c *Credential) { c.Subject = nil }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newCredential()
			c.Issuer = "did:example:issuer"
			tc.mutate(c)

			require.ErrorIs(t, c.Check(), ErrInvalidCredential)
		})
	}
}

func TestJWT(t *testing.T) {
	iss := newIssuer(t)

	c := newCredential()
	c.Issuer = iss.doc.ID().String()
	c.IssuanceDate = document.Now()

	kid := iss.doc.ID().String() + "#" + assertionFragment

	token, err := SignJWT(c, iss.assertion.Private, kid)
	require.NoError(t, err)

	gotKid, err := token.KeyID()
	require.NoError(t, err)
	require.Equal(t, kid, gotKid)

	parsed, err := ParseJWT(token, iss.assertion.Public)
	require.NoError(t, err)
	require.Equal(t, c.Issuer, parsed.Issuer)
	require.Equal(t, c.ID, parsed.ID)
	require.True(t, c.IssuanceDate.Equal(parsed.IssuanceDate))
	require.Equal(t, c.Subject[0].ID, parsed.Subject[0].ID)

	verified, err := VerifyJWT(token, iss.doc)
	require.NoError(t, err)
	require.Equal(t, c.Types, verified.Types)

	_, err = ParseJWT(token, iss.signing.Public)
	require.ErrorIs(t, err, ErrInvalidJWT)

	_, err = VerifyJWT(token, newIssuer(t).doc)
	require.ErrorIs(t, err, ErrInvalidJWT)

	_, err = ParseJWT("not.a.jwt", iss.assertion.Public)
	require.ErrorIs(t, err, ErrInvalidJWT)

	t.Run("expired", func(t *testing.T) {
		expired := newCredential()
		expired.Issuer = c.Issuer
		expired.IssuanceDate = document.Now().Add(-2 * time.Hour)
		exp := document.Now().Add(-time.Hour)
		expired.ExpirationDate = &exp

		token, err := SignJWT(expired, iss.assertion.Private, kid)
		require.NoError(t, err)

		_, err = ParseJWT(token, iss.assertion.Public)
		require.ErrorIs(t, err, ErrExpired)
	})
}

func TestPresentation(t *testing.T) {
	iss := newIssuer(t)
	holder := newIssuer(t)

	c := newCredential()
	require.NoError(t, c.Issue(iss.doc, iss.assertion.Private, assertionFragment))

	token, err := SignJWT(c, iss.assertion.Private, c.Proof.VerificationMethod)
	require.NoError(t, err)

	p := NewPresentation("urn:uuid:3978344f-8596-4c3a-a978-8fcaba3903c5",
		UnknownCredential{Credential: c},
		UnknownCredential{JWT: token},
		UnknownCredential{Other: map[string]interface{}{"kind": "custom"}})

	require.NoError(t, p.Sign(holder.doc, holder.signing.Private, document.DefaultMethodFragment))
	require.NoError(t, p.Verify(holder.doc, diddoc.ScopeCapabilityInvocation))
	require.ErrorIs(t, p.Verify(iss.doc), ErrIssuerMismatch)

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded Presentation
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NoError(t, decoded.Verify(holder.doc))
	require.Len(t, decoded.Credential, 3)

	require.NotNil(t, decoded.Credential[0].Credential)
	require.NoError(t, decoded.Credential[0].Credential.Verify(iss.doc))

	require.True(t, decoded.Credential[1].IsJWT())
	_, err = VerifyJWT(decoded.Credential[1].JWT, iss.doc)
	require.NoError(t, err)

	require.Nil(t, decoded.Credential[2].Credential)
	require.Equal(t, "custom", decoded.Credential[2].Other["kind"])
}

func TestUnknownCredential(t *testing.T) {
	var u UnknownCredential

	require.NoError(t, json.Unmarshal([]byte(`{"@context":["x"],"type":"y"}`), &u))
	require.Nil(t, u.Credential)
	require.Len(t, u.Other, 2)

	require.Error(t, json.Unmarshal([]byte(`12`), &u))
}

func TestImplementors(t *testing.T) {
	impls, ok := registry.Default().Implementors("credential")
	require.True(t, ok)
	require.Len(t, impls, 6)

	for _, typ := range []string{"Credential", "Presentation"} {
		for _, capability := range []string{registry.TrySignature, registry.TrySignatureMut, registry.SetSignature} {
			require.Contains(t, impls, registry.Implementor{Type: typ, Capability: capability})
		}
	}

	t.Run("proofs are mutable through the accessor", func(t *testing.T) {
		c := newCredential()
		c.SetSignature(&signature.Signature{})

		c.Signature().VerificationMethod = "#key-1"
		require.Equal(t, "#key-1", c.Proof.VerificationMethod)
	})
}
