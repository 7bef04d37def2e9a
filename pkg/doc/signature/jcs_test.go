/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package signature

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testData struct {
	Name  string     `json:"name"`
	Count int        `json:"count"`
	Proof *Signature `json:"proof,omitempty"`
}

func (d *testData) Signature() *Signature     { return d.Proof }
func (d *testData) SetSignature(s *Signature) { d.Proof = s }

func TestCanonicalize(t *testing.T) {
	out, err := Canonicalize(map[string]interface{}{"b": 1, "a": "x"})
	require.NoError(t, err)
	require.Equal(t, `{"a":"x","b":1}`, string(out))
}

func TestJcsEd25519(t *testing.T) {
	kp, err := NewEd25519KeyPair()
	require.NoError(t, err)

	data := &testData{Name: "alice", Count: 3}

	require.NoError(t, Sign(data, "#sign-0", kp.Private))
	require.NotNil(t, data.Proof)
	require.Equal(t, JcsEd25519Signature2020, data.Proof.Type)
	require.Equal(t, "#sign-0", data.Proof.VerificationMethod)
	require.NotEmpty(t, data.Proof.SignatureValue)

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, Verify(data, kp.Public))
		require.NotEmpty(t, data.Proof.SignatureValue)
	})

	t.Run("tampered", func(t *testing.T) {
		tampered := *data
		tampered.Count = 4
		require.ErrorIs(t, Verify(&tampered, kp.Public), ErrInvalidSignature)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := NewEd25519KeyPair()
		require.NoError(t, err)
		require.ErrorIs(t, Verify(data, other.Public), ErrInvalidSignature)
		require.ErrorIs(t, Verify(data, other.Public[:5]), ErrInvalidKey)
	})

	t.Run("missing and unsupported", func(t *testing.T) {
		require.ErrorIs(t, Verify(&testData{}, kp.Public), ErrMissingSignature)

		unsupported := &testData{Proof: &Signature{Type: "RsaSignature2018", VerificationMethod: "#a"}}
		require.ErrorIs(t, Verify(unsupported, kp.Public), ErrUnsupportedType)
	})

	t.Run("bad private key", func(t *testing.T) {
		require.ErrorIs(t, Sign(&testData{}, "#a", kp.Private[:10]), ErrInvalidKey)
	})
}

func TestKeyPairFromPrivate(t *testing.T) {
	kp, err := NewEd25519KeyPair()
	require.NoError(t, err)

	fromFull, err := KeyPairFromPrivate(kp.Private)
	require.NoError(t, err)
	require.Equal(t, kp.Public, fromFull.Public)

	fromSeed, err := KeyPairFromPrivate(kp.Private.Seed())
	require.NoError(t, err)
	require.Equal(t, kp.Private, fromSeed.Private)

	_, err = KeyPairFromPrivate([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidKey)

	sig := kp.Sign([]byte("msg"))
	require.Len(t, sig, 64)
}
