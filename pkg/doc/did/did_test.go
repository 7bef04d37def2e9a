/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDID(t *testing.T) {
	t.Run("scheme is always 'did'", func(t *testing.T) {
		did, err := Parse("did:example:123")
		require.NoError(t, err)
		require.Equal(t, "did", did.Scheme)
	})
	t.Run("parse method", func(t *testing.T) {
		did, err := Parse("did:example:123")
		require.NoError(t, err)
		require.Equal(t, "example", did.Method)
	})
	t.Run("allow more than 2 colons in method-specific-id", func(t *testing.T) {
		const id = "dev:a:b"
		did, err := Parse("did:iota:" + id)
		require.NoError(t, err)
		require.Equal(t, id, did.MethodSpecificID)
	})
	t.Run("disallow less than 3 parts", func(t *testing.T) {
		_, err := Parse("did:test")
		require.ErrorIs(t, err, ErrInvalidDID)
	})
	t.Run("disallow empty method-specific-id", func(t *testing.T) {
		_, err := Parse("did:test:")
		require.Error(t, err)
	})
	t.Run("disallow trailing colon in method-specific-id", func(t *testing.T) {
		_, err := Parse("did:test:a:b:")
		require.Error(t, err)
	})
	t.Run("disallow scheme other than 'did'", func(t *testing.T) {
		_, err := Parse("invalid:test:abcdefg123")
		require.Error(t, err)
	})
	t.Run("string round trip", func(t *testing.T) {
		const expected = "did:example:123456"
		did, err := Parse(expected)
		require.NoError(t, err)
		require.Equal(t, expected, did.String())
	})
}

func TestParseURL(t *testing.T) {
	t.Run("full url", func(t *testing.T) {
		u, err := ParseURL("did:example:123/path/a?service=x#key-1")
		require.NoError(t, err)
		require.Equal(t, "did:example:123", u.DID.String())
		require.Equal(t, "/path/a", u.Path)
		require.Equal(t, "service=x", u.Query)
		require.Equal(t, "key-1", u.Fragment)
		require.Equal(t, "did:example:123/path/a?service=x#key-1", u.String())
	})

	t.Run("bare did", func(t *testing.T) {
		u, err := ParseURL("did:example:123")
		require.NoError(t, err)
		require.Empty(t, u.Fragment)
		require.Equal(t, "did:example:123", u.String())
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseURL("did:example#frag")
		require.ErrorIs(t, err, ErrInvalidDIDURL)
	})

	t.Run("join", func(t *testing.T) {
		u, err := ParseURL("did:example:123#a")
		require.NoError(t, err)

		joined, err := u.Join("#b")
		require.NoError(t, err)
		require.Equal(t, "did:example:123#b", joined.String())
		require.Equal(t, "a", u.Fragment)

		_, err = u.Join("")
		require.Error(t, err)
	})

	t.Run("matches", func(t *testing.T) {
		u, err := ParseURL("did:example:123#key-1")
		require.NoError(t, err)
		require.True(t, u.Matches("#key-1"))
		require.True(t, u.Matches("key-1"))
		require.True(t, u.Matches("did:example:123#key-1"))
		require.False(t, u.Matches("did:example:456#key-1"))
		require.False(t, u.Matches("#key-2"))
	})
}

func TestMethodScope(t *testing.T) {
	for _, scope := range Scopes() {
		parsed, err := ParseMethodScope(scope.String())
		require.NoError(t, err)
		require.Equal(t, scope, parsed)
	}

	_, err := ParseMethodScope("signing")
	require.Error(t, err)
}
