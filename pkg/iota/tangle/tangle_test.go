/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tangle

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nanderstabel/identity/pkg/storage/mem"
)

func TestMessageID(t *testing.T) {
	require.True(t, NullMessageID.IsNull())

	raw := strings.Repeat("ab", MessageIDSize)

	id, err := ParseMessageID(raw)
	require.NoError(t, err)
	require.False(t, id.IsNull())
	require.Equal(t, raw, id.String())

	data, err := json.Marshal(id)
	require.NoError(t, err)
	require.Equal(t, `"`+raw+`"`, string(data))

	var decoded MessageID
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, id, decoded)

	_, err = ParseMessageID("abcd")
	require.ErrorIs(t, err, ErrInvalidMessageID)

	_, err = ParseMessageID("zz")
	require.ErrorIs(t, err, ErrInvalidMessageID)
}

func TestNetwork(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"main", true},
		{"dev", true},
		{"a1b2c3", true},
		{"", false},
		{"toolong", false},
		{"Dev", false},
		{"de-v", false},
	}

	for _, tc := range tests {
		_, err := NetworkFromName(tc.name)
		if tc.valid {
			require.NoError(t, err, tc.name)
		} else {
			require.ErrorIs(t, err, ErrInvalidNetworkName, tc.name)
		}
	}

	require.True(t, Mainnet.IsMain())
	require.False(t, Devnet.IsMain())
	require.True(t, Network{}.IsMain())
	require.NotEmpty(t, Mainnet.DefaultNodeURL())
	require.NotEmpty(t, Devnet.ExplorerURL())

	custom, err := NetworkFromName("priv")
	require.NoError(t, err)
	require.Empty(t, custom.DefaultNodeURL())
	require.Empty(t, custom.MessageURL(NullMessageID))
	require.Contains(t, Devnet.MessageURL(NullMessageID), "/message/"+NullMessageID.String())
}

func TestPayload(t *testing.T) {
	type doc struct {
		ID   string `json:"id"`
		Body string `json:"body"`
	}

	in := doc{ID: "did:iota:abc", Body: strings.Repeat("compressible ", 100)}

	payload, err := EncodePayload(in)
	require.NoError(t, err)
	require.Equal(t, PayloadVersion, payload[0])
	require.Equal(t, EncodingJSONBrotli, payload[1])
	require.Less(t, len(payload), len(in.Body))

	var out doc
	require.NoError(t, UnmarshalPayload(payload, &out))
	require.Equal(t, in, out)

	t.Run("uncompressed json", func(t *testing.T) {
		plain := append([]byte{PayloadVersion, EncodingJSON}, []byte(`{"id":"x"}`)...)

		var d doc
		require.NoError(t, UnmarshalPayload(plain, &d))
		require.Equal(t, "x", d.ID)
	})

	t.Run("bad header", func(t *testing.T) {
		_, err := DecodePayload([]byte{1})
		require.ErrorIs(t, err, ErrInvalidPayload)

		_, err = DecodePayload([]byte{2, 0, '{', '}'})
		require.ErrorIs(t, err, ErrInvalidPayload)

		_, err = DecodePayload([]byte{1, 9, '{', '}'})
		require.ErrorIs(t, err, ErrInvalidPayload)

		var d doc
		require.ErrorIs(t, UnmarshalPayload([]byte{1, 0, '['}, &d), ErrInvalidPayload)
	})

	t.Run("decompressed size limit", func(t *testing.T) {
		large, err := EncodePayload(doc{Body: strings.Repeat("0", MaxDecodedPayload)})
		require.NoError(t, err)
		require.Less(t, len(large), MaxDecodedPayload/100)

		_, err = DecodePayload(large)
		require.ErrorIs(t, err, ErrInvalidPayload)
		require.Contains(t, err.Error(), "decompressed size exceeds")

		fits, err := EncodePayload(doc{Body: strings.Repeat("0", MaxDecodedPayload/2)})
		require.NoError(t, err)

		var d doc
		require.NoError(t, UnmarshalPayload(fits, &d))
		require.Len(t, d.Body, MaxDecodedPayload/2)
	})
}

type ref struct {
	name     string
	id, prev MessageID
}

func (r *ref) MessageID() MessageID              { return r.id }
func (r *ref) SetMessageID(id MessageID)         { r.id = id }
func (r *ref) PreviousMessageID() MessageID      { return r.prev }
func (r *ref) SetPreviousMessageID(id MessageID) { r.prev = id }

func TestMessageIndex(t *testing.T) {
	a := MessageID{1}
	b := MessageID{2}

	index := NewMessageIndex(
		&ref{name: "root", id: a},
		&ref{name: "x", id: b, prev: a},
		&ref{name: "y", id: MessageID{3}, prev: a},
	)

	require.Equal(t, 3, index.Len())
	require.Len(t, index.Get(a), 2)

	found, ok := index.RemoveWhere(a, func(r *ref) bool { return r.name == "y" })
	require.True(t, ok)
	require.Equal(t, "y", found.name)

	_, ok = index.RemoveWhere(a, func(r *ref) bool { return r.name == "z" })
	require.False(t, ok)

	items, ok := index.Remove(NullMessageID)
	require.True(t, ok)
	require.Len(t, items, 1)

	require.Len(t, index.Drain(), 1)
	require.True(t, index.IsEmpty())
}

func TestMemTangle(t *testing.T) {
	ctx := context.Background()
	provider := mem.NewProvider()

	ledger, err := NewPersistentMemTangle(provider)
	require.NoError(t, err)
	require.Equal(t, Devnet, ledger.Network())

	sub, cancel := ledger.Subscribe("idx", 4)

	id1, err := ledger.PublishMessage(ctx, "idx", []byte("one"))
	require.NoError(t, err)

	id2, err := ledger.PublishMessage(ctx, "idx", []byte("one"))
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	_, err = ledger.PublishMessage(ctx, "other", []byte("two"))
	require.NoError(t, err)

	select {
	case msg := <-sub:
		require.Equal(t, id1, msg.ID)
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}

	cancel()
	cancel()

	msgs, err := ledger.ReadMessages(ctx, "idx")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, id1, msgs[0].ID)
	require.Equal(t, []MessageID{id1, id2}, ledger.MessageIDs("idx"))

	msg, ok := ledger.Message(id2)
	require.True(t, ok)
	require.Equal(t, []byte("one"), msg.Payload)

	_, err = ledger.PublishMessage(ctx, "", []byte("x"))
	require.Error(t, err)

	t.Run("reload from store", func(t *testing.T) {
		reloaded, err := NewPersistentMemTangle(provider)
		require.NoError(t, err)

		msgs, err := reloaded.ReadMessages(ctx, "idx")
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		require.Equal(t, id1, msgs[0].ID)

		id3, err := reloaded.PublishMessage(ctx, "idx", []byte("one"))
		require.NoError(t, err)
		require.NotEqual(t, id1, id3)
		require.NotEqual(t, id2, id3)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := ledger.ReadMessages(cctx, "idx")
		require.ErrorIs(t, err, context.Canceled)
	})
}
