/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package chain

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	diddoc "github.com/nanderstabel/identity/pkg/doc/did"
	"github.com/nanderstabel/identity/pkg/doc/signature"
	"github.com/nanderstabel/identity/pkg/iota/document"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
)

type fixture struct {
	t      *testing.T
	tangle *tangle.MemTangle
	keys   map[string]*signature.KeyPair
	root   *document.IntegrationMessage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	kp, err := signature.NewEd25519KeyPair()
	require.NoError(t, err)

	doc, err := document.NewWithOptions(kp, tangle.Devnet, "")
	require.NoError(t, err)
	require.NoError(t, doc.SignSelf(kp.Private, "#"+document.DefaultMethodFragment))

	f := &fixture{t: t, tangle: tangle.NewMemTangle(), keys: map[string]*signature.KeyPair{document.DefaultMethodFragment: kp}}
	f.root = f.publishIntegration(document.NewIntegrationMessage(doc))

	return f
}

func (f *fixture) publish(index string, v interface{}) tangle.MessageID {
	f.t.Helper()

	payload, err := tangle.EncodePayload(v)
	require.NoError(f.t, err)

	id, err := f.tangle.PublishMessage(context.Background(), index, payload)
	require.NoError(f.t, err)

	return id
}

func (f *fixture) publishIntegration(msg *document.IntegrationMessage) *document.IntegrationMessage {
	f.t.Helper()

	msg.SetMessageID(f.publish(msg.Identity.Document.IntegrationIndex(), msg))

	return msg
}

// rotate returns an update of current whose only method is a new capability invocation key
// named fragment, signed by the current key.
func (f *fixture) rotate(current *document.IntegrationMessage, fragment string) *document.IntegrationMessage {
	f.t.Helper()

	kp, err := signature.NewEd25519KeyPair()
	require.NoError(f.t, err)

	next := current.Clone()

	for _, m := range next.Identity.Document.Methods() {
		require.NoError(f.t, next.Identity.Document.RemoveMethod(m.ID))
	}

	method, err := document.NewMethod(next.DID(), kp.Public, diddoc.Ed25519VerificationKey2018, fragment)
	require.NoError(f.t, err)

	_, err = next.Identity.Document.InsertMethod(method, diddoc.ScopeCapabilityInvocation)
	require.NoError(f.t, err)

	next.Identity.Metadata.Updated = next.Identity.Metadata.Updated.Add(time.Second)
	next.SetPreviousMessageID(current.MessageID())

	signing, err := current.Identity.Document.DefaultSigningMethod()
	require.NoError(f.t, err)
	require.NoError(f.t, current.Identity.Document.SignData(&next.Identity, f.keys[signing.ID.Fragment].Private,
		signing.ID.String()))

	f.keys[fragment] = kp

	return next
}

// diff returns a signed diff of current adding alsoKnownAs, linked to previous.
func (f *fixture) diff(current *document.IntegrationMessage, previous tangle.MessageID,
	aka string) *document.DiffMessage {
	f.t.Helper()

	updated := current.Identity.Clone()
	updated.Document.Core().AlsoKnownAs = append(updated.Document.Core().AlsoKnownAs, aka)

	signing, err := current.Identity.Document.DefaultSigningMethod()
	require.NoError(f.t, err)

	diff, err := current.Identity.Diff(updated, previous, f.keys[signing.ID.Fragment].Private, "#"+signing.ID.Fragment)
	require.NoError(f.t, err)

	return diff
}

func (f *fixture) publishDiff(integrationID tangle.MessageID, diff *document.DiffMessage) *document.DiffMessage {
	f.t.Helper()

	index, err := document.DiffIndex(integrationID)
	require.NoError(f.t, err)

	diff.SetMessageID(f.publish(index, diff))

	return diff
}

func TestNewIntegrationChain(t *testing.T) {
	f := newFixture(t)

	c, err := NewIntegrationChain(f.root)
	require.NoError(t, err)
	require.Equal(t, f.root.MessageID(), c.CurrentMessageID())
	require.Empty(t, c.History())
	require.Len(t, c.Messages(), 1)

	t.Run("null message id", func(t *testing.T) {
		root := f.root.Clone()
		root.SetMessageID(tangle.NullMessageID)

		_, err := NewIntegrationChain(root)
		require.ErrorIs(t, err, ErrChain)
	})

	t.Run("not a root", func(t *testing.T) {
		next := f.rotate(f.root, "key-2")
		next.SetMessageID(tangle.MessageID{1})

		_, err := NewIntegrationChain(next)
		require.ErrorIs(t, err, ErrChain)
	})
}

func TestIntegrationChain_TryPush(t *testing.T) {
	f := newFixture(t)

	c, err := NewIntegrationChain(f.root)
	require.NoError(t, err)

	next := f.rotate(f.root, "key-2")

	t.Run("missing message id", func(t *testing.T) {
		err := c.CheckValidAddition(next)
		require.Error(t, err)

		var chainErr *ChainError
		require.ErrorAs(t, err, &chainErr)
		require.Equal(t, reasonMissingMessageID, chainErr.Reason)
	})

	next.SetMessageID(tangle.MessageID{2})

	t.Run("wrong previous id", func(t *testing.T) {
		wrong := next.Clone()
		wrong.SetPreviousMessageID(tangle.MessageID{3})
		require.False(t, c.IsValidAddition(wrong))
	})

	t.Run("other DID", func(t *testing.T) {
		other := newFixture(t)
		msg := other.root.Clone()
		msg.SetPreviousMessageID(f.root.MessageID())
		require.False(t, c.IsValidAddition(msg))
	})

	t.Run("signed by a key of the new document", func(t *testing.T) {
		forged := next.Clone()
		forged.Identity.Metadata.Proof = nil
		require.NoError(t, forged.Identity.SignSelf(f.keys["key-2"].Private, "#key-2"))

		err := c.CheckValidAddition(forged)
		require.Error(t, err)

		var chainErr *ChainError
		require.ErrorAs(t, err, &chainErr)
		require.Equal(t, reasonInvalidSignature, chainErr.Reason)
	})

	require.NoError(t, c.TryPush(next))
	require.Equal(t, next.MessageID(), c.CurrentMessageID())
	require.Len(t, c.History(), 1)
	require.Equal(t, []*document.IntegrationMessage{f.root, next}, c.Messages())
}

func TestIntegrationChainFromMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	index := f.root.Identity.Document.IntegrationIndex()

	second := f.publishIntegration(f.rotate(f.root, "key-2"))

	// A later update with an invalid signature must not displace the valid one.
	forged := f.rotate(second, "key-3")
	forged.SetPreviousMessageID(f.root.MessageID())
	f.publishIntegration(forged)

	third := f.publishIntegration(f.rotate(second, "key-4"))

	f.publish(index, map[string]string{"hello": "world"})

	messages, err := f.tangle.ReadMessages(ctx, index)
	require.NoError(t, err)
	require.Len(t, messages, 5)

	c, err := IntegrationChainFromMessages(f.root.DID(), messages)
	require.NoError(t, err)
	require.Equal(t, third.MessageID(), c.CurrentMessageID())
	require.Len(t, c.History(), 2)

	_, err = c.Current().Identity.Document.ResolveMethodWithScope("#key-4", diddoc.ScopeCapabilityInvocation)
	require.NoError(t, err)

	t.Run("latest valid candidate wins", func(t *testing.T) {
		a := f.rotate(third, "key-5")
		a.SetMessageID(tangle.MessageID{10})

		signer := f.keys["key-4"]
		b := third.Clone()
		b.SetPreviousMessageID(third.MessageID())
		b.Identity.Metadata.Updated = b.Identity.Metadata.Updated.Add(time.Minute)
		b.Identity.Metadata.Proof = nil
		require.NoError(t, third.Identity.Document.SignData(&b.Identity, signer.Private, "#key-4"))
		b.SetMessageID(tangle.MessageID{11})

		idx := tangle.NewMessageIndex(c.Messages()...)
		idx.Insert(a)
		idx.Insert(b)

		rebuilt, err := IntegrationChainFromIndex(idx)
		require.NoError(t, err)
		require.Equal(t, b.MessageID(), rebuilt.CurrentMessageID())
	})

	t.Run("no root", func(t *testing.T) {
		_, err := IntegrationChainFromMessages(f.root.DID(), messages[1:])
		require.ErrorIs(t, err, ErrChain)
	})

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal(c)
		require.NoError(t, err)

		var decoded IntegrationChain
		require.NoError(t, json.Unmarshal(data, &decoded))
		require.Equal(t, c.CurrentMessageID(), decoded.CurrentMessageID())
		require.Len(t, decoded.History(), 2)
	})
}

func TestDocumentChain(t *testing.T) {
	f := newFixture(t)

	ic, err := NewIntegrationChain(f.root)
	require.NoError(t, err)

	c := NewDocumentChain(ic)
	require.Equal(t, f.root.DID(), c.ID())
	require.Equal(t, f.root.MessageID(), c.DiffMessageID())
	require.Same(t, f.root, c.Current())

	first := f.diff(c.Current(), c.DiffMessageID(), "https://first.example")
	first.SetMessageID(tangle.MessageID{20})
	require.NoError(t, c.TryPushDiff(first))
	require.Equal(t, first.MessageID(), c.DiffMessageID())
	require.Equal(t, []string{"https://first.example"}, c.Current().Identity.Document.AlsoKnownAs())
	require.Equal(t, first.MessageID(), c.Current().DiffMessageID())

	t.Run("diff with stale previous id", func(t *testing.T) {
		stale := f.diff(c.Current(), f.root.MessageID(), "https://stale.example")
		stale.SetMessageID(tangle.MessageID{21})
		require.ErrorIs(t, c.TryPushDiff(stale), ErrChain)
	})

	second := f.diff(c.Current(), c.DiffMessageID(), "https://second.example")
	second.SetMessageID(tangle.MessageID{22})
	require.NoError(t, c.TryPushDiff(second))
	require.Equal(t, 2, c.DiffChain().Len())

	folded, err := c.Fold()
	require.NoError(t, err)
	require.Equal(t, []string{"https://first.example", "https://second.example"},
		folded.Identity.Document.AlsoKnownAs())

	t.Run("diff signed by a non capability invocation key", func(t *testing.T) {
		other, err := signature.NewEd25519KeyPair()
		require.NoError(t, err)

		bad := f.diff(c.Current(), c.DiffMessageID(), "https://bad.example")
		require.NoError(t, c.Current().Identity.Document.SignData(bad, other.Private, "#sign-0"))
		bad.SetMessageID(tangle.MessageID{23})
		require.ErrorIs(t, c.TryPushDiff(bad), ErrChain)
	})

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal(c)
		require.NoError(t, err)

		var decoded DocumentChain
		require.NoError(t, json.Unmarshal(data, &decoded))
		require.Equal(t, 2, decoded.DiffChain().Len())
		require.Equal(t, c.IntegrationMessageID(), decoded.IntegrationMessageID())
		require.Equal(t, c.Current().Identity.Document.AlsoKnownAs(), decoded.Current().Identity.Document.AlsoKnownAs())
	})

	next := f.rotate(c.IntegrationChain().Current(), "key-2")
	next.SetMessageID(tangle.MessageID{30})
	require.NoError(t, c.TryPushIntegration(next))
	require.True(t, c.DiffChain().IsEmpty())
	require.Equal(t, next.MessageID(), c.DiffMessageID())
	require.Same(t, next, c.Current())
}

func TestReadDocumentChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.publishDiff(f.root.MessageID(), f.diff(f.root, f.root.MessageID(), "https://first.example"))

	merged, err := MergeDiffMessage(f.root, first)
	require.NoError(t, err)

	second := f.publishDiff(f.root.MessageID(), f.diff(merged, first.MessageID(), "https://second.example"))

	diffIndex, err := document.DiffIndex(f.root.MessageID())
	require.NoError(t, err)
	f.publish(diffIndex, "spam")

	c, err := ReadDocumentChain(ctx, f.tangle, f.root.DID())
	require.NoError(t, err)
	require.Equal(t, 2, c.DiffChain().Len())
	require.Equal(t, second.MessageID(), c.DiffMessageID())
	require.Equal(t, []string{"https://first.example", "https://second.example"},
		c.Current().Identity.Document.AlsoKnownAs())

	history, err := ReadHistory(ctx, f.tangle, f.root.DID())
	require.NoError(t, err)
	require.Len(t, history.IntegrationChainData, 1)
	require.Empty(t, history.IntegrationChainSpam)
	require.Len(t, history.DiffChainData, 2)
	require.Len(t, history.DiffChainSpam, 1)

	t.Run("diff history of an older integration message", func(t *testing.T) {
		messages, err := f.tangle.ReadMessages(ctx, diffIndex)
		require.NoError(t, err)

		h, err := DiffHistoryFromMessages(f.root, messages)
		require.NoError(t, err)
		require.Len(t, h.ChainData, 2)
		require.Len(t, h.Spam, 1)
	})

	t.Run("unknown DID", func(t *testing.T) {
		other := newFixture(t)

		_, err := ReadDocumentChain(ctx, f.tangle, other.root.DID())
		require.ErrorIs(t, err, ErrChain)
	})
}
