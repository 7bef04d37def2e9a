/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package chain

import (
	"encoding/json"

	"github.com/nanderstabel/identity/pkg/iota/document"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
)

// DiffChain holds the diffs published on the diff index of an integration message, in order.
type DiffChain struct {
	diffs []*document.DiffMessage
}

// NewDiffChain returns an empty diff chain.
func NewDiffChain() *DiffChain {
	return &DiffChain{}
}

// DiffChainFromMessages builds the diff chain following the current message of ic from every
// message read on its diff index.
func DiffChainFromMessages(ic *IntegrationChain, messages []tangle.Message) (*DiffChain, error) {
	index := extractDiffs(ic.Current(), messages)

	logger.Debugf("[Diff] Valid Messages = %d/%d", index.Len(), len(messages))

	return DiffChainFromIndex(ic, index)
}

// DiffChainFromIndex builds the diff chain following the current message of ic.
func DiffChainFromIndex(ic *IntegrationChain, index *tangle.MessageIndex[*document.DiffMessage]) (*DiffChain, error) {
	return diffChainFromIndexWithIntegration(ic.Current(), index)
}

func extractDiffs(integration *document.IntegrationMessage,
	messages []tangle.Message) *tangle.MessageIndex[*document.DiffMessage] {
	index := tangle.NewMessageIndex[*document.DiffMessage]()

	for i := range messages {
		if diff, ok := document.TryExtractDiff(integration.DID(), &messages[i]); ok {
			index.Insert(diff)
		}
	}

	return index
}

func diffChainFromIndexWithIntegration(integration *document.IntegrationMessage,
	index *tangle.MessageIndex[*document.DiffMessage]) (*DiffChain, error) {
	c := NewDiffChain()

	for !index.IsEmpty() {
		candidates, ok := index.Remove(c.expectedPrevious(integration))
		if !ok {
			break
		}

		for i := len(candidates) - 1; i >= 0; i-- {
			if err := c.tryPush(candidates[i], integration); err == nil {
				break
			}
		}
	}

	return c, nil
}

// Len returns the number of diffs.
func (c *DiffChain) Len() int {
	return len(c.diffs)
}

// IsEmpty reports whether the chain holds no diffs.
func (c *DiffChain) IsEmpty() bool {
	return len(c.diffs) == 0
}

// Clear removes every diff.
func (c *DiffChain) Clear() {
	c.diffs = nil
}

// Diffs returns the diffs in publication order.
func (c *DiffChain) Diffs() []*document.DiffMessage {
	return c.diffs
}

// CurrentMessageID returns the message id of the last diff, or false for an empty chain.
func (c *DiffChain) CurrentMessageID() (tangle.MessageID, bool) {
	if len(c.diffs) == 0 {
		return tangle.NullMessageID, false
	}

	return c.diffs[len(c.diffs)-1].MessageID(), true
}

func (c *DiffChain) expectedPrevious(integration *document.IntegrationMessage) tangle.MessageID {
	if id, ok := c.CurrentMessageID(); ok {
		return id
	}

	return integration.MessageID()
}

// TryPush appends diff if it is a valid addition after the current message of ic.
func (c *DiffChain) TryPush(diff *document.DiffMessage, ic *IntegrationChain) error {
	return c.tryPush(diff, ic.Current())
}

func (c *DiffChain) tryPush(diff *document.DiffMessage, integration *document.IntegrationMessage) error {
	if err := CheckValidDiff(diff, &integration.Identity, c.expectedPrevious(integration)); err != nil {
		return err
	}

	c.diffs = append(c.diffs, diff)

	return nil
}

// CheckValidDiff checks that diff updates doc, follows expectedPrevious and is signed by a
// capability invocation method of doc.
func CheckValidDiff(diff *document.DiffMessage, doc *document.MetaDocument, expectedPrevious tangle.MessageID) error {
	if diff.DID != doc.ID() {
		return chainError(reasonInvalidDID)
	}

	if diff.MessageID().IsNull() {
		return chainError(reasonInvalidMessageID)
	}

	if diff.PreviousMessageID().IsNull() || diff.PreviousMessageID() != expectedPrevious {
		return chainError(reasonInvalidPreviousID)
	}

	if err := doc.VerifyDiff(diff); err != nil {
		logger.Debugf("diff message %s rejected: %s", diff.MessageID(), err)

		return chainError(reasonInvalidSignature)
	}

	return nil
}

// MarshalJSON implements json.Marshaler. A diff chain is the JSON array of its diffs.
func (c *DiffChain) MarshalJSON() ([]byte, error) {
	if c.diffs == nil {
		return []byte("[]"), nil
	}

	return json.Marshal(c.diffs)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *DiffChain) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &c.diffs)
}
