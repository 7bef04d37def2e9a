/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package chain

import (
	"encoding/json"
	"fmt"

	"github.com/nanderstabel/identity/pkg/iota/did"
	"github.com/nanderstabel/identity/pkg/iota/document"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
)

// DocumentChain pairs an integration chain with the diff chain of its current message and keeps
// the resulting document.
type DocumentChain struct {
	integration *IntegrationChain
	diff        *DiffChain
	merged      *document.IntegrationMessage
}

// NewDocumentChain returns a document chain with an empty diff chain.
func NewDocumentChain(ic *IntegrationChain) *DocumentChain {
	return &DocumentChain{integration: ic, diff: NewDiffChain()}
}

// NewDocumentChainWithDiffChain returns a document chain whose current document is the current
// integration document with every diff of dc applied.
func NewDocumentChainWithDiffChain(ic *IntegrationChain, dc *DiffChain) (*DocumentChain, error) {
	c := &DocumentChain{integration: ic, diff: dc}

	if dc.IsEmpty() {
		return c, nil
	}

	merged, err := c.Fold()
	if err != nil {
		return nil, err
	}

	c.merged = merged

	return c, nil
}

// MergeDiffMessage returns a copy of msg with diff applied and its diff message id set to the
// id of diff. The diff is assumed to be validated.
func MergeDiffMessage(msg *document.IntegrationMessage, diff *document.DiffMessage) (*document.IntegrationMessage,
	error) {
	merged, err := diff.Merge(&msg.Identity)
	if err != nil {
		return nil, err
	}

	out := msg.Clone()
	out.Identity = *merged
	out.SetDiffMessageID(diff.MessageID())

	return out, nil
}

// ID returns the DID of the chain.
func (c *DocumentChain) ID() did.IotaDID {
	return c.integration.Current().DID()
}

// IntegrationChain returns the integration chain.
func (c *DocumentChain) IntegrationChain() *IntegrationChain {
	return c.integration
}

// DiffChain returns the diff chain of the current integration message.
func (c *DocumentChain) DiffChain() *DiffChain {
	return c.diff
}

// Fold applies the diff chain to the current integration document.
func (c *DocumentChain) Fold() (*document.IntegrationMessage, error) {
	current := c.integration.Current().Clone()

	for _, diff := range c.diff.Diffs() {
		merged, err := MergeDiffMessage(current, diff)
		if err != nil {
			return nil, err
		}

		current = merged
	}

	return current, nil
}

// Current returns the latest state of the document.
func (c *DocumentChain) Current() *document.IntegrationMessage {
	if c.merged != nil {
		return c.merged
	}

	return c.integration.Current()
}

// IntegrationMessageID returns the id of the current integration message.
func (c *DocumentChain) IntegrationMessageID() tangle.MessageID {
	return c.integration.CurrentMessageID()
}

// DiffMessageID returns the id a new diff must reference: the last diff, or the current
// integration message when there is none.
func (c *DocumentChain) DiffMessageID() tangle.MessageID {
	return c.diff.expectedPrevious(c.integration.Current())
}

// TryPushIntegration appends msg to the integration chain and starts a new empty diff chain.
func (c *DocumentChain) TryPushIntegration(msg *document.IntegrationMessage) error {
	if err := c.integration.TryPush(msg); err != nil {
		return err
	}

	c.diff.Clear()
	c.merged = nil

	return nil
}

// TryPushDiff validates diff against the current integration document, merges it into the
// current state and appends it to the diff chain.
func (c *DocumentChain) TryPushDiff(diff *document.DiffMessage) error {
	integration := c.integration.Current()

	if err := CheckValidDiff(diff, &integration.Identity, c.DiffMessageID()); err != nil {
		return err
	}

	merged, err := MergeDiffMessage(c.Current(), diff)
	if err != nil {
		return err
	}

	c.diff.diffs = append(c.diff.diffs, diff)
	c.merged = merged

	return nil
}

type rawDocumentChain struct {
	Integration *IntegrationChain            `json:"integrationChain"`
	Diff        *DiffChain                   `json:"diffChain"`
	Merged      *document.IntegrationMessage `json:"identity,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (c *DocumentChain) MarshalJSON() ([]byte, error) {
	return json.Marshal(rawDocumentChain{Integration: c.integration, Diff: c.diff, Merged: c.merged})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *DocumentChain) UnmarshalJSON(data []byte) error {
	var raw rawDocumentChain

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Integration == nil {
		return chainError("missing integration chain")
	}

	if raw.Diff == nil {
		raw.Diff = NewDiffChain()
	}

	c.integration, c.diff, c.merged = raw.Integration, raw.Diff, raw.Merged

	return nil
}

func (c *DocumentChain) String() string {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<invalid chain: %s>", err)
	}

	return string(data)
}
