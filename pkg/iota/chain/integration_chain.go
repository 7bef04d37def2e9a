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

// IntegrationChain holds the full signed documents published on the integration index of a DID,
// from the root to the current one.
type IntegrationChain struct {
	history []*document.IntegrationMessage
	current *document.IntegrationMessage
}

// NewIntegrationChain starts a chain with root, which must be a valid root document carried by
// a known message.
func NewIntegrationChain(root *document.IntegrationMessage) (*IntegrationChain, error) {
	if err := document.VerifyRoot(&root.Identity); err != nil {
		return nil, chainError(reasonInvalidRoot)
	}

	if root.MessageID().IsNull() {
		return nil, chainError(reasonInvalidMessageID)
	}

	return &IntegrationChain{current: root}, nil
}

// IntegrationChainFromMessages builds the integration chain of id from every message read on its
// integration index. Messages that do not belong to the chain are ignored.
func IntegrationChainFromMessages(id did.IotaDID, messages []tangle.Message) (*IntegrationChain, error) {
	index := tangle.NewMessageIndex[*document.IntegrationMessage]()

	for i := range messages {
		if msg, ok := document.TryExtractIntegration(id, &messages[i]); ok {
			index.Insert(msg)
		}
	}

	logger.Debugf("[Int] Valid Messages = %d/%d", index.Len(), len(messages))

	return IntegrationChainFromIndex(index)
}

// IntegrationChainFromIndex builds an integration chain from indexed messages. The root is the
// first message without a previous id that passes root verification. Each following link is the
// latest valid message referencing the current one.
func IntegrationChainFromIndex(index *tangle.MessageIndex[*document.IntegrationMessage]) (*IntegrationChain, error) {
	root, ok := index.RemoveWhere(tangle.NullMessageID, func(msg *document.IntegrationMessage) bool {
		return document.VerifyRoot(&msg.Identity) == nil
	})
	if !ok {
		return nil, chainError(reasonInvalidRoot)
	}

	c, err := NewIntegrationChain(root)
	if err != nil {
		return nil, err
	}

	for {
		candidates, ok := index.Remove(c.CurrentMessageID())
		if !ok {
			break
		}

		for i := len(candidates) - 1; i >= 0; i-- {
			if err := c.TryPush(candidates[i]); err == nil {
				break
			}
		}
	}

	return c, nil
}

// Current returns the latest integration message.
func (c *IntegrationChain) Current() *document.IntegrationMessage {
	return c.current
}

// CurrentMessageID returns the message id of the latest integration message.
func (c *IntegrationChain) CurrentMessageID() tangle.MessageID {
	return c.current.MessageID()
}

// History returns the messages preceding the current one, oldest first.
func (c *IntegrationChain) History() []*document.IntegrationMessage {
	return c.history
}

// Messages returns the whole chain, oldest first, ending with the current message.
func (c *IntegrationChain) Messages() []*document.IntegrationMessage {
	out := make([]*document.IntegrationMessage, 0, len(c.history)+1)
	out = append(out, c.history...)

	return append(out, c.current)
}

// TryPush appends msg if it is a valid addition.
func (c *IntegrationChain) TryPush(msg *document.IntegrationMessage) error {
	if err := c.CheckValidAddition(msg); err != nil {
		return err
	}

	c.history = append(c.history, c.current)
	c.current = msg

	return nil
}

// IsValidAddition reports whether msg can be pushed.
func (c *IntegrationChain) IsValidAddition(msg *document.IntegrationMessage) bool {
	return c.CheckValidAddition(msg) == nil
}

// CheckValidAddition checks that msg updates the same DID, follows the current message and is
// signed by a capability invocation method of the current document. Publication of msg on the
// Tangle is not verified.
func (c *IntegrationChain) CheckValidAddition(msg *document.IntegrationMessage) error {
	if msg.DID() != c.current.DID() {
		return chainError(reasonInvalidDID)
	}

	if msg.MessageID().IsNull() {
		return chainError(reasonMissingMessageID)
	}

	if msg.PreviousMessageID().IsNull() {
		return chainError(reasonMissingPreviousID)
	}

	if msg.PreviousMessageID() != c.CurrentMessageID() {
		return chainError(reasonInvalidPreviousID)
	}

	if err := document.VerifyMetaDocument(&msg.Identity, c.current.Identity.Document); err != nil {
		logger.Debugf("integration message %s rejected: %s", msg.MessageID(), err)

		return chainError(reasonInvalidSignature)
	}

	return nil
}

type rawIntegrationChain struct {
	History []*document.IntegrationMessage `json:"history,omitempty"`
	Current *document.IntegrationMessage   `json:"current"`
}

// MarshalJSON implements json.Marshaler.
func (c *IntegrationChain) MarshalJSON() ([]byte, error) {
	return json.Marshal(rawIntegrationChain{History: c.history, Current: c.current})
}

// UnmarshalJSON implements json.Unmarshaler. The stored chain is trusted and not re-verified.
func (c *IntegrationChain) UnmarshalJSON(data []byte) error {
	var raw rawIntegrationChain

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Current == nil {
		return chainError("missing current message")
	}

	c.history, c.current = raw.History, raw.Current

	return nil
}

func (c *IntegrationChain) String() string {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<invalid chain: %s>", err)
	}

	return string(data)
}
