/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package document

import (
	"encoding/json"
	"errors"

	"github.com/nanderstabel/identity/pkg/doc/signature"
	"github.com/nanderstabel/identity/pkg/iota/did"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
)

// IntegrationMessage is the payload of the integration chain: a signed document plus the id of
// the message carrying it and of the last diff it integrates.
type IntegrationMessage struct {
	Identity MetaDocument

	messageID     tangle.MessageID
	diffMessageID tangle.MessageID
}

// NewIntegrationMessage wraps identity for publication.
func NewIntegrationMessage(identity *MetaDocument) *IntegrationMessage {
	return &IntegrationMessage{Identity: *identity}
}

type rawIntegrationMessage struct {
	Identity      MetaDocument      `json:"identity"`
	MessageID     *tangle.MessageID `json:"messageId,omitempty"`
	DiffMessageID *tangle.MessageID `json:"diffMessageId,omitempty"`
}

// MarshalJSON implements json.Marshaler. Null ids are omitted.
func (m IntegrationMessage) MarshalJSON() ([]byte, error) {
	raw := rawIntegrationMessage{Identity: m.Identity}

	if !m.messageID.IsNull() {
		id := m.messageID
		raw.MessageID = &id
	}

	if !m.diffMessageID.IsNull() {
		id := m.diffMessageID
		raw.DiffMessageID = &id
	}

	return json.Marshal(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *IntegrationMessage) UnmarshalJSON(data []byte) error {
	var raw rawIntegrationMessage

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Identity.Document == nil {
		return errors.New("integration message has no document")
	}

	*m = IntegrationMessage{Identity: raw.Identity}

	if raw.MessageID != nil {
		m.messageID = *raw.MessageID
	}

	if raw.DiffMessageID != nil {
		m.diffMessageID = *raw.DiffMessageID
	}

	return nil
}

// DID returns the DID of the carried document.
func (m *IntegrationMessage) DID() did.IotaDID {
	return m.Identity.ID()
}

// Signature returns the proof of the carried document.
func (m *IntegrationMessage) Signature() *signature.Signature {
	return m.Identity.Signature()
}

// SetSignature sets the proof of the carried document.
func (m *IntegrationMessage) SetSignature(s *signature.Signature) {
	m.Identity.SetSignature(s)
}

// MessageID returns the id of the message carrying the document.
func (m *IntegrationMessage) MessageID() tangle.MessageID {
	return m.messageID
}

// SetMessageID sets the id of the message carrying the document.
func (m *IntegrationMessage) SetMessageID(id tangle.MessageID) {
	m.messageID = id
}

// PreviousMessageID returns the integration message this one follows.
func (m *IntegrationMessage) PreviousMessageID() tangle.MessageID {
	return m.Identity.Metadata.PreviousMessageID
}

// SetPreviousMessageID sets the integration message this one follows.
func (m *IntegrationMessage) SetPreviousMessageID(id tangle.MessageID) {
	m.Identity.Metadata.PreviousMessageID = id
}

// DiffMessageID returns the last diff integrated by this message.
func (m *IntegrationMessage) DiffMessageID() tangle.MessageID {
	return m.diffMessageID
}

// SetDiffMessageID sets the last diff integrated by this message.
func (m *IntegrationMessage) SetDiffMessageID(id tangle.MessageID) {
	m.diffMessageID = id
}

// Clone returns a deep copy of m.
func (m *IntegrationMessage) Clone() *IntegrationMessage {
	return &IntegrationMessage{
		Identity:      *m.Identity.Clone(),
		messageID:     m.messageID,
		diffMessageID: m.diffMessageID,
	}
}
