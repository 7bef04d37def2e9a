/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package tangle models Tangle messages and provides clients that publish and read indexed
// messages from a node.
package tangle

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// MessageIDSize is the size of a message id.
const MessageIDSize = 32

// ErrInvalidMessageID is returned when a message id cannot be decoded.
var ErrInvalidMessageID = errors.New("invalid message id")

// MessageID identifies a Tangle message.
type MessageID [MessageIDSize]byte

// NullMessageID is the all-zero message id marking the start of a chain.
var NullMessageID MessageID //nolint:gochecknoglobals

// ParseMessageID decodes a hex message id.
func ParseMessageID(s string) (MessageID, error) {
	var id MessageID

	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("%w: %s", ErrInvalidMessageID, err.Error())
	}

	if len(raw) != MessageIDSize {
		return id, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidMessageID, MessageIDSize, len(raw))
	}

	copy(id[:], raw)

	return id, nil
}

// IsNull reports whether id is the null message id.
func (id MessageID) IsNull() bool {
	return id == NullMessageID
}

// String returns the hex encoding of id.
func (id MessageID) String() string {
	return hex.EncodeToString(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id MessageID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *MessageID) UnmarshalText(text []byte) error {
	parsed, err := ParseMessageID(string(text))
	if err != nil {
		return err
	}

	*id = parsed

	return nil
}

// Message is an indexed message read from the Tangle.
type Message struct {
	ID      MessageID `json:"id"`
	Index   string    `json:"index"`
	Payload []byte    `json:"payload"`
}
