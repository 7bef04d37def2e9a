/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tangle

import (
	"context"
	"encoding/hex"
)

// Client publishes and reads indexed messages.
type Client interface {
	// PublishMessage attaches payload under index and returns the new message id.
	PublishMessage(ctx context.Context, index string, payload []byte) (MessageID, error)
	// ReadMessages returns every message published under index.
	ReadMessages(ctx context.Context, index string) ([]Message, error)
}

// Networked is implemented by clients bound to a specific network.
type Networked interface {
	Network() Network
}

// EncodeIndex returns the hex form of an index as used by node APIs.
func EncodeIndex(index string) string {
	return hex.EncodeToString([]byte(index))
}

// DecodeIndex reverses EncodeIndex.
func DecodeIndex(encoded string) (string, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return "", err
	}

	return string(raw), nil
}

// NodeMessage is the JSON form of a message in the node API.
type NodeMessage struct {
	MessageID string      `json:"messageId"`
	Payload   NodePayload `json:"payload"`
}

// NodePayload is an indexation payload: hex index and hex data.
type NodePayload struct {
	Index string `json:"index"`
	Data  string `json:"data"`
}

// NodeMessageIDs is the node API answer to an index lookup.
type NodeMessageIDs struct {
	Index      string   `json:"index"`
	Count      int      `json:"count"`
	MessageIDs []string `json:"messageIds"`
}

// NodeResponse wraps every successful node API answer.
type NodeResponse[T any] struct {
	Data T `json:"data"`
}

// NodeError is the node API error body.
type NodeError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
