/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tangle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

const (
	// PayloadVersion is the current payload framing version.
	PayloadVersion byte = 1

	// EncodingJSON marks an uncompressed JSON payload.
	EncodingJSON byte = 0
	// EncodingJSONBrotli marks a brotli compressed JSON payload.
	EncodingJSONBrotli byte = 1

	brotliQuality = 5
	brotliLGWin   = 22

	headerSize = 2

	// MaxDecodedPayload bounds the size of a decompressed payload.
	MaxDecodedPayload = 1 << 20
)

var (
	// ErrInvalidPayload is returned for payloads with a bad header or body.
	ErrInvalidPayload = errors.New("invalid message payload")
)

// EncodePayload frames the JSON encoding of v as version, encoding and brotli compressed data.
func EncodePayload(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var buf bytes.Buffer

	buf.WriteByte(PayloadVersion)
	buf.WriteByte(EncodingJSONBrotli)

	w := brotli.NewWriterOptions(&buf, brotli.WriterOptions{Quality: brotliQuality, LGWin: brotliLGWin})

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodePayload returns the JSON carried by a framed payload.
func DecodePayload(payload []byte) ([]byte, error) {
	if len(payload) < headerSize {
		return nil, fmt.Errorf("%w: too short", ErrInvalidPayload)
	}

	if payload[0] != PayloadVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidPayload, payload[0])
	}

	switch payload[1] {
	case EncodingJSON:
		return payload[headerSize:], nil
	case EncodingJSONBrotli:
		r := io.LimitReader(brotli.NewReader(bytes.NewReader(payload[headerSize:])), MaxDecodedPayload+1)

		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: decompress: %s", ErrInvalidPayload, err.Error())
		}

		if len(data) > MaxDecodedPayload {
			return nil, fmt.Errorf("%w: decompressed size exceeds %d bytes", ErrInvalidPayload, MaxDecodedPayload)
		}

		return data, nil
	default:
		return nil, fmt.Errorf("%w: unsupported encoding %d", ErrInvalidPayload, payload[1])
	}
}

// UnmarshalPayload decodes a framed payload into v.
func UnmarshalPayload(payload []byte, v interface{}) error {
	data, err := DecodePayload(payload)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPayload, err.Error())
	}

	return nil
}
