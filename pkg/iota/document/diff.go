/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/nanderstabel/identity/pkg/doc/signature"
	"github.com/nanderstabel/identity/pkg/iota/did"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
)

// ErrInvalidDiff is returned when a diff cannot be created or applied.
var ErrInvalidDiff = errors.New("invalid document diff")

// DiffMessage is a signed JSON merge patch between two versions of a document, published on the
// diff chain.
type DiffMessage struct {
	DID      did.IotaDID          `json:"id"`
	Diff     string               `json:"diff"`
	Previous tangle.MessageID     `json:"previousMessageId"`
	Proof    *signature.Signature `json:"proof,omitempty"`

	messageID tangle.MessageID
}

// NewDiffMessage computes the diff from current to updated. The proof and previous message id of
// the documents are not part of the diff.
func NewDiffMessage(current, updated *MetaDocument, previous tangle.MessageID) (*DiffMessage, error) {
	from, err := diffBase(current)
	if err != nil {
		return nil, err
	}

	to, err := diffBase(updated)
	if err != nil {
		return nil, err
	}

	patch, err := jsonpatch.CreateMergePatch(from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDiff, err.Error())
	}

	return &DiffMessage{
		DID:      current.ID(),
		Diff:     string(patch),
		Previous: previous,
	}, nil
}

func diffBase(m *MetaDocument) ([]byte, error) {
	base := m.Clone()
	base.Metadata.Proof = nil
	base.Metadata.PreviousMessageID = tangle.NullMessageID

	data, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDiff, err.Error())
	}

	return data, nil
}

// Merge applies the diff to meta and returns the result, keeping the proof and previous message
// id of meta. Diffs may not change the DID or the capability invocation methods.
func (d *DiffMessage) Merge(meta *MetaDocument) (*MetaDocument, error) {
	if d.DID != meta.ID() {
		return nil, fmt.Errorf("%w: diff of %s applied to %s", ErrInvalidDiff, d.DID, meta.ID())
	}

	base, err := diffBase(meta)
	if err != nil {
		return nil, err
	}

	patched, err := jsonpatch.MergePatch(base, []byte(d.Diff))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDiff, err.Error())
	}

	var merged MetaDocument

	if err := json.Unmarshal(patched, &merged); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDiff, err.Error())
	}

	if merged.Document == nil {
		return nil, fmt.Errorf("%w: document removed", ErrInvalidDiff)
	}

	if merged.ID() != meta.ID() {
		return nil, fmt.Errorf("%w: the document id cannot change", ErrInvalidDiff)
	}

	before, err := json.Marshal(meta.Document.Core().CapabilityInvocation)
	if err != nil {
		return nil, err
	}

	after, err := json.Marshal(merged.Document.Core().CapabilityInvocation)
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(before, after) {
		return nil, fmt.Errorf("%w: capability invocation methods can only change with an integration update",
			ErrInvalidDiff)
	}

	merged.Metadata.Proof = meta.Metadata.Proof.Clone()
	merged.Metadata.PreviousMessageID = meta.Metadata.PreviousMessageID

	return &merged, nil
}

// Signature returns the diff proof.
func (d *DiffMessage) Signature() *signature.Signature {
	return d.Proof
}

// SetSignature sets the diff proof.
func (d *DiffMessage) SetSignature(s *signature.Signature) {
	d.Proof = s
}

// MessageID returns the id of the message carrying the diff.
func (d *DiffMessage) MessageID() tangle.MessageID {
	return d.messageID
}

// SetMessageID sets the id of the message carrying the diff.
func (d *DiffMessage) SetMessageID(id tangle.MessageID) {
	d.messageID = id
}

// PreviousMessageID returns the message the diff follows.
func (d *DiffMessage) PreviousMessageID() tangle.MessageID {
	return d.Previous
}

// SetPreviousMessageID sets the message the diff follows.
func (d *DiffMessage) SetPreviousMessageID(id tangle.MessageID) {
	d.Previous = id
}

// String returns the JSON form of d.
func (d *DiffMessage) String() string {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf("<invalid diff: %s>", err)
	}

	return string(data)
}
