/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package document

import (
	"github.com/nanderstabel/identity/pkg/iota/did"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
)

// TryExtractIntegration decodes msg as an integration message of id. It returns false for
// payloads that do not decode or belong to another DID.
func TryExtractIntegration(id did.IotaDID, msg *tangle.Message) (*IntegrationMessage, bool) {
	var im IntegrationMessage

	if err := tangle.UnmarshalPayload(msg.Payload, &im); err != nil {
		logger.Debugf("message %s is not an integration message: %s", msg.ID, err)

		return nil, false
	}

	if im.DID() != id {
		return nil, false
	}

	im.SetMessageID(msg.ID)

	return &im, true
}

// TryExtractDiff decodes msg as a diff message of id.
func TryExtractDiff(id did.IotaDID, msg *tangle.Message) (*DiffMessage, bool) {
	var dm DiffMessage

	if err := tangle.UnmarshalPayload(msg.Payload, &dm); err != nil {
		logger.Debugf("message %s is not a diff message: %s", msg.ID, err)

		return nil, false
	}

	if dm.DID != id {
		return nil, false
	}

	dm.SetMessageID(msg.ID)

	return &dm, true
}
