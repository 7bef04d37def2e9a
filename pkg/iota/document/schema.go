/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": {"type": "string", "pattern": "^did:iota:"},
    "controller": {
      "oneOf": [
        {"type": "string", "pattern": "^did:iota:"},
        {"type": "array", "items": {"type": "string", "pattern": "^did:iota:"}}
      ]
    },
    "alsoKnownAs": {"type": "array", "items": {"type": "string"}},
    "verificationMethod": {"type": "array", "items": {"$ref": "#/definitions/method"}},
    "authentication": {"$ref": "#/definitions/relationship"},
    "assertionMethod": {"$ref": "#/definitions/relationship"},
    "keyAgreement": {"$ref": "#/definitions/relationship"},
    "capabilityDelegation": {"$ref": "#/definitions/relationship"},
    "capabilityInvocation": {"$ref": "#/definitions/relationship"},
    "service": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type", "serviceEndpoint"],
        "properties": {
          "id": {"type": "string", "pattern": "^did:iota:.+#.+"},
          "type": {"type": "string", "minLength": 1}
        }
      }
    }
  },
  "definitions": {
    "method": {
      "type": "object",
      "required": ["id", "type", "controller"],
      "properties": {
        "id": {"type": "string", "pattern": "^did:iota:.+#.+"},
        "type": {"enum": ["Ed25519VerificationKey2018", "MerkleKeyCollection2021"]},
        "controller": {"type": "string", "pattern": "^did:iota:"},
        "publicKeyMultibase": {"type": "string"},
        "publicKeyBase58": {"type": "string"}
      },
      "anyOf": [
        {"required": ["publicKeyMultibase"]},
        {"required": ["publicKeyBase58"]}
      ]
    },
    "relationship": {
      "type": "array",
      "items": {
        "oneOf": [
          {"type": "string", "pattern": "^did:iota:.+#.+"},
          {"$ref": "#/definitions/method"}
        ]
      }
    }
  }
}`

var (
	schemaLoader = gojsonschema.NewStringLoader(documentSchema) //nolint:gochecknoglobals

	// ErrSchema is returned when a document does not match the IOTA document schema.
	ErrSchema = errors.New("document does not match schema")
)

func validate(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validation of DID doc failed: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
	}

	return nil
}
