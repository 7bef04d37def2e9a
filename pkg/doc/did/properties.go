/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Properties holds the JSON members of a document, method or service that have no dedicated field.
type Properties map[string]interface{}

// Decode decodes the properties into out, a pointer to a struct tagged with `json` keys.
func (p Properties) Decode(out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("create properties decoder: %w", err)
	}

	if err := decoder.Decode(map[string]interface{}(p)); err != nil {
		return fmt.Errorf("decode properties: %w", err)
	}

	return nil
}

func (p Properties) clone() Properties {
	if p == nil {
		return nil
	}

	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}

	return out
}

// merge copies the properties into raw without overwriting reserved members.
func (p Properties) merge(raw map[string]interface{}) {
	for k, v := range p {
		if _, ok := raw[k]; !ok {
			raw[k] = v
		}
	}
}

// extract removes the reserved keys from raw and returns the remainder as Properties.
func extract(raw map[string]interface{}, reserved ...string) Properties {
	for _, k := range reserved {
		delete(raw, k)
	}

	if len(raw) == 0 {
		return nil
	}

	return raw
}
