/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"encoding/json"
	"errors"
	"fmt"
)

const jsonldServiceEndpoint = "serviceEndpoint"

// ServiceEndpoint is a single URL, a set of URLs or a map of URL sets. Exactly one field is set.
type ServiceEndpoint struct {
	One string
	Set []string
	Map map[string][]string
}

// MarshalJSON implements json.Marshaler.
func (e ServiceEndpoint) MarshalJSON() ([]byte, error) {
	switch {
	case e.Map != nil:
		return json.Marshal(e.Map)
	case e.Set != nil:
		return json.Marshal(e.Set)
	default:
		return json.Marshal(e.One)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *ServiceEndpoint) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*e = ServiceEndpoint{One: one}

		return nil
	}

	var set []string
	if err := json.Unmarshal(data, &set); err == nil {
		*e = ServiceEndpoint{Set: set}

		return nil
	}

	var m map[string][]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("service endpoint must be a URL, a set of URLs or a map of URL sets: %w", err)
	}

	*e = ServiceEndpoint{Map: m}

	return nil
}

// Service DID doc service.
type Service struct {
	ID              URL
	Type            string
	ServiceEndpoint ServiceEndpoint
	Properties      Properties
}

// MarshalJSON implements json.Marshaler.
func (s Service) MarshalJSON() ([]byte, error) {
	raw := map[string]interface{}{
		jsonldID:              s.ID.String(),
		jsonldType:            s.Type,
		jsonldServiceEndpoint: s.ServiceEndpoint,
	}

	s.Properties.merge(raw)

	return json.Marshal(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Service) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage

	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal service: %w", err)
	}

	var result Service

	if err := json.Unmarshal(raw[jsonldID], &result.ID); err != nil {
		return fmt.Errorf("service id: %w", err)
	}

	if err := json.Unmarshal(raw[jsonldType], &result.Type); err != nil || result.Type == "" {
		return errors.New("service type is required")
	}

	endpoint, ok := raw[jsonldServiceEndpoint]
	if !ok {
		return errors.New("service endpoint is required")
	}

	if err := json.Unmarshal(endpoint, &result.ServiceEndpoint); err != nil {
		return err
	}

	var props map[string]interface{}
	if err := json.Unmarshal(data, &props); err != nil {
		return err
	}

	result.Properties = extract(props, jsonldID, jsonldType, jsonldServiceEndpoint)
	*s = result

	return nil
}
