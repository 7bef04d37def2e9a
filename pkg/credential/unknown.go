/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UnknownCredential holds a credential of a form known only after decoding: a JWT, a JSON
// credential or any other JSON object.
type UnknownCredential struct {
	JWT        JWT
	Credential *Credential
	Other      map[string]interface{}
}

// IsJWT reports whether the credential is a JWT.
func (u UnknownCredential) IsJWT() bool {
	return u.JWT != ""
}

// MarshalJSON implements json.Marshaler.
func (u UnknownCredential) MarshalJSON() ([]byte, error) {
	switch {
	case u.JWT != "":
		return json.Marshal(string(u.JWT))
	case u.Credential != nil:
		return json.Marshal(u.Credential)
	default:
		return json.Marshal(u.Other)
	}
}

// UnmarshalJSON implements json.Unmarshaler. Objects with "@context" and "credentialSubject"
// decode as credentials, other objects are kept raw.
func (u *UnknownCredential) UnmarshalJSON(data []byte) error {
	*u = UnknownCredential{}

	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		u.JWT = JWT(s)

		return nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("credential is neither a JWT nor an object: %w", err)
	}

	_, hasContext := raw["@context"]
	_, hasSubject := raw["credentialSubject"]

	if hasContext && hasSubject {
		var c Credential
		if err := json.Unmarshal(data, &c); err == nil {
			u.Credential = &c

			return nil
		}
	}

	u.Other = raw

	return nil
}
