/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import "fmt"

// MethodScope selects the list of a document a verification method belongs to.
type MethodScope int

const (
	// ScopeVerificationMethod is the generic verificationMethod list.
	ScopeVerificationMethod MethodScope = iota
	// ScopeAuthentication is the authentication relationship.
	ScopeAuthentication
	// ScopeAssertionMethod is the assertionMethod relationship.
	ScopeAssertionMethod
	// ScopeKeyAgreement is the keyAgreement relationship.
	ScopeKeyAgreement
	// ScopeCapabilityDelegation is the capabilityDelegation relationship.
	ScopeCapabilityDelegation
	// ScopeCapabilityInvocation is the capabilityInvocation relationship.
	ScopeCapabilityInvocation
)

var scopeNames = [...]string{
	"verificationMethod",
	"authentication",
	"assertionMethod",
	"keyAgreement",
	"capabilityDelegation",
	"capabilityInvocation",
}

// Scopes lists every scope in document order.
func Scopes() []MethodScope {
	return []MethodScope{
		ScopeVerificationMethod, ScopeAuthentication, ScopeAssertionMethod,
		ScopeKeyAgreement, ScopeCapabilityDelegation, ScopeCapabilityInvocation,
	}
}

// String returns the JSON member name of the scope.
func (s MethodScope) String() string {
	if s < 0 || int(s) >= len(scopeNames) {
		return fmt.Sprintf("MethodScope(%d)", int(s))
	}

	return scopeNames[s]
}

// ParseMethodScope parses the JSON member name of a scope.
func ParseMethodScope(name string) (MethodScope, error) {
	for i, n := range scopeNames {
		if n == name {
			return MethodScope(i), nil
		}
	}

	return 0, fmt.Errorf("unknown method scope %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s MethodScope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *MethodScope) UnmarshalText(text []byte) error {
	parsed, err := ParseMethodScope(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}
