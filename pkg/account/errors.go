/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package account

import "errors"

var (
	// ErrGenerationOverflow is returned when a chain generation cannot be incremented.
	ErrGenerationOverflow = errors.New("generation overflow")
	// ErrIdentityNotFound is returned for unknown identity keys.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrIdentityAlreadyExists is returned when an identity name is taken.
	ErrIdentityAlreadyExists = errors.New("identity already exists")
	// ErrMissingDocumentID is returned by state operations that need a DID before one is set.
	ErrMissingDocumentID = errors.New("missing document id")
	// ErrMethodNotFound is returned for unknown method fragments.
	ErrMethodNotFound = errors.New("verification method not found")
	// ErrMethodAlreadyExists is returned when a method fragment is taken.
	ErrMethodAlreadyExists = errors.New("verification method already exists")
	// ErrServiceNotFound is returned for unknown service fragments.
	ErrServiceNotFound = errors.New("service not found")
	// ErrServiceAlreadyExists is returned when a service fragment is taken.
	ErrServiceAlreadyExists = errors.New("service already exists")
	// ErrInvalidMethodScope is returned for scopes a command cannot use.
	ErrInvalidMethodScope = errors.New("invalid method scope")
	// ErrInvalidMethodType is returned for method types the account cannot generate keys for.
	ErrInvalidMethodType = errors.New("invalid method type")
	// ErrInvalidFragment is returned for empty or malformed fragments.
	ErrInvalidFragment = errors.New("invalid fragment")
	// ErrLastCapabilityInvocation is returned when removing the only capability invocation method.
	ErrLastCapabilityInvocation = errors.New("cannot remove the last capability invocation method")
	// ErrKeyNotFound is returned when no key is stored at a location.
	ErrKeyNotFound = errors.New("key not found")
	// ErrNoResolver is returned by operations that need a resolver when none is configured.
	ErrNoResolver = errors.New("account has no resolver")
)
