/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package account

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	diddoc "github.com/nanderstabel/identity/pkg/doc/did"
	"github.com/nanderstabel/identity/pkg/iota/did"
)

// Command is an update of an identity state.
type Command interface {
	apply(u *updater) error
}

type updater struct {
	id        uuid.UUID
	state     *IdentityState
	keys      KeyStore
	generated []KeyLocation
}

// rollback removes the keys generated by a failed update.
func (u *updater) rollback() {
	for _, loc := range u.generated {
		if err := u.keys.Delete(u.id, loc); err != nil {
			logger.Warnf("failed to remove key %s of identity %s: %s", loc, u.id, err)
		}
	}
}

func checkFragment(fragment string) (string, error) {
	fragment = strings.TrimPrefix(fragment, "#")

	if fragment == "" || strings.ContainsAny(fragment, "#:/?") {
		return "", fmt.Errorf("%w: %q", ErrInvalidFragment, fragment)
	}

	return fragment, nil
}

// CreateMethod generates a key and adds it as a verification method. The method is embedded in
// the verification method list when Scopes includes it, otherwise in the first scope, and
// referenced from the other scopes.
type CreateMethod struct {
	Fragment   string
	Type       diddoc.MethodType
	Scopes     []diddoc.MethodScope
	Properties diddoc.Properties
}

func (c CreateMethod) apply(u *updater) error {
	fragment, err := checkFragment(c.Fragment)
	if err != nil {
		return err
	}

	if u.state.Methods.Contains(fragment) {
		return fmt.Errorf("%w: %s", ErrMethodAlreadyExists, fragment)
	}

	methodType := c.Type
	if methodType == "" {
		methodType = diddoc.Ed25519VerificationKey2018
	}

	if methodType != diddoc.Ed25519VerificationKey2018 {
		return fmt.Errorf("%w: %s", ErrInvalidMethodType, methodType)
	}

	scopes := c.Scopes
	if len(scopes) == 0 {
		scopes = []diddoc.MethodScope{diddoc.ScopeVerificationMethod}
	}

	embedIn := scopes[0]
	if slices.Contains(scopes, diddoc.ScopeVerificationMethod) {
		embedIn = diddoc.ScopeVerificationMethod
	}

	location := u.state.KeyLocation(methodType, fragment)

	public, err := u.keys.Generate(u.id, location)
	if err != nil {
		return err
	}

	u.generated = append(u.generated, location)

	method := &TinyMethod{
		Location:   location,
		KeyData:    diddoc.NewMultibaseData(public).PublicKeyMultibase,
		Properties: c.Properties,
	}

	u.state.Methods.Insert(embedIn, TinyMethodRef{Embedded: method})

	for _, scope := range scopes {
		if scope != embedIn && !slices.Contains(u.state.Methods.Scopes(fragment), scope) {
			u.state.Methods.Insert(scope, TinyMethodRef{Reference: fragment})
		}
	}

	return nil
}

// DeleteMethod removes a method from every scope. The key material is kept since the method may
// still be needed to sign the next integration update.
type DeleteMethod struct {
	Fragment string
}

func (c DeleteMethod) apply(u *updater) error {
	fragment := strings.TrimPrefix(c.Fragment, "#")

	if !u.state.Methods.Contains(fragment) {
		return fmt.Errorf("%w: %s", ErrMethodNotFound, fragment)
	}

	if isLastCapabilityInvocation(u.state, fragment) {
		return ErrLastCapabilityInvocation
	}

	u.state.Methods.Delete(fragment)

	return nil
}

func isLastCapabilityInvocation(s *IdentityState, fragment string) bool {
	refs := s.Methods[diddoc.ScopeCapabilityInvocation]

	return len(refs) == 1 && refs[0].Fragment() == fragment
}

// AttachMethod references an existing method from more scopes.
type AttachMethod struct {
	Fragment string
	Scopes   []diddoc.MethodScope
}

func (c AttachMethod) apply(u *updater) error {
	fragment := strings.TrimPrefix(c.Fragment, "#")

	if !u.state.Methods.Contains(fragment) {
		return fmt.Errorf("%w: %s", ErrMethodNotFound, fragment)
	}

	current := u.state.Methods.Scopes(fragment)

	for _, scope := range c.Scopes {
		if scope == diddoc.ScopeVerificationMethod {
			return fmt.Errorf("%w: cannot attach to %s", ErrInvalidMethodScope, scope)
		}

		if !slices.Contains(current, scope) {
			u.state.Methods.Insert(scope, TinyMethodRef{Reference: fragment})
		}
	}

	return nil
}

// DetachMethod removes references to a method from scopes. The scope embedding the method cannot
// be detached.
type DetachMethod struct {
	Fragment string
	Scopes   []diddoc.MethodScope
}

func (c DetachMethod) apply(u *updater) error {
	fragment := strings.TrimPrefix(c.Fragment, "#")

	if !u.state.Methods.Contains(fragment) {
		return fmt.Errorf("%w: %s", ErrMethodNotFound, fragment)
	}

	for _, scope := range c.Scopes {
		for _, ref := range u.state.Methods[scope] {
			if ref.Embedded != nil && ref.Fragment() == fragment {
				return fmt.Errorf("%w: %s embeds %s", ErrInvalidMethodScope, scope, fragment)
			}
		}

		if scope == diddoc.ScopeCapabilityInvocation && isLastCapabilityInvocation(u.state, fragment) {
			return ErrLastCapabilityInvocation
		}

		u.state.Methods.Detach(scope, fragment)
	}

	return nil
}

// CreateService adds a service.
type CreateService struct {
	Fragment   string
	Type       string
	Endpoint   diddoc.ServiceEndpoint
	Properties diddoc.Properties
}

func (c CreateService) apply(u *updater) error {
	fragment, err := checkFragment(c.Fragment)
	if err != nil {
		return err
	}

	if u.state.Services.Contains(fragment) {
		return fmt.Errorf("%w: %s", ErrServiceAlreadyExists, fragment)
	}

	if c.Type == "" {
		return fmt.Errorf("service %s has no type", fragment)
	}

	u.state.Services = append(u.state.Services, TinyService{
		Fragment:   fragment,
		Type:       c.Type,
		Endpoint:   c.Endpoint,
		Properties: c.Properties,
	})

	return nil
}

// DeleteService removes a service.
type DeleteService struct {
	Fragment string
}

func (c DeleteService) apply(u *updater) error {
	fragment := strings.TrimPrefix(c.Fragment, "#")

	if !u.state.Services.Contains(fragment) {
		return fmt.Errorf("%w: %s", ErrServiceNotFound, fragment)
	}

	u.state.Services = u.state.Services.Delete(fragment)

	return nil
}

// SetController sets or, with a nil Controller, clears the document controller.
type SetController struct {
	Controller *did.IotaDID
}

func (c SetController) apply(u *updater) error {
	u.state.Controller = c.Controller

	return nil
}

// SetAlsoKnownAs replaces the alsoKnownAs list. Every entry must be an absolute URI.
type SetAlsoKnownAs struct {
	URLs []string
}

func (c SetAlsoKnownAs) apply(u *updater) error {
	for _, raw := range c.URLs {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" {
			return fmt.Errorf("invalid alsoKnownAs entry %q", raw)
		}
	}

	u.state.AlsoKnownAs = slices.Clone(c.URLs)

	return nil
}
