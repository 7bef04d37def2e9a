/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import "github.com/nanderstabel/identity/pkg/doc/signature/registry"

func init() { //nolint:gochecknoinits
	var impls []registry.Implementor

	for _, typ := range []string{"Credential", "Presentation"} {
		impls = append(impls,
			registry.Implementor{Type: typ, Capability: registry.TrySignature},
			registry.Implementor{Type: typ, Capability: registry.TrySignatureMut},
			registry.Implementor{Type: typ, Capability: registry.SetSignature},
		)
	}

	registry.Register("credential", impls...)
}
