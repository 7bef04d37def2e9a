/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package document

import "github.com/nanderstabel/identity/pkg/doc/signature/registry"

func init() { //nolint:gochecknoinits
	var impls []registry.Implementor

	for _, typ := range []string{"MetaDocument", "DiffMessage", "IntegrationMessage"} {
		impls = append(impls,
			registry.Implementor{Type: typ, Capability: registry.TrySignature},
			registry.Implementor{Type: typ, Capability: registry.TrySignatureMut},
			registry.Implementor{Type: typ, Capability: registry.SetSignature},
		)
	}

	impls = append(impls, registry.Implementor{Type: "IotaDocument", Capability: registry.DerefMut,
		Params: []string{"did.Document"}})

	registry.Register("iota/document", impls...)
}
