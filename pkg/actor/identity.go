/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package actor

import (
	"context"

	"github.com/nanderstabel/identity/pkg/account"
)

// Identity storage request names.
const (
	IdentityListRequest = "identity/list"
	IdentityGetRequest  = "identity/get"
)

// IdentityList lists the identities of the account.
type IdentityList struct{}

// IdentityInfo describes an account identity.
type IdentityInfo struct {
	Name string `json:"name"`
	DID  string `json:"did,omitempty"`
}

// IdentityGet asks for the identity whose id, name or DID is Key.
type IdentityGet struct {
	Key string `json:"key"`
}

// AddIdentityHandlers registers the identity storage handlers backed by acc.
func AddIdentityHandlers(a *Actor, acc *account.Account) {
	AddHandler(a, IdentityListRequest, acc, listIdentities)
	AddHandler(a, IdentityGetRequest, acc, getIdentity)
}

func listIdentities(_ context.Context, acc *account.Account, _ IdentityList) ([]IdentityInfo, error) {
	snapshots := acc.Identities()

	out := make([]IdentityInfo, 0, len(snapshots))

	for _, s := range snapshots {
		info := IdentityInfo{Name: s.Name}
		if s.State.DID != nil {
			info.DID = s.State.DID.String()
		}

		out = append(out, info)
	}

	return out, nil
}

func getIdentity(_ context.Context, acc *account.Account, req IdentityGet) (*account.IdentitySnapshot, error) {
	return acc.Identity(req.Key)
}
