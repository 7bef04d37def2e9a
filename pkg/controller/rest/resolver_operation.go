/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nanderstabel/identity/pkg/iota/did"
	"github.com/nanderstabel/identity/pkg/iota/resolver"
)

type resolverOperation struct {
	resolver *resolver.Resolver
}

func newResolverOperation(r *resolver.Resolver) *resolverOperation {
	return &resolverOperation{resolver: r}
}

func (o *resolverOperation) GetRESTHandlers() []Handler {
	return []Handler{
		NewHTTPHandler(IdentityPath, http.MethodGet, o.Resolve),
		NewHTTPHandler(HistoryPath, http.MethodGet, o.History),
	}
}

func parseDID(rw http.ResponseWriter, req *http.Request) (*did.IotaDID, bool) {
	id, err := did.Parse(mux.Vars(req)["did"])
	if err != nil {
		SendHTTPBadRequest(rw, InvalidDID, err)

		return nil, false
	}

	return id, true
}

// Resolve swagger:route GET /identities/{did} identities resolveIdentity
//
// Resolves the latest document of a DID.
func (o *resolverOperation) Resolve(rw http.ResponseWriter, req *http.Request) {
	id, ok := parseDID(rw, req)
	if !ok {
		return
	}

	msg, err := o.resolver.Resolve(req.Context(), *id)
	if err != nil {
		sendResolveError(rw, err)

		return
	}

	sendJSON(rw, http.StatusOK, msg)
}

// History swagger:route GET /identities/{did}/history identities resolveHistory
//
// Returns the chains and spam messages of a DID.
func (o *resolverOperation) History(rw http.ResponseWriter, req *http.Request) {
	id, ok := parseDID(rw, req)
	if !ok {
		return
	}

	history, err := o.resolver.ResolveHistory(req.Context(), *id)
	if err != nil {
		sendResolveError(rw, err)

		return
	}

	sendJSON(rw, http.StatusOK, history)
}
