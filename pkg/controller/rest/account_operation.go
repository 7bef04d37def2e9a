/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nanderstabel/identity/pkg/account"
	diddoc "github.com/nanderstabel/identity/pkg/doc/did"
)

// CreateIdentityRequest is the body of POST /accounts/identities.
type CreateIdentityRequest struct {
	Name    string `json:"name,omitempty"`
	Network string `json:"network,omitempty"`
}

// CreateMethodRequest is the body of POST /accounts/identities/{name}/methods.
type CreateMethodRequest struct {
	Fragment string               `json:"fragment"`
	Type     diddoc.MethodType    `json:"type,omitempty"`
	Scopes   []diddoc.MethodScope `json:"scopes,omitempty"`
}

// CreateServiceRequest is the body of POST /accounts/identities/{name}/services.
type CreateServiceRequest struct {
	Fragment string                 `json:"fragment"`
	Type     string                 `json:"type"`
	Endpoint diddoc.ServiceEndpoint `json:"serviceEndpoint"`
}

type accountOperation struct {
	account *account.Account
}

func newAccountOperation(a *account.Account) *accountOperation {
	return &accountOperation{account: a}
}

func (o *accountOperation) GetRESTHandlers() []Handler {
	return []Handler{
		NewHTTPHandler(AccountIdentities, http.MethodPost, o.CreateIdentity),
		NewHTTPHandler(AccountIdentities, http.MethodGet, o.Identities),
		NewHTTPHandler(AccountIdentity, http.MethodGet, o.Identity),
		NewHTTPHandler(AccountIdentity, http.MethodDelete, o.DeleteIdentity),
		NewHTTPHandler(AccountMethods, http.MethodPost, o.CreateMethod),
		NewHTTPHandler(AccountServices, http.MethodPost, o.CreateService),
		NewHTTPHandler(AccountPublish, http.MethodPost, o.Publish),
	}
}

func decodeBody(rw http.ResponseWriter, req *http.Request, v interface{}) bool {
	if req.Body == nil || req.ContentLength == 0 {
		return true
	}

	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		SendHTTPBadRequest(rw, InvalidRequest, fmt.Errorf("invalid request body: %w", err))

		return false
	}

	return true
}

// CreateIdentity swagger:route POST /accounts/identities accounts createIdentity
//
// Creates an identity, published when the account publishes automatically.
func (o *accountOperation) CreateIdentity(rw http.ResponseWriter, req *http.Request) {
	var body CreateIdentityRequest

	if !decodeBody(rw, req, &body) {
		return
	}

	setup := account.NewIdentitySetup().WithName(body.Name).WithNetwork(body.Network)

	snapshot, err := o.account.CreateIdentity(req.Context(), setup)
	if err != nil {
		sendAccountError(rw, err)

		return
	}

	sendJSON(rw, http.StatusCreated, snapshot)
}

// Identities swagger:route GET /accounts/identities accounts listIdentities
//
// Lists the account identities.
func (o *accountOperation) Identities(rw http.ResponseWriter, _ *http.Request) {
	sendJSON(rw, http.StatusOK, o.account.Identities())
}

// Identity swagger:route GET /accounts/identities/{name} accounts getIdentity
//
// Returns an identity by id, name or DID.
func (o *accountOperation) Identity(rw http.ResponseWriter, req *http.Request) {
	snapshot, err := o.account.Identity(mux.Vars(req)["name"])
	if err != nil {
		sendAccountError(rw, err)

		return
	}

	sendJSON(rw, http.StatusOK, snapshot)
}

// DeleteIdentity swagger:route DELETE /accounts/identities/{name} accounts deleteIdentity
//
// Removes an identity and its keys from the account.
func (o *accountOperation) DeleteIdentity(rw http.ResponseWriter, req *http.Request) {
	if err := o.account.DeleteIdentity(mux.Vars(req)["name"]); err != nil {
		sendAccountError(rw, err)

		return
	}

	rw.WriteHeader(http.StatusNoContent)
}

// CreateMethod swagger:route POST /accounts/identities/{name}/methods accounts createMethod
//
// Generates a verification method.
func (o *accountOperation) CreateMethod(rw http.ResponseWriter, req *http.Request) {
	var body CreateMethodRequest

	if !decodeBody(rw, req, &body) {
		return
	}

	o.update(rw, req, account.CreateMethod{Fragment: body.Fragment, Type: body.Type, Scopes: body.Scopes})
}

// CreateService swagger:route POST /accounts/identities/{name}/services accounts createService
//
// Adds a service.
func (o *accountOperation) CreateService(rw http.ResponseWriter, req *http.Request) {
	var body CreateServiceRequest

	if !decodeBody(rw, req, &body) {
		return
	}

	o.update(rw, req, account.CreateService{Fragment: body.Fragment, Type: body.Type, Endpoint: body.Endpoint})
}

func (o *accountOperation) update(rw http.ResponseWriter, req *http.Request, cmd account.Command) {
	key := mux.Vars(req)["name"]

	if err := o.account.Update(req.Context(), key, cmd); err != nil {
		sendAccountError(rw, err)

		return
	}

	o.Identity(rw, req)
}

// Publish swagger:route POST /accounts/identities/{name}/publish accounts publishIdentity
//
// Publishes the pending changes of an identity.
func (o *accountOperation) Publish(rw http.ResponseWriter, req *http.Request) {
	if err := o.account.Publish(req.Context(), mux.Vars(req)["name"]); err != nil {
		sendAccountError(rw, err)

		return
	}

	o.Identity(rw, req)
}
