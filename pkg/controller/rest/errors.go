/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nanderstabel/identity/pkg/account"
	"github.com/nanderstabel/identity/pkg/iota/chain"
	"github.com/nanderstabel/identity/pkg/iota/did"
	"github.com/nanderstabel/identity/pkg/iota/resolver"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
)

// genericError is the error response body.
type genericError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Code is the error code of REST API errors.
type Code int32

// Error groups. Resolver codes start at 1000, account codes at 2000.
const (
	// UnknownStatus is the default error code.
	UnknownStatus Code = 0
	// InvalidRequest is returned for malformed request bodies and parameters.
	InvalidRequest Code = 1

	// ResolveError is returned when a DID cannot be resolved.
	ResolveError Code = 1000
	// InvalidDID is returned for malformed DIDs.
	InvalidDID Code = 1001

	// IdentityNotFound is returned for unknown account identities.
	IdentityNotFound Code = 2000
	// IdentityConflict is returned when an identity, method or service already exists.
	IdentityConflict Code = 2001
	// UpdateError is returned when an identity update is rejected.
	UpdateError Code = 2002
	// PublishError is returned when an identity cannot be published.
	PublishError Code = 2003
)

// SendHTTPStatusError sends statusCode with an error body.
func SendHTTPStatusError(rw http.ResponseWriter, code Code, err error, statusCode int) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(statusCode)

	e := json.NewEncoder(rw).Encode(genericError{
		Code:    code,
		Message: err.Error(),
	})
	if e != nil {
		logger.Errorf("Unable to send error response, %s", e)
	}
}

// SendHTTPBadRequest sends BAD REQUEST with an error body.
func SendHTTPBadRequest(rw http.ResponseWriter, code Code, err error) {
	SendHTTPStatusError(rw, code, err, http.StatusBadRequest)
}

// sendResolveError maps resolver failures to a status.
func sendResolveError(rw http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chain.ErrChain), errors.Is(err, tangle.ErrNotFound):
		SendHTTPStatusError(rw, ResolveError, err, http.StatusNotFound)
	case errors.Is(err, resolver.ErrNetworkMismatch):
		SendHTTPBadRequest(rw, InvalidDID, err)
	default:
		SendHTTPStatusError(rw, ResolveError, err, http.StatusBadGateway)
	}
}

// sendAccountError maps account failures to a status.
func sendAccountError(rw http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, account.ErrIdentityNotFound):
		SendHTTPStatusError(rw, IdentityNotFound, err, http.StatusNotFound)
	case errors.Is(err, account.ErrIdentityAlreadyExists),
		errors.Is(err, account.ErrMethodAlreadyExists),
		errors.Is(err, account.ErrServiceAlreadyExists):
		SendHTTPStatusError(rw, IdentityConflict, err, http.StatusConflict)
	case errors.Is(err, account.ErrNoResolver):
		SendHTTPStatusError(rw, PublishError, err, http.StatusServiceUnavailable)
	case errors.Is(err, tangle.ErrInvalidNetworkName), errors.Is(err, did.ErrInvalidMethodID),
		errors.Is(err, account.ErrMethodNotFound), errors.Is(err, account.ErrServiceNotFound),
		errors.Is(err, account.ErrInvalidMethodScope), errors.Is(err, account.ErrInvalidMethodType),
		errors.Is(err, account.ErrInvalidFragment), errors.Is(err, account.ErrLastCapabilityInvocation):
		SendHTTPBadRequest(rw, UpdateError, err)
	default:
		SendHTTPStatusError(rw, UnknownStatus, err, http.StatusInternalServerError)
	}
}

func sendJSON(rw http.ResponseWriter, statusCode int, v interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(statusCode)

	if err := json.NewEncoder(rw).Encode(v); err != nil {
		logger.Errorf("Unable to send response, %s", err)
	}
}
