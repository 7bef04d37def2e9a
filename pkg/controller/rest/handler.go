/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import "net/http"

// Handler is an endpoint of the REST API.
type Handler interface {
	Path() string
	Method() string
	Handle() http.HandlerFunc
}

// NewHTTPHandler returns a handler of method requests on path.
func NewHTTPHandler(path, method string, handle http.HandlerFunc) *HTTPHandler {
	return &HTTPHandler{path: path, method: method, handle: handle}
}

// HTTPHandler serves one path and method.
type HTTPHandler struct {
	path   string
	method string
	handle http.HandlerFunc
}

// Path returns the request path.
func (h *HTTPHandler) Path() string {
	return h.path
}

// Method returns the request method.
func (h *HTTPHandler) Method() string {
	return h.method
}

// Handle returns the handler function.
func (h *HTTPHandler) Handle() http.HandlerFunc {
	return h.handle
}
