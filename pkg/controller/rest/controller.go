/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package rest exposes DID resolution, account identities and agent metadata over HTTP.
package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/nanderstabel/identity/pkg/account"
	"github.com/nanderstabel/identity/pkg/actor"
	"github.com/nanderstabel/identity/pkg/common/log"
	"github.com/nanderstabel/identity/pkg/doc/signature/registry"
	"github.com/nanderstabel/identity/pkg/iota/resolver"
)

var logger = log.New("identity/rest")

// API paths.
const (
	IdentityPath      = "/identities/{did}"
	HistoryPath       = "/identities/{did}/history"
	AccountIdentities = "/accounts/identities"
	AccountIdentity   = "/accounts/identities/{name}"
	AccountMethods    = "/accounts/identities/{name}/methods"
	AccountServices   = "/accounts/identities/{name}/services"
	AccountPublish    = "/accounts/identities/{name}/publish"
	ImplementorsPath  = "/implementors"
	MetricsPath       = "/metrics"
	ActorPath         = "/actor"
)

type allOpts struct {
	account  *account.Account
	actor    *actor.Actor
	gatherer prometheus.Gatherer
	registry *registry.Registry
}

// Opt configures the controller.
type Opt func(opts *allOpts)

// WithAccount enables the account endpoints.
func WithAccount(a *account.Account) Opt {
	return func(opts *allOpts) {
		opts.account = a
	}
}

// WithActor serves the actor over a websocket.
func WithActor(a *actor.Actor) Opt {
	return func(opts *allOpts) {
		opts.actor = a
	}
}

// WithMetrics serves the metrics of gatherer.
func WithMetrics(gatherer prometheus.Gatherer) Opt {
	return func(opts *allOpts) {
		opts.gatherer = gatherer
	}
}

// WithRegistry replaces the default implementor registry.
func WithRegistry(r *registry.Registry) Opt {
	return func(opts *allOpts) {
		opts.registry = r
	}
}

// Controller holds the REST handlers.
type Controller struct {
	handlers []Handler
}

// New returns the handlers served with r. Account, actor and metrics endpoints are only present
// when their option is set.
func New(r *resolver.Resolver, opts ...Opt) *Controller {
	o := &allOpts{registry: registry.Default()}

	for _, opt := range opts {
		opt(o)
	}

	handlers := newResolverOperation(r).GetRESTHandlers()
	handlers = append(handlers, NewHTTPHandler(ImplementorsPath, http.MethodGet, implementors(o.registry)))

	if o.account != nil {
		handlers = append(handlers, newAccountOperation(o.account).GetRESTHandlers()...)
	}

	if o.gatherer != nil {
		handlers = append(handlers, NewHTTPHandler(MetricsPath, http.MethodGet,
			promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{}).ServeHTTP))
	}

	if o.actor != nil {
		handlers = append(handlers, NewHTTPHandler(ActorPath, http.MethodGet, o.actor.ServeHTTP))
	}

	return &Controller{handlers: handlers}
}

// GetOperations returns every endpoint.
func (c *Controller) GetOperations() []Handler {
	return c.handlers
}

// Router routes the endpoints, behind middlewares, and wraps the result with CORS handling.
func (c *Controller) Router(middlewares ...mux.MiddlewareFunc) http.Handler {
	router := mux.NewRouter()

	for _, m := range middlewares {
		router.Use(m)
	}

	for _, h := range c.handlers {
		router.HandleFunc(h.Path(), h.Handle()).Methods(h.Method())
	}

	return cors.New(
		cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodHead},
			AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", "Authorization"},
		},
	).Handler(router)
}

func implementors(r *registry.Registry) http.HandlerFunc {
	return func(rw http.ResponseWriter, _ *http.Request) {
		sendJSON(rw, http.StatusOK, r.All())
	}
}
