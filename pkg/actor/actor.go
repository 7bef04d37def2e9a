/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package actor dispatches named JSON requests to typed handlers, locally or over a websocket.
package actor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nanderstabel/identity/pkg/common/log"
)

var logger = log.New("identity/actor")

var (
	// ErrUnknownRequest is returned for requests without a registered handler.
	ErrUnknownRequest = errors.New("unknown request")
	// ErrDeserialization is returned when a request or response cannot be decoded.
	ErrDeserialization = errors.New("deserialization failed")
	// ErrHandler is returned when a handler fails.
	ErrHandler = errors.New("handler failed")
)

// handler decodes a request payload and runs the typed handler function on it.
type handler interface {
	invoke(ctx context.Context, payload json.RawMessage) (interface{}, error)
}

type handlerFunc[S, Req, Resp any] struct {
	state S
	fn    func(ctx context.Context, state S, req Req) (Resp, error)
}

func (h handlerFunc[S, Req, Resp]) invoke(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req Req

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w: request %T: %s", ErrDeserialization, req, err.Error())
		}
	}

	resp, err := h.fn(ctx, h.state, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrHandler, err.Error())
	}

	return resp, nil
}

// Actor holds the request handlers.
type Actor struct {
	mu       sync.RWMutex
	handlers map[string]handler
}

// New returns an actor without handlers.
func New() *Actor {
	return &Actor{handlers: make(map[string]handler)}
}

// AddHandler registers fn under name. Each invocation receives state and the request decoded
// into Req. A handler already registered under name is replaced.
func AddHandler[S, Req, Resp any](a *Actor, name string, state S,
	fn func(ctx context.Context, state S, req Req) (Resp, error)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.handlers[name]; ok {
		logger.Warnf("replacing handler %s", name)
	}

	a.handlers[name] = handlerFunc[S, Req, Resp]{state: state, fn: fn}
}

// Handlers returns the registered request names, sorted.
func (a *Actor) Handlers() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.handlers))
	for name := range a.handlers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Invoke runs the handler name on the JSON payload and returns the JSON response.
func (a *Actor) Invoke(ctx context.Context, name string, payload []byte) ([]byte, error) {
	a.mu.RLock()
	h, ok := a.handlers[name]
	a.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRequest, name)
	}

	logger.Debugf("invoking %s", name)

	resp, err := h.invoke(ctx, payload)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal %s response: %w", name, err)
	}

	return data, nil
}
