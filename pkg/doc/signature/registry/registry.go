/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package registry records which types implement the signature capabilities, per package. Packages
// register at init time, possibly before a consumer has installed its callback; such entries wait
// in a pending queue and are delivered in registration order once a callback is set.
package registry

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"golang.org/x/exp/slices"
)

// Capabilities a type can implement.
const (
	// TrySignature reads an optional proof.
	TrySignature = "TrySignature"
	// TrySignatureMut gives mutable access to an optional proof.
	TrySignatureMut = "TrySignatureMut"
	// SetSignature attaches a proof.
	SetSignature = "SetSignature"
	// DerefMut exposes a wrapped value mutably.
	DerefMut = "DerefMut"
)

var (
	// ErrMalformedEntry is returned when an implementor record is not well formed.
	ErrMalformedEntry = errors.New("malformed implementor entry")

	identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*(\[[A-Za-z0-9_., \[\]*]*\])?$`)
	pkgRegex   = regexp.MustCompile(`^[a-z0-9_][a-z0-9_./-]*$`)
)

// Implementor records that Type implements Capability, optionally with generic parameters.
type Implementor struct {
	Type       string   `json:"type"`
	Capability string   `json:"capability"`
	Params     []string `json:"params,omitempty"`
}

func (i Implementor) validate() error {
	if !identRegex.MatchString(i.Type) {
		return fmt.Errorf("%w: type %q", ErrMalformedEntry, i.Type)
	}

	if !identRegex.MatchString(i.Capability) {
		return fmt.Errorf("%w: capability %q", ErrMalformedEntry, i.Capability)
	}

	for _, p := range i.Params {
		if !identRegex.MatchString(p) {
			return fmt.Errorf("%w: param %q", ErrMalformedEntry, p)
		}
	}

	return nil
}

// Callback receives the implementors of a package.
type Callback func(pkg string, implementors []Implementor)

type pending struct {
	pkg          string
	implementors []Implementor
}

// Registry maps package names to their ordered implementor list.
type Registry struct {
	mu         sync.RWMutex
	entries    map[string][]Implementor
	callback   Callback
	pending    []pending
	delivering bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string][]Implementor)}
}

// Register records implementors for pkg, replacing any previous list, and queues the entry for
// the callback. The queue is flushed before returning unless another call is already delivering,
// in which case that call delivers the entry after the ones queued before it.
func (r *Registry) Register(pkg string, implementors ...Implementor) error {
	if !pkgRegex.MatchString(pkg) {
		return fmt.Errorf("%w: package %q", ErrMalformedEntry, pkg)
	}

	for _, impl := range implementors {
		if err := impl.validate(); err != nil {
			return err
		}
	}

	impls := slices.Clone(implementors)

	r.mu.Lock()
	r.entries[pkg] = impls
	r.pending = append(r.pending, pending{pkg: pkg, implementors: impls})
	r.mu.Unlock()

	r.flush()

	return nil
}

// SetCallback installs cb and flushes the pending queue into it in registration order.
func (r *Registry) SetCallback(cb Callback) {
	r.mu.Lock()
	r.callback = cb
	r.mu.Unlock()

	r.flush()
}

// flush hands queued entries to the callback one at a time. At most one goroutine delivers; the
// callback runs without the lock held so it may call Register.
func (r *Registry) flush() {
	r.mu.Lock()

	if r.delivering {
		r.mu.Unlock()

		return
	}

	r.delivering = true

	for r.callback != nil && len(r.pending) > 0 {
		cb, next := r.callback, r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()

		cb(next.pkg, slices.Clone(next.implementors))

		r.mu.Lock()
	}

	r.delivering = false
	r.mu.Unlock()
}

// Pending returns the number of registrations waiting for a callback.
func (r *Registry) Pending() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.pending)
}

// Implementors returns the implementors registered for pkg.
func (r *Registry) Implementors(pkg string) ([]Implementor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	impls, ok := r.entries[pkg]

	return slices.Clone(impls), ok
}

// Packages returns the registered package names, sorted.
func (r *Registry) Packages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pkgs := make([]string, 0, len(r.entries))
	for pkg := range r.entries {
		pkgs = append(pkgs, pkg)
	}

	sort.Strings(pkgs)

	return pkgs
}

// All returns a snapshot of every package's implementors.
func (r *Registry) All() map[string][]Implementor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]Implementor, len(r.entries))
	for pkg, impls := range r.entries {
		out[pkg] = slices.Clone(impls)
	}

	return out
}

var defaultRegistry = New() //nolint:gochecknoglobals

// Default returns the process wide registry populated by package init functions.
func Default() *Registry {
	return defaultRegistry
}

// Register records implementors in the default registry and panics on malformed entries. It is
// meant to be called from init functions.
func Register(pkg string, implementors ...Implementor) {
	if err := defaultRegistry.Register(pkg, implementors...); err != nil {
		panic(err)
	}
}
