/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/nanderstabel/identity/pkg/common/log"
	diddoc "github.com/nanderstabel/identity/pkg/doc/did"
	"github.com/nanderstabel/identity/pkg/doc/signature"
	"github.com/nanderstabel/identity/pkg/iota/did"
	"github.com/nanderstabel/identity/pkg/iota/document"
	"github.com/nanderstabel/identity/pkg/iota/resolver"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
	"github.com/nanderstabel/identity/spi/storage"
)

var logger = log.New("identity/account")

type autoSaveMode int

const (
	autoSaveEvery autoSaveMode = iota
	autoSaveNever
	autoSaveBatch
)

// AutoSave controls when updated identities are written to storage.
type AutoSave struct {
	mode  autoSaveMode
	batch int
}

// AutoSaveNever only saves on Save.
func AutoSaveNever() AutoSave {
	return AutoSave{mode: autoSaveNever}
}

// AutoSaveEvery saves after every change.
func AutoSaveEvery() AutoSave {
	return AutoSave{mode: autoSaveEvery}
}

// AutoSaveBatch saves after every n changes.
func AutoSaveBatch(n int) AutoSave {
	if n <= 1 {
		return AutoSaveEvery()
	}

	return AutoSave{mode: autoSaveBatch, batch: n}
}

func (a AutoSave) String() string {
	switch a.mode {
	case autoSaveNever:
		return "never"
	case autoSaveBatch:
		return fmt.Sprintf("batch(%d)", a.batch)
	default:
		return "every"
	}
}

// IdentitySnapshot is a copy of an account identity.
type IdentitySnapshot struct {
	Name  string         `json:"name"`
	State *IdentityState `json:"state"`
	// Published is the last published document, nil before the first publication.
	Published *document.MetaDocument `json:"published,omitempty"`
}

// Account manages identities: their keys, local state and publication.
type Account struct {
	mu sync.Mutex

	store       *Store
	keys        KeyStore
	resolver    *resolver.Resolver
	network     tangle.Network
	networkSet  bool
	autoSave    AutoSave
	autoPublish bool

	records map[uuid.UUID]*Record
	dirty   map[uuid.UUID]struct{}
	actions int
}

// Option configures an Account.
type Option func(*Account)

// WithKeyStore replaces the key store opened on the account storage.
func WithKeyStore(k KeyStore) Option {
	return func(a *Account) {
		a.keys = k
	}
}

// WithResolver sets the resolver used to publish and resolve identities.
func WithResolver(r *resolver.Resolver) Option {
	return func(a *Account) {
		a.resolver = r
	}
}

// WithNetwork sets the network of identities created without an explicit one. It defaults to the
// network of the resolver client, or the main network.
func WithNetwork(n tangle.Network) Option {
	return func(a *Account) {
		a.network = n
		a.networkSet = true
	}
}

// WithAutoSave sets the save policy. The default saves every change.
func WithAutoSave(s AutoSave) Option {
	return func(a *Account) {
		a.autoSave = s
	}
}

// WithAutoPublish publishes every change when a resolver is configured. It is enabled by
// default.
func WithAutoPublish(enabled bool) Option {
	return func(a *Account) {
		a.autoPublish = enabled
	}
}

// New opens the account kept in provider.
func New(provider storage.Provider, opts ...Option) (*Account, error) {
	store, err := NewStore(provider)
	if err != nil {
		return nil, err
	}

	a := &Account{
		store:       store,
		network:     tangle.Mainnet,
		autoSave:    AutoSaveEvery(),
		autoPublish: true,
		records:     make(map[uuid.UUID]*Record),
		dirty:       make(map[uuid.UUID]struct{}),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.keys == nil {
		if a.keys, err = NewKeyStore(provider); err != nil {
			return nil, err
		}
	}

	if a.resolver != nil {
		if n, ok := a.resolver.Client().(tangle.Networked); ok && !a.networkSet {
			a.network = n.Network()
		}
	}

	records, err := store.All()
	if err != nil {
		return nil, fmt.Errorf("failed to load identities: %w", err)
	}

	for _, r := range records {
		a.records[r.State.ID] = r
	}

	logger.Debugf("loaded %d identities, autosave %s", len(records), a.autoSave)

	return a, nil
}

// CreateIdentity generates the first key of a new identity and derives its DID. When a save or
// publication fails the identity is still kept in the account.
func (a *Account) CreateIdentity(ctx context.Context, setup IdentitySetup) (*IdentitySnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if setup.KeyType != "" && setup.KeyType != signature.Ed25519 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMethodType, setup.KeyType)
	}

	network := a.network

	if setup.Network != "" {
		n, err := tangle.NetworkFromName(setup.Network)
		if err != nil {
			return nil, err
		}

		network = n
	}

	name := setup.Name
	if name == "" {
		name = a.nextName()
	}

	if _, err := a.find(name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrIdentityAlreadyExists, name)
	}

	state := NewIdentityState(uuid.New())
	location := state.KeyLocation(diddoc.Ed25519VerificationKey2018, document.DefaultMethodFragment)

	public, err := a.keys.Generate(state.ID, location)
	if err != nil {
		return nil, err
	}

	id, err := did.NewWithNetwork(public, network)
	if err != nil {
		return nil, err
	}

	now := document.Now()

	state.DID = id
	state.Created, state.Updated = now, now
	state.Methods.Insert(diddoc.ScopeCapabilityInvocation, TinyMethodRef{Embedded: &TinyMethod{
		Location: location,
		KeyData:  diddoc.NewMultibaseData(public).PublicKeyMultibase,
	}})

	r := &Record{Name: name, State: state}
	a.records[state.ID] = r

	logger.Infof("created identity %s (%s)", name, id)

	if err := a.changed(ctx, r); err != nil {
		return nil, err
	}

	return snapshot(r), nil
}

func (a *Account) nextName() string {
	for i := len(a.records) + 1; ; i++ {
		name := fmt.Sprintf("Identity %d", i)
		if _, err := a.find(name); err != nil {
			return name
		}
	}
}

// find returns the record whose id, name or DID is key.
func (a *Account) find(key string) (*Record, error) {
	if id, err := uuid.Parse(key); err == nil {
		if r, ok := a.records[id]; ok {
			return r, nil
		}
	}

	for _, r := range a.records {
		if r.Name == key || (r.State.DID != nil && r.State.DID.String() == key) {
			return r, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrIdentityNotFound, key)
}

func snapshot(r *Record) *IdentitySnapshot {
	s := &IdentitySnapshot{Name: r.Name, State: r.State.Clone()}

	if r.Published != nil {
		s.Published = r.Published.Clone()
	}

	return s
}

// Identity returns the identity whose id, name or DID is key.
func (a *Account) Identity(key string) (*IdentitySnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, err := a.find(key)
	if err != nil {
		return nil, err
	}

	return snapshot(r), nil
}

// Identities returns every identity ordered by creation time.
func (a *Account) Identities() []*IdentitySnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*IdentitySnapshot, 0, len(a.records))
	for _, r := range a.records {
		out = append(out, snapshot(r))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].State.Created.Equal(out[j].State.Created) {
			return out[i].Name < out[j].Name
		}

		return out[i].State.Created.Before(out[j].State.Created)
	})

	return out
}

// Update applies commands to the identity key. Either every command applies or none does.
func (a *Account) Update(ctx context.Context, key string, commands ...Command) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, err := a.find(key)
	if err != nil {
		return err
	}

	u := &updater{id: r.State.ID, state: r.State.Clone(), keys: a.keys}

	for _, cmd := range commands {
		if err := cmd.apply(u); err != nil {
			u.rollback()

			return err
		}
	}

	if _, err := u.state.ToDocument(); err != nil {
		u.rollback()

		return fmt.Errorf("update results in an invalid document: %w", err)
	}

	u.state.Updated = document.Now()
	r.State = u.state

	return a.changed(ctx, r)
}

// changed applies the save and publish policies after a change of r.
func (a *Account) changed(ctx context.Context, r *Record) error {
	a.dirty[r.State.ID] = struct{}{}
	a.actions++

	if a.autoPublish && a.resolver != nil {
		if err := a.publish(ctx, r); err != nil {
			return err
		}
	}

	switch a.autoSave.mode {
	case autoSaveEvery:
		return a.save()
	case autoSaveBatch:
		if a.actions%a.autoSave.batch == 0 {
			return a.save()
		}
	case autoSaveNever:
	}

	return nil
}

// Save writes every changed identity to storage.
func (a *Account) Save() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.save()
}

func (a *Account) save() error {
	records := make([]*Record, 0, len(a.dirty))

	for id := range a.dirty {
		if r, ok := a.records[id]; ok {
			records = append(records, r)
		}
	}

	if err := a.store.Save(records...); err != nil {
		return err
	}

	a.dirty = make(map[uuid.UUID]struct{})

	return nil
}

// Publish publishes the pending changes of the identity key. Changes of the capability
// invocation methods and the first publication go to the integration chain, other changes to
// the diff chain.
func (a *Account) Publish(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, err := a.find(key)
	if err != nil {
		return err
	}

	if err := a.publish(ctx, r); err != nil {
		return err
	}

	a.dirty[r.State.ID] = struct{}{}

	if a.autoSave.mode != autoSaveNever {
		return a.save()
	}

	return nil
}

func (a *Account) publish(ctx context.Context, r *Record) error {
	if a.resolver == nil {
		return ErrNoResolver
	}

	meta, err := r.State.ToMetaDocument()
	if err != nil {
		return err
	}

	if r.Published == nil || capabilityInvocationChanged(r.Published, meta) {
		return a.publishIntegration(ctx, r, meta)
	}

	return a.publishDiff(ctx, r, meta)
}

func capabilityInvocationChanged(published, next *document.MetaDocument) bool {
	before, err := json.Marshal(published.Document.Core().CapabilityInvocation)
	if err != nil {
		return true
	}

	after, err := json.Marshal(next.Document.Core().CapabilityInvocation)
	if err != nil {
		return true
	}

	return !bytes.Equal(before, after)
}

func (a *Account) publishIntegration(ctx context.Context, r *Record, meta *document.MetaDocument) error {
	state := r.State

	signer, err := state.CapabilityInvocation()
	if err != nil {
		return err
	}

	if r.Published == nil {
		// the first document signs itself, its methods are referenced by fragment
		err = a.keys.Sign(state.ID, signer.Location, meta, "#"+signer.Location.Fragment)
	} else {
		err = a.sign(state, *r.Signer, meta)
	}

	if err != nil {
		return err
	}

	msg := document.NewIntegrationMessage(meta)

	id, err := a.resolver.Publish(ctx, msg)
	if err != nil {
		return err
	}

	state.SetIntegrationMessageID(id)

	if err := state.IncrementIntegrationGeneration(); err != nil {
		return err
	}

	location := signer.Location
	r.Published, r.Signer = meta, &location

	logger.Infof("published integration update %s of %s", id, state.DID)

	return nil
}

func (a *Account) publishDiff(ctx context.Context, r *Record, meta *document.MetaDocument) error {
	state := r.State

	diff, err := document.NewDiffMessage(r.Published, meta, state.DiffMessageID())
	if err != nil {
		return err
	}

	if diff.Diff == "{}" {
		logger.Debugf("nothing to publish for %s", state.DID)

		return nil
	}

	if err := a.sign(state, *r.Signer, diff); err != nil {
		return err
	}

	merged, err := diff.Merge(r.Published)
	if err != nil {
		return err
	}

	id, err := a.resolver.PublishDiff(ctx, state.ThisMessageID, diff)
	if err != nil {
		return err
	}

	state.SetDiffMessageID(id)

	if err := state.IncrementDiffGeneration(); err != nil {
		return err
	}

	r.Published = merged

	logger.Infof("published diff update %s of %s", id, state.DID)

	return nil
}

// sign signs data with the key at location, referring to the method by its full DID URL.
func (a *Account) sign(state *IdentityState, location KeyLocation, data signature.Signable) error {
	id, err := state.TryDID()
	if err != nil {
		return err
	}

	u, err := id.URL(location.Fragment)
	if err != nil {
		return err
	}

	return a.keys.Sign(state.ID, location, data, u.String())
}

// SignData signs data with the method fragment of the identity key.
func (a *Account) SignData(key, fragment string, data signature.Signable) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, err := a.find(key)
	if err != nil {
		return err
	}

	method := r.State.Methods.Get(fragment)
	if method == nil {
		return fmt.Errorf("%w: %s", ErrMethodNotFound, fragment)
	}

	return a.sign(r.State, method.Location, data)
}

// ResolveIdentity resolves the published document of the identity key.
func (a *Account) ResolveIdentity(ctx context.Context, key string) (*document.IntegrationMessage, error) {
	if a.resolver == nil {
		return nil, ErrNoResolver
	}

	id, err := a.identityDID(key)
	if err != nil {
		return nil, err
	}

	return a.resolver.Resolve(ctx, id)
}

// identityDID returns the DID of the identity key.
func (a *Account) identityDID(key string) (did.IotaDID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, err := a.find(key)
	if err != nil {
		return did.IotaDID{}, err
	}

	return r.State.TryDID()
}

// DeleteIdentity removes the identity key and its keys from the account. Published documents
// are not affected.
func (a *Account) DeleteIdentity(key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, err := a.find(key)
	if err != nil {
		return err
	}

	if err := a.store.Delete(r); err != nil {
		return err
	}

	if err := a.keys.DeleteAll(r.State.ID); err != nil {
		return err
	}

	delete(a.records, r.State.ID)
	delete(a.dirty, r.State.ID)

	logger.Infof("deleted identity %s", r.Name)

	return nil
}
