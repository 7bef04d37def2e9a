/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package identity implements the IOTA DID method: DID documents anchored on the Tangle as
// signed integration and diff messages, their resolution and an account managing the keys and
// publication of identities.
//
// Packages for end developer usage
//
// pkg/account: Creates, updates and publishes identities whose keys live in a storage provider.
//
// pkg/iota/resolver: Resolves DIDs and their message history from a Tangle node.
//
// pkg/iota/document: IOTA DID documents, signed metadata documents, diffs and messages.
//
// pkg/credential: Verifiable credentials and presentations signed by IOTA DID documents,
// including the JWT encoding.
//
// pkg/actor: Named request handlers over an account, callable locally or over a websocket.
//
// pkg/controller/rest: REST API over the resolver, account and actor.
//
// pkg/node: Development Tangle node API over an in-memory ledger.
//
// cmd/identity-agent: Command line agent serving the REST API, a development node and a resolver.
package identity
