/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tangle

import (
	"errors"
	"fmt"
)

const (
	mainNetworkName = "main"
	devNetworkName  = "dev"

	maxNetworkNameLength = 6
)

// ErrInvalidNetworkName is returned for names that are empty, too long or not lowercase alphanumeric.
var ErrInvalidNetworkName = errors.New("invalid network name")

// Network is a named Tangle network.
type Network struct {
	name string
}

var (
	// Mainnet is the main network. Its name is omitted from DIDs.
	Mainnet = Network{name: mainNetworkName} //nolint:gochecknoglobals
	// Devnet is the development network.
	Devnet = Network{name: devNetworkName} //nolint:gochecknoglobals
)

// NetworkFromName returns the network called name.
func NetworkFromName(name string) (Network, error) {
	if !IsValidNetworkName(name) {
		return Network{}, fmt.Errorf("%w: %q", ErrInvalidNetworkName, name)
	}

	return Network{name: name}, nil
}

// IsValidNetworkName reports whether name has 1 to 6 lowercase ascii letters or digits.
func IsValidNetworkName(name string) bool {
	if name == "" || len(name) > maxNetworkNameLength {
		return false
	}

	for _, c := range name {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}

	return true
}

// Name returns the network name.
func (n Network) Name() string {
	if n.name == "" {
		return mainNetworkName
	}

	return n.name
}

// IsMain reports whether n is the main network.
func (n Network) IsMain() bool {
	return n.Name() == mainNetworkName
}

// DefaultNodeURL returns the public node of well known networks, or "" for custom ones.
func (n Network) DefaultNodeURL() string {
	switch n.Name() {
	case mainNetworkName:
		return "https://chrysalis-nodes.iota.org"
	case devNetworkName:
		return "https://api.lb-0.h.chrysalis-devnet.iota.cafe"
	default:
		return ""
	}
}

// ExplorerURL returns the explorer of well known networks, or "" for custom ones.
func (n Network) ExplorerURL() string {
	switch n.Name() {
	case mainNetworkName:
		return "https://explorer.iota.org/mainnet"
	case devNetworkName:
		return "https://explorer.iota.org/devnet"
	default:
		return ""
	}
}

// MessageURL returns the explorer page of a message, or "" for custom networks.
func (n Network) MessageURL(id MessageID) string {
	base := n.ExplorerURL()
	if base == "" {
		return ""
	}

	return base + "/message/" + id.String()
}

// String returns the network name.
func (n Network) String() string {
	return n.Name()
}
