/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package chain

import (
	"errors"

	"github.com/nanderstabel/identity/pkg/common/log"
)

var logger = log.New("identity/iota/chain")

// ErrChain is matched by every ChainError.
var ErrChain = errors.New("chain error")

// ChainError reports why a message cannot be part of a chain.
type ChainError struct {
	Reason string
}

func (e *ChainError) Error() string {
	return "chain error: " + e.Reason
}

// Is makes every ChainError match ErrChain.
func (e *ChainError) Is(target error) bool {
	return target == ErrChain
}

func chainError(reason string) error {
	return &ChainError{Reason: reason}
}

const (
	reasonInvalidRoot       = "invalid root document"
	reasonInvalidMessageID  = "invalid message id"
	reasonMissingMessageID  = "missing message id"
	reasonMissingPreviousID = "missing previous message id"
	reasonInvalidPreviousID = "invalid previous message id"
	reasonInvalidDID        = "invalid DID"
	reasonInvalidSignature  = "invalid signature"
)
