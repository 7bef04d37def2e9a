/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package chain

import (
	"context"
	"fmt"

	"github.com/nanderstabel/identity/pkg/iota/did"
	"github.com/nanderstabel/identity/pkg/iota/document"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
)

// ChainHistory lists the messages of a chain along with the ids of the other messages found on
// the same index.
type ChainHistory[T tangle.Ref] struct {
	ChainData []T                `json:"chainData"`
	Spam      []tangle.MessageID `json:"spam"`
}

// NewChainHistory separates messages into chainData and spam.
func NewChainHistory[T tangle.Ref](chainData []T, messages []tangle.Message) *ChainHistory[T] {
	return &ChainHistory[T]{ChainData: chainData, Spam: SeparateSpam(chainData, messages)}
}

// SeparateSpam returns the ids of messages not carrying an entry of chainData.
func SeparateSpam[T tangle.Ref](chainData []T, messages []tangle.Message) []tangle.MessageID {
	inChain := make(map[tangle.MessageID]struct{}, len(chainData))
	for _, item := range chainData {
		inChain[item.MessageID()] = struct{}{}
	}

	spam := []tangle.MessageID{}

	for _, msg := range messages {
		if _, ok := inChain[msg.ID]; !ok {
			spam = append(spam, msg.ID)
		}
	}

	return spam
}

// DiffHistoryFromMessages builds the diff chain history of any integration message, not only
// the current one.
func DiffHistoryFromMessages(integration *document.IntegrationMessage,
	messages []tangle.Message) (*ChainHistory[*document.DiffMessage], error) {
	dc, err := diffChainFromIndexWithIntegration(integration, extractDiffs(integration, messages))
	if err != nil {
		return nil, err
	}

	return NewChainHistory(dc.Diffs(), messages), nil
}

// DocumentHistory is the history of a DID document: its integration chain, the diff chain of
// the current integration message, and the spam found on both indexes.
type DocumentHistory struct {
	IntegrationChainData []*document.IntegrationMessage `json:"integrationChainData"`
	IntegrationChainSpam []tangle.MessageID             `json:"integrationChainSpam"`
	DiffChainData        []*document.DiffMessage        `json:"diffChainData"`
	DiffChainSpam        []tangle.MessageID             `json:"diffChainSpam"`
}

// ReadHistory reads the history of id through client.
func ReadHistory(ctx context.Context, client tangle.Client, id did.IotaDID) (*DocumentHistory, error) {
	r, err := readChains(ctx, client, id)
	if err != nil {
		return nil, err
	}

	integrationHistory := NewChainHistory(r.integration.Messages(), r.integrationMessages)
	diffHistory := NewChainHistory(r.diff.Diffs(), r.diffMessages)

	return &DocumentHistory{
		IntegrationChainData: integrationHistory.ChainData,
		IntegrationChainSpam: integrationHistory.Spam,
		DiffChainData:        diffHistory.ChainData,
		DiffChainSpam:        diffHistory.Spam,
	}, nil
}

// ReadDocumentChain reads both chains of id through client.
func ReadDocumentChain(ctx context.Context, client tangle.Client, id did.IotaDID) (*DocumentChain, error) {
	r, err := readChains(ctx, client, id)
	if err != nil {
		return nil, err
	}

	return NewDocumentChainWithDiffChain(r.integration, r.diff)
}

type chainRead struct {
	integration         *IntegrationChain
	diff                *DiffChain
	integrationMessages []tangle.Message
	diffMessages        []tangle.Message
}

func readChains(ctx context.Context, client tangle.Client, id did.IotaDID) (*chainRead, error) {
	integrationMessages, err := client.ReadMessages(ctx, id.Tag())
	if err != nil {
		return nil, fmt.Errorf("read integration chain of %s: %w", id, err)
	}

	ic, err := IntegrationChainFromMessages(id, integrationMessages)
	if err != nil {
		return nil, err
	}

	diffIndex, err := document.DiffIndex(ic.CurrentMessageID())
	if err != nil {
		return nil, err
	}

	diffMessages, err := client.ReadMessages(ctx, diffIndex)
	if err != nil {
		return nil, fmt.Errorf("read diff chain of %s: %w", id, err)
	}

	dc, err := DiffChainFromMessages(ic, diffMessages)
	if err != nil {
		return nil, err
	}

	return &chainRead{
		integration:         ic,
		diff:                dc,
		integrationMessages: integrationMessages,
		diffMessages:        diffMessages,
	}, nil
}
