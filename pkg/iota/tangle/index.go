/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tangle

import "golang.org/x/exp/slices"

// Ref is implemented by messages linked into a chain by their previous message id.
type Ref interface {
	MessageID() MessageID
	SetMessageID(MessageID)
	PreviousMessageID() MessageID
	SetPreviousMessageID(MessageID)
}

// MessageIndex groups chain messages by previous message id, preserving arrival order.
type MessageIndex[T Ref] struct {
	entries map[MessageID][]T
}

// NewMessageIndex indexes items by previous message id.
func NewMessageIndex[T Ref](items ...T) *MessageIndex[T] {
	index := &MessageIndex[T]{entries: make(map[MessageID][]T)}

	for _, item := range items {
		index.Insert(item)
	}

	return index
}

// Insert appends item under its previous message id.
func (i *MessageIndex[T]) Insert(item T) {
	key := item.PreviousMessageID()
	i.entries[key] = append(i.entries[key], item)
}

// Get returns the items referencing key.
func (i *MessageIndex[T]) Get(key MessageID) []T {
	return i.entries[key]
}

// Remove removes and returns the items referencing key.
func (i *MessageIndex[T]) Remove(key MessageID) ([]T, bool) {
	items, ok := i.entries[key]
	delete(i.entries, key)

	return items, ok
}

// RemoveWhere removes and returns the first item under key that satisfies pred.
func (i *MessageIndex[T]) RemoveWhere(key MessageID, pred func(T) bool) (T, bool) {
	var zero T

	items := i.entries[key]

	idx := slices.IndexFunc(items, pred)
	if idx < 0 {
		return zero, false
	}

	item := items[idx]
	items = slices.Delete(items, idx, idx+1)

	if len(items) == 0 {
		delete(i.entries, key)
	} else {
		i.entries[key] = items
	}

	return item, true
}

// Len returns the number of indexed items.
func (i *MessageIndex[T]) Len() int {
	n := 0
	for _, items := range i.entries {
		n += len(items)
	}

	return n
}

// IsEmpty reports whether the index holds no items.
func (i *MessageIndex[T]) IsEmpty() bool {
	return len(i.entries) == 0
}

// Drain removes and returns every remaining item.
func (i *MessageIndex[T]) Drain() []T {
	var out []T

	for key, items := range i.entries {
		out = append(out, items...)
		delete(i.entries, key)
	}

	return out
}
