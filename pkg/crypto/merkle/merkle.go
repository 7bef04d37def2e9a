/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package merkle implements SHA-256 Merkle trees with domain separated leaf and branch hashes,
// and the key collections committed to by MerkleKeyCollection2021 verification methods.
package merkle

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/minio/sha256-simd"
)

const (
	// HashSize is the size of a digest.
	HashSize = sha256.Size

	leafPrefix   = 0x00
	branchPrefix = 0x01

	nodeTagL = 0x00
	nodeTagR = 0x01
)

var (
	// ErrEmptyTree is returned when computing a root or proof over no leaves.
	ErrEmptyTree = errors.New("merkle tree has no leaves")
	// ErrIndexOutOfRange is returned for a proof index beyond the leaves.
	ErrIndexOutOfRange = errors.New("leaf index out of range")
	// ErrMalformedProof is returned when decoding an invalid proof.
	ErrMalformedProof = errors.New("malformed merkle proof")
)

// Hash is a SHA-256 digest.
type Hash [HashSize]byte

// Equal compares two hashes in constant time.
func (h Hash) Equal(other Hash) bool {
	return subtle.ConstantTimeCompare(h[:], other[:]) == 1
}

// HashLeaf returns H(0x00 || data).
func HashLeaf(data []byte) Hash {
	d := sha256.New()
	d.Write([]byte{leafPrefix})
	d.Write(data)

	var h Hash

	copy(h[:], d.Sum(nil))

	return h
}

// HashBranch returns H(0x01 || left || right).
func HashBranch(left, right Hash) Hash {
	d := sha256.New()
	d.Write([]byte{branchPrefix})
	d.Write(left[:])
	d.Write(right[:])

	var h Hash

	copy(h[:], d.Sum(nil))

	return h
}

// Node is a proof element: a sibling hash tagged with the side it sits on.
type Node struct {
	Right bool
	Hash  Hash
}

// L tags h as a left sibling.
func L(h Hash) Node { return Node{Hash: h} }

// R tags h as a right sibling.
func R(h Hash) Node { return Node{Right: true, Hash: h} }

// Parent computes the parent of the node and other.
func (n Node) Parent(other Hash) Hash {
	if n.Right {
		return HashBranch(other, n.Hash)
	}

	return HashBranch(n.Hash, other)
}

// Root computes the root of the tree over leaf hashes. An odd node at the end of a level is
// carried up unchanged.
func Root(leaves []Hash) (Hash, error) {
	if len(leaves) == 0 {
		return Hash{}, ErrEmptyTree
	}

	level := append([]Hash(nil), leaves...)

	for len(level) > 1 {
		level = nextLevel(level)
	}

	return level[0], nil
}

func nextLevel(level []Hash) []Hash {
	next := make([]Hash, 0, (len(level)+1)/2)

	for i := 0; i < len(level); i += 2 {
		if i+1 == len(level) {
			next = append(next, level[i])

			continue
		}

		next = append(next, HashBranch(level[i], level[i+1]))
	}

	return next
}

// Proof is an inclusion proof: the siblings from the leaf up to the root.
type Proof struct {
	Nodes []Node
}

// NewProof builds the inclusion proof of the leaf at index.
func NewProof(leaves []Hash, index int) (*Proof, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}

	if index < 0 || index >= len(leaves) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(leaves))
	}

	proof := &Proof{}
	level := append([]Hash(nil), leaves...)

	for len(level) > 1 {
		switch {
		case index%2 == 1:
			proof.Nodes = append(proof.Nodes, L(level[index-1]))
		case index+1 < len(level):
			proof.Nodes = append(proof.Nodes, R(level[index+1]))
		}

		level = nextLevel(level)
		index /= 2
	}

	return proof, nil
}

// Root computes the root implied by leaf and the proof.
func (p *Proof) Root(leaf Hash) Hash {
	h := leaf
	for _, n := range p.Nodes {
		h = n.Parent(h)
	}

	return h
}

// Verify reports whether leaf is committed to by root.
func (p *Proof) Verify(root, leaf Hash) bool {
	return p.Root(leaf).Equal(root)
}

// Encode serializes the proof as a sequence of tag byte and hash pairs.
func (p *Proof) Encode() []byte {
	out := make([]byte, 0, len(p.Nodes)*(1+HashSize))

	for _, n := range p.Nodes {
		tag := byte(nodeTagL)
		if n.Right {
			tag = nodeTagR
		}

		out = append(out, tag)
		out = append(out, n.Hash[:]...)
	}

	return out
}

// DecodeProof parses a proof produced by Encode.
func DecodeProof(data []byte) (*Proof, error) {
	if len(data)%(1+HashSize) != 0 {
		return nil, fmt.Errorf("%w: length %d", ErrMalformedProof, len(data))
	}

	proof := &Proof{}

	for i := 0; i < len(data); i += 1 + HashSize {
		var h Hash

		copy(h[:], data[i+1:i+1+HashSize])

		switch data[i] {
		case nodeTagL:
			proof.Nodes = append(proof.Nodes, L(h))
		case nodeTagR:
			proof.Nodes = append(proof.Nodes, R(h))
		default:
			return nil, fmt.Errorf("%w: unknown node tag %d", ErrMalformedProof, data[i])
		}
	}

	return proof, nil
}
