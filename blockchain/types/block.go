// Copyright 2024 The coreclient Authors
// This file is part of the coreclient library.
//
// The coreclient library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The coreclient library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the coreclient library. If not, see <http://www.gnu.org/licenses/>.

package types

import (
	"encoding/binary"

	"github.com/ground-x/coreclient/common"
	"github.com/ground-x/coreclient/crypto"
)

// Header carries the fields a Chain needs to validate and order blocks
// (spec §3): parent hash, state root, timestamp, number and a difficulty
// target. Real fork-choice/uncle bookkeeping is out of scope.
type Header struct {
	ParentHash common.Hash
	StateRoot  common.Hash
	Coinbase   common.Address
	Number     uint64
	Time       uint64
	Difficulty uint64
	Nonce      uint64
	Bloom      common.Bloom
}

// Hash identifies a block by its header contents.
func (h *Header) Hash() common.Hash {
	return h.HashWithNonce(h.Nonce)
}

// HashWithNonce computes the header hash as if Nonce were trial, without
// mutating the header. The mining loop calls this once per candidate
// nonce rather than writing-then-hashing, since the candidate header is
// shared with readers (BlockData) while a mine is in progress.
func (h *Header) HashWithNonce(trial uint64) common.Hash {
	numBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(numBytes, h.Number)
	timeBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(timeBytes, h.Time)
	nonceBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(nonceBytes, trial)
	return crypto.Sha3(
		h.ParentHash[:],
		h.StateRoot[:],
		h.Coinbase[:],
		numBytes,
		timeBytes,
		nonceBytes,
	)
}

// Block is the spec §3 Block: a header plus its transactions.
type Block struct {
	Header       *Header
	Transactions []*Transaction
	Receipts     []*Manifest // one Manifest per transaction, in order
}

func (b *Block) Hash() common.Hash   { return b.Header.Hash() }
func (b *Block) NumberU64() uint64   { return b.Header.Number }
func (b *Block) ParentHash() common.Hash { return b.Header.ParentHash }

// BlockBloom folds a set of per-transaction Blooms into one block-level
// Bloom, the summary a Chain stores per block for the filter pre-filter
// pass (spec §4.5).
func BlockBloom(txBlooms []common.Bloom) common.Bloom {
	var out common.Bloom
	for _, tb := range txBlooms {
		out.Or(tb)
	}
	return out
}
