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

// Package blockqueue is the Client's BlockQueue collaborator (spec §6): an
// at-most-once staging store keyed by block hash, holding blocks received
// from peers or submitted locally until Chain.sync drains and validates
// them. Shaped after txpool's all-map-plus-dedup staging store, since the
// teacher has no dedicated block-staging type of its own (klaytn feeds
// freshly-received blocks straight into its blockchain.InsertChain).
package blockqueue

import (
	"sync"

	"github.com/ground-x/coreclient/blockchain/types"
	"github.com/ground-x/coreclient/common"
	"github.com/ground-x/coreclient/log"
)

var logger = log.NewModuleLogger(log.BlockQueue)

// Queue stages blocks until Chain.sync drains them.
type Queue struct {
	mu     sync.Mutex
	seen   map[common.Hash]struct{}
	staged []*types.Block
}

// New creates an empty Queue.
func New() *Queue {
	return &Queue{seen: map[common.Hash]struct{}{}}
}

// Stage adds block to the queue unless its hash has already been staged
// (and not yet drained), the at-most-once property spec §6 names.
func (q *Queue) Stage(block *types.Block) {
	q.mu.Lock()
	defer q.mu.Unlock()
	hash := block.Hash()
	if _, ok := q.seen[hash]; ok {
		logger.Debug("dropping already-staged block", "hash", hash)
		return
	}
	q.seen[hash] = struct{}{}
	q.staged = append(q.staged, block)
}

// Drain removes and returns every currently staged block, satisfying
// blockchain.BlockQueue for Chain.Sync.
func (q *Queue) Drain() []*types.Block {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.staged
	q.staged = nil
	q.seen = map[common.Hash]struct{}{}
	return out
}

// Len reports how many blocks are currently staged.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.staged)
}
