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

// Package blockchain is the Client's Chain collaborator (spec §6): an
// append-only, persisted store of imported blocks, trimmed from this
// repository's storage/database.DBManager surface down to the accessors
// the Client needs (number/details/numberHash/block/blooms/traces/sync/
// attemptImport).
package blockchain

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/ground-x/coreclient/blockchain/types"
	"github.com/ground-x/coreclient/common"
	"github.com/ground-x/coreclient/log"
	"github.com/ground-x/coreclient/storage/database"
)

var logger = log.NewModuleLogger(log.Chain)

// Details mirrors the `{number, parent, bloom, totalDifficulty}` tuple the
// spec's Chain.details() returns.
type Details struct {
	Number           uint64
	Parent           common.Hash
	Bloom            common.Bloom
	TotalDifficulty  uint64
}

// BlockQueue is the minimal surface Chain.sync needs from the Client's
// block-staging queue (spec §4.4); defined here, not in the blockqueue
// package, to avoid an import cycle (blockqueue has no reason to know
// about Chain).
type BlockQueue interface {
	// Drain removes and returns every currently staged block.
	Drain() []*types.Block
}

// StateApplier is the minimal surface Chain.sync/AttemptImport need from a
// StateDB overlay to execute a block and obtain its state root. Defined here
// to avoid blockchain<->state import cycle; state.Overlay satisfies it.
type StateApplier interface {
	ApplyBlock(block *types.Block) (common.Hash, []common.Bloom, []*types.Manifest, error)
}

const cacheSize = 256

// Chain is this module's append-only block store.
type Chain struct {
	mu sync.RWMutex

	db database.Database

	headNumber uint64
	headHash   common.Hash

	numberToHash map[uint64]common.Hash
	hashToBlock  map[common.Hash]*types.Block
	hashToBlooms map[common.Hash][]common.Bloom     // per-transaction blooms
	hashToTraces map[common.Hash][]*types.Manifest  // per-transaction manifests

	headerCache *lru.Cache
}

// NewChain opens (or creates) a Chain over db. A freshly created chain has
// number() == 0 and no blocks: callers are expected to commit a genesis
// block themselves the way the Client's constructor does.
func NewChain(db database.Database) (*Chain, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	c := &Chain{
		db:           db,
		numberToHash: map[uint64]common.Hash{},
		hashToBlock:  map[common.Hash]*types.Block{},
		hashToBlooms: map[common.Hash][]common.Bloom{},
		hashToTraces: map[common.Hash][]*types.Manifest{},
		headerCache:  cache,
	}
	if err := c.loadHead(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Chain) loadHead() error {
	raw, err := c.db.Get([]byte("chain-head"))
	if err == database.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	var blocks []*types.Block
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&blocks); err != nil {
		return err
	}
	for _, b := range blocks {
		c.index(b, nil, nil)
	}
	return nil
}

func (c *Chain) persist() {
	var all []*types.Block
	for _, h := range c.numberToHash {
		all = append(all, c.hashToBlock[h])
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(all); err != nil {
		logger.Warn("failed to persist chain", "err", err)
		return
	}
	if err := c.db.Put([]byte("chain-head"), buf.Bytes()); err != nil {
		logger.Warn("failed to persist chain", "err", err)
	}
}

func (c *Chain) index(b *types.Block, blooms []common.Bloom, traces []*types.Manifest) {
	h := b.Hash()
	c.hashToBlock[h] = b
	c.numberToHash[b.NumberU64()] = h
	if blooms != nil {
		c.hashToBlooms[h] = blooms
	}
	if traces != nil {
		c.hashToTraces[h] = traces
	}
	if b.NumberU64() >= c.headNumber || c.headHash.IsEmpty() {
		c.headNumber = b.NumberU64()
		c.headHash = h
	}
	c.headerCache.Add(h, b.Header)
}

// CommitGenesis seeds the chain with its block 0. Must be called at most
// once, before any other block is imported.
func (c *Chain) CommitGenesis(genesis *types.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index(genesis, make([]common.Bloom, 0), nil)
	c.persist()
}

// Number is the spec's Chain.number(): the head block's number.
func (c *Chain) Number() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headNumber
}

// Head is the head block's hash.
func (c *Chain) Head() common.Hash {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headHash
}

// Details returns the spec's `{number, parent, bloom, totalDifficulty}`
// for hash, or the head's details if hash is the zero value.
func (c *Chain) Details(hash common.Hash) (Details, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if hash.IsEmpty() {
		hash = c.headHash
	}
	b, ok := c.hashToBlock[hash]
	if !ok {
		return Details{}, fmt.Errorf("blockchain: unknown block %s", hash)
	}
	return Details{
		Number:          b.NumberU64(),
		Parent:          b.ParentHash(),
		Bloom:           b.Header.Bloom,
		TotalDifficulty: b.Header.Difficulty, // simple-chain stand-in: no uncle weighting
	}, nil
}

// NumberHash maps a block number to its canonical hash.
func (c *Chain) NumberHash(n uint64) common.Hash {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.numberToHash[n]
}

// Block returns the full block for hash.
func (c *Chain) Block(hash common.Hash) (*types.Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.hashToBlock[hash]
	if !ok {
		return nil, fmt.Errorf("blockchain: unknown block %s", hash)
	}
	return b, nil
}

// Blooms returns the per-transaction Blooms recorded for hash.
func (c *Chain) Blooms(hash common.Hash) []common.Bloom {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hashToBlooms[hash]
}

// Traces returns the per-transaction Manifests recorded for hash.
func (c *Chain) Traces(hash common.Hash) []*types.Manifest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hashToTraces[hash]
}

// AttemptImport validates and commits a single locally-mined block (the
// worker's mine phase, spec §4.1 item 2), applying it against overlay to
// obtain its per-tx blooms/manifests and its declared state root.
func (c *Chain) AttemptImport(block *types.Block, overlay StateApplier) ([]common.Hash, error) {
	c.mu.RLock()
	parentOK := block.ParentHash() == c.headHash
	c.mu.RUnlock()
	if !parentOK {
		return nil, errors.New("blockchain: block does not extend the current head")
	}

	root, blooms, traces, err := overlay.ApplyBlock(block)
	if err != nil {
		return nil, err
	}
	block.Header.StateRoot = root

	c.mu.Lock()
	c.index(block, blooms, traces)
	c.persist()
	c.mu.Unlock()

	return []common.Hash{block.Hash()}, nil
}

// Sync drains queue, importing every block whose parent is already known,
// against overlay (spec §4.1 item 3). Every drained block is processed in
// one call: budgetMs is not consulted. A block's declared state root is not
// compared with execution; it is replaced by the root overlay computes.
// Blocks whose parent is unknown or that fail to apply are dropped with a
// warning (spec §7 item 4) rather than aborting the sync.
func (c *Chain) Sync(queue BlockQueue, overlay StateApplier, budgetMs int) []common.Hash {
	var imported []common.Hash
	for _, b := range queue.Drain() {
		c.mu.RLock()
		known := false
		if _, ok := c.hashToBlock[b.ParentHash()]; ok || b.ParentHash() == c.headHash {
			known = true
		}
		c.mu.RUnlock()
		if !known {
			logger.Warn("dropping block with unknown parent", "hash", b.Hash(), "parent", b.ParentHash())
			continue
		}

		root, blooms, traces, err := overlay.ApplyBlock(b)
		if err != nil {
			logger.Warn("dropping invalid block", "hash", b.Hash(), "err", err)
			continue
		}
		b.Header.StateRoot = root

		c.mu.Lock()
		c.index(b, blooms, traces)
		c.mu.Unlock()
		imported = append(imported, b.Hash())
	}
	if len(imported) > 0 {
		c.mu.Lock()
		c.persist()
		c.mu.Unlock()
	}
	return imported
}
