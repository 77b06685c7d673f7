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

package client

import (
	"sync/atomic"
	"time"

	"github.com/ground-x/coreclient/common"
	"github.com/ground-x/coreclient/filters"
	"github.com/ground-x/coreclient/params"
)

// tick runs one iteration of the worker loop (spec §4.1): a network phase,
// a mine phase, and a sync phase, each taking its locks in
// `net-lock < client-lock` order, and never holding client-lock during the
// potentially-long Chain.sync call. justQueue mirrors flushTransactions'
// "queue-only" mode: the network and mine phases are skipped.
func (c *Client) tick(justQueue bool) {
	changed := map[common.Hash]struct{}{}

	if !justQueue {
		c.networkPhase()
	}
	if !justQueue {
		c.minePhase(changed)
	}
	c.syncPhase(changed)

	c.filters.NoteChanged(changed)
	c.publishChanged(changed)
}

// networkPhase is spec §4.1 phase 1: the only place the Network is touched.
func (c *Client) networkPhase() {
	c.netMu.Lock()
	n := c.net
	c.netMu.Unlock()
	if n == nil {
		return
	}
	n.Process()
	n.Sync(c.txQueue, c.blockQueue)
}

// minePhase is spec §4.1 phase 2.
func (c *Client) minePhase(changed map[common.Hash]struct{}) {
	if atomic.LoadInt32(&c.mining) == 0 {
		time.Sleep(params.IdleSleep)
		return
	}

	c.mu.Lock()
	if atomic.CompareAndSwapInt32(&c.restart, 1, 0) {
		c.mineHashes, c.mineBest = 0, 0
		if c.paranoid && !c.post.AmIJustParanoid(c.chain) {
			atomic.StoreInt32(&c.mining, 0)
			c.mu.Unlock()
			logger.Warn("paranoid check failed against chain head; mining disabled")
			return
		}
		c.post.CommitToMine(c.chain)
	}
	c.mu.Unlock()

	c.mu.Lock()
	info := c.post.Mine(int(c.mineBudget / time.Millisecond))
	c.mineHashes = info.Hashes
	if info.Best > c.mineBest {
		c.mineBest = info.Best
	}
	completed := info.Completed
	c.mu.Unlock()

	if !completed {
		return
	}

	c.mu.Lock()
	err := c.post.CompleteMine()
	var block = c.post.BlockData()
	c.mu.Unlock()
	if err != nil {
		logger.Warn("completeMine failed", "err", err)
		return
	}

	c.mu.Lock()
	hashes, err := c.chain.AttemptImport(block, c.pre)
	head := c.chain.Number()
	if err == nil {
		// AttemptImport advanced `pre` in place (it's the overlay passed
		// in above); `post` must be rebuilt from it the same way syncPhase
		// rebuilds post after an externally-imported block, or post's
		// stale `pending` would keep counting transactions the chain has
		// already mined (breaking P2).
		c.post = c.pre.Copy()
	}
	c.mu.Unlock()
	if err != nil {
		logger.Warn("failed to import locally mined block", "err", err)
		return
	}

	for _, h := range hashes {
		b, err := c.chain.Block(h)
		if err != nil {
			continue
		}
		c.filters.AppendFromNewBlock(b, head, changed)
		c.txQueue.Remove(b.Transactions)
	}
	changed[filters.NewBlockFilterID] = struct{}{}
	changed[filters.NewPendingFilterID] = struct{}{}
	atomic.StoreInt32(&c.restart, 1)
}

// syncPhase is spec §4.1 phase 3: imports queued blocks against a snapshot
// overlay (client-lock released for the duration of Chain.sync), rebases
// `pre` onto any new head, and applies queued transactions into `post`.
func (c *Client) syncPhase(changed map[common.Hash]struct{}) {
	c.mu.Lock()
	overlay := c.pre.Copy()
	c.mu.Unlock()

	imported := c.chain.Sync(c.blockQueue, overlay, int(c.mineBudget/time.Millisecond))

	c.mu.Lock()
	advanced := len(imported) > 0
	if advanced {
		c.pre = overlay
		head := c.chain.Number()
		for _, h := range imported {
			b, err := c.chain.Block(h)
			if err != nil {
				continue
			}
			c.filters.AppendFromNewBlock(b, head, changed)
			c.txQueue.Remove(b.Transactions)
		}
		changed[filters.NewBlockFilterID] = struct{}{}
	}

	// c.pre.SyncChain only reports a change when pre's recorded head hash
	// differs from the chain's (ApplyBlock records the hash before Chain
	// stamps the computed state root into the header), so `advanced` is
	// included here directly: either path means `pre` now reflects a head
	// `post` hasn't seen yet, and post must be rebased too.
	headChanged := c.pre.SyncChain(c.chain) || advanced
	coinbaseChanged := c.post.Coinbase() != c.pre.Coinbase()
	if headChanged || coinbaseChanged {
		atomic.StoreInt32(&c.restart, 1)
		c.post = c.pre.Copy()
		changed[filters.NewPendingFilterID] = struct{}{}
	}

	headNumber := c.chain.Number()
	blooms := c.post.Sync(c.txQueue)
	for _, bloom := range blooms {
		c.filters.AppendFromNewPending(bloom, headNumber, changed)
	}
	if len(blooms) > 0 {
		changed[filters.NewPendingFilterID] = struct{}{}
		atomic.StoreInt32(&c.restart, 1)
	}
	c.mu.Unlock()
}

// publishChanged mirrors the accumulated change set to the external event
// sink (SPEC_FULL §4.5.1): a no-op whenever c.events is nil (Kafka
// unconfigured), so this path never affects the in-process watch
// semantics tested by P3/P4.
func (c *Client) publishChanged(changed map[common.Hash]struct{}) {
	if c.events == nil || len(changed) == 0 {
		return
	}
	head := c.chain.Number()
	for id := range changed {
		switch id {
		case filters.NewBlockFilterID:
			c.events.PublishNewBlock(c.chain.Head(), head)
		case filters.NewPendingFilterID:
			c.events.PublishNewPending(common.Hash{})
		}
	}
}
