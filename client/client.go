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

// Package client composes this module's collaborators into the Client
// loop: the long-running coordinator that owns the chain store, world
// state, transaction pool, and block-import queue, advances the
// pre-mine/post-mine state pair, drives mining, and fans filter matches
// out to installed watches. Grounded on work/worker.go's status-int and
// mutex-split idioms, generalized from "build a mining Task" to this
// module's whole tick lifecycle.
package client

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ground-x/coreclient/blockchain"
	"github.com/ground-x/coreclient/blockchain/state"
	"github.com/ground-x/coreclient/blockchain/types"
	"github.com/ground-x/coreclient/blockqueue"
	"github.com/ground-x/coreclient/common"
	"github.com/ground-x/coreclient/compiler"
	"github.com/ground-x/coreclient/config"
	"github.com/ground-x/coreclient/events"
	"github.com/ground-x/coreclient/filters"
	"github.com/ground-x/coreclient/log"
	"github.com/ground-x/coreclient/network"
	"github.com/ground-x/coreclient/params"
	"github.com/ground-x/coreclient/storage/database"
	"github.com/ground-x/coreclient/txpool"
)

var logger = log.NewModuleLogger(log.Client)

// WorkState is the background worker's lifecycle (spec §3, §5): atomic so
// the destructor can observe it without taking client-lock.
type WorkState int32

const (
	Deleted WorkState = iota
	Active
	Deleting
)

// Client is this module's coordinator. Every exported method is the "thin
// outer layer" of spec §5's preferred refactor: it acquires the relevant
// lock exactly once and delegates to lock-free, lowercase-receiver helpers
// that assume the lock is already held. No mutex here is ever taken
// recursively.
type Client struct {
	version  string
	coinbase common.Address

	mu sync.Mutex // client-lock: pre, post, mining flags/progress, chain, stateDB handle

	chain   *blockchain.Chain
	stateDB *state.Database
	pre     *state.State
	post    *state.State

	txQueue    *txpool.Queue
	blockQueue *blockqueue.Queue

	netMu sync.Mutex // net-lock: guards net's construction/destruction and all calls on it
	net   *network.Network

	filters  *filters.Registry
	events   *events.Sink
	compiler compiler.Compiler

	mining        int32 // atomic bool
	restart       int32 // atomic bool: mine phase should call commitToMine next tick
	paranoid      bool
	mineHashes    uint64
	mineBest      uint64

	tickSleep  time.Duration
	mineBudget time.Duration

	workState int32 // atomic WorkState
	workOnce  sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
	stopCh    chan struct{}
}

// New constructs a Client per spec §3's Lifecycle: runs the version gate,
// opens Chain and StateDB (wipe mode on gate failure), seeds a genesis
// block if the chain is empty, initializes `pre`/`post`, and runs one
// synchronous tick before returning.
func New(cfg config.Config, version string) (*Client, error) {
	wipe, err := checkVersionGate(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	chainDB, err := database.Open(chainDBPath(cfg.DataDir))
	if err != nil {
		return nil, err
	}
	if wipe {
		logger.Info("version gate failed; wiping chain store")
	}
	chain, err := blockchain.NewChain(chainDB)
	if err != nil {
		return nil, err
	}

	stateDB, err := state.OpenDB(stateDBPath(cfg.DataDir), wipe)
	if err != nil {
		return nil, err
	}

	if chain.Number() == 0 && chain.Head().IsEmpty() {
		genesis := &types.Block{Header: &types.Header{Coinbase: cfg.Coinbase}}
		chain.CommitGenesis(genesis)
	}

	if err := writeVersionGate(cfg.DataDir); err != nil {
		return nil, err
	}

	head, err := chain.Block(chain.Head())
	if err != nil {
		return nil, fmt.Errorf("client: chain head %s not found after genesis: %w", chain.Head(), err)
	}

	pre := state.New(stateDB, head.Header.StateRoot, chain.Head(), chain.Number(), cfg.Coinbase)
	post := pre.Copy()

	sink, err := events.New(version, cfg.Events.Brokers)
	if err != nil {
		return nil, err
	}

	c := &Client{
		version:    version,
		coinbase:   cfg.Coinbase,
		chain:      chain,
		stateDB:    stateDB,
		pre:        pre,
		post:       post,
		txQueue:    txpool.New(),
		blockQueue: blockqueue.New(),
		filters:    filters.New(),
		events:     sink,
		compiler:   compiler.New(),
		paranoid:   cfg.Paranoid,
		tickSleep:  durationOrDefault(cfg.TickSleepMs, params.IdleSleep),
		mineBudget: durationOrDefault(cfg.MineBudgetMs, params.MineBudget),
		stopCh:     make(chan struct{}),
	}

	if cfg.Network.ListenPort != 0 || cfg.Network.ClientVersion != "" {
		if err := c.startNetworkLocked(cfg.Network); err != nil {
			logger.Warn("failed to start configured network", "err", err)
		}
	}

	c.tick(true)

	if cfg.Mine {
		c.StartMining()
	}

	return c, nil
}

func durationOrDefault(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func chainDBPath(dataDir string) string {
	if dataDir == "" {
		return ""
	}
	return filepath.Join(dataDir, "chain")
}

func stateDBPath(dataDir string) string {
	if dataDir == "" {
		return ""
	}
	return filepath.Join(dataDir, "state")
}

// Run lazily spawns the background worker goroutine, the spec's "first
// call that needs work". Safe to call more than once; only the first call
// has an effect.
func (c *Client) Run() {
	c.workOnce.Do(func() {
		atomic.StoreInt32(&c.workState, int32(Active))
		c.wg.Add(1)
		go c.workerLoop()
	})
}

func (c *Client) workerLoop() {
	defer c.wg.Done()
	for WorkState(atomic.LoadInt32(&c.workState)) != Deleting {
		select {
		case <-c.stopCh:
			atomic.StoreInt32(&c.workState, int32(Deleting))
		default:
		}
		c.tick(false)
	}
	atomic.StoreInt32(&c.workState, int32(Deleted))

	c.mu.Lock()
	c.pre.SyncChain(c.chain)
	c.post = c.pre.Copy()
	c.mu.Unlock()
}

// Close transitions WorkState from Active to Deleting and blocks until the
// worker observes Deleted and exits, the spec's "destructor". Safe to call
// whether or not Run() was ever called, and safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCh)
		atomic.CompareAndSwapInt32(&c.workState, int32(Active), int32(Deleting))
	})
	c.wg.Wait()

	c.netMu.Lock()
	if c.net != nil {
		c.net.Stop()
	}
	c.netMu.Unlock()

	if c.events != nil {
		c.events.Close()
	}
}

// WorkState reports the worker's current lifecycle state.
func (c *Client) WorkState() WorkState {
	return WorkState(atomic.LoadInt32(&c.workState))
}

// Version is the client-version string passed to New, also used as the
// event sink's client id. The Network reports cfg.ClientVersion instead.
func (c *Client) Version() string { return c.version }
