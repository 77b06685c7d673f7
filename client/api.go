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
	"math/big"
	"sync/atomic"

	"github.com/ground-x/coreclient/blockchain/state"
	"github.com/ground-x/coreclient/blockchain/types"
	"github.com/ground-x/coreclient/common"
	"github.com/ground-x/coreclient/crypto"
	"github.com/ground-x/coreclient/filters"
	"github.com/ground-x/coreclient/params"
)

// Transact is the spec's `transact(secret, value, dest, data, gas,
// gasPrice)`: it builds a transaction whose nonce is `post.transactionsFrom`
// for the signing account, signs it, and enqueues it. Submission is
// fire-and-forget (spec §7 item 3): a transaction rejected by the queue
// (invalid signature, already known) is logged and dropped, never surfaced as
// an error here; the caller observes its absence from `post.pending()`.
func (c *Client) Transact(secret crypto.Secret, value *big.Int, dest common.Address, data []byte, gas, gasPrice *big.Int) common.Hash {
	sender := secret.Address()

	c.mu.Lock()
	nonce := c.post.TransactionsFrom(sender)
	c.mu.Unlock()

	tx := &types.Transaction{
		Nonce:          nonce,
		Value:          value,
		GasPrice:       gasPrice,
		Gas:            gas,
		ReceiveAddress: dest,
		Data:           append([]byte(nil), data...),
	}
	if err := tx.Sign(secret); err != nil {
		logger.Warn("failed to sign transaction", "err", err)
		return common.Hash{}
	}
	if err := c.txQueue.AttemptImport(tx); err != nil {
		logger.Debug("transaction not queued", "hash", tx.Hash(), "err", err)
	}
	return tx.Hash()
}

// TransactCreate is the spec's contract-creation `transact` overload: same
// queueing discipline as Transact, but returns the predicted contract
// address (crypto.ContractAddress) instead of the transaction id, since
// that's what a caller needs to reference the not-yet-mined contract.
func (c *Client) TransactCreate(secret crypto.Secret, endowment *big.Int, init []byte, gas, gasPrice *big.Int) common.Address {
	sender := secret.Address()

	c.mu.Lock()
	nonce := c.post.TransactionsFrom(sender)
	c.mu.Unlock()

	tx := &types.Transaction{
		Nonce:    nonce,
		Value:    endowment,
		GasPrice: gasPrice,
		Gas:      gas,
		Data:     append([]byte(nil), init...),
	}
	if err := tx.Sign(secret); err != nil {
		logger.Warn("failed to sign contract-creation transaction", "err", err)
		return common.Address{}
	}
	if err := c.txQueue.AttemptImport(tx); err != nil {
		logger.Debug("contract-creation transaction not queued", "hash", tx.Hash(), "err", err)
	}
	return crypto.ContractAddress(sender, nonce)
}

// Inject is the spec's `inject(rlp)`: attempts import of an
// already-constructed signed transaction. This module's wire format (the
// spec's "rlp" bytes) is out of scope (see DESIGN.md), so callers hand in
// an already-decoded *types.Transaction; Network.Sync likewise imports
// already-decoded transactions through TransactionQueue.AttemptImport.
func (c *Client) Inject(tx *types.Transaction) error {
	return c.txQueue.AttemptImport(tx)
}

// FlushTransactions is the spec's `flushTransactions()`: a synchronous
// tick with mining and network I/O skipped, the primary test seam
// (SPEC_FULL §4.1.3) callers use instead of waiting on the background
// worker.
func (c *Client) FlushTransactions() {
	c.tick(true)
}

// ClearPending is the spec's `clearPending()`: drops `post` and rebuilds it
// from `pre`, then fires NewPendingFilter for every watcher bound to it.
func (c *Client) ClearPending() {
	c.mu.Lock()
	c.post = c.pre.Copy()
	c.mu.Unlock()

	changed := map[common.Hash]struct{}{filters.NewPendingFilterID: {}}
	c.filters.NoteChanged(changed)
	c.publishChanged(changed)
}

// StartMining is the spec's `startMining()`: sets the mining flag the tick
// reads, requests a fresh mining candidate on the next mine phase, and
// lazily spawns the worker if it isn't running yet.
func (c *Client) StartMining() {
	atomic.StoreInt32(&c.mining, 1)
	atomic.StoreInt32(&c.restart, 1)
	c.Run()
	logger.Info("mining started")
}

// StopMining is the spec's `stopMining()`.
func (c *Client) StopMining() {
	atomic.StoreInt32(&c.mining, 0)
	logger.Info("mining stopped")
}

// IsMining reports the current state of the mining flag.
func (c *Client) IsMining() bool {
	return atomic.LoadInt32(&c.mining) != 0
}

// InstallWatch is the spec's `installWatch(filter) -> id`.
func (c *Client) InstallWatch(f filters.Filter) uint64 {
	return c.filters.InstallWatch(f)
}

// InstallBuiltinWatch is the spec's `installWatch(builtin_id)`: sentinel is
// one of filters.NewBlockFilterID / filters.NewPendingFilterID.
func (c *Client) InstallBuiltinWatch(sentinel common.Hash) uint64 {
	return c.filters.InstallBuiltinWatch(sentinel)
}

// UninstallWatch is the spec's `uninstallWatch(id)`.
func (c *Client) UninstallWatch(id uint64) {
	c.filters.UninstallWatch(id)
}

// CheckWatch is the spec's `checkWatch(id)`: atomic read-and-clear.
func (c *Client) CheckWatch(id uint64) bool {
	return c.filters.CheckWatch(id)
}

// stateAt resolves the spec §4.1 block-selector encoding to a *state.State:
// 0 and -1 return the live `post`/`pre` objects directly (so reads observe
// in-flight pending transactions or mining progress); every other selector
// resolves to a historical block number and builds a read-only State over
// that block's committed root. The historical State shares this Client's
// StateDB, so any account it touches is read straight from the overlay
// Database rather than replayed from genesis.
func (c *Client) stateAt(selector int) (*state.State, error) {
	c.mu.Lock()
	switch selector {
	case 0:
		s := c.post
		c.mu.Unlock()
		return s, nil
	case -1:
		s := c.pre
		c.mu.Unlock()
		return s, nil
	}
	head := c.chain.Number()
	c.mu.Unlock()

	n := params.ResolveBlockSelector(selector, head)
	hash := c.chain.NumberHash(n)
	if hash.IsEmpty() {
		return nil, errUnknownBlock
	}
	block, err := c.chain.Block(hash)
	if err != nil {
		return nil, err
	}
	return state.New(c.stateDB, block.Header.StateRoot, hash, n, block.Header.Coinbase), nil
}

// BalanceAt is the spec's `balanceAt` read operation.
func (c *Client) BalanceAt(addr common.Address, selector int) (*big.Int, error) {
	s, err := c.stateAt(selector)
	if err != nil {
		return nil, err
	}
	return s.Balance(addr), nil
}

// CountAt is the spec's `countAt` read operation: the sender's next nonce
// as of the selected state.
func (c *Client) CountAt(addr common.Address, selector int) (uint64, error) {
	s, err := c.stateAt(selector)
	if err != nil {
		return 0, err
	}
	return s.TransactionsFrom(addr), nil
}

// StateAt is the spec's `stateAt` read operation: the storage value at
// (addr, key) as of the selected state.
func (c *Client) StateAt(addr common.Address, key common.Hash, selector int) (common.Hash, error) {
	s, err := c.stateAt(selector)
	if err != nil {
		return common.Hash{}, err
	}
	return s.Storage(addr, key), nil
}

// CodeAt is the spec's `codeAt` read operation.
func (c *Client) CodeAt(addr common.Address, selector int) ([]byte, error) {
	s, err := c.stateAt(selector)
	if err != nil {
		return nil, err
	}
	return s.Code(addr), nil
}

// Addresses is the spec's `addresses` read operation: every account the
// selected State has materialized (see state.State.Addresses for the
// accepted "only touched accounts" limitation).
func (c *Client) Addresses(selector int) ([]common.Address, error) {
	s, err := c.stateAt(selector)
	if err != nil {
		return nil, err
	}
	return s.Addresses(), nil
}

// Transactions is the spec's `transactions(filter)`: scans mined blocks and
// the tip's pending transactions for matches, per filters.Transactions.
// `post` is used as the PendingSource, since the spec's tip-block treatment
// is defined in terms of the node's own pending transactions.
func (c *Client) Transactions(f filters.Filter) []types.PastMessage {
	c.mu.Lock()
	post := c.post
	c.mu.Unlock()
	return filters.Transactions(f, c.chain, post)
}
