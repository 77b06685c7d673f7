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

package state

import (
	"errors"
	"math/big"
	"sort"
	"sync"

	"github.com/ground-x/coreclient/blockchain/types"
	"github.com/ground-x/coreclient/common"
	"github.com/ground-x/coreclient/crypto"
)

// ChainReader is the sliver of the Chain collaborator that State needs:
// enough to rebuild `pre` from the head and to prepare a mining candidate.
// Defined here (rather than depended on from package blockchain) so state
// has no import-time dependency on the concrete Chain implementation.
type ChainReader interface {
	Number() uint64
	Head() common.Hash
	NumberHash(n uint64) common.Hash
	Block(hash common.Hash) (*types.Block, error)
}

// TxSource is the sliver of TransactionQueue that State.Sync needs.
type TxSource interface {
	Pending() []*types.Transaction
}

// Info mirrors the spec's `State.info()`.
type Info struct {
	Number   uint64
	Coinbase common.Address
	Root     common.Hash
}

// MineInfo mirrors the spec's `{hashes, best, requirement, completed}`
// returned by State.mine.
type MineInfo struct {
	Hashes      uint64
	Best        uint64 // highest leading-zero-bit count seen short of the target
	Requirement uint
	Completed   bool
}

// State is the spec §4.2 State: `pre` or `post`, a logical
// Address->Account mapping backed by a Database and parameterized by a
// chain head.
type State struct {
	mu sync.RWMutex

	db       *Database
	root     common.Hash // the account-table root this State reads from
	parent   common.Hash // the block hash root was derived from
	number   uint64
	coinbase common.Address

	dirty map[common.Address]*Account

	pending         []*types.Transaction
	pendingManifest []*types.Manifest
	pendingBloom    []common.Bloom

	candidate  *types.Header
	mineNonce  uint64
	mineHashes uint64
}

// New creates a State reading accounts from db at root, for the block
// identified by (parent, number).
func New(db *Database, root, parent common.Hash, number uint64, coinbase common.Address) *State {
	return &State{
		db:       db,
		root:     root,
		parent:   parent,
		number:   number,
		coinbase: coinbase,
		dirty:    map[common.Address]*Account{},
	}
}

// Copy returns an independent snapshot, the equivalent of the teacher's
// `state.Copy()` used whenever `post` must be rebuilt from `pre` without
// aliasing the source's in-flight mutations.
func (s *State) Copy() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := New(s.db, s.root, s.parent, s.number, s.coinbase)
	for addr, acct := range s.dirty {
		cp.dirty[addr] = acct.copy()
	}
	cp.pending = append([]*types.Transaction(nil), s.pending...)
	cp.pendingManifest = append([]*types.Manifest(nil), s.pendingManifest...)
	cp.pendingBloom = append([]common.Bloom(nil), s.pendingBloom...)
	return cp
}

func (s *State) account(addr common.Address) *Account {
	if a, ok := s.dirty[addr]; ok {
		return a
	}
	a := s.db.Get(s.root, addr)
	s.dirty[addr] = a
	return a
}

// Balance is the spec's `State.balance`. Takes the full lock, not RLock:
// account() memoizes a freshly loaded account into s.dirty, a write.
func (s *State) Balance(addr common.Address) *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).Set(s.account(addr).Balance)
}

// Storage is the spec's `State.storage`.
func (s *State) Storage(addr common.Address, key common.Hash) common.Hash {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account(addr).Storage[key]
}

// TransactionsFrom is the spec's `State.transactionsFrom`: the sender's
// next valid nonce, used both for read queries (`countAt`) and to assign a
// new local transaction's nonce.
func (s *State) TransactionsFrom(addr common.Address) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account(addr).Nonce
}

// Code is the spec's `State.code`.
func (s *State) Code(addr common.Address) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.account(addr).Code...)
}

// AddressHasCode is the spec's `State.addressHasCode`.
func (s *State) AddressHasCode(addr common.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.account(addr).Code) > 0
}

// Addresses is the spec's `State.addresses`: every account this State has
// materialized. A full trie-backed State would enumerate every account
// ever written; this overlay only knows the accounts it (or an ancestor
// Copy) has touched.
func (s *State) Addresses() []common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.Address, 0, len(s.dirty))
	for a := range s.dirty {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return string(out[i][:]) < string(out[j][:]) })
	return out
}

// Pending is the spec's `State.pending`.
func (s *State) Pending() []*types.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*types.Transaction(nil), s.pending...)
}

// ChangesFromPending is the spec's `State.changesFromPending(i)`.
func (s *State) ChangesFromPending(i int) *types.Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.pendingManifest) {
		return nil
	}
	return s.pendingManifest[i]
}

// PendingDiff is the spec's `State.pendingDiff(i)`.
func (s *State) PendingDiff(i int) types.StateDiff {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.pendingManifest) {
		return types.StateDiff{Accounts: map[common.Address]types.AccountDiff{}}
	}
	return types.DiffFromManifest(s.pendingManifest[i])
}

// Bloom is the spec's `State.bloom(i)`: the per-pending-transaction Bloom
// used by the filter pre-filter pass.
func (s *State) Bloom(i int) common.Bloom {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.pendingBloom) {
		return common.Bloom{}
	}
	return s.pendingBloom[i]
}

// Info is the spec's `State.info()`.
func (s *State) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{Number: s.number, Coinbase: s.coinbase, Root: s.root}
}

// Head is the block hash this State was built from.
func (s *State) Head() common.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parent
}

// Coinbase is the account this State credits mining rewards to.
func (s *State) Coinbase() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coinbase
}

// errInsufficientBalance mirrors the class of error a real EVM's state
// transition would raise; attemptImport-adjacent callers drop the
// offending transaction rather than propagate it (spec §7 item 3).
var errInsufficientBalance = errors.New("state: insufficient balance")

// applyLocked executes tx as a plain value transfer (the minimal state
// transition this module implements; real contract/EVM semantics are out
// of scope per spec §1) and returns the Manifest it produced. Caller must
// hold s.mu.
func (s *State) applyLocked(tx *types.Transaction) (*types.Manifest, error) {
	sender, err := tx.Sender()
	if err != nil {
		return nil, err
	}
	senderAcct := s.account(sender)

	cost := new(big.Int).Mul(tx.GasPrice, tx.Gas)
	cost.Add(cost, tx.Value)
	if senderAcct.Balance.Cmp(cost) < 0 {
		return nil, errInsufficientBalance
	}
	if tx.Nonce != senderAcct.Nonce {
		return nil, errors.New("state: nonce mismatch")
	}

	dest := tx.ReceiveAddress
	if tx.IsContractCreation() {
		// Contract creation deploys to the predicted address; no EVM
		// init-code execution (out of scope) beyond recording the code.
		dest = crypto.ContractAddress(sender, tx.Nonce)
	}
	destAcct := s.account(dest)

	manifest := types.NewManifest(sender, dest, tx.Data)

	senderAcct.Balance.Sub(senderAcct.Balance, cost)
	senderAcct.Nonce++
	manifest.MarkAltered(sender, common.Hash{})

	destAcct.Balance.Add(destAcct.Balance, tx.Value)
	if tx.IsContractCreation() {
		destAcct.Code = append([]byte(nil), tx.Data...)
	}
	manifest.MarkAltered(dest, common.Hash{})

	// Fee paid to the block's coinbase, mirroring the miner-reward flow
	// that drives `NewTransactionsByPriceAndNonce` ordering in the teacher.
	fee := new(big.Int).Mul(tx.GasPrice, tx.Gas)
	coinbaseAcct := s.account(s.coinbase)
	coinbaseAcct.Balance.Add(coinbaseAcct.Balance, fee)
	if s.coinbase != sender && s.coinbase != dest {
		manifest.MarkAltered(s.coinbase, common.Hash{})
	}

	return manifest, nil
}
