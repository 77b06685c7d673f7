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
	"sort"
	"time"

	"github.com/ground-x/coreclient/blockchain/types"
	"github.com/ground-x/coreclient/common"
	"github.com/ground-x/coreclient/crypto"
	"github.com/ground-x/coreclient/params"
)

// Sync is the spec's `State.sync(TransactionQueue) -> Bloom[]`: it pulls
// every transaction the pool currently holds pending, applies the ones
// that are next-in-nonce-order for their sender and not already reflected
// in this State's pending list, and returns the Blooms of the newly
// applied transactions (for the filter registry's `appendFromNewPending`,
// spec §4.5). Transactions out of nonce order, or that fail to apply, are
// left for a later tick rather than erroring the whole sync, mirroring
// Client::sync's tolerant queue-draining style.
func (s *State) Sync(txSource TxSource) []common.Bloom {
	s.mu.Lock()
	defer s.mu.Unlock()

	alreadyPending := map[common.Hash]struct{}{}
	for _, tx := range s.pending {
		alreadyPending[tx.Hash()] = struct{}{}
	}

	bySender := map[common.Address][]*types.Transaction{}
	for _, tx := range txSource.Pending() {
		if _, ok := alreadyPending[tx.Hash()]; ok {
			continue
		}
		sender, err := tx.Sender()
		if err != nil {
			continue
		}
		bySender[sender] = append(bySender[sender], tx)
	}

	var newBlooms []common.Bloom
	for sender, txs := range bySender {
		sort.Slice(txs, func(i, j int) bool { return txs[i].Nonce < txs[j].Nonce })
		expected := s.account(sender).Nonce
		for _, tx := range txs {
			if tx.Nonce != expected {
				continue
			}
			manifest, err := s.applyLocked(tx)
			if err != nil {
				logger.Warn("dropping pending transaction", "hash", tx.Hash(), "err", err)
				continue
			}
			bloom := manifest.Bloom()
			bloom.Or(tx.EnvelopeBloom())

			s.pending = append(s.pending, tx)
			s.pendingManifest = append(s.pendingManifest, manifest)
			s.pendingBloom = append(s.pendingBloom, bloom)
			newBlooms = append(newBlooms, bloom)
			expected++
		}
	}
	return newBlooms
}

// SyncChain is the spec's `State.sync(Chain) -> bool`: if the chain's head
// has advanced past the block this State was built from, `pre` is rebased
// onto the new head and its pending list discarded (those transactions
// will resurface from the pool on the next `sync(TransactionQueue)` if
// they're still outstanding). Returns whether a rebase happened.
func (s *State) SyncChain(chain ChainReader) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	head := chain.Head()
	if head == s.parent {
		return false
	}

	block, err := chain.Block(head)
	if err != nil {
		logger.Warn("cannot rebase onto chain head: block not found", "head", head, "err", err)
		return false
	}

	s.root = block.Header.StateRoot
	s.parent = head
	s.number = chain.Number()
	s.dirty = map[common.Address]*Account{}
	s.pending = nil
	s.pendingManifest = nil
	s.pendingBloom = nil
	s.candidate = nil
	return true
}

// CommitToMine is the spec's `State.commitToMine(Chain)`: it freezes a
// mining candidate header extending the chain head, ready for Mine to
// search a nonce against. Grounded on worker.commitNewWork's role of
// assembling a Header before the agent starts hashing.
func (s *State) CommitToMine(chain ChainReader) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.candidate = &types.Header{
		ParentHash: chain.Head(),
		Coinbase:   s.coinbase,
		Number:     chain.Number() + 1,
		Difficulty: uint64(params.TargetBits),
	}
	s.mineNonce = 0
	s.mineHashes = 0
}

var errNoCandidate = errors.New("state: no mining candidate; call commitToMine first")

// leadingZeroBits counts the number of leading zero bits in h, the
// difficulty measure this module's fixed-target proof-of-work checks
// against (spec §4.1: "real difficulty retargeting is out of scope").
func leadingZeroBits(h common.Hash) uint64 {
	var n uint64
	for _, b := range h {
		if b == 0 {
			n += 8
			continue
		}
		for mask := byte(0x80); mask != 0; mask >>= 1 {
			if b&mask != 0 {
				return n
			}
			n++
		}
	}
	return n
}

// Mine is the spec's `State.mine(ms) -> MineInfo`: a bounded nonce-search
// over the candidate header committed by CommitToMine, grounded on
// CpuAgent.mine's hash-and-increment loop (here run synchronously within a
// time budget rather than as a background goroutine, since the spec's
// worker tick already bounds mining to a slice of its own loop).
func (s *State) Mine(budgetMs int) MineInfo {
	s.mu.Lock()
	candidate := s.candidate
	s.mu.Unlock()
	if candidate == nil {
		return MineInfo{Requirement: params.TargetBits}
	}

	deadline := time.Now().Add(time.Duration(budgetMs) * time.Millisecond)
	var hashes uint64
	var best uint64

	for time.Now().Before(deadline) {
		s.mu.Lock()
		nonce := s.mineNonce
		s.mineNonce++
		s.mu.Unlock()

		hash := candidate.HashWithNonce(nonce)
		hashes++
		if zeros := leadingZeroBits(hash); zeros > best {
			best = zeros
		}
		if leadingZeroBits(hash) >= params.TargetBits {
			s.mu.Lock()
			s.candidate.Nonce = nonce
			s.mineHashes += hashes
			info := MineInfo{Hashes: s.mineHashes, Best: params.TargetBits, Requirement: params.TargetBits, Completed: true}
			s.mu.Unlock()
			return info
		}
	}

	s.mu.Lock()
	s.mineHashes += hashes
	info := MineInfo{Hashes: s.mineHashes, Best: best, Requirement: params.TargetBits, Completed: false}
	s.mu.Unlock()
	return info
}

// CompleteMine is the spec's `State.completeMine()`: called once Mine
// reports Completed, it folds the candidate's accumulated account changes
// and pending manifests into a finished Block and commits them to the
// backing Database under the block's freshly derived state root.
func (s *State) CompleteMine() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.candidate == nil {
		return errNoCandidate
	}

	root := s.deriveRootLocked()
	s.candidate.StateRoot = root
	s.candidate.Time = uint64(s.number) // placeholder monotonic clock; no wall time is stamped

	blockBloom := types.BlockBloom(s.pendingBloom)
	s.candidate.Bloom = blockBloom

	s.db.CommitRoot(root, s.dirty)

	s.root = root
	return nil
}

// deriveRootLocked derives a new state root summarizing every dirty
// account, the overlay-commit key every subsequent State reading this
// block's state is indexed under. Caller must hold s.mu.
func (s *State) deriveRootLocked() common.Hash {
	addrs := make([]common.Address, 0, len(s.dirty))
	for a := range s.dirty {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return string(addrs[i][:]) < string(addrs[j][:]) })

	parts := make([][]byte, 0, len(addrs)*2+1)
	parts = append(parts, s.parent[:])
	for _, a := range addrs {
		acct := s.dirty[a]
		parts = append(parts, a[:])
		parts = append(parts, common.U256Bytes(acct.Balance))
	}
	return crypto.Sha3(parts...)
}

// BlockData is the spec's `State.blockData()`: the finished block, valid
// once CompleteMine has run.
func (s *State) BlockData() *types.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.candidate == nil {
		return nil
	}
	return &types.Block{
		Header:       s.candidate,
		Transactions: s.pending,
		Receipts:     s.pendingManifest,
	}
}

// AmIJustParanoid is the spec's `State.amIJustParanoid(Chain)`: a
// consistency check run before committing a fresh mining candidate,
// confirming this State (`post`) still extends the chain's actual head.
// Checked against `s.parent` rather than any already-committed `s.candidate`
// so it passes on the very first commit, when no candidate exists yet;
// a stale candidate from a previous commit would extend an old parent
// anyway, which this same parent check already catches.
func (s *State) AmIJustParanoid(chain ChainReader) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parent == chain.Head()
}

// ApplyBlock satisfies blockchain.StateApplier: given a block whose
// transactions have not yet been executed against this State, it applies
// each one as a value transfer, derives the resulting state root, and
// returns the root plus the per-transaction Blooms/Manifests the Chain
// indexes the block under. Used both for locally-mined blocks (Chain
// already knows the root and blooms from CompleteMine, but revalidates
// here for uniformity) and for blocks arriving via the block-import queue.
func (s *State) ApplyBlock(block *types.Block) (common.Hash, []common.Bloom, []*types.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if block.ParentHash() != s.parent {
		return common.Hash{}, nil, nil, errors.New("state: block does not extend this State's parent")
	}

	var blooms []common.Bloom
	var manifests []*types.Manifest
	for _, tx := range block.Transactions {
		manifest, err := s.applyLocked(tx)
		if err != nil {
			return common.Hash{}, nil, nil, err
		}
		bloom := manifest.Bloom()
		bloom.Or(tx.EnvelopeBloom())
		blooms = append(blooms, bloom)
		manifests = append(manifests, manifest)
	}

	root := s.deriveRootLocked()
	s.db.CommitRoot(root, s.dirty)
	s.root = root
	s.parent = block.Hash()
	s.number = block.NumberU64()
	s.pending = nil
	s.pendingManifest = nil
	s.pendingBloom = nil

	return root, blooms, manifests, nil
}

// AccountSnapshot returns a copy of the whole account at addr (balance,
// nonce, code and storage) without reaching past the State abstraction
// into the Database directly.
func (s *State) AccountSnapshot(addr common.Address) Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.account(addr).copy()
}
