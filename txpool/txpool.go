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

// Package txpool is the Client's TransactionQueue collaborator (spec §6):
// an at-most-once staging store keyed by transaction id, grounded on
// node/sc/bridge_tx_pool.go's queue-map-plus-all-map shape (trimmed of its
// disk journal and EIP-155 signer, neither of which this module needs).
package txpool

import (
	"errors"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/ground-x/coreclient/blockchain/types"
	"github.com/ground-x/coreclient/common"
	"github.com/ground-x/coreclient/log"
)

var logger = log.NewModuleLogger(log.TxPool)

var (
	// ErrKnownTransaction is returned (and swallowed) when attemptImport
	// sees a transaction id it already holds.
	ErrKnownTransaction = errors.New("txpool: known transaction")
	// ErrInvalidTransaction covers both structural and signature failures
	// (spec §7 item 3: attemptImport "returns without inserting").
	ErrInvalidTransaction = errors.New("txpool: invalid transaction")
)

// rejectedCacheSize bounds the "recently rejected" LRU (SPEC_FULL §4.3.1):
// attemptImport is on the hot path of every inbound peer transaction, and
// without this a peer that keeps resending a transaction with a bad
// signature would force a full Verify() on every resend.
const rejectedCacheSize = 4096

// Queue is this module's TransactionQueue: transactions wait here, grouped
// by sender and keyed by id, until State.Sync pulls them into `post`.
type Queue struct {
	mu sync.RWMutex

	all     map[common.Hash]*types.Transaction
	bySender map[common.Address][]*types.Transaction

	rejected *lru.Cache // transaction id -> struct{}, recently-rejected ids
}

// New creates an empty Queue.
func New() *Queue {
	rejected, err := lru.New(rejectedCacheSize)
	if err != nil {
		// lru.New only errors on a non-positive size, which rejectedCacheSize
		// never is; a panic here would indicate a programming mistake, not a
		// runtime condition callers can recover from.
		panic(err)
	}
	return &Queue{
		all:      map[common.Hash]*types.Transaction{},
		bySender: map[common.Address][]*types.Transaction{},
		rejected: rejected,
	}
}

// AttemptImport is the spec's `TransactionQueue.attemptImport(rlp)`. tx is
// assumed already decoded (this module's RLP-shaped wire format is out of
// scope, see DESIGN.md); AttemptImport still performs the verification and
// dedup steps the spec names. A rejected transaction is cached so a
// resubmission doesn't re-run signature verification.
func (q *Queue) AttemptImport(tx *types.Transaction) error {
	hash := tx.Hash()

	q.mu.RLock()
	_, known := q.all[hash]
	_, recentlyRejected := q.rejected.Get(hash)
	q.mu.RUnlock()
	if known {
		return ErrKnownTransaction
	}
	if recentlyRejected {
		return ErrInvalidTransaction
	}

	if err := tx.Verify(); err != nil {
		q.mu.Lock()
		q.rejected.Add(hash, struct{}{})
		q.mu.Unlock()
		logger.Debug("rejecting transaction", "hash", hash, "err", err)
		return ErrInvalidTransaction
	}
	sender, err := tx.Sender()
	if err != nil {
		q.mu.Lock()
		q.rejected.Add(hash, struct{}{})
		q.mu.Unlock()
		return ErrInvalidTransaction
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.all[hash]; ok {
		return ErrKnownTransaction
	}
	q.all[hash] = tx
	q.bySender[sender] = append(q.bySender[sender], tx)
	sort.Slice(q.bySender[sender], func(i, j int) bool {
		return q.bySender[sender][i].Nonce < q.bySender[sender][j].Nonce
	})
	return nil
}

// Get returns the transaction for hash, or nil if the queue doesn't have it.
func (q *Queue) Get(hash common.Hash) *types.Transaction {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.all[hash]
}

// Pending is this module's TxSource.Pending: every staged transaction,
// grouped by sender and nonce-ordered within each group. State.Sync does
// the nonce-gap and double-spend filtering; the queue itself stages
// everything it has verified.
func (q *Queue) Pending() []*types.Transaction {
	q.mu.RLock()
	defer q.mu.RUnlock()

	senders := make([]common.Address, 0, len(q.bySender))
	for s := range q.bySender {
		senders = append(senders, s)
	}
	sort.Slice(senders, func(i, j int) bool { return string(senders[i][:]) < string(senders[j][:]) })

	var out []*types.Transaction
	for _, s := range senders {
		out = append(out, q.bySender[s]...)
	}
	return out
}

// Len reports how many transactions are currently staged.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.all)
}

// Remove drops txs from the queue, the cleanup the Client's tick performs
// once a mined or imported block containing them reaches the chain: a
// transaction that has already been applied has no business staying
// staged for a later sync to reapply.
func (q *Queue) Remove(txs []*types.Transaction) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, tx := range txs {
		hash := tx.Hash()
		delete(q.all, hash)
		sender, err := tx.Sender()
		if err != nil {
			continue
		}
		list := q.bySender[sender]
		for i, t := range list {
			if t.Hash() == hash {
				list = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(q.bySender, sender)
		} else {
			q.bySender[sender] = list
		}
	}
}
