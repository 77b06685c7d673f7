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

package filters

import (
	"github.com/ground-x/coreclient/blockchain/types"
	"github.com/ground-x/coreclient/common"
	"github.com/ground-x/coreclient/params"
)

// ChainSource is the sliver of blockchain.Chain that Transactions needs.
type ChainSource interface {
	Number() uint64
	NumberHash(n uint64) common.Hash
	Block(hash common.Hash) (*types.Block, error)
	Blooms(hash common.Hash) []common.Bloom
	Traces(hash common.Hash) []*types.Manifest
}

// PendingSource is the sliver of state.State that Transactions needs.
type PendingSource interface {
	Pending() []*types.Transaction
	Bloom(i int) common.Bloom
	PendingDiff(i int) types.StateDiff
	ChangesFromPending(i int) *types.Manifest
}

// Transactions is the spec §4.5 `transactions(filter)`: scans blocks from
// `min(chain.number, filter.latest)` down to `filter.earliest`, Bloom
// pre-filtering each block before fetching its per-transaction blooms and
// manifests, honoring skip and max. The tip's pending transactions are
// scanned first when the filter's resolved upper bound reaches past the
// chain head, stamped with `number = chain.number + 1, block = <empty>`.
func Transactions(f Filter, chain ChainSource, pending PendingSource) []types.PastMessage {
	head := chain.Number()
	lo := params.ResolveBlockSelector(f.Earliest, head)
	resolvedHi := params.ResolveBlockSelector(f.Latest, head)

	var out []types.PastMessage
	skip := f.Skip
	done := false

	emit := func(pm types.PastMessage) {
		if done {
			return
		}
		if skip > 0 {
			skip--
			return
		}
		out = append(out, pm)
		if f.Max > 0 && len(out) >= f.Max {
			done = true
		}
	}

	remaining := func() int {
		if f.Max <= 0 {
			return 0
		}
		left := f.Max - len(out)
		if left < 0 {
			return 0
		}
		return left
	}

	if resolvedHi >= head+1 {
		for i, tx := range pending.Pending() {
			if done {
				break
			}
			bloom := pending.Bloom(i)
			if !f.MatchesBloom(bloom) {
				continue
			}
			sender, err := tx.Sender()
			if err != nil {
				continue
			}
			diff := pending.PendingDiff(i)
			if !f.MatchesPendingTx(bloom, sender, tx.ReceiveAddress, diff) {
				continue
			}
			manifest := pending.ChangesFromPending(i)
			for _, pm := range f.MatchMessages(manifest, sender, remaining()) {
				emit(pm.Polish(common.Hash{}, 0, head+1))
			}
		}
	}

	blockHi := head
	if resolvedHi < head {
		blockHi = resolvedHi
	}

	for n := int64(blockHi); !done && n >= int64(lo); n-- {
		hash := chain.NumberHash(uint64(n))
		if hash.IsEmpty() {
			continue
		}
		block, err := chain.Block(hash)
		if err != nil {
			continue
		}
		if !f.MatchesBloom(block.Header.Bloom) {
			continue
		}
		blooms := chain.Blooms(hash)
		traces := chain.Traces(hash)
		for i, tx := range block.Transactions {
			if done {
				break
			}
			if i >= len(blooms) || !f.MatchesBloom(blooms[i]) {
				continue
			}
			sender, err := tx.Sender()
			if err != nil {
				continue
			}
			var manifest *types.Manifest
			if i < len(traces) {
				manifest = traces[i]
			}
			for _, pm := range f.MatchMessages(manifest, sender, remaining()) {
				emit(pm.Polish(hash, block.Header.Time, block.NumberU64()))
			}
		}
	}
	return out
}
