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
	"math/big"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/ground-x/coreclient/blockchain/types"
	"github.com/ground-x/coreclient/common"
	"github.com/ground-x/coreclient/crypto"
)

// TestTransactionsBlockBloomShortCircuits confirms that a block whose
// header Bloom can't satisfy the filter is never opened for its
// per-transaction blooms/traces (the whole point of stamping a Bloom on
// every header): ChainSource.Blooms/Traces carry no expectation for the
// non-matching block, so gomock fails the test if Transactions calls them
// anyway.
func TestTransactionsBlockBloomShortCircuits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chain := NewMockChainSource(ctrl)
	pending := NewMockPendingSource(ctrl)

	watched := addr(9)
	hash1 := common.BytesToHash([]byte("block1"))
	hash2 := common.BytesToHash([]byte("block2"))

	block1 := &types.Block{Header: &types.Header{Number: 1}} // zero Bloom: never matches `watched`
	block2 := &types.Block{Header: &types.Header{Number: 2}}
	block2.Header.Bloom.Or(common.AddressBloom(watched))

	chain.EXPECT().Number().Return(uint64(2)).AnyTimes()
	chain.EXPECT().NumberHash(uint64(2)).Return(hash2)
	chain.EXPECT().NumberHash(uint64(1)).Return(hash1)
	chain.EXPECT().Block(hash2).Return(block2, nil)
	chain.EXPECT().Block(hash1).Return(block1, nil)
	chain.EXPECT().Blooms(hash2).Return(nil)
	chain.EXPECT().Traces(hash2).Return(nil)
	// Deliberately no Blooms(hash1)/Traces(hash1) expectation: block1's
	// header Bloom must reject it before those are ever called.

	f := Filter{To: []common.Address{watched}, Earliest: 1, Latest: 2}
	out := Transactions(f, chain, pending)
	require.Empty(t, out) // neither block has any transactions to match
}

// TestTransactionsScansPendingWhenLatestReachesTip confirms the pending-tx
// branch runs (and is stamped with number = head+1, empty block hash) when
// the filter's resolved upper bound reaches past the chain head.
func TestTransactionsScansPendingWhenLatestReachesTip(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chain := NewMockChainSource(ctrl)
	pending := NewMockPendingSource(ctrl)

	secret, err := crypto.GenerateSecret()
	require.NoError(t, err)
	sender, to := secret.Address(), addr(2)

	tx := &types.Transaction{
		Value:          big.NewInt(1),
		GasPrice:       big.NewInt(1),
		Gas:            big.NewInt(21000),
		ReceiveAddress: to,
	}
	require.NoError(t, tx.Sign(secret))

	manifest := types.NewManifest(sender, to, nil)
	manifest.MarkAltered(to, common.Hash{})

	// Earliest and Latest both default to 0, which resolves (against an
	// empty chain) to lo=1, blockHi=0: the block loop's range is empty, so
	// only the pending branch below ever touches `chain`/`pending`.
	chain.EXPECT().Number().Return(uint64(0)).AnyTimes()

	pending.EXPECT().Pending().Return([]*types.Transaction{tx})
	pending.EXPECT().Bloom(0).Return(manifest.Bloom())
	pending.EXPECT().PendingDiff(0).Return(types.DiffFromManifest(manifest))
	pending.EXPECT().ChangesFromPending(0).Return(manifest)

	// The manifest alters `to`, so this Altered constraint is satisfied both
	// by the pending-tx diff check and by altersWatchedState's limbo flush.
	f := Filter{Altered: []common.Address{to}}
	out := Transactions(f, chain, pending)

	require.Len(t, out, 1)
	require.Equal(t, uint64(1), out[0].Number)
	require.True(t, out[0].Block.IsEmpty())
}
