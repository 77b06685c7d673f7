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

package txpool

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ground-x/coreclient/blockchain/types"
	"github.com/ground-x/coreclient/common"
	"github.com/ground-x/coreclient/crypto"
)

func mustSignedTx(t *testing.T, secret crypto.Secret, nonce uint64, to common.Address) *types.Transaction {
	t.Helper()
	tx := &types.Transaction{
		Nonce:          nonce,
		Value:          big.NewInt(1),
		GasPrice:       big.NewInt(1),
		Gas:            big.NewInt(21000),
		ReceiveAddress: to,
	}
	require.NoError(t, tx.Sign(secret))
	return tx
}

func TestAttemptImportDedup(t *testing.T) {
	secret, err := crypto.GenerateSecret()
	require.NoError(t, err)
	dest, err := crypto.GenerateSecret()
	require.NoError(t, err)

	q := New()
	tx := mustSignedTx(t, secret, 0, dest.Address())

	require.NoError(t, q.AttemptImport(tx))
	require.Equal(t, ErrKnownTransaction, q.AttemptImport(tx))
	require.Equal(t, 1, q.Len())
}

func TestAttemptImportRejectsBadSignature(t *testing.T) {
	secret, err := crypto.GenerateSecret()
	require.NoError(t, err)
	dest, err := crypto.GenerateSecret()
	require.NoError(t, err)

	q := New()
	tx := mustSignedTx(t, secret, 0, dest.Address())
	tx.Sig.R = new(big.Int).Add(tx.Sig.R, big.NewInt(1)) // corrupt the signature

	require.Equal(t, ErrInvalidTransaction, q.AttemptImport(tx))
	require.Equal(t, 0, q.Len())

	// Resubmitting the same corrupt transaction hits the rejected-id cache
	// (SPEC_FULL §4.3.1) rather than re-running Verify.
	require.Equal(t, ErrInvalidTransaction, q.AttemptImport(tx))
}

func TestPendingOrdersBySenderThenNonce(t *testing.T) {
	s1, err := crypto.GenerateSecret()
	require.NoError(t, err)
	s2, err := crypto.GenerateSecret()
	require.NoError(t, err)
	dest, err := crypto.GenerateSecret()
	require.NoError(t, err)

	q := New()
	require.NoError(t, q.AttemptImport(mustSignedTx(t, s1, 1, dest.Address())))
	require.NoError(t, q.AttemptImport(mustSignedTx(t, s1, 0, dest.Address())))
	require.NoError(t, q.AttemptImport(mustSignedTx(t, s2, 0, dest.Address())))

	pending := q.Pending()
	require.Len(t, pending, 3)

	// Transactions from the same sender come out nonce-ordered.
	var s1Nonces []uint64
	for _, tx := range pending {
		sender, err := tx.Sender()
		require.NoError(t, err)
		if sender == s1.Address() {
			s1Nonces = append(s1Nonces, tx.Nonce)
		}
	}
	require.Equal(t, []uint64{0, 1}, s1Nonces)
}

func TestRemoveDropsFromBothIndexes(t *testing.T) {
	secret, err := crypto.GenerateSecret()
	require.NoError(t, err)
	dest, err := crypto.GenerateSecret()
	require.NoError(t, err)

	q := New()
	tx := mustSignedTx(t, secret, 0, dest.Address())
	require.NoError(t, q.AttemptImport(tx))
	require.Equal(t, 1, q.Len())

	q.Remove([]*types.Transaction{tx})
	require.Equal(t, 0, q.Len())
	require.Nil(t, q.Get(tx.Hash()))
	require.Empty(t, q.Pending())
}
