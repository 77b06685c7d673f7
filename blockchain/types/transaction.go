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

package types

import (
	"encoding/binary"
	"errors"
	"math/big"
	"sync/atomic"

	"github.com/ground-x/coreclient/common"
	"github.com/ground-x/coreclient/crypto"
)

// Transaction is the spec §3 Transaction: immutable once signed, its
// sender recovered from the signature rather than carried explicitly.
type Transaction struct {
	Nonce          uint64
	Value          *big.Int
	GasPrice       *big.Int
	Gas            *big.Int
	ReceiveAddress common.Address // empty => contract creation
	Data           []byte
	Sig            crypto.Signature

	hash   atomic.Value
	sender atomic.Value
}

// IsContractCreation reports whether this transaction has no recipient.
func (t *Transaction) IsContractCreation() bool {
	return t.ReceiveAddress.IsEmpty()
}

// signingHash is the digest that gets signed and later re-derived to
// verify the signature and compute the transaction id.
func (t *Transaction) signingHash() common.Hash {
	nonceBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(nonceBytes, t.Nonce)
	return crypto.Sha3(
		nonceBytes,
		common.U256Bytes(t.Value),
		common.U256Bytes(t.GasPrice),
		common.U256Bytes(t.Gas),
		t.ReceiveAddress[:],
		t.Data,
	)
}

// Sign signs the transaction with secret, fixing its sender and Hash.
func (t *Transaction) Sign(secret crypto.Secret) error {
	sig, sender, err := crypto.SignFrom(secret, t.signingHash())
	if err != nil {
		return err
	}
	t.Sig = sig
	t.sender.Store(sender)
	return nil
}

// Hash is the transaction id: the hash of its signed contents. It is also
// the key TransactionQueue deduplicates on.
func (t *Transaction) Hash() common.Hash {
	if h := t.hash.Load(); h != nil {
		return h.(common.Hash)
	}
	h := crypto.Sha3(t.signingHash().Bytes(), t.Sig.R.Bytes(), t.Sig.S.Bytes())
	t.hash.Store(h)
	return h
}

// Sender recovers (and caches) the account that signed this transaction.
func (t *Transaction) Sender() (common.Address, error) {
	if s := t.sender.Load(); s != nil {
		return s.(common.Address), nil
	}
	sender, err := crypto.Recover(t.Sig, t.signingHash())
	if err != nil {
		return common.Address{}, err
	}
	t.sender.Store(sender)
	return sender, nil
}

// Verify re-derives the signing hash and checks the signature against the
// claimed sender, the structural-validity half of attemptImport (spec §4.3).
func (t *Transaction) Verify() error {
	sender, err := t.Sender()
	if err != nil {
		return err
	}
	if t.Value == nil || t.GasPrice == nil || t.Gas == nil {
		return errors.New("types: malformed transaction: missing value/gasPrice/gas")
	}
	if !crypto.VerifyWithSender(sender, t.Sig, t.signingHash()) {
		return errors.New("types: invalid signature")
	}
	return nil
}

// EnvelopeBloom is the per-transaction Bloom filter contribution from its own
// envelope (sender + recipient), independent of what it touches once
// executed; State.bloom(i) additionally folds in execution-time alterations.
func (t *Transaction) EnvelopeBloom() common.Bloom {
	var b common.Bloom
	sender, err := t.Sender()
	if err == nil {
		b.Or(common.AddressBloom(sender))
	}
	if !t.ReceiveAddress.IsEmpty() {
		b.Or(common.AddressBloom(t.ReceiveAddress))
	}
	return b
}
