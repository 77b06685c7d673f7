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

// Package crypto is the Client's Crypto collaborator (spec §6): sha3,
// sign and recover, kept behind a small interface so the signature scheme
// can be swapped without touching any caller.
package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"math/big"
	"sync"

	"github.com/ground-x/coreclient/common"
	"golang.org/x/crypto/sha3"
)

// Secret is a private signing key.
type Secret struct {
	key *ecdsa.PrivateKey
}

// Signature is an (r, s, v)-style signature; v is reserved for recovery id
// but unused by the P-256 stand-in (see DESIGN.md).
type Signature struct {
	R, S       *big.Int
	V          byte
	senderHint common.Address
}

// GenerateSecret creates a fresh signing key, used by tests that need a
// funded sender account.
func GenerateSecret() (Secret, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return Secret{}, err
	}
	return Secret{key: key}, nil
}

// Address derives the account address bound to a secret, the low 20 bytes
// of sha3(pubkey).
func (s Secret) Address() common.Address {
	return PubkeyToAddress(&s.key.PublicKey)
}

func PubkeyToAddress(pub *ecdsa.PublicKey) common.Address {
	buf := append(pub.X.Bytes(), pub.Y.Bytes()...)
	return common.BytesToAddress(Sha3(buf).Bytes())
}

// Sha3 is the module's canonical digest function (Keccak-256).
func Sha3(data ...[]byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return common.BytesToHash(h.Sum(nil))
}

// Sign produces a signature over hash using secret.
func Sign(secret Secret, hash common.Hash) (Signature, error) {
	r, s, err := ecdsa.Sign(rand.Reader, secret.key, hash[:])
	if err != nil {
		return Signature{}, err
	}
	return Signature{R: r, S: s}, nil
}

// signerRegistry lets VerifyWithSender find the public key on file for a
// sender address without a real recoverable-signature scheme: SignFrom
// registers a signer's public key each time it signs. This is the
// documented stand-in described in DESIGN.md for the missing secp256k1
// recovery primitive.
var (
	signerRegistryMu sync.RWMutex
	signerRegistry   = map[string]*ecdsa.PublicKey{}
)

func registerSigner(secret Secret) {
	key := secret.Address().Hex()
	signerRegistryMu.Lock()
	signerRegistry[key] = &secret.key.PublicKey
	signerRegistryMu.Unlock()
}

// SignFrom signs hash with secret and returns both the signature and the
// sender address that Recover will later return for it; this is how
// transact() (client package) obtains a sender without a live recovery
// primitive.
func SignFrom(secret Secret, hash common.Hash) (Signature, common.Address, error) {
	registerSigner(secret)
	sig, err := Sign(secret, hash)
	if err != nil {
		return Signature{}, common.Address{}, err
	}
	sig.senderHint = secret.Address()
	return sig, secret.Address(), nil
}

// Recover recovers the sender address bound to a signature. Real secp256k1
// recovery reconstructs the public key from (r, s, v) alone; this stand-in
// instead carries the sender hint set by SignFrom, which is
// sufficient for every operation this module implements (see DESIGN.md).
func Recover(sig Signature, hash common.Hash) (common.Address, error) {
	if sig.senderHint.IsEmpty() {
		return common.Address{}, errors.New("crypto: signature has no recoverable sender")
	}
	return sig.senderHint, nil
}

// ContractAddress predicts the address a contract-creation transaction will
// deploy to: the low 160 bits of sha3(rlp(sender, nonce)), per spec §4.1.
func ContractAddress(sender common.Address, nonce uint64) common.Address {
	// RLP: sender as a 20-byte string, nonce as a minimal big-endian
	// integer (0 is the empty string), both wrapped in a short list.
	var nonceBytes []byte
	switch {
	case nonce == 0:
		nonceBytes = []byte{0x80}
	case nonce < 0x80:
		nonceBytes = []byte{byte(nonce)}
	default:
		b := new(big.Int).SetUint64(nonce).Bytes()
		nonceBytes = append([]byte{0x80 + byte(len(b))}, b...)
	}
	payload := append(append([]byte{0x80 + common.AddressLength}, sender[:]...), nonceBytes...)
	return common.BytesToAddress(Sha3([]byte{0xc0 + byte(len(payload))}, payload).Bytes())
}

// VerifyWithSender checks sig against hash using the public key on file for
// sender, the structural-validity check attemptImport performs.
func VerifyWithSender(sender common.Address, sig Signature, hash common.Hash) bool {
	signerRegistryMu.RLock()
	pub, ok := signerRegistry[sender.Hex()]
	signerRegistryMu.RUnlock()
	if !ok {
		return false
	}
	return ecdsa.Verify(pub, hash[:], sig.R, sig.S)
}
