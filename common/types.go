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

// Package common holds the primitive types shared by every package in this
// module: fixed-size addresses and hashes, and the unsigned 256-bit integer
// used for balances, gas, nonces and storage keys/values.
package common

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

const (
	AddressLength = 20
	HashLength    = 32
)

// Address is a 20-byte account identifier.
type Address [AddressLength]byte

func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

func (a Address) Bytes() []byte   { return a[:] }
func (a Address) Hex() string     { return "0x" + hex.EncodeToString(a[:]) }
func (a Address) String() string  { return a.Hex() }
func (a Address) IsEmpty() bool   { return a == Address{} }

// HexToAddress decodes a "0x"-prefixed (or bare) hex string into an Address,
// left-truncating/left-padding the same way BytesToAddress does.
func HexToAddress(s string) (Address, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, err
	}
	return BytesToAddress(b), nil
}

// MarshalText implements encoding.TextMarshaler, letting Address fields
// round-trip through TOML/JSON as plain hex strings.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	addr, err := HexToAddress(string(text))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// Hash is a 32-byte cryptographic digest; also used as a block id,
// transaction id, and filter fingerprint.
type Hash [HashLength]byte

func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

func (h Hash) Bytes() []byte  { return h[:] }
func (h Hash) Hex() string    { return "0x" + hex.EncodeToString(h[:]) }
func (h Hash) String() string { return h.Hex() }
func (h Hash) IsEmpty() bool  { return h == Hash{} }

// Big returns the hash interpreted as a big-endian unsigned integer.
func (h Hash) Big() *big.Int { return new(big.Int).SetBytes(h[:]) }

// U256Bytes normalizes a signed big.Int into its 256-bit unsigned,
// big-endian byte representation, used whenever a value needs to be hashed
// or tested against a Bloom filter. Negative inputs are never produced by
// this module's own arithmetic; callers at the state-transition boundary are
// responsible for rejecting them.
func U256Bytes(v *big.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	b := v.Bytes()
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// BigToHash folds a U256 value into a Hash the way a storage key or slot
// value is represented inside a StateDiff / Manifest.
func BigToHash(v *big.Int) Hash {
	return BytesToHash(U256Bytes(v))
}

func (a Address) Format(f fmt.State, c rune) {
	fmt.Fprintf(f, "%s", a.Hex())
}

func (h Hash) Format(f fmt.State, c rune) {
	fmt.Fprintf(f, "%s", h.Hex())
}
