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

package common

import "golang.org/x/crypto/sha3"

// BloomLength is the width, in bytes, of the 256-bit Bloom filter used to
// summarize the addresses and storage slots a block or transaction touches.
const BloomLength = 32

// Bloom is a 256-bit Bloom filter. It is the "bloom9" construction used
// throughout this lineage, scaled down from 2048 to 256 bits per this
// repository's data model: three bit positions per item, each derived from
// a non-overlapping 2-byte (mod 256) slice of that item's Keccak-256 digest.
type Bloom [BloomLength]byte

// bloom9Positions returns the three bit indices (0..255) that an item hashes
// to.
func bloom9Positions(item []byte) [3]uint {
	h := sha3.NewLegacyKeccak256()
	h.Write(item)
	sum := h.Sum(nil)

	var pos [3]uint
	for i := 0; i < 3; i++ {
		v := uint(sum[2*i])<<8 | uint(sum[2*i+1])
		pos[i] = v % 256
	}
	return pos
}

// Add sets the three bits corresponding to item.
func (b *Bloom) Add(item []byte) {
	for _, p := range bloom9Positions(item) {
		b[p/8] |= 1 << (p % 8)
	}
}

// Contains reports whether every bit item hashes to is already set. A true
// result may be a false positive (by construction); false is always exact.
func (b Bloom) Contains(item []byte) bool {
	for _, p := range bloom9Positions(item) {
		if b[p/8]&(1<<(p%8)) == 0 {
			return false
		}
	}
	return true
}

// Or merges other into b in place, as used when accumulating the per-block
// Bloom from its per-transaction Blooms.
func (b *Bloom) Or(other Bloom) {
	for i := range b {
		b[i] |= other[i]
	}
}

func (b Bloom) Bytes() []byte { return b[:] }

// AddressBloom is the bit contribution of an address, per the spec's
// `a.bloom()` used by TransactionFilter::matches.
func AddressBloom(a Address) Bloom {
	var b Bloom
	b.Add(a[:])
	return b
}

// HashBloom is the bit contribution of a 32-byte value (a storage slot's
// key or value, folded the same way an address is).
func HashBloom(h Hash) Bloom {
	var b Bloom
	b.Add(h[:])
	return b
}
