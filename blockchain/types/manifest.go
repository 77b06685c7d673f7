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

import "github.com/ground-x/coreclient/common"

// Manifest is the tree recording a transaction's calls and the storage it
// touched, produced by executing a transaction against a State (spec §3).
// The EVM execution semantics that populate it are out of scope; this
// module's State implementation builds a minimal one-level Manifest per
// applied value-transfer, which is enough to exercise the filter-matching
// algorithm this package exists to support.
type Manifest struct {
	From     common.Address
	To       common.Address
	Input    []byte
	Output   []byte
	Altered  map[common.Address]map[common.Hash]struct{} // address -> storage keys written
	Internal []*Manifest
}

// NewManifest starts a leaf manifest node for a top-level call.
func NewManifest(from, to common.Address, input []byte) *Manifest {
	return &Manifest{From: from, To: to, Input: input, Altered: map[common.Address]map[common.Hash]struct{}{}}
}

// MarkAltered records that this node wrote the given (address, slot) pair.
// A slot of the zero Hash means "the address's balance/nonce changed" (no
// storage slot touched) but the address itself should still be considered
// altered for the address-only filter groups.
func (m *Manifest) MarkAltered(addr common.Address, slot common.Hash) {
	if m.Altered == nil {
		m.Altered = map[common.Address]map[common.Hash]struct{}{}
	}
	if _, ok := m.Altered[addr]; !ok {
		m.Altered[addr] = map[common.Hash]struct{}{}
	}
	m.Altered[addr][slot] = struct{}{}
}

// Bloom summarizes every address and altered (address, slot) pair touched
// anywhere in this manifest's subtree, the value State.bloom(i) returns.
func (m *Manifest) Bloom() common.Bloom {
	var b common.Bloom
	var walk func(n *Manifest)
	walk = func(n *Manifest) {
		if n == nil {
			return
		}
		if !n.From.IsEmpty() {
			b.Or(common.AddressBloom(n.From))
		}
		if !n.To.IsEmpty() {
			b.Or(common.AddressBloom(n.To))
		}
		for addr, slots := range n.Altered {
			b.Or(common.AddressBloom(addr))
			for slot := range slots {
				if slot != (common.Hash{}) {
					b.Or(common.HashBloom(slot))
				}
			}
		}
		for _, c := range n.Internal {
			walk(c)
		}
	}
	walk(m)
	return b
}

// StateDiff is the set of addresses (and, within each, storage slots)
// altered by applying one transaction, per spec §3's `pendingDiff(i)`.
type StateDiff struct {
	Accounts map[common.Address]AccountDiff
}

// AccountDiff is one account's contribution to a StateDiff.
type AccountDiff struct {
	Storage map[common.Hash]struct{}
}

// DiffFromManifest flattens a Manifest's alterations into a StateDiff,
// discarding the call-tree shape the filter's pending-tx match (spec §4.5,
// second bullet) doesn't need.
func DiffFromManifest(m *Manifest) StateDiff {
	d := StateDiff{Accounts: map[common.Address]AccountDiff{}}
	var walk func(n *Manifest)
	walk = func(n *Manifest) {
		if n == nil {
			return
		}
		for addr, slots := range n.Altered {
			ad, ok := d.Accounts[addr]
			if !ok {
				ad = AccountDiff{Storage: map[common.Hash]struct{}{}}
			}
			for s := range slots {
				if s != (common.Hash{}) {
					ad.Storage[s] = struct{}{}
				}
			}
			d.Accounts[addr] = ad
		}
		for _, c := range n.Internal {
			walk(c)
		}
	}
	walk(m)
	return d
}

// PastMessage is a flattened manifest node (spec §3): one call-site in a
// transaction's execution, stamped with the block it was mined in (or the
// pending sentinels) once a filter match selects it.
type PastMessage struct {
	Block     common.Hash
	Number    uint64
	Timestamp uint64
	Path      []int
	From      common.Address
	To        common.Address
	Origin    common.Address
	Input     []byte
	Output    []byte
}

// ToPastMessage builds the flattened PastMessage for this manifest node at
// the given call path, mirroring cpp-ethereum's PastMessage constructor.
func (m *Manifest) ToPastMessage(path []int, origin common.Address) PastMessage {
	p := make([]int, len(path))
	copy(p, path)
	return PastMessage{Path: p, From: m.From, To: m.To, Origin: origin, Input: m.Input, Output: m.Output}
}

func (pm PastMessage) Polish(block common.Hash, timestamp, number uint64) PastMessage {
	pm.Block = block
	pm.Timestamp = timestamp
	pm.Number = number
	return pm
}
