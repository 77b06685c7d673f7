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

// Package filters is the Client's filter/watch collaborator (spec §4.5):
// TransactionFilter predicates over addresses and storage, installed as
// refcounted entries and observed through Watch change-counters. The match
// algorithm (Bloom pre-filter, pending-transaction check, Manifest
// limbo-buffer walk) is ported from cpp-ethereum's
// libethereum/Client.cpp TransactionFilter, since no Go repo in this
// lineage carries the original eth/filters XEth subsystem.
package filters

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/ground-x/coreclient/common"
	"github.com/ground-x/coreclient/crypto"
	"github.com/ground-x/coreclient/params"
)

// StorageSlot is a `(address, storage-key)` constraint pair, the
// `stateAltered` field of a Filter.
type StorageSlot struct {
	Address common.Address
	Key     common.Hash
}

// Filter is the spec §4.5 TransactionFilter: an optional-everything query
// over senders, recipients, altered addresses/slots and a block-number
// range, plus a result cap and skip offset.
type Filter struct {
	From         []common.Address
	To           []common.Address
	Altered      []common.Address
	StateAltered []StorageSlot

	Earliest int
	Latest   int
	Max      int
	Skip     int
}

// Fingerprint is the spec's `hash(rlp(fields))` used to deduplicate
// identical filters in the registry. Field order is canonicalized (each
// address/slot list sorted) so two Filters built from the same
// constraints in a different submission order fingerprint identically,
// which P4 (refcount conservation) depends on.
func (f Filter) Fingerprint() common.Hash {
	return crypto.Sha3(
		sortedAddrBytes(f.From),
		sortedAddrBytes(f.To),
		sortedAddrBytes(f.Altered),
		sortedSlotBytes(f.StateAltered),
		intBytes(f.Earliest),
		intBytes(f.Latest),
		intBytes(f.Max),
		intBytes(f.Skip),
	)
}

func sortedAddrBytes(addrs []common.Address) []byte {
	sorted := append([]common.Address(nil), addrs...)
	sort.Slice(sorted, func(i, j int) bool { return string(sorted[i][:]) < string(sorted[j][:]) })
	buf := make([]byte, 0, len(sorted)*common.AddressLength)
	for _, a := range sorted {
		buf = append(buf, a[:]...)
	}
	return buf
}

func sortedSlotBytes(slots []StorageSlot) []byte {
	sorted := append([]StorageSlot(nil), slots...)
	sort.Slice(sorted, func(i, j int) bool {
		if string(sorted[i].Address[:]) != string(sorted[j].Address[:]) {
			return string(sorted[i].Address[:]) < string(sorted[j].Address[:])
		}
		return string(sorted[i].Key[:]) < string(sorted[j].Key[:])
	})
	buf := make([]byte, 0, len(sorted)*(common.AddressLength+common.HashLength))
	for _, s := range sorted {
		buf = append(buf, s.Address[:]...)
		buf = append(buf, s.Key[:]...)
	}
	return buf
}

func intBytes(n int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}

// jsonFilter mirrors the spec's host-facing Filter JSON.
type jsonFilter struct {
	Earliest *int            `json:"earliest"`
	Latest   *int            `json:"latest"`
	Max      *int            `json:"max"`
	Skip     *int            `json:"skip"`
	From     json.RawMessage `json:"from"`
	To       json.RawMessage `json:"to"`
	Altered  json.RawMessage `json:"altered"`
}

// FromJSON parses the host-facing Filter JSON shape (spec §6): "from"/"to"
// are a single address or a list of addresses; "altered" is a single
// address, a single `{"id","at"}` pair, or a list of either.
func FromJSON(raw []byte) (Filter, error) {
	var jf jsonFilter
	if err := json.Unmarshal(raw, &jf); err != nil {
		return Filter{}, err
	}
	f := Filter{Earliest: params.GenesisBlock, Latest: 0, Max: -1, Skip: 0}
	if jf.Earliest != nil {
		f.Earliest = *jf.Earliest
	}
	if jf.Latest != nil {
		f.Latest = *jf.Latest
	}
	if jf.Max != nil {
		f.Max = *jf.Max
	}
	if jf.Skip != nil {
		f.Skip = *jf.Skip
	}
	var err error
	if f.From, err = parseAddressField(jf.From); err != nil {
		return Filter{}, err
	}
	if f.To, err = parseAddressField(jf.To); err != nil {
		return Filter{}, err
	}
	if f.Altered, f.StateAltered, err = parseAlteredField(jf.Altered); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func parseAddressField(raw json.RawMessage) ([]common.Address, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []common.Address{parseAddressHex(single)}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	out := make([]common.Address, len(list))
	for i, s := range list {
		out[i] = parseAddressHex(s)
	}
	return out, nil
}

func parseAddressHex(s string) common.Address {
	b, _ := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	return common.BytesToAddress(b)
}

type alteredPair struct {
	ID string `json:"id"`
	At string `json:"at"`
}

func parseAlteredField(raw json.RawMessage) ([]common.Address, []StorageSlot, error) {
	if len(raw) == 0 {
		return nil, nil, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		entries = []json.RawMessage{raw} // single entry, not a list
	}
	var addrs []common.Address
	var slots []StorageSlot
	for _, e := range entries {
		var s string
		if err := json.Unmarshal(e, &s); err == nil {
			addrs = append(addrs, parseAddressHex(s))
			continue
		}
		var pair alteredPair
		if err := json.Unmarshal(e, &pair); err != nil {
			return nil, nil, err
		}
		slots = append(slots, StorageSlot{Address: parseAddressHex(pair.ID), Key: parseHashHex(pair.At)})
	}
	return addrs, slots, nil
}

func parseHashHex(s string) common.Hash {
	b, _ := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	return common.BytesToHash(b)
}
