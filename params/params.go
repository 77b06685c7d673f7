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

package params

import "time"

// Version-gate constants (spec §4.6). Bumping either forces a wipe-mode
// reopen of Chain and StateDB for every node that doesn't already have the
// matching values on disk.
const (
	ProtocolVersion = uint(63)
	DatabaseVersion = uint(7)
)

// GenesisBlock is the sentinel block-selector value meaning "state at block
// 0", distinct from the ordinary positive/negative encodings (spec §4.1).
const GenesisBlock = -0x7fffffff

// NewBlockFilter and NewPendingFilter are the two sentinel fingerprints
// reserved outside the hash space of real filters (spec §3, §9).
var (
	NewBlockFilterID   = [32]byte{0xff}
	NewPendingFilterID = [32]byte{0xff, 0x01}
)

// Mining / tick tuning, matching the spec's literal 100ms budgets.
const (
	MineBudget  = 100 * time.Millisecond
	IdleSleep   = 100 * time.Millisecond
	ChainSyncBudget = 100 * time.Millisecond
)

// TargetBits is the fixed proof-of-work difficulty used by this module's
// mining step: a candidate block hash must have at least this many leading
// zero bits. Real difficulty retargeting is out of scope (spec §1 Non-goals
// exclude consensus rules beyond "longest valid chain applies").
const TargetBits = 16

// ResolveBlockSelector decodes the spec §4.1 block-selector encoding into
// a concrete block number given the chain's current head number: positive
// n selects block n, the GenesisBlock sentinel selects block 0, and 0/-k
// both fold into `head + 1 - k` (k = -selector, so 0 selects head+1 and
// -1 selects head). Used both to resolve read-operation selectors and to
// resolve a filter's earliest/latest bounds (spec §4.5), which share the
// same encoding.
func ResolveBlockSelector(selector int, head uint64) uint64 {
	if selector == GenesisBlock {
		return 0
	}
	if selector > 0 {
		return uint64(selector)
	}
	k := uint64(-selector)
	if k > head+1 {
		return 0
	}
	return head + 1 - k
}
