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
)

// MatchesBloom is the cheap pre-filter (spec §4.5 first bullet): `from`,
// `to`, and the combined `altered`/`stateAltered` group are ANDed; within
// each group members are ORed; an empty group is vacuously satisfied.
func (f Filter) MatchesBloom(candidate common.Bloom) bool {
	return addressGroupMatches(f.From, candidate) &&
		addressGroupMatches(f.To, candidate) &&
		alteredGroupMatches(f.Altered, f.StateAltered, candidate)
}

func addressGroupMatches(group []common.Address, candidate common.Bloom) bool {
	if len(group) == 0 {
		return true
	}
	for _, a := range group {
		if candidate.Contains(a[:]) {
			return true
		}
	}
	return false
}

func alteredGroupMatches(altered []common.Address, stateAltered []StorageSlot, candidate common.Bloom) bool {
	if len(altered) == 0 && len(stateAltered) == 0 {
		return true
	}
	for _, a := range altered {
		if candidate.Contains(a[:]) {
			return true
		}
	}
	for _, s := range stateAltered {
		if candidate.Contains(s.Address[:]) && candidate.Contains(s.Key[:]) {
			return true
		}
	}
	return false
}

// MatchesPendingTx is the spec §4.5 second bullet: Bloom-match first, then
// an exact sender/recipient check, then an exact intersection against the
// transaction's StateDiff. Per design note (ii), `altered` and
// `stateAltered` are checked as alternatives here rather than folded into
// one OR'd group the way MatchesBloom does: either is sufficient, but each
// is tested against the diff in its own terms (address presence vs. exact
// slot presence).
func (f Filter) MatchesPendingTx(bloom common.Bloom, sender, to common.Address, diff types.StateDiff) bool {
	if !f.MatchesBloom(bloom) {
		return false
	}
	if len(f.From) > 0 && !containsAddress(f.From, sender) {
		return false
	}
	if len(f.To) > 0 && !containsAddress(f.To, to) {
		return false
	}
	if len(f.Altered) == 0 && len(f.StateAltered) == 0 {
		return true
	}
	for _, a := range f.Altered {
		if _, ok := diff.Accounts[a]; ok {
			return true
		}
	}
	for _, s := range f.StateAltered {
		if acct, ok := diff.Accounts[s.Address]; ok {
			if _, ok := acct.Storage[s.Key]; ok {
				return true
			}
		}
	}
	return false
}

func containsAddress(set []common.Address, a common.Address) bool {
	for _, m := range set {
		if m == a {
			return true
		}
	}
	return false
}

// admitsMessage is the from/to gate a Manifest node passes before it may
// be placed in the limbo buffer (spec §4.5 third bullet, step (i)).
func (f Filter) admitsMessage(from, to common.Address) bool {
	if len(f.From) > 0 && !containsAddress(f.From, from) {
		return false
	}
	if len(f.To) > 0 && !containsAddress(f.To, to) {
		return false
	}
	return true
}

// altersWatchedState is step (ii): does this node's own Altered set touch
// a watched address or (address, slot) pair. An empty Altered/StateAltered
// constraint is vacuously true (cpp-ethereum's TransactionFilter::matches
// seeds `alters` with `m_altered.empty() && m_stateAltered.empty()`), so an
// unconstrained filter flushes limbo at every node instead of never.
func (f Filter) altersWatchedState(n *types.Manifest) bool {
	if len(f.Altered) == 0 && len(f.StateAltered) == 0 {
		return true
	}
	for _, a := range f.Altered {
		if _, ok := n.Altered[a]; ok {
			return true
		}
	}
	for _, s := range f.StateAltered {
		if slots, ok := n.Altered[s.Address]; ok {
			if _, ok := slots[s.Key]; ok {
				return true
			}
		}
	}
	return false
}

// MatchMessages walks manifest in pre-order, applying the limbo-buffer
// algorithm (spec §4.5 third bullet / §9 "Manifest recursion with
// limbo"): a node admitted by from/to is held in limbo rather than
// emitted immediately; limbo is flushed into the output only when a node
// in its subtree actually alters watched state, so ancestor callers are
// reported only when their subtree matters. Recursion stops once out
// reaches maxOut (maxOut <= 0 means unbounded).
func (f Filter) MatchMessages(manifest *types.Manifest, origin common.Address, maxOut int) []types.PastMessage {
	var out []types.PastMessage
	full := func() bool { return maxOut > 0 && len(out) >= maxOut }

	var walk func(n *types.Manifest, path []int, limbo []types.PastMessage)
	walk = func(n *types.Manifest, path []int, limbo []types.PastMessage) {
		if n == nil || full() {
			return
		}

		nextLimbo := limbo
		if f.admitsMessage(n.From, n.To) {
			nextLimbo = append(append([]types.PastMessage(nil), limbo...), n.ToPastMessage(path, origin))
		}
		if f.altersWatchedState(n) {
			out = append(out, nextLimbo...)
			nextLimbo = nil
		}

		for i, c := range n.Internal {
			if full() {
				return
			}
			childPath := append(append([]int(nil), path...), i)
			walk(c, childPath, nextLimbo)
		}
	}
	walk(manifest, nil, nil)
	if maxOut > 0 && len(out) > maxOut {
		out = out[:maxOut]
	}
	return out
}
