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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ground-x/coreclient/blockchain/types"
	"github.com/ground-x/coreclient/common"
)

// TestMatchesBloomSoundness is P7: if a manifest's Altered set contains an
// (address, slot) pair the filter constrains on, the manifest's own Bloom
// must satisfy MatchesBloom (no false negatives).
func TestMatchesBloomSoundness(t *testing.T) {
	from, to := addr(1), addr(2)
	slot := common.BytesToHash([]byte("slot"))

	m := types.NewManifest(from, to, nil)
	m.MarkAltered(to, slot)

	f := Filter{StateAltered: []StorageSlot{{Address: to, Key: slot}}}
	require.True(t, f.MatchesBloom(m.Bloom()))
}

// TestMatchesBloomEmptyGroupsVacuouslySatisfied confirms an unconstrained
// group (e.g. no From addresses given) never excludes a candidate.
func TestMatchesBloomEmptyGroupsVacuouslySatisfied(t *testing.T) {
	var b common.Bloom
	b.Or(common.AddressBloom(addr(9)))
	require.True(t, Filter{}.MatchesBloom(b))
}

// TestMatchesPendingTxRequiresExactSenderMatch: MatchesBloom alone is a
// pre-filter, not sufficient on its own for the second-bullet pending-tx
// check — an address that merely shares Bloom bits with the sender but
// isn't the actual sender must be rejected.
func TestMatchesPendingTxRequiresExactSenderMatch(t *testing.T) {
	sender, other, to := addr(1), addr(2), addr(3)

	m := types.NewManifest(sender, to, nil)
	m.MarkAltered(sender, common.Hash{})
	m.MarkAltered(to, common.Hash{})
	bloom := m.Bloom()
	diff := types.DiffFromManifest(m)

	f := Filter{From: []common.Address{other}}
	require.False(t, f.MatchesPendingTx(bloom, sender, to, diff))

	f = Filter{From: []common.Address{sender}}
	require.True(t, f.MatchesPendingTx(bloom, sender, to, diff))
}

// TestMatchMessagesLimboDefersUntilAltered is the spec §9 "Manifest
// recursion with limbo" semantics: an admitted-but-non-altering ancestor is
// only emitted once some descendant in its subtree alters watched state.
func TestMatchMessagesLimboDefersUntilAltered(t *testing.T) {
	watched := addr(1)
	origin := addr(0)

	root := types.NewManifest(origin, addr(2), nil) // admitted by empty From/To, doesn't alter anything itself
	child := types.NewManifest(addr(2), addr(3), nil)
	child.MarkAltered(watched, common.Hash{})
	root.Internal = append(root.Internal, child)

	f := Filter{Altered: []common.Address{watched}}
	out := f.MatchMessages(root, origin, 0)

	// Both root (held in limbo) and child (the altering node) are emitted,
	// in pre-order, because the child's alteration flushed the limbo buffer.
	require.Len(t, out, 2)
	require.Equal(t, root.To, out[0].To)
	require.Equal(t, child.To, out[1].To)
}

// TestMatchMessagesDropsUnalteredSubtree: a subtree that never alters
// watched state never surfaces any of its limbo'd ancestors.
func TestMatchMessagesDropsUnalteredSubtree(t *testing.T) {
	origin := addr(0)
	root := types.NewManifest(origin, addr(2), nil)
	child := types.NewManifest(addr(2), addr(3), nil)
	child.MarkAltered(addr(9), common.Hash{}) // touches something nobody's watching
	root.Internal = append(root.Internal, child)

	f := Filter{Altered: []common.Address{addr(1)}}
	out := f.MatchMessages(root, origin, 0)
	require.Empty(t, out)
}

// TestMatchMessagesEmptyAlteredFlushesEveryNode: a filter with no
// Altered/StateAltered constraint (e.g. spec scenario 3's {from:[A1]}, or an
// empty match-everything filter) must flush limbo at every admitted node
// rather than never, since it has nothing to wait on altering.
func TestMatchMessagesEmptyAlteredFlushesEveryNode(t *testing.T) {
	origin := addr(0)
	root := types.NewManifest(origin, addr(2), nil)
	child := types.NewManifest(addr(2), addr(3), nil)
	root.Internal = append(root.Internal, child)

	f := Filter{}
	out := f.MatchMessages(root, origin, 0)
	require.Len(t, out, 2)
	require.Equal(t, root.To, out[0].To)
	require.Equal(t, child.To, out[1].To)
}

// TestMatchMessagesRespectsMax confirms the result cap.
func TestMatchMessagesRespectsMax(t *testing.T) {
	watched := addr(1)
	origin := addr(0)
	root := types.NewManifest(origin, addr(2), nil)
	root.MarkAltered(watched, common.Hash{})
	for i := 0; i < 5; i++ {
		child := types.NewManifest(addr(2), addr(byte(3+i)), nil)
		child.MarkAltered(watched, common.Hash{})
		root.Internal = append(root.Internal, child)
	}

	f := Filter{Altered: []common.Address{watched}}
	out := f.MatchMessages(root, origin, 3)
	require.Len(t, out, 3)
}
