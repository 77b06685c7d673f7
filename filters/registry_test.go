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

	"github.com/ground-x/coreclient/common"
)

func addr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

// TestDuplicateFilterRefcount is spec §8 scenario 4 / property P4: installing
// the same filter twice yields two watch ids bound to one registry entry
// with refcount 2; uninstalling drains the refcount to zero and removes it.
func TestDuplicateFilterRefcount(t *testing.T) {
	r := New()
	f := Filter{From: []common.Address{addr(1)}}

	w1 := r.InstallWatch(f)
	w2 := r.InstallWatch(f)
	require.NotEqual(t, w1, w2)
	require.Equal(t, 1, r.FilterCount())
	require.Equal(t, 2, r.Refcount(f.Fingerprint()))

	r.UninstallWatch(w1)
	require.Equal(t, 1, r.FilterCount())
	require.Equal(t, 1, r.Refcount(f.Fingerprint()))

	r.UninstallWatch(w2)
	require.Equal(t, 0, r.FilterCount())
	require.Equal(t, 0, r.Refcount(f.Fingerprint()))
}

// TestFingerprintCanonicalization confirms P4 holds even when two Filter
// values list the same addresses in a different order: Fingerprint sorts
// each constraint list before hashing.
func TestFingerprintCanonicalization(t *testing.T) {
	a, b := addr(1), addr(2)
	f1 := Filter{From: []common.Address{a, b}}
	f2 := Filter{From: []common.Address{b, a}}
	require.Equal(t, f1.Fingerprint(), f2.Fingerprint())

	r := New()
	r.InstallWatch(f1)
	r.InstallWatch(f2)
	require.Equal(t, 1, r.FilterCount())
	require.Equal(t, 2, r.Refcount(f1.Fingerprint()))
}

// TestCheckWatchClearsOnRead is P5: two consecutive CheckWatch calls without
// an intervening NoteChanged return (true, false).
func TestCheckWatchClearsOnRead(t *testing.T) {
	r := New()
	f := Filter{From: []common.Address{addr(1)}}
	id := r.InstallWatch(f)

	r.NoteChanged(map[common.Hash]struct{}{f.Fingerprint(): {}})

	require.True(t, r.CheckWatch(id))
	require.False(t, r.CheckWatch(id))
}

// TestUninstallIsTrueRemoval is Open Question (iii): an uninstalled watch
// stops observing changes entirely rather than being soft-disabled.
func TestUninstallIsTrueRemoval(t *testing.T) {
	r := New()
	f := Filter{From: []common.Address{addr(1)}}
	id := r.InstallWatch(f)
	r.UninstallWatch(id)

	r.NoteChanged(map[common.Hash]struct{}{f.Fingerprint(): {}})
	require.False(t, r.CheckWatch(id))
}

// TestBuiltinWatchesUseSentinelFingerprints confirms the sentinel ids never
// collide with a real filter's fingerprint space.
func TestBuiltinWatchesUseSentinelFingerprints(t *testing.T) {
	r := New()
	blockWatch := r.InstallBuiltinWatch(NewBlockFilterID)
	pendingWatch := r.InstallBuiltinWatch(NewPendingFilterID)
	require.NotEqual(t, blockWatch, pendingWatch)

	r.NoteChanged(map[common.Hash]struct{}{NewBlockFilterID: {}})
	require.True(t, r.CheckWatch(blockWatch))
	require.False(t, r.CheckWatch(pendingWatch))
}
