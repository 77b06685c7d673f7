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
	"sync"

	"github.com/ground-x/coreclient/blockchain/types"
	"github.com/ground-x/coreclient/common"
	"github.com/ground-x/coreclient/params"
)

// NewBlockFilterID and NewPendingFilterID are the two sentinel
// fingerprints reserved outside the hash space of real filters.
var (
	NewBlockFilterID   = common.Hash(params.NewBlockFilterID)
	NewPendingFilterID = common.Hash(params.NewPendingFilterID)
)

type filterEntry struct {
	filter   Filter
	builtin  bool // true for the two sentinel fingerprints: skip bloom matching for them
	refcount int
}

type watchEntry struct {
	filterID common.Hash
	changes  uint64
}

// Registry is the Client's filter/watch collaborator (spec §4.5), guarded
// by its own `filter-lock` per the lock-ordering rule in spec §5
// (`net-lock < client-lock < filter-lock`).
type Registry struct {
	mu      sync.Mutex
	filters map[common.Hash]*filterEntry
	watches map[uint64]*watchEntry
	nextID  uint64 // monotonic; see DESIGN.md for why ids are never recycled
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		filters: map[common.Hash]*filterEntry{},
		watches: map[uint64]*watchEntry{},
	}
}

// InstallWatch is the spec's `installWatch(filter) -> id`.
func (r *Registry) InstallWatch(f Filter) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	fp := f.Fingerprint()
	r.bumpRefLocked(fp, f, false)
	return r.assignIDLocked(fp)
}

// InstallBuiltinWatch is the spec's `installWatch(builtin_id)`: id is one
// of NewBlockFilterID/NewPendingFilterID.
func (r *Registry) InstallBuiltinWatch(sentinel common.Hash) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bumpRefLocked(sentinel, Filter{}, true)
	return r.assignIDLocked(sentinel)
}

func (r *Registry) bumpRefLocked(fp common.Hash, f Filter, builtin bool) {
	if e, ok := r.filters[fp]; ok {
		e.refcount++
		return
	}
	r.filters[fp] = &filterEntry{filter: f, builtin: builtin, refcount: 1}
}

func (r *Registry) assignIDLocked(fp common.Hash) uint64 {
	id := r.nextID
	r.nextID++
	r.watches[id] = &watchEntry{filterID: fp}
	return id
}

// UninstallWatch is the spec's `uninstallWatch(id)`.
func (r *Registry) UninstallWatch(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.watches[id]
	if !ok {
		return
	}
	delete(r.watches, id)
	if e, ok := r.filters[w.filterID]; ok {
		e.refcount--
		if e.refcount <= 0 {
			delete(r.filters, w.filterID)
		}
	}
}

// CheckWatch is the spec's `checkWatch(id)`: atomically read-and-clear.
func (r *Registry) CheckWatch(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.watches[id]
	if !ok || w.changes == 0 {
		return false
	}
	w.changes = 0
	return true
}

// FilterCount reports the number of distinct filter fingerprints
// currently referenced by at least one watch (used by P4 property tests).
func (r *Registry) FilterCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.filters)
}

// Refcount reports the current refcount for the filter fingerprint fp.
func (r *Registry) Refcount(fp common.Hash) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.filters[fp]; ok {
		return e.refcount
	}
	return 0
}

// NoteChanged increments the change-counter of every watch bound to one
// of ids.
func (r *Registry) NoteChanged(ids map[common.Hash]struct{}) {
	if len(ids) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.watches {
		if _, ok := ids[w.filterID]; ok {
			w.changes++
		}
	}
}

// AppendFromNewPending is the spec's `appendFromNewPending(bloom, out)`:
// every real (non-builtin) filter whose `latest` bound admits the pending
// block number (head+1, the tip a pending transaction would land in) and
// whose Bloom test admits bloom has its fingerprint inserted into out,
// mirroring cpp-ethereum's Client::appendFromNewPending, which checks
// `filter.latest() >= postMine.number()` before the Bloom test. The caller
// is responsible for adding NewPendingFilterID to out itself once it knows
// the pending sync produced at least one new Bloom (spec §4.1 phase 3).
func (r *Registry) AppendFromNewPending(bloom common.Bloom, headNumber uint64, out map[common.Hash]struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pendingNumber := headNumber + 1
	for fp, e := range r.filters {
		if e.builtin {
			continue
		}
		hi := params.ResolveBlockSelector(e.filter.Latest, headNumber)
		if pendingNumber > hi {
			continue
		}
		if e.filter.MatchesBloom(bloom) {
			out[fp] = struct{}{}
		}
	}
}

// AppendFromNewBlock is the spec's `appendFromNewBlock(block, out)`: every
// real filter whose bounds admit block's number and whose Bloom test
// admits the block's header Bloom has its fingerprint inserted into out.
// The caller adds NewBlockFilterID itself (spec §4.1 phase 2/3).
func (r *Registry) AppendFromNewBlock(block *types.Block, headNumber uint64, out map[common.Hash]struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for fp, e := range r.filters {
		if e.builtin {
			continue
		}
		lo := params.ResolveBlockSelector(e.filter.Earliest, headNumber)
		hi := params.ResolveBlockSelector(e.filter.Latest, headNumber)
		n := block.NumberU64()
		if n < lo || n > hi {
			continue
		}
		if e.filter.MatchesBloom(block.Header.Bloom) {
			out[fp] = struct{}{}
		}
	}
}
