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

// Package state is the Client's StateDB collaborator (spec §6) plus the
// `State` type that represents `pre`/`post` (spec §4.2): a logical mapping
// Address -> Account backed by StateDB, parameterized by a chain head.
package state

import (
	"bytes"
	"encoding/gob"
	"math/big"
	"sync"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/ground-x/coreclient/common"
	"github.com/ground-x/coreclient/log"
	"github.com/ground-x/coreclient/storage/database"
)

var logger = log.NewModuleLogger(log.StateDB)

// Account is the spec §3 Account: balance, nonce, code, and a U256->U256
// storage mapping.
type Account struct {
	Balance *big.Int
	Nonce   uint64
	Code    []byte
	Storage map[common.Hash]common.Hash
}

func newAccount() *Account {
	return &Account{Balance: new(big.Int), Storage: map[common.Hash]common.Hash{}}
}

func (a *Account) copy() *Account {
	cp := &Account{Balance: new(big.Int).Set(a.Balance), Nonce: a.Nonce, Storage: map[common.Hash]common.Hash{}}
	cp.Code = append([]byte(nil), a.Code...)
	for k, v := range a.Storage {
		cp.Storage[k] = v
	}
	return cp
}

// Database is the overlay key-value store every State snapshot reads
// from and writes into (spec §6's StateDB). A fastcache sits in front of
// the persistent Database to absorb the read-amplification of rebuilding
// `post` from `pre` on every tick (spec §4.2.1 of SPEC_FULL.md).
type Database struct {
	mu    sync.RWMutex
	db    database.Database
	cache *fastcache.Cache
}

// OpenDB opens the overlay at path (spec §6's `State::openDB`); an empty
// path or wipe=true yields a fresh, ephemeral store.
func OpenDB(path string, wipe bool) (*Database, error) {
	var backing database.Database
	var err error
	if wipe || path == "" {
		backing = database.NewMemDatabase()
	} else {
		backing, err = database.Open(path)
		if err != nil {
			return nil, err
		}
	}
	return &Database{db: backing, cache: fastcache.New(32 * 1024 * 1024)}, nil
}

func acctKey(root common.Hash, addr common.Address) []byte {
	return append(append([]byte("acct:"), root[:]...), addr[:]...)
}

// Get loads the account for addr as of state root root, or a fresh zero
// account if none is stored yet.
func (d *Database) Get(root common.Hash, addr common.Address) *Account {
	key := acctKey(root, addr)
	if buf, ok := d.cache.HasGet(nil, key); ok {
		var a Account
		if err := gob.NewDecoder(bytes.NewReader(buf)).Decode(&a); err == nil {
			return &a
		}
	}
	d.mu.RLock()
	raw, err := d.db.Get(key)
	d.mu.RUnlock()
	if err != nil {
		return newAccount()
	}
	var a Account
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&a); err != nil {
		logger.Warn("corrupt account record", "addr", addr, "err", err)
		return newAccount()
	}
	d.cache.Set(key, raw)
	return &a
}

// Put persists acct for addr under root.
func (d *Database) Put(root common.Hash, addr common.Address, acct *Account) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(acct); err != nil {
		logger.Warn("failed to encode account", "addr", addr, "err", err)
		return
	}
	key := acctKey(root, addr)
	d.mu.Lock()
	_ = d.db.Put(key, buf.Bytes())
	d.mu.Unlock()
	d.cache.Set(key, buf.Bytes())
}

// CommitRoot snapshots every account in snapshot under newRoot, the
// overlay-commit step invoked when the sync phase folds a mined/imported
// block's final state back into the shared StateDB (spec §4.1 item 3).
func (d *Database) CommitRoot(newRoot common.Hash, snapshot map[common.Address]*Account) {
	for addr, acct := range snapshot {
		d.Put(newRoot, addr, acct)
	}
}
