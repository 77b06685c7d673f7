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

// Package database is the key-value storage layer Chain and StateDB are
// built on, trimmed from this repository's storage/database package down to
// the accessor surface this module's Chain and State actually need.
package database

import (
	"errors"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("database: not found")

// Batch groups a set of writes for atomic commit.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Write() error
	Reset()
}

// Database is the minimal KV surface this module relies on, implemented by
// both the in-memory store (tests, ephemeral nodes) and the LevelDB-backed
// one (persistent nodes), per this repository's long-standing
// database.Database split (cf. storage/database/db_manager.go).
type Database interface {
	Put(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Delete(key []byte) error
	NewBatch() Batch
	Close()
}

// ---- in-memory implementation --------------------------------------------

type MemDatabase struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemDatabase() *MemDatabase {
	return &MemDatabase{data: map[string][]byte{}}
}

func (db *MemDatabase) Put(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	db.data[string(key)] = cp
	return nil
}

func (db *MemDatabase) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	v, ok := db.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (db *MemDatabase) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.data[string(key)]
	return ok, nil
}

func (db *MemDatabase) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.data, string(key))
	return nil
}

func (db *MemDatabase) Close() {}

type memBatch struct {
	db  *MemDatabase
	ops []func()
}

func (db *MemDatabase) NewBatch() Batch { return &memBatch{db: db} }

func (b *memBatch) Put(key, value []byte) error {
	k, v := append([]byte(nil), key...), append([]byte(nil), value...)
	b.ops = append(b.ops, func() { b.db.mu.Lock(); b.db.data[string(k)] = v; b.db.mu.Unlock() })
	return nil
}

func (b *memBatch) Delete(key []byte) error {
	k := append([]byte(nil), key...)
	b.ops = append(b.ops, func() { b.db.mu.Lock(); delete(b.db.data, string(k)); b.db.mu.Unlock() })
	return nil
}

func (b *memBatch) Write() error {
	for _, op := range b.ops {
		op()
	}
	b.ops = nil
	return nil
}

func (b *memBatch) Reset() { b.ops = nil }

// ---- LevelDB-backed implementation ----------------------------------------

// LevelDB is this module's persistent Database, grounded on
// storage/database/leveldb_database.go.
type LevelDB struct {
	fn string
	db *leveldb.DB
}

func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{fn: path, db: db}, nil
}

func (l *LevelDB) Put(key, value []byte) error { return l.db.Put(key, value, nil) }

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	v, err := l.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

func (l *LevelDB) Has(key []byte) (bool, error) { return l.db.Has(key, nil) }
func (l *LevelDB) Delete(key []byte) error      { return l.db.Delete(key, nil) }
func (l *LevelDB) Close()                       { l.db.Close() }

type ldbBatch struct {
	db    *LevelDB
	batch *leveldb.Batch
}

func (l *LevelDB) NewBatch() Batch { return &ldbBatch{db: l, batch: new(leveldb.Batch)} }

func (b *ldbBatch) Put(key, value []byte) error { b.batch.Put(key, value); return nil }
func (b *ldbBatch) Delete(key []byte) error     { b.batch.Delete(key); return nil }
func (b *ldbBatch) Write() error                { return b.db.db.Write(b.batch, nil) }
func (b *ldbBatch) Reset()                      { b.batch.Reset() }

// Open opens a persistent LevelDB database at path, or an ephemeral
// in-memory one if path is empty, mirroring ServiceContext.OpenDatabase's
// ephemeral-path convention.
func Open(path string) (Database, error) {
	if path == "" {
		return NewMemDatabase(), nil
	}
	return NewLevelDB(path)
}
