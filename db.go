// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package raydb is the caller-facing surface of an embedded transactional
// key/value store: an order-preserving key codec, a Bitcask-style
// append-only storage engine, and a snapshot-isolation MVCC transaction
// manager, wired together behind a small Open/Begin/Commit API.
package raydb

import (
	"time"

	"go.uber.org/zap"

	"github.com/Rayka-RJ/raydb/internal/mvcc"
	"github.com/Rayka-RJ/raydb/internal/storage"
)

// KeyValue is a single key/value pair returned by Txn.ScanPrefix.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// DB owns one storage engine and the transaction manager layered over it.
// A DB is safe for concurrent use by multiple goroutines, each driving its
// own Txn.
type DB struct {
	mvcc *mvcc.Mvcc
	opts *Options
}

// Open opens (or creates) a durable, disk-backed database at path.
func Open(path string, opts *Options) (*DB, error) {
	opts = opts.EnsureDefaults()
	engine, err := storage.Open(path, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &DB{mvcc: mvcc.New(engine, opts.Logger, opts.ValueCompression.valuecodecKind()), opts: opts}, nil
}

// OpenMem opens a non-durable, in-memory database, for tests and
// transient workloads that never need to survive a restart.
func OpenMem(opts *Options) (*DB, error) {
	opts = opts.EnsureDefaults()
	engine := storage.NewMemEngine()
	return &DB{mvcc: mvcc.New(engine, opts.Logger, opts.ValueCompression.valuecodecKind()), opts: opts}, nil
}

// Begin starts a new snapshot-isolated transaction.
func (db *DB) Begin() (*Txn, error) {
	t, err := db.mvcc.Begin()
	if err != nil {
		return nil, err
	}
	return &Txn{inner: t, opts: db.opts}, nil
}

// Close releases the underlying engine's resources.
func (db *DB) Close() error {
	return db.mvcc.Close()
}

// Compact rewrites the on-disk log to contain only live records. A no-op
// (returns nil) on an in-memory DB, which never accumulates superseded
// records. Compact acquires the same lock a transaction would, so it runs
// between, never during, transactional steps.
func (db *DB) Compact() error {
	de, ok := db.mvcc.Engine().(*storage.DiskEngine)
	if !ok {
		return nil
	}
	limiter := storage.NewCompactionLimiter(db.opts.CompactionRateBytesPerSec)
	start := time.Now()
	err := de.Compact(limiter)
	if err == nil {
		db.opts.Metrics.RecordCompaction()
		db.opts.Logger.Debug("compaction finished", zap.Duration("elapsed", time.Since(start)))
	}
	return err
}
