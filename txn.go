// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package raydb

import (
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/Rayka-RJ/raydb/internal/mvcc"
)

// ErrNotFound is returned by Txn.Get when key has no value visible to the
// transaction's snapshot.
var ErrNotFound = errors.New("raydb: key not found")

// ErrWriteConflict is returned by Txn.Set/Delete when a concurrent or
// future-visible transaction already wrote the same key. The transaction
// remains valid for further reads; callers should abandon it and retry in
// a new transaction.
var ErrWriteConflict = mvcc.ErrWriteConflict

// Txn is one snapshot-isolated transaction against a DB.
type Txn struct {
	inner *mvcc.Txn
	opts  *Options
}

// Get returns the value visible to this transaction for key, or
// ErrNotFound if key has no live value.
func (t *Txn) Get(key []byte) ([]byte, error) {
	start := time.Now()
	value, ok, err := t.inner.Get(key)
	t.opts.Metrics.RecordGet(time.Since(start))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return value, nil
}

// Set stores value under key, replacing any value previously visible to
// this transaction.
func (t *Txn) Set(key, value []byte) error {
	start := time.Now()
	err := t.inner.Set(key, value)
	t.opts.Metrics.RecordWrite(time.Since(start))
	if errors.Is(err, mvcc.ErrWriteConflict) {
		t.opts.Metrics.RecordConflict()
	}
	return err
}

// Delete removes key, subject to the same write-conflict detection as
// Set.
func (t *Txn) Delete(key []byte) error {
	start := time.Now()
	err := t.inner.Delete(key)
	t.opts.Metrics.RecordWrite(time.Since(start))
	if errors.Is(err, mvcc.ErrWriteConflict) {
		t.opts.Metrics.RecordConflict()
	}
	return err
}

// ScanPrefix returns the latest value visible to this transaction for
// every key starting with prefix, in ascending key order. A prefix whose
// last byte is 0x00 or 0xFF returns no results.
func (t *Txn) ScanPrefix(prefix []byte) ([]KeyValue, error) {
	results, err := t.inner.ScanPrefix(prefix)
	if err != nil {
		return nil, err
	}
	out := make([]KeyValue, len(results))
	for i, r := range results {
		out[i] = KeyValue{Key: r.Key, Value: r.Value}
	}
	return out, nil
}

// Commit finalizes the transaction's writes.
func (t *Txn) Commit() error {
	err := t.inner.Commit()
	if err == nil {
		t.opts.Metrics.RecordCommit()
		t.opts.Logger.Debug("transaction committed", zap.Uint64("version", t.inner.Version()))
	}
	return err
}

// Rollback discards every write this transaction made.
func (t *Txn) Rollback() error {
	err := t.inner.Rollback()
	if err == nil {
		t.opts.Metrics.RecordRollback()
	}
	return err
}
