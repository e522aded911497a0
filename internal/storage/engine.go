// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package storage implements the KV storage engine (KVE): a durable
// append-only log with an in-memory key directory (Bitcask-style), plus
// an in-memory engine with an identical contract for tests.
package storage

import "github.com/cockroachdb/errors"

// ErrInternal marks an I/O failure or an engine-level inconsistency. It is
// never retriable automatically.
var ErrInternal = errors.New("storage: internal error")

// KeyValue is a single key/value pair returned by a scan.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// Range bounds a scan. A nil Start scans from the smallest key; a nil End
// scans to the largest key. End is exclusive.
type Range struct {
	Start []byte
	End   []byte
}

// Iterator yields key/value pairs in ascending key order and can also be
// driven from the end, matching the teacher's DoubleEndedIterator
// contract for range scans.
//
// An Iterator's lifetime must be nested inside the critical section that
// produced it: callers that need to release the engine's lock before
// consuming results must first drain the iterator into an owned slice
// (see mvcc.Txn.ScanPrefix).
type Iterator interface {
	// Next returns the next pair in ascending order, or ok == false when
	// the range is exhausted.
	Next() (kv KeyValue, ok bool, err error)
	// Prev returns the next pair in descending order, or ok == false when
	// the range is exhausted. Next and Prev share the same exhaustion
	// boundary: once either side has consumed a pair, it is not returned
	// again by the other.
	Prev() (kv KeyValue, ok bool, err error)
}

// Engine is the storage contract shared by the disk-backed log engine and
// the in-memory test engine. All mutating operations and scans are
// synchronous; callers that need cross-operation atomicity serialize
// access themselves (see package mvcc, which wraps a single Engine in a
// mutex).
type Engine interface {
	// Set stores value under key, replacing any previous value. For
	// DiskEngine the record is durable once Set returns; MemEngine keeps
	// nothing across a restart.
	Set(key, value []byte) error
	// Get returns the live value for key, or ok == false if key has no
	// live record (never written, or deleted).
	Get(key []byte) (value []byte, ok bool, err error)
	// Delete removes key. Idempotent: deleting an absent key is not an
	// error.
	Delete(key []byte) error
	// Scan returns an ascending, double-ended iterator over r.
	Scan(r Range) Iterator
	// ScanPrefix returns an ascending, double-ended iterator over every
	// key starting with prefix. A prefix whose last byte is 0xFF yields
	// an empty iterator (see prefixUpperBound).
	ScanPrefix(prefix []byte) Iterator
	// Close releases any OS resources (file handles, locks) held by the
	// engine.
	Close() error
}

// prefixUpperBound returns the exclusive upper bound for a scan over all
// keys starting with prefix: prefix with its last byte incremented. This
// only works correctly when prefix's last byte is below 0xFF; a last byte
// of 0xFF wraps to 0x00 without carry, giving a bound below the start and
// so an empty scan. A keycode encoding with its terminator truncated ends
// in 0xFF whenever the encoded value ends in 0x00 (escaped as 0x00 0xFF)
// or 0xFF.
func prefixUpperBound(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	upper[len(upper)-1]++
	return upper
}
