// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package storage

import (
	"bytes"

	"github.com/tidwall/btree"
)

// dirEntry is one row of the key directory: a physical key and the
// on-disk location of its live value. Tombstones are absent from the
// directory entirely (spec.md §3).
type dirEntry struct {
	Key    []byte
	Offset uint64
	Length uint32
}

func dirEntryLess(a, b dirEntry) bool {
	return bytes.Compare(a.Key, b.Key) < 0
}

// keyDir is the in-memory ordered index from physical key bytes to
// (file_offset_of_value, value_length) described in spec.md §3.
type keyDir struct {
	tree *btree.BTreeG[dirEntry]
}

func newKeyDir() *keyDir {
	return &keyDir{tree: btree.NewBTreeG(dirEntryLess)}
}

func (d *keyDir) set(key []byte, offset uint64, length uint32) {
	d.tree.Set(dirEntry{Key: key, Offset: offset, Length: length})
}

func (d *keyDir) delete(key []byte) {
	d.tree.Delete(dirEntry{Key: key})
}

func (d *keyDir) get(key []byte) (dirEntry, bool) {
	return d.tree.Get(dirEntry{Key: key})
}

func (d *keyDir) len() int {
	return d.tree.Len()
}

// keysInRange returns, in ascending order, every key in r. Values are not
// resolved here; see sliceIterator for the lazy per-item fetch.
func (d *keyDir) keysInRange(r Range) [][]byte {
	var keys [][]byte
	d.tree.Ascend(dirEntry{Key: r.Start}, func(item dirEntry) bool {
		if r.End != nil && bytes.Compare(item.Key, r.End) >= 0 {
			return false
		}
		keys = append(keys, item.Key)
		return true
	})
	return keys
}

// entriesInKeyOrder returns every directory entry in ascending key order,
// used by compaction to rewrite the log.
func (d *keyDir) entriesInKeyOrder() []dirEntry {
	entries := make([]dirEntry, 0, d.tree.Len())
	d.tree.Scan(func(item dirEntry) bool {
		entries = append(entries, item)
		return true
	})
	return entries
}
