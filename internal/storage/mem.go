// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package storage

import "github.com/tidwall/btree"

type memItem struct {
	Key   []byte
	Value []byte
}

func memItemLess(a, b memItem) bool {
	return dirEntryLess(dirEntry{Key: a.Key}, dirEntry{Key: b.Key})
}

// MemEngine is an in-memory implementation of Engine with a contract
// identical to DiskEngine: an ordered map from key to value, no
// durability. spec.md §1 calls for this variant explicitly, for tests
// that want the MVCC semantics without touching a filesystem.
type MemEngine struct {
	tree *btree.BTreeG[memItem]
}

// NewMemEngine returns an empty MemEngine.
func NewMemEngine() *MemEngine {
	return &MemEngine{tree: btree.NewBTreeG(memItemLess)}
}

// Set implements Engine.
func (m *MemEngine) Set(key, value []byte) error {
	m.tree.Set(memItem{Key: append([]byte(nil), key...), Value: append([]byte(nil), value...)})
	return nil
}

// Get implements Engine.
func (m *MemEngine) Get(key []byte) ([]byte, bool, error) {
	item, ok := m.tree.Get(memItem{Key: key})
	if !ok {
		return nil, false, nil
	}
	return item.Value, true, nil
}

// Delete implements Engine.
func (m *MemEngine) Delete(key []byte) error {
	m.tree.Delete(memItem{Key: key})
	return nil
}

// Scan implements Engine.
func (m *MemEngine) Scan(r Range) Iterator {
	var keys [][]byte
	values := map[string][]byte{}
	m.tree.Ascend(memItem{Key: r.Start}, func(item memItem) bool {
		if r.End != nil && !less(item.Key, r.End) {
			return false
		}
		k := append([]byte(nil), item.Key...)
		keys = append(keys, k)
		values[string(k)] = item.Value
		return true
	})
	return newSliceIterator(keys, func(key []byte) ([]byte, error) {
		return values[string(key)], nil
	})
}

// ScanPrefix implements Engine.
func (m *MemEngine) ScanPrefix(prefix []byte) Iterator {
	return m.Scan(Range{Start: prefix, End: prefixUpperBound(prefix)})
}

// Close implements Engine. MemEngine holds no OS resources.
func (m *MemEngine) Close() error {
	return nil
}

func less(a, b []byte) bool {
	return dirEntryLess(dirEntry{Key: a}, dirEntry{Key: b})
}

var _ Engine = (*MemEngine)(nil)
var _ Engine = (*DiskEngine)(nil)
