// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package storage

// fetchFunc materializes the value for a single directory entry. For
// DiskEngine this is a random-access read against the log file; for
// MemEngine the value is already resident and the func is a no-op
// passthrough.
type fetchFunc func(key []byte) ([]byte, error)

// sliceIterator implements Iterator over a pre-collected, ascending slice
// of keys snapshotted from the directory at Scan time. Collecting the key
// set eagerly but fetching values lazily matches spec.md §4.2's scan
// algorithm: "each yielded directory entry is materialized by a
// random-access read against the log."
//
// front and back walk toward each other; once they meet, both Next and
// Prev report exhaustion, matching a Rust BTreeMap range's
// DoubleEndedIterator semantics.
type sliceIterator struct {
	keys  [][]byte
	fetch fetchFunc
	front int
	back  int // exclusive
}

func newSliceIterator(keys [][]byte, fetch fetchFunc) *sliceIterator {
	return &sliceIterator{keys: keys, fetch: fetch, front: 0, back: len(keys)}
}

func (it *sliceIterator) Next() (KeyValue, bool, error) {
	if it.front >= it.back {
		return KeyValue{}, false, nil
	}
	k := it.keys[it.front]
	it.front++
	v, err := it.fetch(k)
	if err != nil {
		return KeyValue{}, false, err
	}
	return KeyValue{Key: k, Value: v}, true, nil
}

func (it *sliceIterator) Prev() (KeyValue, bool, error) {
	if it.front >= it.back {
		return KeyValue{}, false, nil
	}
	it.back--
	k := it.keys[it.back]
	v, err := it.fetch(k)
	if err != nil {
		return KeyValue{}, false, err
	}
	return KeyValue{Key: k, Value: v}, true, nil
}
