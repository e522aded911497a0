// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package mvcc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Rayka-RJ/raydb/internal/storage"
	"github.com/Rayka-RJ/raydb/internal/valuecodec"
)

func newTestMvcc(t *testing.T) *Mvcc {
	t.Helper()
	return New(storage.NewMemEngine(), nil, valuecodec.KindNone)
}

func mustGet(t *testing.T, txn *Txn, key string) (string, bool) {
	t.Helper()
	v, ok, err := txn.Get([]byte(key))
	require.NoError(t, err)
	if !ok {
		return "", false
	}
	return string(v), true
}

// TestBasicGetDelete mirrors scenario 1 of spec.md §8.
func TestBasicGetDelete(t *testing.T) {
	m := newTestMvcc(t)

	t0, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, t0.Set([]byte("key1"), []byte("value1")))
	require.NoError(t, t0.Set([]byte("key2"), []byte("value2")))
	require.NoError(t, t0.Set([]byte("key3"), []byte("value3")))
	require.NoError(t, t0.Set([]byte("key4"), []byte("value4")))
	require.NoError(t, t0.Delete([]byte("key3")))
	require.NoError(t, t0.Commit())

	t1, err := m.Begin()
	require.NoError(t, err)
	v, ok := mustGet(t, t1, "key1")
	require.True(t, ok)
	require.Equal(t, "value1", v)

	v, ok = mustGet(t, t1, "key2")
	require.True(t, ok)
	require.Equal(t, "value2", v)

	_, ok = mustGet(t, t1, "key3")
	require.False(t, ok)
	require.NoError(t, t1.Commit())
}

// TestWriteConflict mirrors scenario 2 of spec.md §8.
func TestWriteConflict(t *testing.T) {
	m := newTestMvcc(t)

	t0, err := m.Begin()
	require.NoError(t, err)
	for i, k := range []string{"key1", "key2", "key3", "key4", "key5"} {
		require.NoError(t, t0.Set([]byte(k), []byte(k+"-val"+string(rune('1'+i)))))
	}
	require.NoError(t, t0.Commit())

	t1, err := m.Begin()
	require.NoError(t, err)
	t2, err := m.Begin()
	require.NoError(t, err)

	require.NoError(t, t1.Set([]byte("key1"), []byte("val1-1")))
	err = t2.Set([]byte("key1"), []byte("val1-3"))
	require.ErrorIs(t, err, ErrWriteConflict)

	t3, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, t3.Set([]byte("key5"), []byte("val5-2")))
	require.NoError(t, t3.Commit())

	err = t1.Set([]byte("key5"), []byte("val5-3"))
	require.ErrorIs(t, err, ErrWriteConflict)

	require.NoError(t, t1.Commit())
}

// TestRollbackRestoresState mirrors scenario 3 of spec.md §8.
func TestRollbackRestoresState(t *testing.T) {
	m := newTestMvcc(t)

	t0, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, t0.Set([]byte("key1"), []byte("val1")))
	require.NoError(t, t0.Set([]byte("key2"), []byte("val2")))
	require.NoError(t, t0.Set([]byte("key3"), []byte("val3")))
	require.NoError(t, t0.Commit())

	t1, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, t1.Set([]byte("key1"), []byte("val1-1")))
	require.NoError(t, t1.Set([]byte("key2"), []byte("val2-1")))
	require.NoError(t, t1.Set([]byte("key3"), []byte("val3-1")))
	require.NoError(t, t1.Rollback())

	t2, err := m.Begin()
	require.NoError(t, err)
	v, ok := mustGet(t, t2, "key1")
	require.True(t, ok)
	require.Equal(t, "val1", v)
	v, ok = mustGet(t, t2, "key2")
	require.True(t, ok)
	require.Equal(t, "val2", v)
	v, ok = mustGet(t, t2, "key3")
	require.True(t, ok)
	require.Equal(t, "val3", v)
	require.NoError(t, t2.Commit())
}

// TestPrefixScanUnderConcurrency mirrors scenario 4 of spec.md §8.
func TestPrefixScanUnderConcurrency(t *testing.T) {
	m := newTestMvcc(t)

	seed, err := m.Begin()
	require.NoError(t, err)
	seedData := map[string]string{
		"aabb": "val1",
		"abcc": "val2",
		"bbaa": "val3",
		"acca": "val4",
		"aaca": "val5",
		"bcca": "val6",
	}
	for k, v := range seedData {
		require.NoError(t, seed.Set([]byte(k), []byte(v)))
	}
	require.NoError(t, seed.Commit())

	t1, err := m.Begin()
	require.NoError(t, err)

	t2, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, t2.Set([]byte("acca"), []byte("val4-1")))
	require.NoError(t, t2.Set([]byte("aabb"), []byte("val1-1")))

	results, err := t1.ScanPrefix([]byte("aa"))
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "aabb", string(results[0].Key))
	require.Equal(t, "val1", string(results[0].Value))
	require.Equal(t, "aaca", string(results[1].Key))
	require.Equal(t, "val5", string(results[1].Value))

	require.NoError(t, t1.Commit())
	require.NoError(t, t2.Rollback())
}

// TestPhantomPrevention mirrors scenario 5 of spec.md §8.
func TestPhantomPrevention(t *testing.T) {
	m := newTestMvcc(t)

	seed, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, seed.Set([]byte("key1"), []byte("v1")))
	require.NoError(t, seed.Set([]byte("key2"), []byte("v2")))
	require.NoError(t, seed.Set([]byte("key3"), []byte("v3")))
	require.NoError(t, seed.Commit())

	t1, err := m.Begin()
	require.NoError(t, err)

	t2, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, t2.Set([]byte("key2"), []byte("v2-1")))
	require.NoError(t, t2.Set([]byte("key4"), []byte("v4")))
	require.NoError(t, t2.Commit())

	results, err := t1.ScanPrefix([]byte("key"))
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "v1", string(results[0].Value))
	require.Equal(t, "v2", string(results[1].Value))
	require.Equal(t, "v3", string(results[2].Value))

	require.NoError(t, t1.Commit())
}

func TestRepeatableRead(t *testing.T) {
	m := newTestMvcc(t)

	seed, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, seed.Set([]byte("k"), []byte("v1")))
	require.NoError(t, seed.Commit())

	t1, err := m.Begin()
	require.NoError(t, err)

	first, ok := mustGet(t, t1, "k")
	require.True(t, ok)
	require.Equal(t, "v1", first)

	other, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, other.Set([]byte("k"), []byte("v2")))
	require.NoError(t, other.Commit())

	second, ok := mustGet(t, t1, "k")
	require.True(t, ok)
	require.Equal(t, "v1", second)
	require.NoError(t, t1.Commit())
}

// TestRollbackAtVersionByteBoundary drives the version counter up to 255,
// whose low byte is 0xFF: the TxnWrite prefix for that version ends in an
// 0xFF byte rather than a terminator, the case a naive last-byte-increment
// exclusive bound gets wrong. Rollback must still delete every Version
// record the transaction wrote.
func TestRollbackAtVersionByteBoundary(t *testing.T) {
	m := newTestMvcc(t)

	for v := Version(1); v < 255; v++ {
		txn, err := m.Begin()
		require.NoError(t, err)
		require.NoError(t, txn.Commit())
	}

	boundary, err := m.Begin()
	require.NoError(t, err)
	require.Equal(t, Version(255), boundary.Version())
	require.NoError(t, boundary.Set([]byte("k"), []byte("v")))
	require.NoError(t, boundary.Rollback())

	reader, err := m.Begin()
	require.NoError(t, err)
	_, ok := mustGet(t, reader, "k")
	require.False(t, ok)
	require.NoError(t, reader.Commit())
}
