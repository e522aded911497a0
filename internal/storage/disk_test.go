// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiskEngineDurableAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.log")

	e, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, e.Set([]byte("a"), []byte("1")))
	require.NoError(t, e.Set([]byte("b"), []byte("2")))
	require.NoError(t, e.Set([]byte("a"), []byte("3")))
	require.NoError(t, e.Delete([]byte("b")))
	require.NoError(t, e.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("3"), v)

	_, ok, err = reopened.Get([]byte("b"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDiskEngineLockExcludesSecondOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.log")

	e, err := Open(path, nil)
	require.NoError(t, err)
	defer e.Close()

	_, err = Open(path, nil)
	require.Error(t, err)
}

func TestDiskEngineCompactPreservesSemantics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.log")

	e, err := Open(path, nil)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Set([]byte("a"), []byte("1")))
	require.NoError(t, e.Set([]byte("a"), []byte("2")))
	require.NoError(t, e.Set([]byte("b"), []byte("x")))
	require.NoError(t, e.Delete([]byte("b")))
	require.NoError(t, e.Set([]byte("c"), []byte("3")))

	require.NoError(t, e.Compact(nil))

	v, ok, err := e.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("2"), v)

	_, ok, err = e.Get([]byte("b"))
	require.NoError(t, err)
	require.False(t, ok)

	v, ok, err = e.Get([]byte("c"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("3"), v)

	got := drain(t, e.Scan(Range{}))
	require.Len(t, got, 2)
	require.Equal(t, "a", string(got[0].Key))
	require.Equal(t, "c", string(got[1].Key))
}

func TestDiskEngineCompactThenReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.log")

	e, err := Open(path, nil)
	require.NoError(t, err)

	require.NoError(t, e.Set([]byte("a"), []byte("1")))
	require.NoError(t, e.Set([]byte("a"), []byte("2")))
	require.NoError(t, e.Compact(nil))
	require.NoError(t, e.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("2"), v)
}

func TestCompactionLimiterDisabledForNonPositiveRate(t *testing.T) {
	require.Nil(t, NewCompactionLimiter(0))
	require.Nil(t, NewCompactionLimiter(-1))
	require.NotNil(t, NewCompactionLimiter(1024))
}
