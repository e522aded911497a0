// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build linux

package storage

import (
	"os"

	"golang.org/x/sys/unix"
)

// fdatasync flushes f's data (and only as much metadata as is needed to
// retrieve that data) to stable storage. Fdatasync skips the inode
// timestamp update fsync forces, which matters on the hot write path of
// an append-only log.
func fdatasync(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}
