// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build !linux

package storage

import "os"

// fdatasync falls back to a full fsync on platforms without a distinct
// data-only sync syscall exposed by golang.org/x/sys/unix.
func fdatasync(f *os.File) error {
	return f.Sync()
}
