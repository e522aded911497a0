// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Command raydb inspects and exercises a raydb database file from a
// terminal: point gets/sets, prefix scans, manual compaction, and a
// concurrent write-latency benchmark.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "raydb",
		Short: "Inspect and exercise a raydb database file",
	}
	root.PersistentFlags().String("db", "raydb.log", "path to the database log file")

	root.AddCommand(newGetCmd())
	root.AddCommand(newSetCmd())
	root.AddCommand(newDeleteCmd())
	root.AddCommand(newScanCmd())
	root.AddCommand(newCompactCmd())
	root.AddCommand(newBenchCmd())
	return root
}
