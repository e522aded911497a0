// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"fmt"
	"strconv"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Rayka-RJ/raydb"
	"github.com/Rayka-RJ/raydb/internal/metrics"
)

func newBenchCmd() *cobra.Command {
	var workers int
	var opsPerWorker int

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "run a concurrent write-latency benchmark and plot it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := dbPath(cmd)
			if err != nil {
				return err
			}
			reg := metrics.NewRegistry()
			db, err := raydb.Open(path, &raydb.Options{Metrics: reg})
			if err != nil {
				return err
			}
			defer db.Close()

			if err := runBench(db, workers, opsPerWorker); err != nil {
				return err
			}

			samples := reg.WriteLatencySamples()
			if len(samples) > 0 {
				plot := asciigraph.Plot(samples, asciigraph.Height(12), asciigraph.Caption("write latency (us)"))
				fmt.Fprintln(cmd.OutOrStdout(), plot)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "p50=%dus p99=%dus\n",
				reg.WriteLatencyPercentile(50), reg.WriteLatencyPercentile(99))
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent writer goroutines")
	cmd.Flags().IntVar(&opsPerWorker, "ops", 256, "writes per worker")
	return cmd
}

// runBench drives workers concurrent goroutines, each performing
// opsPerWorker independent set-then-commit transactions. A failed Set
// rolls its transaction back and ends the run with that error; there is
// no retry, and workers write disjoint key spaces, so
// raydb.ErrWriteConflict cannot occur here.
func runBench(db *raydb.DB, workers, opsPerWorker int) error {
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			for i := 0; i < opsPerWorker; i++ {
				key := []byte("bench/" + strconv.Itoa(w) + "/" + strconv.Itoa(i))
				txn, err := db.Begin()
				if err != nil {
					return err
				}
				if err := txn.Set(key, key); err != nil {
					_ = txn.Rollback()
					return err
				}
				if err := txn.Commit(); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
