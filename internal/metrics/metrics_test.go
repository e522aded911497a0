// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistryRecordsLatency(t *testing.T) {
	r := NewRegistry()

	for i := 0; i < 100; i++ {
		r.RecordWrite(time.Duration(i+1) * time.Microsecond)
	}

	p50 := r.WriteLatencyPercentile(50)
	require.Greater(t, p50, int64(0))
	require.Len(t, r.WriteLatencySamples(), 100)
}

func TestRegistryCounters(t *testing.T) {
	r := NewRegistry()
	r.RecordCommit()
	r.RecordCommit()
	r.RecordConflict()

	require.Len(t, r.Collectors(), 4)
}

// TestRegistryConcurrentRecording drives many goroutines against the same
// Registry simultaneously, the shape of usage cmd/raydb's bench subcommand
// exercises against a shared Registry. Run with -race to confirm the
// histograms are actually guarded.
func TestRegistryConcurrentRecording(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				r.RecordWrite(time.Duration(i+1) * time.Microsecond)
				r.RecordGet(time.Duration(i+1) * time.Microsecond)
				_ = r.WriteLatencyPercentile(99)
				_ = r.WriteLatencySamples()
			}
		}()
	}
	wg.Wait()

	require.Len(t, r.WriteLatencySamples(), 400)
}
