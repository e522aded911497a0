// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package storage

import (
	"context"

	"github.com/cockroachdb/tokenbucket"
)

// NewCompactionLimiter returns a token bucket configured to admit
// ratePerSec bytes per second of compaction I/O, with a burst of one
// second's worth of throughput. A zero or negative rate disables
// throttling (returns nil, which Compact treats as unthrottled).
func NewCompactionLimiter(ratePerSec int64) *tokenbucket.TokenBucket {
	if ratePerSec <= 0 {
		return nil
	}
	var tb tokenbucket.TokenBucket
	tb.Init(tokenbucket.TokensPerSecond(ratePerSec), tokenbucket.Tokens(ratePerSec))
	return &tb
}

// waitForTokens blocks until the limiter has n tokens available for a
// single compaction write.
func waitForTokens(tb *tokenbucket.TokenBucket, n int64) error {
	return tb.Wait(context.Background(), tokenbucket.Tokens(n))
}
