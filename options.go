// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package raydb

import (
	"go.uber.org/zap"

	"github.com/Rayka-RJ/raydb/internal/metrics"
	"github.com/Rayka-RJ/raydb/internal/valuecodec"
)

// CompressionKind selects the codec applied to stored values. It mirrors
// valuecodec.Kind one-for-one; the indirection keeps that internal package
// out of the public API.
type CompressionKind uint8

const (
	// NoCompression stores values verbatim.
	NoCompression CompressionKind = iota
	// Snappy compresses values with github.com/golang/snappy.
	Snappy
	// S2 compresses values with klauspost/compress/s2.
	S2
	// Zstd compresses values with DataDog/zstd.
	Zstd
)

func (k CompressionKind) valuecodecKind() valuecodec.Kind {
	switch k {
	case Snappy:
		return valuecodec.KindSnappy
	case S2:
		return valuecodec.KindS2
	case Zstd:
		return valuecodec.KindZstd
	default:
		return valuecodec.KindNone
	}
}

// Options configures a DB. The zero value is valid; EnsureDefaults fills
// in every unset field, the same pattern the teacher uses for its own
// *Options.
type Options struct {
	// Logger receives structural log lines for open, compaction, and
	// lock contention. Defaults to a no-op logger.
	Logger *zap.Logger
	// ValueCompression selects the codec applied to every value this DB
	// writes through package valuecodec.
	ValueCompression CompressionKind
	// CompactionRateBytesPerSec throttles Compact's I/O. Zero disables
	// throttling.
	CompactionRateBytesPerSec int64
	// Metrics receives counters and latency histograms for every
	// transaction and engine operation. Defaults to a fresh registry.
	Metrics *metrics.Registry
}

// EnsureDefaults returns o with every unset field filled in, allocating a
// new Options if o is nil. Safe to call on a zero-value *Options.
func (o *Options) EnsureDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.NewRegistry()
	}
	return o
}
