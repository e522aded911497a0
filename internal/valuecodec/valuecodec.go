// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package valuecodec frames the byte string an MVCC transaction hands to
// the storage engine as a value. spec.md leaves this encoding entirely up
// to the implementation (only the on-disk record header is bit-exact); we
// use the freedom to add an integrity checksum and optional compression.
package valuecodec

import (
	"encoding/binary"

	"github.com/DataDog/zstd"
	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/s2"
)

// Kind identifies the compression codec applied to a payload, or none.
type Kind uint8

const (
	// KindNone stores the payload verbatim.
	KindNone Kind = iota
	// KindSnappy compresses with github.com/golang/snappy.
	KindSnappy
	// KindS2 compresses with klauspost/compress/s2, snappy's faster,
	// larger-block-size-tolerant successor.
	KindS2
	// KindZstd compresses with DataDog/zstd, trading encode speed for a
	// materially better ratio on compressible payloads.
	KindZstd
)

// ErrCorrupt marks a payload whose stored checksum does not match its
// contents: on-disk bit rot, or a short write that readValue (in package
// storage) happened to read back in full.
var ErrCorrupt = errors.New("valuecodec: checksum mismatch")

const headerSize = 1 + 8 // kind byte + xxhash64 checksum

// Encode frames payload under the given compression kind, prefixed with a
// one-byte kind tag and an 8-byte big-endian xxhash64 checksum of the
// *uncompressed* payload.
func Encode(kind Kind, payload []byte) ([]byte, error) {
	var compressed []byte
	switch kind {
	case KindNone:
		compressed = payload
	case KindSnappy:
		compressed = snappy.Encode(nil, payload)
	case KindS2:
		compressed = s2.Encode(nil, payload)
	case KindZstd:
		var err error
		compressed, err = zstd.Compress(nil, payload)
		if err != nil {
			return nil, errors.Wrap(err, "valuecodec: zstd compress")
		}
	default:
		return nil, errors.Newf("valuecodec: unknown kind %d", kind)
	}

	sum := xxhash.Sum64(payload)
	out := make([]byte, 0, headerSize+len(compressed))
	out = append(out, byte(kind))
	var sumBuf [8]byte
	binary.BigEndian.PutUint64(sumBuf[:], sum)
	out = append(out, sumBuf[:]...)
	out = append(out, compressed...)
	return out, nil
}

// Decode reverses Encode, verifying the checksum against the decompressed
// payload before returning it.
func Decode(framed []byte) ([]byte, error) {
	if len(framed) < headerSize {
		return nil, errors.Wrap(ErrCorrupt, "valuecodec: truncated header")
	}
	kind := Kind(framed[0])
	wantSum := binary.BigEndian.Uint64(framed[1:headerSize])
	compressed := framed[headerSize:]

	var payload []byte
	switch kind {
	case KindNone:
		payload = compressed
	case KindSnappy:
		decoded, err := snappy.Decode(nil, compressed)
		if err != nil {
			return nil, errors.Wrap(err, "valuecodec: snappy decompress")
		}
		payload = decoded
	case KindS2:
		decoded, err := s2.Decode(nil, compressed)
		if err != nil {
			return nil, errors.Wrap(err, "valuecodec: s2 decompress")
		}
		payload = decoded
	case KindZstd:
		decoded, err := zstd.Decompress(nil, compressed)
		if err != nil {
			return nil, errors.Wrap(err, "valuecodec: zstd decompress")
		}
		payload = decoded
	default:
		return nil, errors.Newf("valuecodec: unknown kind %d", kind)
	}

	if xxhash.Sum64(payload) != wantSum {
		return nil, ErrCorrupt
	}
	return payload, nil
}
