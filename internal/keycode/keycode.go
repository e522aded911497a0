// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package keycode implements an order-preserving encoding for composite
// keys: the byte-lexicographic order of an encoded key matches the
// logical order of the typed values it was built from.
//
// A generic binary serializer (gob, bincode, protobuf) cannot be used here
// because none of them guarantee that byte order tracks value order for
// variable-length fields. keycode fixes that by escaping every 0x00 byte
// in a byte-string field as 0x00 0xFF and terminating the field with
// 0x00 0x00 — the only two-byte sequence that can never occur inside an
// escaped payload. That makes a truncated encoding a valid scan prefix,
// which is the whole point: see TruncateTerminator.
package keycode

import "github.com/cockroachdb/errors"

// ErrMalformed is returned when a byte stream cannot be decoded as a
// keycode value: a truncated terminator, an odd escape, or not enough
// bytes for a fixed-width field.
var ErrMalformed = errors.New("keycode: malformed input")

// AppendUint8 appends a single-byte tag (e.g. an enum variant index) to
// dst and returns the extended slice. Tags distinguish variants of a
// schema with up to 256 members.
func AppendUint8(dst []byte, v uint8) []byte {
	return append(dst, v)
}

// AppendUint64 appends the big-endian encoding of v. Big-endian byte
// order is numerically monotonic, so this preserves ordering on v.
func AppendUint64(dst []byte, v uint64) []byte {
	return append(dst,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// AppendBytes appends the escape-terminated encoding of v: every 0x00
// byte becomes 0x00 0xFF, and the field ends with 0x00 0x00. This is the
// only variable-length encoding used by the core; it is what makes
// prefix scans and range scans correct for arbitrary byte payloads.
func AppendBytes(dst []byte, v []byte) []byte {
	for _, b := range v {
		if b == 0x00 {
			dst = append(dst, 0x00, 0xff)
		} else {
			dst = append(dst, b)
		}
	}
	return append(dst, 0x00, 0x00)
}

// DecodeUint8 consumes a single tag byte from src.
func DecodeUint8(src []byte) (v uint8, rest []byte, err error) {
	if len(src) < 1 {
		return 0, nil, errors.Wrap(ErrMalformed, "truncated tag")
	}
	return src[0], src[1:], nil
}

// DecodeUint64 consumes 8 big-endian bytes from src.
func DecodeUint64(src []byte) (v uint64, rest []byte, err error) {
	if len(src) < 8 {
		return 0, nil, errors.Wrap(ErrMalformed, "truncated uint64")
	}
	v = uint64(src[0])<<56 | uint64(src[1])<<48 | uint64(src[2])<<40 | uint64(src[3])<<32 |
		uint64(src[4])<<24 | uint64(src[5])<<16 | uint64(src[6])<<8 | uint64(src[7])
	return v, src[8:], nil
}

// DecodeBytes consumes an escape-terminated byte-string field from src,
// un-escaping 0x00 0xFF pairs back to a single 0x00 and stopping at the
// first unescaped 0x00 0x00 terminator.
func DecodeBytes(src []byte) (v []byte, rest []byte, err error) {
	out := make([]byte, 0, len(src))
	i := 0
	for {
		if i >= len(src) {
			return nil, nil, errors.Wrap(ErrMalformed, "missing terminator")
		}
		b := src[i]
		if b != 0x00 {
			out = append(out, b)
			i++
			continue
		}
		// b == 0x00: must be followed by an escape or terminator byte.
		if i+1 >= len(src) {
			return nil, nil, errors.Wrap(ErrMalformed, "truncated escape")
		}
		switch src[i+1] {
		case 0x00:
			return out, src[i+2:], nil
		case 0xff:
			out = append(out, 0x00)
			i += 2
		default:
			return nil, nil, errors.Wrapf(ErrMalformed, "unexpected escape byte 0x%02x", src[i+1])
		}
	}
}

// TruncateTerminator strips the trailing 0x00 0x00 terminator from an
// escape-terminated byte-string encoding, producing the byte prefix that
// matches every encoding of a value beginning with the un-truncated
// value. Passing the result of encoding a composite whose last field is
// a byte string yields a valid range-scan prefix (see package mvcc's
// prefix-scan use of this).
//
// The prefix is only well-formed for inputs whose last byte, prior to
// the terminator, is not itself part of an incomplete escape — callers
// must pass prefixes produced by AppendBytes (or a composite ending in
// one), never arbitrary truncations.
func TruncateTerminator(encoded []byte) []byte {
	if len(encoded) < 2 {
		return encoded
	}
	return encoded[:len(encoded)-2]
}
