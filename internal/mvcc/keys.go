// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package mvcc

import (
	"github.com/cockroachdb/errors"

	"github.com/Rayka-RJ/raydb/internal/keycode"
)

// Physical key variant tags, matching spec.md §6's bit-exact layout:
//
//	NextVersion      -> [0x00]
//	TxnActive(v)     -> [0x01] ++ be8(v)
//	TxnWrite(v, k)   -> [0x02] ++ be8(v) ++ escape(k) ++ [0x00,0x00]
//	Version(k, v)    -> [0x03] ++ escape(k) ++ [0x00,0x00] ++ be8(v)
const (
	nextVersionTag uint8 = 0x00
	txnActiveTag   uint8 = 0x01
	txnWriteTag    uint8 = 0x02
	versionTag     uint8 = 0x03
)

func encodeNextVersion() []byte {
	return keycode.AppendUint8(nil, nextVersionTag)
}

func encodeVersionCounter(v Version) []byte {
	return keycode.AppendUint64(nil, v)
}

func readNextVersion(getter interface {
	Get(key []byte) ([]byte, bool, error)
}) (Version, error) {
	raw, ok, err := getter.Get(encodeNextVersion())
	if err != nil {
		return 0, errors.Wrap(ErrInternal, err.Error())
	}
	if !ok {
		return 1, nil
	}
	v, _, err := keycode.DecodeUint64(raw)
	if err != nil {
		return 0, errors.Wrap(ErrInternal, err.Error())
	}
	return v, nil
}

func encodeTxnActive(v Version) []byte {
	dst := keycode.AppendUint8(nil, txnActiveTag)
	return keycode.AppendUint64(dst, v)
}

func txnActivePrefix() []byte {
	return keycode.AppendUint8(nil, txnActiveTag)
}

func decodeTxnActive(key []byte) (Version, error) {
	tag, rest, err := keycode.DecodeUint8(key)
	if err != nil {
		return 0, err
	}
	if tag != txnActiveTag {
		return 0, errors.Newf("mvcc: expected TxnActive key, got tag 0x%02x", tag)
	}
	v, _, err := keycode.DecodeUint64(rest)
	return v, err
}

func encodeTxnWrite(v Version, key []byte) []byte {
	dst := keycode.AppendUint8(nil, txnWriteTag)
	dst = keycode.AppendUint64(dst, v)
	return keycode.AppendBytes(dst, key)
}

// txnWritePrefix returns the exact, fixed-length prefix shared by every
// TxnWrite(v, *) key for version v: the tag byte plus v's 8 big-endian
// bytes, stopping before the variable-length logical-key field.
func txnWritePrefix(v Version) []byte {
	dst := keycode.AppendUint8(nil, txnWriteTag)
	return keycode.AppendUint64(dst, v)
}

func decodeTxnWrite(encoded []byte) (Version, []byte, error) {
	tag, rest, err := keycode.DecodeUint8(encoded)
	if err != nil {
		return 0, nil, err
	}
	if tag != txnWriteTag {
		return 0, nil, errors.Newf("mvcc: expected TxnWrite key, got tag 0x%02x", tag)
	}
	v, rest, err := keycode.DecodeUint64(rest)
	if err != nil {
		return 0, nil, err
	}
	key, _, err := keycode.DecodeBytes(rest)
	if err != nil {
		return 0, nil, err
	}
	return v, key, nil
}

// encodeVersionKeyPrefix returns the exact, fixed-length byte string
// shared by every Version(key, *) physical key: the tag byte plus key's
// escape-terminated encoding. Every version of key is encodeVersionKeyPrefix
// followed by exactly 8 more (big-endian version) bytes, so the prefix's
// own ordering already matches §3's stated order invariant.
func encodeVersionKeyPrefix(key []byte) []byte {
	dst := keycode.AppendUint8(nil, versionTag)
	return keycode.AppendBytes(dst, key)
}

func encodeVersionKey(key []byte, v Version) []byte {
	return keycode.AppendUint64(encodeVersionKeyPrefix(key), v)
}

func decodeVersionKey(encoded []byte) (key []byte, v Version, err error) {
	tag, rest, err := keycode.DecodeUint8(encoded)
	if err != nil {
		return nil, 0, err
	}
	if tag != versionTag {
		return nil, 0, errors.Newf("mvcc: expected Version key, got tag 0x%02x", tag)
	}
	key, rest, err = keycode.DecodeBytes(rest)
	if err != nil {
		return nil, 0, err
	}
	v, _, err = keycode.DecodeUint64(rest)
	if err != nil {
		return nil, 0, err
	}
	return key, v, nil
}

// scanPrefixKey returns the byte prefix matching every Version(k, _) with
// k starting with prefix: the encoding of Version(prefix) with its
// trailing 0x00,0x00 terminator truncated, per spec.md §3's prefix
// derivation rule.
func scanPrefixKey(prefix []byte) []byte {
	dst := keycode.AppendUint8(nil, versionTag)
	dst = keycode.AppendBytes(dst, prefix)
	return keycode.TruncateTerminator(dst)
}

// prefixEnd returns the exclusive upper bound for a scan over every key
// sharing prefix exactly: prefix with its last byte incremented. Only
// valid when prefix's last byte is below 0xFF, which holds for every
// prefix this package passes to it: a 0x01 tag byte (txnActivePrefix) or
// a 0x00 terminator byte (encodeVersionKeyPrefix). It must never be used
// on a prefix ending in a fixed-width integer field such as
// txnWritePrefix's version bytes — those can legitimately end in 0xFF
// and wrap without carry, producing an upper bound below the start; use
// the next integer value's own prefix as the exclusive bound instead
// (see collectTxnWriteKeys).
func prefixEnd(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	end := make([]byte, len(prefix))
	copy(end, prefix)
	end[len(end)-1]++
	return end
}
