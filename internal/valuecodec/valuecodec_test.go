// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package valuecodec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payloads := [][]byte{
		nil,
		[]byte(""),
		[]byte("hello"),
		[]byte("the quick brown fox jumps over the lazy dog, repeatedly, to build up enough redundancy for compression to matter, the quick brown fox jumps over the lazy dog"),
	}
	kinds := []Kind{KindNone, KindSnappy, KindS2, KindZstd}

	for _, kind := range kinds {
		for _, payload := range payloads {
			framed, err := Encode(kind, payload)
			require.NoError(t, err)

			got, err := Decode(framed)
			require.NoError(t, err)
			if len(payload) == 0 {
				require.Empty(t, got)
			} else {
				require.Equal(t, payload, got)
			}
		}
	}
}

func TestDecodeDetectsCorruption(t *testing.T) {
	framed, err := Encode(KindNone, []byte("original"))
	require.NoError(t, err)

	corrupted := append([]byte(nil), framed...)
	corrupted[len(corrupted)-1] ^= 0xFF

	_, err = Decode(corrupted)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestDecodeRejectsTruncatedHeader(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x01, 0x02})
	require.Error(t, err)
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	framed, err := Encode(KindNone, []byte("x"))
	require.NoError(t, err)
	framed[0] = 0xFF

	_, err = Decode(framed)
	require.Error(t, err)
}
