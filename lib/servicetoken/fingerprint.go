// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package servicetoken

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// fingerprintKey is the BLAKE3 key for token fingerprints: the ASCII
// domain name zero-padded to 32 bytes. Changing it changes every
// fingerprint already written to logs.
var fingerprintKey = [32]byte{
	'm', 'e', 'r', 'i', 'd', 'i', 'a', 'n', '.', 't', 'o', 'k', 'e', 'n', '.',
	'f', 'i', 'n', 'g', 'e', 'r', 'p', 'r', 'i', 'n', 't', 0, 0, 0, 0, 0, 0,
}

// Fingerprint returns a short, stable, non-reversible identifier for
// token: the first 8 bytes of its keyed BLAKE3 hash, hex encoded. Logs
// carry the fingerprint, never the token.
func Fingerprint(token string) string {
	hasher, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		panic("servicetoken: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.WriteString(token)
	sum := hasher.Sum(nil)
	return hex.EncodeToString(sum[:8])
}
