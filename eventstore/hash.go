// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

package eventstore

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
)

// CanonicalizeEvents produces the deterministic byte encoding of an event
// batch that feeds the hash chain. Encoding is, per event in
// order: version (8-byte big-endian), event-type length-prefixed, payload
// length-prefixed, UTC RFC 3339 timestamp with a fixed nine-digit fraction
// length-prefixed, then metadata keys sorted ascending with
// length-prefixed key/value pairs.
func CanonicalizeEvents(events []Event) []byte {
	var out []byte
	for _, e := range events {
		out = append(out, canonicalizeEvent(e)...)
	}
	return out
}

func canonicalizeEvent(e Event) []byte {
	var out []byte

	var versionBuf [8]byte
	binary.BigEndian.PutUint64(versionBuf[:], uint64(e.EventVersion))
	out = append(out, versionBuf[:]...)

	out = appendLengthPrefixed(out, []byte(e.EventType))
	out = appendLengthPrefixed(out, e.Payload)
	out = appendLengthPrefixed(out, []byte(e.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")))

	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = appendLengthPrefixed(out, []byte(k))
		out = appendLengthPrefixed(out, []byte(e.Metadata[k]))
	}

	return out
}

func appendLengthPrefixed(out []byte, data []byte) []byte {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(data)))
	out = append(out, lenBuf[:]...)
	return append(out, data...)
}

// NextHash computes H(previousHash || canonical_bytes(events)), the commit
// protocol's step 5. previousHash participates in the digest even when it
// is the wildcard sentinel, so that a bootstrap commit still produces a
// real, chainable hash for the next commit to build on.
func NextHash(previousHash string, events []Event) string {
	h := sha256.New()
	h.Write([]byte(previousHash))
	h.Write(CanonicalizeEvents(events))
	return encodeHex(h.Sum(nil))
}

func encodeHex(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexdigits[v>>4]
		out[i*2+1] = hexdigits[v&0x0f]
	}
	return string(out)
}

// HashChainMatches implements the wildcard-aware comparison of the commit
// protocol's step 3: the wildcard sentinel on either side short-circuits
// the check to success.
func HashChainMatches(storedLast, expected string) bool {
	if storedLast == WildcardHash || expected == WildcardHash {
		return true
	}
	return storedLast == expected
}
