// Package cuid2 generates prefixed, time-sortable identifiers for stored
// documents (price entries, access requests, accounts).
package cuid2

import (
	crypto_rand "crypto/rand"
	"strings"
	"time"
)

// Base62 alphabet: 0-9, A-Z, a-z (62 characters)
const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	timestampLength = 6
	randomLength    = 18
)

// Prefixes used for stored documents.
const (
	PrefixEntry   = "ent"
	PrefixRequest = "req"
	PrefixAccount = "uid"
	PrefixSession = "ses"
)

// EncodeTimestamp encodes a Unix timestamp (seconds) as a 6-character
// base62 string. Output sorts lexicographically in time order for roughly
// 1800 years from the epoch.
func EncodeTimestamp(timestampSeconds int64) string {
	n := timestampSeconds
	result := make([]byte, timestampLength)
	for i := timestampLength - 1; i >= 0; i-- {
		result[i] = base62Alphabet[n%62]
		n /= 62
	}
	return string(result)
}

// randomString returns length base62 characters drawn from crypto/rand.
// 6-bit values of 62 and 63 are rejected to keep the distribution uniform.
func randomString(length int) string {
	buf := make([]byte, length+length/8+4)

	var sb strings.Builder
	sb.Grow(length)
	for sb.Len() < length {
		if _, err := crypto_rand.Read(buf); err != nil {
			panic("cuid2: failed to read random bytes: " + err.Error())
		}
		for _, b := range buf {
			v := b & 0x3f
			if v < 62 {
				sb.WriteByte(base62Alphabet[v])
				if sb.Len() == length {
					break
				}
			}
		}
	}
	return sb.String()
}

// New returns prefix + "_" + a time-sortable random identifier,
// e.g. "ent_1rK5iqaB3cD5eF7gH9iJ1k".
func New(prefix string) string {
	return NewAt(prefix, time.Now())
}

// NewAt is New with an explicit creation time.
func NewAt(prefix string, at time.Time) string {
	return prefix + "_" + EncodeTimestamp(at.Unix()) + randomString(randomLength)
}

// Random returns prefix + "_" + length random base62 characters without a
// time component.
func Random(prefix string, length int) string {
	if length <= 0 {
		length = 24
	}
	return prefix + "_" + randomString(length)
}
