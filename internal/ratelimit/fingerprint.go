package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
)

const fingerprintLen = 24

// Fingerprint derives an opaque client id from the network address and user
// agent. It is one-way and truncated, so distinct clients may collide.
func Fingerprint(salt, ip, userAgent string) string {
	if ip == "" {
		ip = "unknown-ip"
	}
	if userAgent == "" {
		userAgent = "unknown-ua"
	}
	sum := sha256.Sum256([]byte(salt + "|" + ip + "|" + userAgent))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}
