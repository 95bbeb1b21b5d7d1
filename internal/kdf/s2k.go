package kdf

import "crypto/sha256"

const (
	// DefaultS2KCount is the number of bytes hashed by the S2K algorithm
	// (gpg --s2k-count 65536).
	DefaultS2KCount = 65536
	S2KSaltSize     = 8
)

// S2KKey computes the iterated and salted string-to-key function of RFC 4880
// section 3.7.1.3 with SHA-256: salt||secret is repeated until exactly count
// bytes have been hashed. The input is hashed at least once.
func S2KKey(secret, salt []byte, count int) []byte {
	combined := make([]byte, 0, len(salt)+len(secret))
	combined = append(combined, salt...)
	combined = append(combined, secret...)
	defer wipe(combined)

	h := sha256.New()
	defer h.Reset()

	n := len(combined)
	if n == 0 {
		return h.Sum(nil)
	}
	if count < n {
		count = n
	}
	for count > n {
		h.Write(combined)
		count -= n
	}
	h.Write(combined[:count])

	return h.Sum(nil)
}
