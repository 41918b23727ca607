package checkin

import (
	"crypto/rand"
	"fmt"
)

// codeAlphabet is the character set for generated check-in codes. Uppercase
// only: submitted codes are compared case-insensitively.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// DefaultCodeLength is used when no length is configured.
const DefaultCodeLength = 6

// GenerateCode returns a random short code of n characters for a check-in
// session. Codes are not checked for uniqueness against live sessions; a
// collision between two concurrently open sessions is possible but harmless
// because verification is always scoped to one classroom's latest session.
func GenerateCode(n int) (string, error) {
	if n <= 0 {
		n = DefaultCodeLength
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
