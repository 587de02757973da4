package slug

import (
	"crypto/rand"
	"fmt"
)

const randomAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// RandomSuffix returns length random characters from [a-z0-9].
func RandomSuffix(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid suffix length: %d", length)
	}

	// 252 is the largest multiple of 36 below 256; bytes above it are rejected.
	const maxRandomByte = 252

	out := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0

	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			out[written] = randomAlphabet[int(b)%len(randomAlphabet)]
			written++
			if written == length {
				break
			}
		}
	}

	return string(out), nil
}
