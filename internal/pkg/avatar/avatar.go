// Package avatar builds Gravatar image URLs for user accounts.
package avatar

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const defaultSize = 80

// URL returns the Gravatar URL for email. Accounts without a Gravatar get
// the "mystery person" image. OAuth placeholder addresses never match one.
func URL(email string, size int) string {
	if size <= 0 {
		size = defaultSize
	}
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?s=%d&d=mp", hex.EncodeToString(sum[:]), size)
}
