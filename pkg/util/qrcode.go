package util

import (
	"crypto/subtle"
	"strings"

	"github.com/google/uuid"
)

// GenerateQRCode returns a fresh order assignment token. The value is what the
// printed QR code encodes; it is unique per order.
func GenerateQRCode() string {
	return uuid.NewString()
}

// MatchQRCode compares a presented code against the stored one in constant time.
func MatchQRCode(presented, stored string) bool {
	presented = strings.TrimSpace(presented)
	if presented == "" || stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}
