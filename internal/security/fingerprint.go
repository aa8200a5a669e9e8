package security

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/trubax/trubax-core/internal/domain"
)

// NewID returns an opaque identifier for sessions and access grants.
func NewID() string {
	return uuid.NewString()
}

// DeviceFingerprint derives a stable identifier from normalized device
// info. Two logins from the same platform/browser/os combination share a
// fingerprint; it is advisory grouping data, not an authentication factor.
func DeviceFingerprint(d domain.DeviceInfo) string {
	normalized := strings.ToLower(strings.TrimSpace(d.Platform)) + "|" +
		strings.ToLower(strings.TrimSpace(d.Browser)) + "|" +
		strings.ToLower(strings.TrimSpace(d.OS))
	sum := sha3.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}
