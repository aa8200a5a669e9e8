package domain

import "time"

// AccessGrant records a successful authentication event. Grants are
// read-only after creation until deleted by explicit user action or their
// own expiry.
type AccessGrant struct {
	AccessID  string     `json:"access_id"`
	OwnerID   string     `json:"owner_id"`
	Device    DeviceInfo `json:"device"`
	Timestamp time.Time  `json:"timestamp"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Valid enforces the creation invariant expiresAt > timestamp.
func (g AccessGrant) Valid() error {
	if g.AccessID == "" || g.OwnerID == "" {
		return Validationf("access grant %q for owner %q", g.AccessID, g.OwnerID)
	}
	if !g.ExpiresAt.After(g.Timestamp) {
		return Validationf("access grant %s expires at %s, not after %s", g.AccessID, g.ExpiresAt, g.Timestamp)
	}
	return nil
}
