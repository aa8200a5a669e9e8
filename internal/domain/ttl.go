package domain

import "time"

// Session inactivity TTLs. Every enforcement path (the cleanup sweep and the
// client-facing expiry advisor) must read these constants; a second copy
// anywhere else is a bug.
const (
	AnonymousSessionTTL  = 24 * time.Hour
	PersistentSessionTTL = 7 * 24 * time.Hour
)
