package domain

import "time"

// DeviceInfo is supplied opaquely by the calling layer.
type DeviceInfo struct {
	Platform string `json:"platform"`
	Browser  string `json:"browser"`
	OS       string `json:"os"`
}

// Session is a logged-in device context. Sessions are never deleted; they
// are terminated (isActive true -> false, terminal) and retained as an audit
// trail.
type Session struct {
	SessionID    string     `json:"session_id"`
	OwnerID      string     `json:"owner_id"`
	Device       DeviceInfo `json:"device"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActiveAt time.Time  `json:"last_active_at"`
	IsActive     bool       `json:"is_active"`
	TerminatedAt *time.Time `json:"terminated_at,omitempty"`

	// IsCurrentSession is caller-supplied presentation state, never
	// persisted authoritatively.
	IsCurrentSession bool `json:"is_current_session"`
}
