package domain

import "time"

type AccountType string

const (
	AccountTypePublic  AccountType = "public"
	AccountTypePrivate AccountType = "private"
)

type Account struct {
	ID          string      `json:"id"`
	IsAnonymous bool        `json:"is_anonymous"`
	AccountType AccountType `json:"account_type"`
	CreatedAt   time.Time   `json:"created_at"`
}

// SessionTTL returns the inactivity window after which this account's
// sessions are eligible for the cleanup sweep.
func (a Account) SessionTTL() time.Duration {
	if a.IsAnonymous {
		return AnonymousSessionTTL
	}
	return PersistentSessionTTL
}
