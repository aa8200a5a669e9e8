package repository

import (
	"time"

	"github.com/trubax/trubax-core/internal/domain"
	"github.com/trubax/trubax-core/internal/store"
)

// Records keep timestamps as RFC3339Nano strings so field equality behaves
// identically across store backends.

func encodeTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func decodeTime(rec store.Record, field string) (time.Time, error) {
	raw, ok := rec[field].(string)
	if !ok {
		return time.Time{}, domain.Validationf("field %s missing or not a timestamp", field)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, domain.Validationf("field %s: %v", field, err)
	}
	return t, nil
}

// decodeOptionalTime treats a missing field or an empty string (a cleared
// value; merges cannot remove fields) as unset.
func decodeOptionalTime(rec store.Record, field string) (*time.Time, error) {
	raw, ok := rec[field]
	if !ok || raw == "" {
		return nil, nil
	}
	t, err := decodeTime(rec, field)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func decodeString(rec store.Record, field string) string {
	s, _ := rec[field].(string)
	return s
}

func decodeBool(rec store.Record, field string) bool {
	b, _ := rec[field].(bool)
	return b
}

func accountToRecord(a domain.Account) store.Record {
	return store.Record{
		"is_anonymous": a.IsAnonymous,
		"account_type": string(a.AccountType),
		"created_at":   encodeTime(a.CreatedAt),
	}
}

func recordToAccount(id string, rec store.Record) (domain.Account, error) {
	createdAt, err := decodeTime(rec, "created_at")
	if err != nil {
		return domain.Account{}, err
	}
	return domain.Account{
		ID:          id,
		IsAnonymous: decodeBool(rec, "is_anonymous"),
		AccountType: domain.AccountType(decodeString(rec, "account_type")),
		CreatedAt:   createdAt,
	}, nil
}

func recordToRequest(targetID, requesterID string, rec store.Record) (domain.FollowRequest, error) {
	createdAt, err := decodeTime(rec, "created_at")
	if err != nil {
		return domain.FollowRequest{}, err
	}
	resolvedAt, err := decodeOptionalTime(rec, "resolved_at")
	if err != nil {
		return domain.FollowRequest{}, err
	}
	return domain.FollowRequest{
		RequesterID: requesterID,
		TargetID:    targetID,
		Status:      domain.FollowRequestStatus(decodeString(rec, "status")),
		CreatedAt:   createdAt,
		ResolvedAt:  resolvedAt,
	}, nil
}

func recordToState(viewerID, subjectID string, rec store.Record) (domain.FollowState, error) {
	updatedAt, err := decodeTime(rec, "updated_at")
	if err != nil {
		return domain.FollowState{}, err
	}
	return domain.FollowState{
		ViewerID:    viewerID,
		SubjectID:   subjectID,
		Status:      domain.FollowRequestStatus(decodeString(rec, "status")),
		IsFollowing: decodeBool(rec, "is_following"),
		UpdatedAt:   updatedAt,
	}, nil
}

func sessionToRecord(s domain.Session) store.Record {
	rec := store.Record{
		"owner_id":       s.OwnerID,
		"session_id":     s.SessionID,
		"platform":       s.Device.Platform,
		"browser":        s.Device.Browser,
		"os":             s.Device.OS,
		"created_at":     encodeTime(s.CreatedAt),
		"last_active_at": encodeTime(s.LastActiveAt),
		"is_active":      s.IsActive,
	}
	if s.TerminatedAt != nil {
		rec["terminated_at"] = encodeTime(*s.TerminatedAt)
	}
	return rec
}

func recordToSession(rec store.Record) (domain.Session, error) {
	createdAt, err := decodeTime(rec, "created_at")
	if err != nil {
		return domain.Session{}, err
	}
	lastActiveAt, err := decodeTime(rec, "last_active_at")
	if err != nil {
		return domain.Session{}, err
	}
	terminatedAt, err := decodeOptionalTime(rec, "terminated_at")
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{
		SessionID: decodeString(rec, "session_id"),
		OwnerID:   decodeString(rec, "owner_id"),
		Device: domain.DeviceInfo{
			Platform: decodeString(rec, "platform"),
			Browser:  decodeString(rec, "browser"),
			OS:       decodeString(rec, "os"),
		},
		CreatedAt:    createdAt,
		LastActiveAt: lastActiveAt,
		IsActive:     decodeBool(rec, "is_active"),
		TerminatedAt: terminatedAt,
	}, nil
}

func accessToRecord(g domain.AccessGrant) store.Record {
	return store.Record{
		"owner_id":   g.OwnerID,
		"access_id":  g.AccessID,
		"platform":   g.Device.Platform,
		"browser":    g.Device.Browser,
		"os":         g.Device.OS,
		"timestamp":  encodeTime(g.Timestamp),
		"expires_at": encodeTime(g.ExpiresAt),
	}
}

func recordToAccess(rec store.Record) (domain.AccessGrant, error) {
	timestamp, err := decodeTime(rec, "timestamp")
	if err != nil {
		return domain.AccessGrant{}, err
	}
	expiresAt, err := decodeTime(rec, "expires_at")
	if err != nil {
		return domain.AccessGrant{}, err
	}
	return domain.AccessGrant{
		AccessID: decodeString(rec, "access_id"),
		OwnerID:  decodeString(rec, "owner_id"),
		Device: domain.DeviceInfo{
			Platform: decodeString(rec, "platform"),
			Browser:  decodeString(rec, "browser"),
			OS:       decodeString(rec, "os"),
		},
		Timestamp: timestamp,
		ExpiresAt: expiresAt,
	}, nil
}
