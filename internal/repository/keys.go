package repository

import (
	"strings"

	"github.com/trubax/trubax-core/internal/domain"
)

// Key scheme. Identifiers never contain ':'; ValidateID guards that so
// prefix scans stay unambiguous.
//
//	account:<id>
//	edge:following:<a>:<b>   a follows b
//	edge:followers:<b>:<a>   mirror of the same edge
//	freq:<target>:<requester>
//	fstate:<viewer>:<subject>
//	session:<owner>:<id>
//	access:<owner>:<id>
const (
	accountPrefix   = "account:"
	followingPrefix = "edge:following:"
	followersPrefix = "edge:followers:"
	requestPrefix   = "freq:"
	statePrefix     = "fstate:"
	sessionPrefix   = "session:"
	accessPrefix    = "access:"

	// SessionActivityIndex scores active session keys by lastActiveAt
	// (unix seconds). Entries are dropped on termination so the sweep
	// only ever sees live candidates.
	SessionActivityIndex = "session_last_active"
)

func ValidateID(name, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.Validationf("%s must not be empty", name)
	}
	if strings.Contains(id, ":") {
		return domain.Validationf("%s %q must not contain ':'", name, id)
	}
	return nil
}

func accountKey(id string) string { return accountPrefix + id }

func followingEdgeKey(follower, followed string) string {
	return followingPrefix + follower + ":" + followed
}

func followersEdgeKey(followed, follower string) string {
	return followersPrefix + followed + ":" + follower
}

func requestKey(targetID, requesterID string) string {
	return requestPrefix + targetID + ":" + requesterID
}

func stateKey(viewerID, subjectID string) string {
	return statePrefix + viewerID + ":" + subjectID
}

func sessionKey(ownerID, sessionID string) string {
	return sessionPrefix + ownerID + ":" + sessionID
}

func accessKey(ownerID, accessID string) string {
	return accessPrefix + ownerID + ":" + accessID
}

// SessionKeyOwner extracts the owner id from a full session key.
func SessionKeyOwner(key string) (string, bool) {
	owner, _, err := splitSessionKey(key)
	if err != nil {
		return "", false
	}
	return owner, true
}

// splitSessionKey recovers (ownerID, sessionID) from a full session key.
func splitSessionKey(key string) (string, string, error) {
	rest, ok := strings.CutPrefix(key, sessionPrefix)
	if !ok {
		return "", "", domain.Validationf("not a session key: %q", key)
	}
	owner, id, ok := strings.Cut(rest, ":")
	if !ok || owner == "" || id == "" {
		return "", "", domain.Validationf("malformed session key: %q", key)
	}
	return owner, id, nil
}
