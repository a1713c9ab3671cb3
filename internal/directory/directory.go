// Package directory talks to the external data service that owns users,
// friendships and groups. The hub only asks it authorization questions;
// it never persists anything itself.
package directory

import "context"

// Authorizer answers "is user X allowed in group G's rooms". The lookup
// is synchronous and must be called with a bounded-timeout context.
type Authorizer interface {
	IsGroupMember(ctx context.Context, userID, groupID string) (bool, error)
}

// StaticAuthorizer answers from a fixed membership table. Used in tests
// and single-node dev setups.
type StaticAuthorizer struct {
	// Members maps groupID -> allowed userIDs.
	Members map[string][]string
	// AllowAll short-circuits every lookup to true.
	AllowAll bool
}

func (a StaticAuthorizer) IsGroupMember(_ context.Context, userID, groupID string) (bool, error) {
	if a.AllowAll {
		return true, nil
	}
	for _, uid := range a.Members[groupID] {
		if uid == userID {
			return true, nil
		}
	}
	return false, nil
}
