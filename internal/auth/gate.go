package auth

import (
	"errors"
	"strconv"
	"strings"
)

// ErrForbidden indicates the authenticated caller does not own the
// requested resource.
var ErrForbidden = errors.New("forbidden")

// Gate verifies that a caller-supplied owner token refers to the
// authenticated user. The token is only ever used for matching; all
// downstream operations use the authenticated user's canonical ID.
type Gate struct{}

// NewGate creates an authorization gate.
func NewGate() *Gate {
	return &Gate{}
}

// ResolveOwner checks the requested owner token against the authenticated
// identity and returns the canonical owner ID.
//
// A numeric token must equal the authenticated user ID. A non-numeric token
// is treated as a legacy alias and must equal the local part of the
// authenticated user's email. Any mismatch is ErrForbidden.
func (g *Gate) ResolveOwner(authenticatedID int64, authenticatedEmail, requestedToken string) (int64, error) {
	if id, err := strconv.ParseInt(requestedToken, 10, 64); err == nil {
		if id != authenticatedID {
			return 0, ErrForbidden
		}
		return authenticatedID, nil
	}

	alias, _, _ := strings.Cut(authenticatedEmail, "@")
	if alias == "" || alias != requestedToken {
		return 0, ErrForbidden
	}

	return authenticatedID, nil
}
