package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNoSession is returned when an owner-scoped operation runs without an
// authenticated account.
var ErrNoSession = errors.New("no active session")

// Session is the authenticated account a request acts for. It is set once
// per request by the auth middleware and read by handlers and stores; there
// is no process-wide session state.
type Session struct {
	UserID   uuid.UUID
	Email    string
	FullName string
	Role     string
	// AccessToken is forwarded to the remote store so its row-level
	// policies see the same account.
	AccessToken string
}

type sessionKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}

// Require returns the session on ctx or ErrNoSession.
func Require(ctx context.Context) (*Session, error) {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

// AccessToken returns the caller's bearer token, or "" without a session.
func AccessToken(ctx context.Context) string {
	if s, ok := SessionFromContext(ctx); ok {
		return s.AccessToken
	}
	return ""
}
