package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session errors.
var (
	ErrNoSession            = errors.New("no active session")
	ErrSessionExpired       = errors.New("session expired")
	ErrInvalidSession       = errors.New("invalid session")
	ErrInvalidManagerConfig = errors.New("invalid session manager configuration")
	ErrSubjectUnavailable   = errors.New("session token carries no subject")
)

// Record is the persisted form of a session, keyed by endpoint.
type Record struct {
	Endpoint  string
	Token     string
	ExpiresAt time.Time
}

// Session is the authenticated handle passed to anything needing the
// bearer credential.
type Session struct {
	token     string
	expiresAt time.Time
	endpoint  string
}

func newSession(record Record) (*Session, error) {
	if record.Token == "" {
		return nil, fmt.Errorf("%w: token is empty", ErrInvalidSession)
	}
	if record.Endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is empty", ErrInvalidSession)
	}
	return &Session{token: record.Token, expiresAt: record.ExpiresAt.UTC(), endpoint: record.Endpoint}, nil
}

// Token returns the bearer credential.
func (session *Session) Token() string {
	return session.token
}

// Endpoint returns the backend the session was issued by.
func (session *Session) Endpoint() string {
	return session.endpoint
}

// ExpiresAt returns the absolute expiry instant.
func (session *Session) ExpiresAt() time.Time {
	return session.expiresAt
}

// Expired reports whether the session is no longer valid at now.
func (session *Session) Expired(now time.Time) bool {
	return !now.Before(session.expiresAt)
}

// Subject reads the sub claim of a JWT session token. The signature is not
// checked; the value is for display only.
func (session *Session) Subject() (string, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(session.token, &claims); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSubjectUnavailable, err)
	}
	if claims.Subject == "" {
		return "", ErrSubjectUnavailable
	}
	return claims.Subject, nil
}

func (session *Session) record() Record {
	return Record{Endpoint: session.endpoint, Token: session.token, ExpiresAt: session.expiresAt}
}
