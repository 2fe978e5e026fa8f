package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Repository persists sessions between runs. LoadSession returns
// ErrNoSession when nothing is stored for the endpoint.
type Repository interface {
	SaveSession(ctx context.Context, record Record) error
	LoadSession(ctx context.Context, endpoint string) (Record, error)
	DeleteSession(ctx context.Context, endpoint string) error
}

// Manager owns the lifecycle of the current session: it is created on login
// success and torn down on logout or expiry.
type Manager struct {
	repository Repository
	now        func() time.Time

	mutex   sync.Mutex
	current *Session
}

// NewManager wires a Manager over repository.
func NewManager(repository Repository, now func() time.Time) (*Manager, error) {
	if repository == nil {
		return nil, fmt.Errorf("%w: repository dependency is nil", ErrInvalidManagerConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidManagerConfig)
	}
	return &Manager{repository: repository, now: now}, nil
}

// SetAuthInfo establishes the session issued after OTP validation.
func (manager *Manager) SetAuthInfo(ctx context.Context, sessionToken string, ttlEpochMillis int64, endpoint string) error {
	session, err := newSession(Record{
		Endpoint:  endpoint,
		Token:     sessionToken,
		ExpiresAt: time.UnixMilli(ttlEpochMillis),
	})
	if err != nil {
		return err
	}
	if session.Expired(manager.now()) {
		return fmt.Errorf("%w: expiry %s already passed", ErrSessionExpired, session.ExpiresAt().Format(time.RFC3339))
	}
	if err := manager.repository.SaveSession(ctx, session.record()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	manager.mutex.Lock()
	manager.current = session
	manager.mutex.Unlock()
	return nil
}

// Current returns the live session. An expired session is torn down.
func (manager *Manager) Current(ctx context.Context) (*Session, error) {
	manager.mutex.Lock()
	session := manager.current
	manager.mutex.Unlock()
	if session == nil {
		return nil, ErrNoSession
	}
	if session.Expired(manager.now()) {
		if err := manager.Teardown(ctx); err != nil {
			return nil, errors.Join(ErrSessionExpired, err)
		}
		return nil, ErrSessionExpired
	}
	return session, nil
}

// Restore reloads a persisted session for endpoint and makes it current.
func (manager *Manager) Restore(ctx context.Context, endpoint string) (*Session, error) {
	record, err := manager.repository.LoadSession(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	session, err := newSession(record)
	if err != nil {
		return nil, err
	}
	if session.Expired(manager.now()) {
		if deleteErr := manager.repository.DeleteSession(ctx, endpoint); deleteErr != nil {
			return nil, errors.Join(ErrSessionExpired, deleteErr)
		}
		return nil, ErrSessionExpired
	}
	manager.mutex.Lock()
	manager.current = session
	manager.mutex.Unlock()
	return session, nil
}

// Teardown destroys the current session and its persisted record. It is a
// no-op without a current session.
func (manager *Manager) Teardown(ctx context.Context) error {
	manager.mutex.Lock()
	session := manager.current
	manager.current = nil
	manager.mutex.Unlock()
	if session == nil {
		return nil
	}
	if err := manager.repository.DeleteSession(ctx, session.Endpoint()); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
