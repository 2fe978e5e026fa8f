package simulator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errInvalidToken = errors.New("invalid session token")

// tokenIssuer signs and verifies HS256 session tokens whose subject is the
// phone that signed in.
type tokenIssuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

func (issuer tokenIssuer) issue(phone string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(issuer.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   phone,
		Issuer:    issuer.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(issuer.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

func (issuer tokenIssuer) verify(token string, now time.Time) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return issuer.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: subject is empty", errInvalidToken)
	}
	return claims.Subject, nil
}

// keyRegistry holds the login keys the simulator accepts.
type keyRegistry struct {
	mutex sync.RWMutex
	keys  map[string]struct{}
}

func newKeyRegistry(keys []string) *keyRegistry {
	registry := &keyRegistry{keys: make(map[string]struct{}, len(keys))}
	for _, key := range keys {
		registry.keys[key] = struct{}{}
	}
	return registry
}

func (registry *keyRegistry) create() string {
	key := uuid.NewString()
	registry.mutex.Lock()
	registry.keys[key] = struct{}{}
	registry.mutex.Unlock()
	return key
}

func (registry *keyRegistry) valid(key string) bool {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()
	_, ok := registry.keys[key]
	return ok
}
