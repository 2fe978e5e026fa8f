package gateway

import (
	"fmt"
	"net/http"

	"github.com/dhemutton/mobile-application/pkg/supply"
)

const networkUserMessage = "Network error, please check your connection and try again"

// LoginError is a rejection from an authentication endpoint. Message is the
// server text shown to the user.
type LoginError struct {
	Status  int
	Message string
}

func (loginError *LoginError) Error() string {
	return fmt.Sprintf("login rejected (%d): %s", loginError.Status, loginError.Message)
}

// UserMessage returns the server message.
func (loginError *LoginError) UserMessage() string {
	return loginError.Message
}

// Unwrap lets callers match supply.ErrLogin.
func (loginError *LoginError) Unwrap() error {
	return supply.ErrLogin
}

// APIError is a non-success response from a quota or transaction endpoint.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (apiError *APIError) Error() string {
	if apiError.Code == "" {
		return fmt.Sprintf("api error (%d): %s", apiError.Status, apiError.Message)
	}
	return fmt.Sprintf("api error (%d %s): %s", apiError.Status, apiError.Code, apiError.Message)
}

// UserMessage returns the server message.
func (apiError *APIError) UserMessage() string {
	return apiError.Message
}

// Unauthorized reports whether the session was refused.
func (apiError *APIError) Unauthorized() bool {
	return apiError.Status == http.StatusUnauthorized
}

// NetworkError is a transport failure.
type NetworkError struct {
	Err error
}

func (networkError *NetworkError) Error() string {
	return fmt.Sprintf("%v: %v", supply.ErrNetwork, networkError.Err)
}

// UserMessage returns a generic retry hint.
func (networkError *NetworkError) UserMessage() string {
	return networkUserMessage
}

// Unwrap returns the transport error.
func (networkError *NetworkError) Unwrap() error {
	return networkError.Err
}

// Is matches supply.ErrNetwork.
func (networkError *NetworkError) Is(target error) bool {
	return target == supply.ErrNetwork
}
