package auth

import (
	"errors"
	"strings"
)

// LoginErrorClass is the outcome of classifying a login failure.
type LoginErrorClass int

const (
	// LoginErrorOther is any failure the user may retry in place.
	LoginErrorOther LoginErrorClass = iota
	// LoginErrorRateLimited forces the flow back to mobile number entry.
	LoginErrorRateLimited
)

func (class LoginErrorClass) String() string {
	if class == LoginErrorRateLimited {
		return "RATE_LIMITED"
	}
	return "OTHER"
}

// MessageError is implemented by failures that carry a message meant for the user.
type MessageError interface {
	error
	UserMessage() string
}

// ClassifyLoginError inspects a server message for the lockout marker. The
// server signals lockout only through message text.
func ClassifyLoginError(message string) LoginErrorClass {
	if strings.Contains(message, lockoutMarker) {
		return LoginErrorRateLimited
	}
	return LoginErrorOther
}

// ErrorMessage returns the user-facing message of err.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var messageError MessageError
	if errors.As(err, &messageError) && messageError.UserMessage() != "" {
		return messageError.UserMessage()
	}
	return err.Error()
}
