package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dhemutton/mobile-application/pkg/supply"
)

// Stage is a step of the login flow.
type Stage string

const (
	StageMobileNumber Stage = "MOBILE_NUMBER"
	StageAwaitingOTP  Stage = "AWAITING_OTP"
	StageSignedIn     Stage = "SIGNED_IN"
)

// LoginTarget identifies who is signing in and against which backend.
type LoginTarget struct {
	MobileNumber   string
	CorrelationKey string
	Endpoint       string
}

func (target LoginTarget) validate() error {
	switch {
	case strings.TrimSpace(target.MobileNumber) == "":
		return fmt.Errorf("%w: mobile number is empty", ErrInvalidTarget)
	case strings.TrimSpace(target.CorrelationKey) == "":
		return fmt.Errorf("%w: correlation key is empty", ErrInvalidTarget)
	case strings.TrimSpace(target.Endpoint) == "":
		return fmt.Errorf("%w: endpoint is empty", ErrInvalidTarget)
	}
	return nil
}

// State is a render snapshot of the flow.
type State struct {
	Stage           Stage
	OTPValue        string
	IsSubmitting    bool
	IsResending     bool
	ResendRemaining time.Duration
	PendingWarning  string
	Closed          bool
}

// CanResend reports whether the resend action is enabled.
func (state State) CanResend() bool {
	return state.Stage == StageAwaitingOTP && state.ResendRemaining <= 0 && !state.IsSubmitting && !state.IsResending && !state.Closed
}

// CanSubmit reports whether the submit action is enabled.
func (state State) CanSubmit() bool {
	return state.Stage == StageAwaitingOTP && state.OTPValue != "" && !state.IsSubmitting && !state.IsResending && !state.Closed
}

// Alert is a dismissible error message.
type Alert struct {
	Title        string
	Message      string
	DismissLabel string
}

// Prompt asks the user to confirm or cancel an action.
type Prompt struct {
	Title        string
	Message      string
	ConfirmLabel string
	CancelLabel  string
}

// Gateway issues and validates OTPs.
type Gateway interface {
	RequestOTP(ctx context.Context, mobileNumber string, correlationKey string, endpoint string) (supply.OTPRequestResult, error)
	ValidateOTP(ctx context.Context, otp string, mobileNumber string, correlationKey string, endpoint string) (supply.SessionCredentials, error)
}

// SessionStore receives the credential once the OTP is accepted.
type SessionStore interface {
	SetAuthInfo(ctx context.Context, sessionToken string, ttlEpochMillis int64, endpoint string) error
}

// Navigator moves the client to the next screen.
type Navigator interface {
	Navigate(ctx context.Context, screen string) error
}

// Presenter shows alerts and confirmation prompts. Both calls block until
// the user responds.
type Presenter interface {
	Alert(ctx context.Context, alert Alert) error
	Confirm(ctx context.Context, prompt Prompt) (bool, error)
}
