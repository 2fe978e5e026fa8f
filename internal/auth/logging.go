package auth

import (
	"context"
	"strings"
	"time"
)

// ControllerOption configures a Controller instance.
type ControllerOption func(*Controller)

// FlowLogger records events emitted by the login flow.
type FlowLogger interface {
	LogFlowEvent(ctx context.Context, event FlowEvent)
}

// FlowEvent describes one step of the login flow. It never carries the OTP
// or the session token.
type FlowEvent struct {
	Action       string
	Stage        Stage
	MobileNumber string
	Endpoint     string
	Status       string
	Error        error
}

// WithFlowLogger wires a logger that receives every flow event.
func WithFlowLogger(logger FlowLogger) ControllerOption {
	return func(controller *Controller) {
		controller.logger = logger
	}
}

// WithScheduler replaces the countdown scheduler.
func WithScheduler(scheduler Scheduler) ControllerOption {
	return func(controller *Controller) {
		controller.scheduler = scheduler
	}
}

// WithNextScreen sets the screen navigated to after sign in.
func WithNextScreen(screen string) ControllerOption {
	return func(controller *Controller) {
		controller.nextScreen = screen
	}
}

// WithResendCooldown sets the wait before a resend is allowed.
func WithResendCooldown(cooldown time.Duration) ControllerOption {
	return func(controller *Controller) {
		controller.cooldown = cooldown
	}
}

// MaskMobileNumber keeps the last four digits of a mobile number.
func MaskMobileNumber(mobileNumber string) string {
	const visible = 4
	if len(mobileNumber) <= visible {
		return mobileNumber
	}
	return strings.Repeat("*", len(mobileNumber)-visible) + mobileNumber[len(mobileNumber)-visible:]
}
