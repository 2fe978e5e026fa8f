package auth

import "errors"

// Flow-level error values returned by the Controller.
var (
	ErrInvalidControllerConfig = errors.New("invalid controller configuration")
	ErrInvalidTarget           = errors.New("invalid login target")
	ErrWrongStage              = errors.New("action not available in current stage")
	ErrResendUnavailable       = errors.New("resend not available yet")
	ErrResendDeclined          = errors.New("resend declined")
	ErrActionInFlight          = errors.New("another action is in flight")
	ErrFlowClosed              = errors.New("login flow closed")
)
