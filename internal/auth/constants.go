package auth

import "time"

const (
	// DefaultResendCooldown is the wait between an OTP request and the next resend.
	DefaultResendCooldown = 30 * time.Second
	// DefaultNextScreen is where a signed-in user is sent.
	DefaultNextScreen = "CollectCustomerDetailsScreen"

	countdownInterval = time.Second

	lockoutMarker = "Please wait"

	alertTitleError     = "Error"
	confirmTitleResend  = "Resend OTP?"
	confirmLabelResend  = "RESEND"
	confirmLabelCancel  = "CANCEL"
	dismissLabelDefault = "OK"

	actionRequest  = "request_otp"
	actionSubmit   = "submit_otp"
	actionResend   = "resend_otp"
	actionDecline  = "resend_declined"
	actionLockout  = "lockout"
	actionSignedIn = "signed_in"

	flowStatusOK    = "ok"
	flowStatusError = "error"
)
