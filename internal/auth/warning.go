package auth

// ResendWarning holds the server warning to confirm before the next resend.
// The zero value holds no warning.
type ResendWarning struct {
	message string
}

// Set records message. An empty message leaves the current warning in place.
func (warning *ResendWarning) Set(message string) {
	if message == "" {
		return
	}
	warning.message = message
}

// Clear drops the pending warning.
func (warning *ResendWarning) Clear() {
	warning.message = ""
}

// Pending reports the warning and whether one must be confirmed.
func (warning *ResendWarning) Pending() (string, bool) {
	return warning.message, warning.message != ""
}
