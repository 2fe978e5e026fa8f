package terminal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dhemutton/mobile-application/internal/auth"
	"github.com/dhemutton/mobile-application/pkg/supply"
)

// Prompt loop outcomes.
var (
	ErrLoginAborted   = errors.New("login aborted")
	ErrLoginLockedOut = errors.New("login returned to mobile number entry")
)

const (
	commandResend = "r"
	commandQuit   = "q"
)

// Flow is the part of auth.Controller the prompt loop drives.
type Flow interface {
	Snapshot() auth.State
	OnOTPChange(text string) error
	Submit(ctx context.Context) error
	Resend(ctx context.Context) error
	Close()
}

// RunOTPPrompt reads OTP entries until the flow signs in, is locked out, or
// the user quits. Digits submit an OTP, r resends and q quits. Failures the
// flow already alerted are not printed again.
func RunOTPPrompt(ctx context.Context, terminal *Terminal, flow Flow) error {
	for {
		state := flow.Snapshot()
		switch {
		case state.Stage == auth.StageSignedIn:
			return nil
		case state.Stage == auth.StageMobileNumber:
			flow.Close()
			return ErrLoginLockedOut
		case state.Closed:
			return ErrLoginAborted
		}
		if err := ctx.Err(); err != nil {
			flow.Close()
			return err
		}

		line, err := terminal.Prompt(promptText(state))
		if err != nil {
			flow.Close()
			if errors.Is(err, ErrInputClosed) {
				return ErrLoginAborted
			}
			return err
		}

		switch line {
		case "":
			continue
		case commandQuit:
			flow.Close()
			return ErrLoginAborted
		case commandResend:
			err = flow.Resend(ctx)
		default:
			if err = flow.OnOTPChange(line); err == nil {
				err = flow.Submit(ctx)
			}
		}
		if err != nil && isLocalFailure(err) {
			terminal.Printf("%s", localMessage(err))
		}
	}
}

func promptText(state auth.State) string {
	switch {
	case state.CanResend():
		return "Enter OTP (r to resend, q to quit): "
	case state.ResendRemaining > 0:
		return fmt.Sprintf("Enter OTP (resend in %ds, q to quit): ", int(state.ResendRemaining.Round(time.Second)/time.Second))
	default:
		return "Enter OTP (q to quit): "
	}
}

// isLocalFailure reports whether err was rejected by the flow itself rather
// than shown to the user through an alert.
func isLocalFailure(err error) bool {
	return errors.Is(err, supply.ErrInputFormat) ||
		errors.Is(err, auth.ErrResendUnavailable) ||
		errors.Is(err, auth.ErrActionInFlight) ||
		errors.Is(err, auth.ErrWrongStage)
}

func localMessage(err error) string {
	switch {
	case errors.Is(err, supply.ErrInputFormat):
		return "OTP must contain digits only."
	case errors.Is(err, auth.ErrResendUnavailable):
		return "Resend is not available yet."
	case errors.Is(err, auth.ErrActionInFlight):
		return "Please wait for the current request to finish."
	default:
		return err.Error()
	}
}
