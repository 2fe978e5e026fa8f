package simulator

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const warningRepeatedRequest = "You have requested an OTP recently. Check your messages before requesting another one."

var errNoOTPIssued = errors.New("request an OTP first")

// waitError is returned while a phone is throttled or locked out. Its
// message carries the marker the client uses to detect lockout.
type waitError struct {
	wait time.Duration
}

func (err waitError) Error() string {
	return fmt.Sprintf("Please wait %d seconds before retrying", int(math.Ceil(err.wait.Seconds())))
}

type wrongOTPError struct {
	remaining int
}

func (err wrongOTPError) Error() string {
	return fmt.Sprintf("Invalid OTP, %d attempts remaining", err.remaining)
}

type phoneState struct {
	limiter     *rate.Limiter
	code        string
	requests    int
	attempts    int
	lockedUntil time.Time
}

// otpBook issues and checks one-time passwords per phone.
type otpBook struct {
	mutex       sync.Mutex
	limit       rate.Limit
	burst       int
	maxAttempts int
	lockout     time.Duration
	fixedOTP    string
	phones      map[string]*phoneState
}

func newOTPBook(cfg Config) *otpBook {
	return &otpBook{
		limit:       rate.Every(cfg.OTPInterval),
		burst:       cfg.OTPBurst,
		maxAttempts: cfg.MaxOTPAttempts,
		lockout:     cfg.LockoutDuration,
		fixedOTP:    cfg.FixedOTP,
		phones:      make(map[string]*phoneState),
	}
}

// issue creates a new code for phone. The returned warning is non-empty once
// the phone has asked for more than one code since its last sign in.
func (book *otpBook) issue(phone string, now time.Time) (string, string, error) {
	book.mutex.Lock()
	defer book.mutex.Unlock()
	state := book.stateLocked(phone)
	if now.Before(state.lockedUntil) {
		return "", "", waitError{wait: state.lockedUntil.Sub(now)}
	}
	reservation := state.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return "", "", waitError{wait: time.Duration(float64(time.Second) / float64(book.limit))}
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return "", "", waitError{wait: delay}
	}
	code, err := book.newCode()
	if err != nil {
		return "", "", err
	}
	state.code = code
	state.attempts = 0
	state.requests++
	warning := ""
	if state.requests > 1 {
		warning = warningRepeatedRequest
	}
	return code, warning, nil
}

// check compares otp with the outstanding code of phone. Too many wrong
// codes lock the phone.
func (book *otpBook) check(phone string, otp string, now time.Time) error {
	book.mutex.Lock()
	defer book.mutex.Unlock()
	state := book.stateLocked(phone)
	if now.Before(state.lockedUntil) {
		return waitError{wait: state.lockedUntil.Sub(now)}
	}
	if state.code == "" {
		return errNoOTPIssued
	}
	if subtle.ConstantTimeCompare([]byte(state.code), []byte(otp)) != 1 {
		state.attempts++
		if state.attempts >= book.maxAttempts {
			state.code = ""
			state.attempts = 0
			state.lockedUntil = now.Add(book.lockout)
			return waitError{wait: book.lockout}
		}
		return wrongOTPError{remaining: book.maxAttempts - state.attempts}
	}
	state.code = ""
	state.attempts = 0
	state.requests = 0
	return nil
}

// outstanding returns the unused code of phone.
func (book *otpBook) outstanding(phone string) (string, bool) {
	book.mutex.Lock()
	defer book.mutex.Unlock()
	state, ok := book.phones[phone]
	if !ok || state.code == "" {
		return "", false
	}
	return state.code, true
}

func (book *otpBook) stateLocked(phone string) *phoneState {
	state, ok := book.phones[phone]
	if !ok {
		state = &phoneState{limiter: rate.NewLimiter(book.limit, book.burst)}
		book.phones[phone] = state
	}
	return state
}

func (book *otpBook) newCode() (string, error) {
	if book.fixedOTP != "" {
		return book.fixedOTP, nil
	}
	value, err := rand.Int(rand.Reader, big.NewInt(int64(math.Pow10(otpLength))))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpLength, value.Int64()), nil
}
