package auth

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestClassifyLoginError(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		message  string
		expected LoginErrorClass
	}{
		{message: "Please wait 60 seconds before retrying", expected: LoginErrorRateLimited},
		{message: "Too many attempts. Please wait 10 minutes", expected: LoginErrorRateLimited},
		{message: "please wait", expected: LoginErrorOther},
		{message: "Invalid OTP", expected: LoginErrorOther},
		{message: "", expected: LoginErrorOther},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.message, func(test *testing.T) {
			test.Parallel()
			if got := ClassifyLoginError(testCase.message); got != testCase.expected {
				test.Fatalf("expected %s, got %s", testCase.expected, got)
			}
		})
	}
}

func TestErrorMessagePrefersUserMessage(test *testing.T) {
	test.Parallel()
	wrapped := fmt.Errorf("validate otp: %w", messageFailure{message: testLockoutMessage})
	if message := ErrorMessage(wrapped); message != testLockoutMessage {
		test.Fatalf("expected %q, got %q", testLockoutMessage, message)
	}
	plain := errors.New("connection refused")
	if message := ErrorMessage(plain); message != plain.Error() {
		test.Fatalf("expected %q, got %q", plain.Error(), message)
	}
	if message := ErrorMessage(nil); message != "" {
		test.Fatalf("expected empty message, got %q", message)
	}
}

func TestResendWarningLifecycle(test *testing.T) {
	test.Parallel()
	var warning ResendWarning
	if _, pending := warning.Pending(); pending {
		test.Fatalf("expected zero value to hold no warning")
	}
	warning.Set(testWarning)
	warning.Set("")
	message, pending := warning.Pending()
	if !pending || message != testWarning {
		test.Fatalf("expected pending %q, got %q (%v)", testWarning, message, pending)
	}
	warning.Clear()
	if _, pending := warning.Pending(); pending {
		test.Fatalf("expected warning cleared")
	}
}

func TestTickerSchedulerStopsOnCancel(test *testing.T) {
	test.Parallel()
	var calls atomic.Int64
	fired := make(chan struct{}, 1)
	cancel := TickerScheduler{}.Every(time.Millisecond, func() {
		calls.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	select {
	case <-fired:
	case <-time.After(time.Second):
		test.Fatalf("expected scheduled callback to fire")
	}
	cancel()
	cancel()
	stopped := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if after := calls.Load(); after > stopped+1 {
		test.Fatalf("expected callbacks to stop after cancel, got %d then %d", stopped, after)
	}
}

func TestMaskMobileNumber(test *testing.T) {
	test.Parallel()
	if masked := MaskMobileNumber("91234567"); masked != "****4567" {
		test.Fatalf("expected %q, got %q", "****4567", masked)
	}
	if masked := MaskMobileNumber("123"); masked != "123" {
		test.Fatalf("expected short number unchanged, got %q", masked)
	}
}
