package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/dhemutton/mobile-application/pkg/supply"
)

var otpPattern = regexp.MustCompile(`^\d*$`)

// Controller drives one OTP login attempt. It is safe for concurrent use and
// never holds its lock while calling a collaborator.
type Controller struct {
	gateway    Gateway
	sessions   SessionStore
	navigator  Navigator
	presenter  Presenter
	scheduler  Scheduler
	logger     FlowLogger
	nextScreen string
	cooldown   time.Duration

	mutex           sync.Mutex
	target          LoginTarget
	stage           Stage
	otpValue        string
	isSubmitting    bool
	isResending     bool
	resendRemaining time.Duration
	warning         ResendWarning
	stopCountdown   func()
	closed          bool
}

// NewController wires a Controller in the mobile number stage.
func NewController(gateway Gateway, sessions SessionStore, navigator Navigator, presenter Presenter, options ...ControllerOption) (*Controller, error) {
	if gateway == nil {
		return nil, fmt.Errorf("%w: gateway dependency is nil", ErrInvalidControllerConfig)
	}
	if sessions == nil {
		return nil, fmt.Errorf("%w: session store dependency is nil", ErrInvalidControllerConfig)
	}
	if navigator == nil {
		return nil, fmt.Errorf("%w: navigator dependency is nil", ErrInvalidControllerConfig)
	}
	if presenter == nil {
		return nil, fmt.Errorf("%w: presenter dependency is nil", ErrInvalidControllerConfig)
	}
	controller := &Controller{
		gateway:    gateway,
		sessions:   sessions,
		navigator:  navigator,
		presenter:  presenter,
		scheduler:  TickerScheduler{},
		nextScreen: DefaultNextScreen,
		cooldown:   DefaultResendCooldown,
		stage:      StageMobileNumber,
	}
	for _, option := range options {
		if option != nil {
			option(controller)
		}
	}
	if controller.scheduler == nil {
		return nil, fmt.Errorf("%w: scheduler dependency is nil", ErrInvalidControllerConfig)
	}
	if controller.nextScreen == "" {
		return nil, fmt.Errorf("%w: next screen is empty", ErrInvalidControllerConfig)
	}
	if controller.cooldown < 0 {
		return nil, fmt.Errorf("%w: resend cooldown is negative", ErrInvalidControllerConfig)
	}
	return controller, nil
}

// Snapshot returns the current render state.
func (controller *Controller) Snapshot() State {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()
	pendingWarning, _ := controller.warning.Pending()
	return State{
		Stage:           controller.stage,
		OTPValue:        controller.otpValue,
		IsSubmitting:    controller.isSubmitting,
		IsResending:     controller.isResending,
		ResendRemaining: controller.resendRemaining,
		PendingWarning:  pendingWarning,
		Closed:          controller.closed,
	}
}

// RequestOTP asks the gateway to send an OTP to target and, on success,
// moves the flow to the OTP stage with a fresh resend countdown.
func (controller *Controller) RequestOTP(ctx context.Context, target LoginTarget) error {
	if err := target.validate(); err != nil {
		return err
	}
	controller.mutex.Lock()
	if err := controller.checkActionLocked(); err != nil {
		controller.mutex.Unlock()
		return err
	}
	if controller.stage != StageMobileNumber {
		controller.mutex.Unlock()
		return fmt.Errorf("%w: %s", ErrWrongStage, controller.stage)
	}
	controller.target = target
	controller.isResending = true
	controller.mutex.Unlock()
	return controller.requestOTP(ctx, actionRequest, target)
}

// OnOTPChange replaces the OTP value. Text with anything but digits is
// rejected and the value is left unchanged.
func (controller *Controller) OnOTPChange(text string) error {
	if !otpPattern.MatchString(text) {
		return fmt.Errorf("%w: otp must contain digits only", supply.ErrInputFormat)
	}
	controller.mutex.Lock()
	defer controller.mutex.Unlock()
	if controller.closed {
		return ErrFlowClosed
	}
	controller.otpValue = text
	return nil
}

// Submit validates the entered OTP. On success the session is stored, the
// client navigates forward once and the controller closes.
func (controller *Controller) Submit(ctx context.Context) error {
	controller.mutex.Lock()
	if err := controller.checkActionLocked(); err != nil {
		controller.mutex.Unlock()
		return err
	}
	if controller.stage != StageAwaitingOTP {
		controller.mutex.Unlock()
		return fmt.Errorf("%w: %s", ErrWrongStage, controller.stage)
	}
	if controller.otpValue == "" {
		controller.mutex.Unlock()
		return fmt.Errorf("%w: otp is empty", supply.ErrInputFormat)
	}
	otp := controller.otpValue
	target := controller.target
	controller.isSubmitting = true
	controller.mutex.Unlock()

	credentials, err := controller.gateway.ValidateOTP(ctx, otp, target.MobileNumber, target.CorrelationKey, target.Endpoint)
	controller.mutex.Lock()
	if controller.closed {
		controller.isSubmitting = false
		controller.mutex.Unlock()
		return ErrFlowClosed
	}
	if err != nil {
		controller.isSubmitting = false
		controller.mutex.Unlock()
		return controller.fail(ctx, actionSubmit, target, err)
	}
	controller.mutex.Unlock()

	if err := controller.sessions.SetAuthInfo(ctx, credentials.SessionToken, credentials.TTL.Millis(), target.Endpoint); err != nil {
		controller.mutex.Lock()
		controller.isSubmitting = false
		closed := controller.closed
		controller.mutex.Unlock()
		if closed {
			return ErrFlowClosed
		}
		return controller.fail(ctx, actionSubmit, target, err)
	}

	controller.mutex.Lock()
	controller.isSubmitting = false
	if controller.closed {
		controller.mutex.Unlock()
		return ErrFlowClosed
	}
	controller.stage = StageSignedIn
	controller.stopCountdownLocked()
	controller.mutex.Unlock()

	navigateErr := controller.navigator.Navigate(ctx, controller.nextScreen)
	controller.Close()
	if navigateErr != nil {
		navigateErr = fmt.Errorf("navigate to %s: %w", controller.nextScreen, navigateErr)
	}
	controller.logEvent(ctx, actionSignedIn, StageSignedIn, target, navigateErr)
	return navigateErr
}

// Tick advances the resend countdown by one interval. It does nothing once
// the countdown has run out or the controller is closed.
func (controller *Controller) Tick() {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()
	if controller.closed || controller.resendRemaining <= 0 {
		return
	}
	controller.resendRemaining -= countdownInterval
	if controller.resendRemaining <= 0 {
		controller.resendRemaining = 0
		controller.stopCountdownLocked()
	}
}

// Resend requests a new OTP once the countdown has run out. A pending
// server warning is confirmed with the user before any request is made.
func (controller *Controller) Resend(ctx context.Context) error {
	controller.mutex.Lock()
	if err := controller.checkActionLocked(); err != nil {
		controller.mutex.Unlock()
		return err
	}
	if controller.stage != StageAwaitingOTP {
		controller.mutex.Unlock()
		return fmt.Errorf("%w: %s", ErrWrongStage, controller.stage)
	}
	if controller.resendRemaining > 0 {
		remaining := controller.resendRemaining
		controller.mutex.Unlock()
		return fmt.Errorf("%w: %s remaining", ErrResendUnavailable, remaining)
	}
	warningMessage, pending := controller.warning.Pending()
	target := controller.target
	controller.isResending = true
	controller.mutex.Unlock()

	if pending {
		confirmed, err := controller.presenter.Confirm(ctx, Prompt{
			Title:        confirmTitleResend,
			Message:      warningMessage,
			ConfirmLabel: confirmLabelResend,
			CancelLabel:  confirmLabelCancel,
		})
		controller.mutex.Lock()
		if err != nil || !confirmed || controller.closed {
			controller.isResending = false
			closed := controller.closed
			controller.mutex.Unlock()
			switch {
			case err != nil:
				return fmt.Errorf("confirm resend: %w", err)
			case closed:
				return ErrFlowClosed
			}
			controller.logEvent(ctx, actionDecline, StageAwaitingOTP, target, nil)
			return ErrResendDeclined
		}
		controller.warning.Clear()
		controller.mutex.Unlock()
	}
	return controller.requestOTP(ctx, actionResend, target)
}

// Close tears the flow down and cancels the countdown. Results of calls
// still in flight are discarded. Close is idempotent.
func (controller *Controller) Close() {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()
	if controller.closed {
		return
	}
	controller.closed = true
	controller.stopCountdownLocked()
}

func (controller *Controller) requestOTP(ctx context.Context, action string, target LoginTarget) error {
	result, err := controller.gateway.RequestOTP(ctx, target.MobileNumber, target.CorrelationKey, target.Endpoint)
	controller.mutex.Lock()
	controller.isResending = false
	if controller.closed {
		controller.mutex.Unlock()
		return ErrFlowClosed
	}
	if err != nil {
		controller.mutex.Unlock()
		return controller.fail(ctx, action, target, err)
	}
	controller.stage = StageAwaitingOTP
	controller.warning.Set(result.Warning)
	controller.restartCountdownLocked()
	controller.mutex.Unlock()
	controller.logEvent(ctx, action, StageAwaitingOTP, target, nil)
	return nil
}

// fail shows cause to the user and, once the alert is dismissed, sends the
// flow back to mobile number entry when the failure is a lockout.
func (controller *Controller) fail(ctx context.Context, action string, target LoginTarget, cause error) error {
	message := ErrorMessage(cause)
	alertErr := controller.presenter.Alert(ctx, Alert{
		Title:        alertTitleError,
		Message:      message,
		DismissLabel: dismissLabelDefault,
	})
	if ClassifyLoginError(message) == LoginErrorRateLimited {
		controller.lockOut(ctx, target)
	}
	controller.logEvent(ctx, action, controller.Snapshot().Stage, target, cause)
	if alertErr != nil {
		return errors.Join(cause, fmt.Errorf("show alert: %w", alertErr))
	}
	return cause
}

func (controller *Controller) lockOut(ctx context.Context, target LoginTarget) {
	controller.mutex.Lock()
	if controller.closed {
		controller.mutex.Unlock()
		return
	}
	controller.stage = StageMobileNumber
	controller.otpValue = ""
	controller.resendRemaining = 0
	controller.stopCountdownLocked()
	controller.mutex.Unlock()
	controller.logEvent(ctx, actionLockout, StageMobileNumber, target, nil)
}

func (controller *Controller) checkActionLocked() error {
	if controller.closed {
		return ErrFlowClosed
	}
	if controller.isSubmitting || controller.isResending {
		return ErrActionInFlight
	}
	return nil
}

func (controller *Controller) restartCountdownLocked() {
	controller.stopCountdownLocked()
	controller.resendRemaining = controller.cooldown
	if controller.cooldown > 0 {
		controller.stopCountdown = controller.scheduler.Every(countdownInterval, controller.Tick)
	}
}

func (controller *Controller) stopCountdownLocked() {
	if controller.stopCountdown != nil {
		controller.stopCountdown()
		controller.stopCountdown = nil
	}
}

func (controller *Controller) logEvent(ctx context.Context, action string, stage Stage, target LoginTarget, err error) {
	if controller.logger == nil {
		return
	}
	status := flowStatusOK
	if err != nil {
		status = flowStatusError
	}
	controller.logger.LogFlowEvent(ctx, FlowEvent{
		Action:       action,
		Stage:        stage,
		MobileNumber: MaskMobileNumber(target.MobileNumber),
		Endpoint:     target.Endpoint,
		Status:       status,
		Error:        err,
	})
}
