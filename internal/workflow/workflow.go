// Package workflow drives the email-confirmation flows of the
// forwarding service: subscribe/unsubscribe of aliases and API
// credential issuance. Each flow is an explicit state machine advanced
// by operations; notices surface through an injected notifier and the
// transient display states revert on injected timers so tests control
// time.
package workflow

import (
	"time"

	"github.com/haltman-io/aliasctl/internal/client"
)

// State is the linear workflow state. Transitions are strictly forward
// except error bounces (error -> awaiting_confirmation for retryable
// confirmation failures) and explicit resets to idle.
type State string

const (
	StateIdle     State = "idle"
	StateLoading  State = "loading"
	StateAwaiting State = "awaiting_confirmation"
	StateSuccess  State = "success"
	StateError    State = "error"
)

const (
	// transientDelay holds success/error on screen before reverting to
	// idle.
	transientDelay = 1500 * time.Millisecond
	// confirmBounceDelay holds a confirmation failure before bouncing
	// back to awaiting_confirmation.
	confirmBounceDelay = 1200 * time.Millisecond
)

// Notifier receives user-facing notices. Implementations must be safe
// for concurrent use; flows may notify from timer goroutines.
type Notifier interface {
	Info(client.Notice)
	Success(client.Notice)
	Error(client.Notice)
}

// NopNotifier discards all notices.
type NopNotifier struct{}

func (NopNotifier) Info(client.Notice)    {}
func (NopNotifier) Success(client.Notice) {}
func (NopNotifier) Error(client.Notice)   {}

// ValidationError reports input rejected locally, before any network
// call. The flow state is left unchanged.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// afterFunc schedules fn after d and returns a cancel func. Swapped in
// tests to control time.
type afterFunc func(d time.Duration, fn func()) (cancel func())

func realAfter(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}
