package workflow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/haltman-io/aliasctl/internal/client"
	"github.com/haltman-io/aliasctl/internal/logging"
	"github.com/haltman-io/aliasctl/internal/mailaddr"
)

const (
	credentialMinDays = 1
	credentialMaxDays = 90
	otpLength         = 6
)

var reOTP = regexp.MustCompile(`^\d{6}$`)

// SanitizeOTP strips non-digits and caps the result at the OTP length,
// so pasted codes with stray separators still validate.
func SanitizeOTP(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == otpLength {
				break
			}
		}
	}
	return b.String()
}

// Credential is an issued API token.
type Credential struct {
	Email         string
	Token         string
	TokenType     string
	ExpiresInDays int
}

// CredentialsFlow is the API-token issuance state machine: create a
// request, then confirm it with the emailed 6-digit OTP.
type CredentialsFlow struct {
	api    *client.Client
	notify Notifier
	logger *zap.Logger

	mu            sync.Mutex
	state         State
	dialogOpen    bool
	issued        *Credential
	lastAutoToken string

	after        afterFunc
	revertSeq    int
	revertCancel func()
}

// NewCredentialsFlow creates an idle flow backed by c.
func NewCredentialsFlow(c *client.Client, notify Notifier, logger *zap.Logger) *CredentialsFlow {
	if notify == nil {
		notify = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialsFlow{
		api:    c,
		notify: notify,
		logger: logger.With(logging.Component("credentials-flow")),
		state:  StateIdle,
		after:  realAfter,
	}
}

// State returns the current workflow state.
func (f *CredentialsFlow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// AwaitingConfirmation reports whether the OTP entry step is open.
func (f *CredentialsFlow) AwaitingConfirmation() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dialogOpen
}

// Issued returns the confirmed credential, if any.
func (f *CredentialsFlow) Issued() (Credential, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.issued == nil {
		return Credential{}, false
	}
	return *f.issued, true
}

// Create validates locally and requests token issuance; on success the
// flow waits for the emailed OTP.
func (f *CredentialsFlow) Create(ctx context.Context, email string, days int) error {
	e := strings.TrimSpace(email)
	if !mailaddr.ProbablyEmail(e) {
		return &ValidationError{Msg: "Enter a valid email address."}
	}
	if days < credentialMinDays || days > credentialMaxDays {
		return &ValidationError{Msg: fmt.Sprintf("Validity must be between %d and %d days.", credentialMinDays, credentialMaxDays)}
	}

	f.mu.Lock()
	f.setStateLocked(StateLoading)
	f.issued = nil
	f.mu.Unlock()

	_, err := f.api.CreateCredentials(ctx, e, days)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			f.setStateLocked(StateIdle)
			return err
		}
		f.setTransientLocked(StateError, StateIdle, transientDelay)
		var apiErr *client.Error
		if errors.As(err, &apiErr) {
			f.notify.Error(client.Notice{Title: "Request failed", Description: "Try again in a moment."})
		} else {
			f.notify.Error(client.Notice{Title: "Network error", Description: err.Error()})
		}
		return err
	}

	f.setStateLocked(StateAwaiting)
	f.dialogOpen = true
	f.logger.Info("credential confirmation pending", zap.String("email", e))
	f.notify.Success(client.Notice{
		Title:       "Confirmation email sent",
		Description: "Check your email for the 6-digit confirmation code.",
	})
	return nil
}

// ConfirmCode submits the emailed OTP. Token shape is checked locally:
// exactly 6 digits for the credentials protocol.
func (f *CredentialsFlow) ConfirmCode(ctx context.Context, code string) error {
	token := SanitizeOTP(code)
	if !reOTP.MatchString(token) {
		return &ValidationError{Msg: "Confirmation code must be exactly 6 digits."}
	}

	f.mu.Lock()
	f.setStateLocked(StateLoading)
	f.mu.Unlock()

	resp, err := f.api.ConfirmCredentials(ctx, token)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			f.setStateLocked(StateAwaiting)
			return err
		}
		f.setTransientLocked(StateError, StateAwaiting, confirmBounceDelay)
		f.notify.Error(client.Describe(err))
		return err
	}

	if !resp.Confirmed || resp.Token == "" || resp.Email == "" {
		f.setTransientLocked(StateError, StateAwaiting, confirmBounceDelay)
		f.notify.Error(client.Notice{
			Title:       "Confirmation failed",
			Description: "The API returned an unexpected response.",
		})
		return fmt.Errorf("confirm credentials: unexpected response")
	}

	f.issued = &Credential{
		Email:         resp.Email,
		Token:         resp.Token,
		TokenType:     resp.TokenType,
		ExpiresInDays: resp.ExpiresInDays,
	}
	f.dialogOpen = false
	// Success is held, not auto-reverted: the issued token stays on
	// display until the flow is reset.
	f.setStateLocked(StateSuccess)
	f.logger.Info("credential confirmed", zap.String("email", resp.Email))
	f.notify.Success(client.Notice{
		Title:       "API key confirmed",
		Description: fmt.Sprintf("Email: %s", resp.Email),
	})
	return nil
}

// AutoConfirm submits an OTP delivered via an emailed link, at most
// once per token.
func (f *CredentialsFlow) AutoConfirm(ctx context.Context, token string) error {
	token = SanitizeOTP(token)
	if token == "" {
		return nil
	}

	f.mu.Lock()
	if f.lastAutoToken == token {
		f.mu.Unlock()
		return nil
	}
	f.lastAutoToken = token
	f.setStateLocked(StateAwaiting)
	f.dialogOpen = true
	f.mu.Unlock()

	return f.ConfirmCode(ctx, token)
}

// Reset clears the flow back to idle, discarding any issued credential
// from display.
func (f *CredentialsFlow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dialogOpen = false
	f.issued = nil
	f.setStateLocked(StateIdle)
}

func (f *CredentialsFlow) setStateLocked(s State) {
	f.revertSeq++
	if f.revertCancel != nil {
		f.revertCancel()
		f.revertCancel = nil
	}
	f.state = s
}

func (f *CredentialsFlow) setTransientLocked(s, next State, d time.Duration) {
	f.setStateLocked(s)
	seq := f.revertSeq
	f.revertCancel = f.after(d, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.revertSeq != seq {
			return
		}
		f.state = next
	})
}
