package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/haltman-io/aliasctl/internal/api"
	"github.com/haltman-io/aliasctl/internal/client"
	"github.com/haltman-io/aliasctl/internal/logging"
	"github.com/haltman-io/aliasctl/internal/mailaddr"
)

const (
	aliasTokenMinLen = 12
	aliasTokenMaxLen = 64
)

// Mapping captures an alias and destination at the moment a request was
// submitted, before server confirmation.
type Mapping struct {
	Alias  string
	To     string
	Intent api.Intent
}

// SubscribeInput is the form state of a subscribe submission. When
// CustomAddress is set, Address carries a full alias email; otherwise
// Name and Domain are combined.
type SubscribeInput struct {
	Name          string
	Domain        string
	CustomAddress bool
	Address       string
	To            string
}

// AliasFlow is the subscribe/unsubscribe confirmation state machine.
// At most one mapping is pending at a time; a new submission replaces
// it.
type AliasFlow struct {
	api    *client.Client
	notify Notifier
	logger *zap.Logger

	mu            sync.Mutex
	state         State
	lastIntent    api.Intent
	hasIntent     bool
	pending       *Mapping
	confirmed     *Mapping
	ttlMinutes    int
	dialogOpen    bool
	lastAutoToken string

	after        afterFunc
	revertSeq    int
	revertCancel func()
}

// NewAliasFlow creates an idle flow backed by c.
func NewAliasFlow(c *client.Client, notify Notifier, logger *zap.Logger) *AliasFlow {
	if notify == nil {
		notify = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AliasFlow{
		api:    c,
		notify: notify,
		logger: logger.With(logging.Component("alias-flow")),
		state:  StateIdle,
		after:  realAfter,
	}
}

// State returns the current workflow state.
func (f *AliasFlow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Pending returns a copy of the pending mapping, if any.
func (f *AliasFlow) Pending() (Mapping, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		return Mapping{}, false
	}
	return *f.pending, true
}

// Confirmed returns a copy of the last confirmed mapping, if any.
func (f *AliasFlow) Confirmed() (Mapping, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmed == nil {
		return Mapping{}, false
	}
	return *f.confirmed, true
}

// ConfirmationTTLMinutes returns the lifetime the server reported for
// the pending confirmation, or 0 when unknown.
func (f *AliasFlow) ConfirmationTTLMinutes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ttlMinutes
}

// AwaitingConfirmation reports whether the confirmation dialog is open.
func (f *AliasFlow) AwaitingConfirmation() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dialogOpen
}

// Subscribe validates input locally and, when valid, submits the
// subscribe request. Validation failures return *ValidationError and
// leave the state untouched.
func (f *AliasFlow) Subscribe(ctx context.Context, in SubscribeInput) error {
	to := strings.TrimSpace(in.To)

	if in.CustomAddress {
		address := strings.TrimSpace(in.Address)
		if !mailaddr.ProbablyEmail(address) {
			return &ValidationError{Msg: "Custom address is required (max 254 chars)."}
		}
		if !mailaddr.ProbablyEmail(to) {
			return &ValidationError{Msg: "Destination email is required (max 254 chars)."}
		}
		params := client.SubscribeParams{Address: address, To: to}
		mapping := Mapping{Alias: address, To: to, Intent: api.IntentSubscribe}
		return f.submit(ctx, mapping, func() error {
			resp, err := f.api.Subscribe(ctx, params)
			if err != nil {
				return err
			}
			f.recordTTL(resp.Confirmation)
			return nil
		})
	}

	name := mailaddr.Lower(in.Name)
	domain := mailaddr.Lower(in.Domain)
	if !mailaddr.ValidHandle(name) {
		return &ValidationError{Msg: "Invalid handle. Use [a-z0-9.] (1-64), no dot at start/end."}
	}
	if !mailaddr.ValidDomain(domain) {
		return &ValidationError{Msg: "Invalid domain."}
	}
	if !mailaddr.ProbablyEmail(to) {
		return &ValidationError{Msg: "Destination email is required (max 254 chars)."}
	}

	params := client.SubscribeParams{Name: name, Domain: domain, To: to}
	mapping := Mapping{Alias: name + "@" + domain, To: to, Intent: api.IntentSubscribe}
	return f.submit(ctx, mapping, func() error {
		resp, err := f.api.Subscribe(ctx, params)
		if err != nil {
			return err
		}
		f.recordTTL(resp.Confirmation)
		return nil
	})
}

// Unsubscribe validates the alias locally and, when valid, submits the
// removal request.
func (f *AliasFlow) Unsubscribe(ctx context.Context, alias string) error {
	a := mailaddr.Lower(alias)
	if !mailaddr.ProbablyEmail(a) {
		return &ValidationError{Msg: "Alias email is required."}
	}
	mapping := Mapping{Alias: a, Intent: api.IntentUnsubscribe}
	return f.submit(ctx, mapping, func() error {
		_, err := f.api.Unsubscribe(ctx, a)
		return err
	})
}

// submit runs one primary request: loading, then either
// awaiting_confirmation with the mapping pending, or a transient error.
func (f *AliasFlow) submit(ctx context.Context, mapping Mapping, call func() error) error {
	f.mu.Lock()
	f.setStateLocked(StateLoading)
	f.lastIntent = mapping.Intent
	f.hasIntent = true
	f.pending = &mapping
	f.confirmed = nil
	f.ttlMinutes = 0
	f.mu.Unlock()

	err := call()

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			f.setStateLocked(StateIdle)
			return err
		}
		f.setTransientLocked(StateError, StateIdle, transientDelay)
		notice := client.Describe(err)
		f.logger.Warn("request failed",
			logging.Intent(string(mapping.Intent)),
			logging.Alias(mapping.Alias),
			zap.Error(err))
		f.notify.Error(notice)
		return err
	}

	f.setStateLocked(StateAwaiting)
	f.dialogOpen = true
	f.logger.Info("awaiting confirmation",
		logging.Intent(string(mapping.Intent)),
		logging.Alias(mapping.Alias))
	return nil
}

func (f *AliasFlow) recordTTL(c *api.Confirmation) {
	if c == nil {
		return
	}
	f.mu.Lock()
	f.ttlMinutes = c.TTLMinutes
	f.mu.Unlock()
}

// ConfirmCode submits an emailed confirmation token. Token shape is
// checked locally: 12-64 characters for the alias protocol.
func (f *AliasFlow) ConfirmCode(ctx context.Context, code string) error {
	token := strings.TrimSpace(code)
	if len(token) < aliasTokenMinLen || len(token) > aliasTokenMaxLen {
		return &ValidationError{Msg: fmt.Sprintf("Confirmation code must be %d-%d characters.", aliasTokenMinLen, aliasTokenMaxLen)}
	}

	f.mu.Lock()
	f.setStateLocked(StateLoading)
	f.mu.Unlock()

	resp, err := f.api.Confirm(ctx, token)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			f.setStateLocked(StateAwaiting)
			return err
		}
		f.setTransientLocked(StateError, StateAwaiting, confirmBounceDelay)
		var apiErr *client.Error
		switch {
		case errors.As(err, &apiErr) && apiErr.Code == api.ErrInvalidOrExpired:
			f.notify.Error(client.Notice{
				Title:       "Confirmation failed",
				Description: "The confirmation code is invalid or expired.",
			})
		case errors.As(err, &apiErr):
			f.notify.Error(client.Notice{Title: "API error", Description: "Confirmation request failed."})
		default:
			f.notify.Error(client.Notice{Title: "Network error", Description: err.Error()})
		}
		return err
	}

	if !resp.Confirmed {
		f.setTransientLocked(StateError, StateAwaiting, confirmBounceDelay)
		f.notify.Error(client.Notice{Title: "API error", Description: "Unexpected confirmation response."})
		return fmt.Errorf("confirm: unexpected response")
	}

	// The server is authoritative for intent and address; merge its view
	// over the locally tracked snapshot.
	intent := f.lastIntent
	if resp.Intent != "" {
		intent = api.ParseIntent(resp.Intent)
	} else if !f.hasIntent {
		intent = api.IntentSubscribe
	}

	mapping := Mapping{Intent: intent}
	if f.pending != nil {
		mapping = *f.pending
		mapping.Intent = intent
	}
	if resp.Address != "" && mapping.Alias == "" {
		mapping.Alias = resp.Address
	}

	f.dialogOpen = false
	f.lastIntent = intent
	f.hasIntent = true
	f.confirmed = &mapping
	f.pending = nil
	f.setTransientLocked(StateSuccess, StateIdle, transientDelay)

	title := "Alias confirmed"
	description := "Alias confirmed."
	if !resp.Created && intent == api.IntentUnsubscribe {
		title = "Removal confirmed"
		description = "Alias removal confirmed successfully."
	} else if mapping.Alias != "" && mapping.To != "" {
		description = fmt.Sprintf("%s -> %s", mapping.Alias, mapping.To)
	} else if mapping.Alias != "" {
		description = fmt.Sprintf("%s confirmed.", mapping.Alias)
	}
	f.logger.Info("confirmed",
		logging.Intent(string(intent)),
		logging.Alias(mapping.Alias))
	f.notify.Success(client.Notice{Title: title, Description: description})
	return nil
}

// AutoConfirm submits a token delivered out of band (an emailed link).
// The same token is never auto-submitted twice, even across repeated
// invocations.
func (f *AliasFlow) AutoConfirm(ctx context.Context, token string, intent api.Intent) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	f.mu.Lock()
	if f.lastAutoToken == token {
		f.mu.Unlock()
		return nil
	}
	f.lastAutoToken = token
	f.lastIntent = intent
	f.hasIntent = true
	f.setStateLocked(StateAwaiting)
	f.dialogOpen = true
	f.mu.Unlock()

	return f.ConfirmCode(ctx, token)
}

// RequestClose asks to close the confirmation dialog. Closing abandons
// the pending mapping, so it requires explicit confirmation: the call
// returns false while the dialog holds a pending confirmation and the
// caller must follow up with ConfirmClose.
func (f *AliasFlow) RequestClose() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dialogOpen {
		return true
	}
	return false
}

// ConfirmClose force-closes the confirmation dialog, abandoning the
// pending mapping and resetting to idle.
func (f *AliasFlow) ConfirmClose() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dialogOpen = false
	f.pending = nil
	f.ttlMinutes = 0
	f.setStateLocked(StateIdle)
}

// setStateLocked sets a stable state, cancelling any pending revert.
func (f *AliasFlow) setStateLocked(s State) {
	f.revertSeq++
	if f.revertCancel != nil {
		f.revertCancel()
		f.revertCancel = nil
	}
	f.state = s
}

// setTransientLocked sets a display state that reverts to next after d
// unless superseded.
func (f *AliasFlow) setTransientLocked(s, next State, d time.Duration) {
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
