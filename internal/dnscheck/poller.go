// Package dnscheck drives DNS record validation against the forwarding
// API: it creates a check for a target domain and polls its status on a
// schedule the server suggests, with independent error backoff and
// clean cancellation.
package dnscheck

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/haltman-io/aliasctl/internal/api"
	"github.com/haltman-io/aliasctl/internal/client"
	"github.com/haltman-io/aliasctl/internal/logging"
	"github.com/haltman-io/aliasctl/internal/mailaddr"
	"github.com/haltman-io/aliasctl/internal/retry"
)

const (
	// minPollInterval bounds the request rate regardless of what the
	// server suggests.
	minPollInterval      = 10 * time.Second
	fallbackPollInterval = 45 * time.Second
	maxErrorPollInterval = 120 * time.Second
	pollErrorThreshold   = 3
	pollNoticeCooldown   = 60 * time.Second

	requestRetryCount     = 2
	requestRetryBaseDelay = 600 * time.Millisecond
	requestRetryMaxDelay  = 4 * time.Second
)

// ErrInvalidTarget rejects targets that are not plain domains before
// any network call.
var ErrInvalidTarget = errors.New("enter a plain domain like example.com")

// Notifier receives the poller's user-facing notices.
type Notifier interface {
	Info(client.Notice)
	Error(client.Notice)
}

// Snapshot is a copy of the poller's observable state.
type Snapshot struct {
	Target     string
	Request    *api.DNSRequestResponse
	Check      *api.CheckDNSResponse
	Err        string
	Submitting bool
	Polling    bool
	// Done is set once polling stopped on a terminal status.
	Done bool
}

// Status derives the displayed status: the kind's own check status when
// known, else the creation request's, else the overall summary.
func (s Snapshot) Status(kind api.CheckKind) api.DNSStatus {
	if c := s.Check.Check(kind); c != nil {
		return c.Status
	}
	if s.Request != nil {
		return s.Request.Status
	}
	if s.Check != nil && s.Check.Summary != nil {
		return s.Check.Summary.OverallStatus
	}
	return ""
}

type afterFunc func(d time.Duration, fn func()) (cancel func())

// Poller owns one validation session for one check kind. It is safe for
// concurrent use; timers fire on their own goroutines.
type Poller struct {
	api    *client.Client
	kind   api.CheckKind
	notify Notifier
	logger *zap.Logger

	mu             sync.Mutex
	open           bool
	epoch          int
	target         string
	request        *api.DNSRequestResponse
	check          *api.CheckDNSResponse
	lastErr        string
	submitting     bool
	polling        bool
	done           bool
	errCount       int
	limiter        *rate.Limiter
	noticeGate     *rate.Sometimes
	timerCancel    func()
	inflightCancel context.CancelFunc
	runCtx         context.Context
	runCancel      context.CancelFunc

	updates chan Snapshot

	now   func() time.Time
	after afterFunc
}

// NewPoller creates a poller for one check kind.
func NewPoller(c *client.Client, kind api.CheckKind, notify Notifier, logger *zap.Logger) *Poller {
	if notify == nil {
		notify = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		api:        c,
		kind:       kind,
		notify:     notify,
		logger:     logger.With(logging.Component("dnscheck"), logging.Kind(string(kind))),
		limiter:    rate.NewLimiter(rate.Every(minPollInterval), 1),
		noticeGate: &rate.Sometimes{Interval: pollNoticeCooldown},
		updates:    make(chan Snapshot, 16),
		now:        time.Now,
		after: func(d time.Duration, fn func()) func() {
			t := time.AfterFunc(d, fn)
			return func() { t.Stop() }
		},
	}
}

type nopNotifier struct{}

func (nopNotifier) Info(client.Notice)  {}
func (nopNotifier) Error(client.Notice) {}

// Updates delivers a snapshot after every poll resolution. Slow readers
// miss intermediate snapshots rather than blocking the poller.
func (p *Poller) Updates() <-chan Snapshot { return p.updates }

// Snapshot returns the current observable state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Poller) snapshotLocked() Snapshot {
	return Snapshot{
		Target:     p.target,
		Request:    p.request,
		Check:      p.check,
		Err:        p.lastErr,
		Submitting: p.submitting,
		Polling:    p.polling,
		Done:       p.done,
	}
}

func (p *Poller) emitLocked() {
	select {
	case p.updates <- p.snapshotLocked():
	default:
	}
}

// Start validates target syntactically, creates the server-side check
// (with a bounded retry budget for 429/5xx and transport failures) and
// begins polling. When creation fails after retries, an existing check
// for the same target is resumed instead if the server has one; only if
// that fallback also fails does the error surface.
func (p *Poller) Start(ctx context.Context, target string) error {
	normalized := mailaddr.Lower(target)
	if !mailaddr.ValidDomain(normalized) {
		return ErrInvalidTarget
	}

	p.mu.Lock()
	p.stopLocked(false)
	p.open = true
	p.epoch++
	epoch := p.epoch
	p.target = normalized
	p.request = nil
	p.check = nil
	p.lastErr = ""
	p.done = false
	p.errCount = 0
	p.noticeGate = &rate.Sometimes{Interval: pollNoticeCooldown}
	p.submitting = true
	runCtx, cancel := context.WithCancel(ctx)
	p.runCtx = runCtx
	p.runCancel = cancel
	p.inflightCancel = nil
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.epoch == epoch {
			p.submitting = false
		}
		p.mu.Unlock()
	}()

	policy := retry.Policy{
		Retries:   requestRetryCount,
		BaseDelay: requestRetryBaseDelay,
		MaxDelay:  requestRetryMaxDelay,
		Retryable: client.Retryable,
	}

	var created *api.DNSRequestResponse
	err := policy.Do(runCtx, func() error {
		resp, reqErr := p.api.RequestCheck(runCtx, p.kind, normalized)
		if reqErr != nil {
			return reqErr
		}
		created = resp
		return nil
	})

	if err == nil {
		p.mu.Lock()
		if p.epoch != epoch || !p.open {
			p.mu.Unlock()
			return nil
		}
		p.request = created
		if created.Target != "" {
			p.target = created.Target
		}
		p.mu.Unlock()
		p.logger.Info("validation requested", logging.Target(normalized), logging.Status(string(created.Status)))
		p.pollOnce()
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	// Creation failed: a previous session may already have a live check
	// for this target. Resume it silently instead of surfacing the
	// creation error.
	resumed, resumeErr := p.api.CheckDNS(runCtx, normalized)
	if resumeErr == nil {
		p.mu.Lock()
		if p.epoch != epoch || !p.open {
			p.mu.Unlock()
			return nil
		}
		p.request = nil
		p.check = resumed
		p.lastErr = ""
		p.errCount = 0
		if resumed.NormalizedTarget != "" {
			p.target = resumed.NormalizedTarget
		} else if resumed.Target != "" {
			p.target = resumed.Target
		}
		stop := shouldStop(resumed, p.kind)
		p.done = stop
		if !stop {
			p.scheduleLocked(nextDelay(resumed, p.kind, p.now()))
		}
		p.emitLocked()
		p.mu.Unlock()
		p.logger.Info("resumed existing check", logging.Target(normalized))
		p.notify.Info(client.Notice{
			Title:       "Found existing DNS check",
			Description: "Resuming status polling for this domain.",
		})
		return nil
	}
	if errors.Is(resumeErr, context.Canceled) {
		return resumeErr
	}

	p.mu.Lock()
	if p.epoch == epoch && p.open {
		p.lastErr = err.Error()
		p.emitLocked()
	}
	p.mu.Unlock()
	p.notify.Error(client.Describe(err))
	return err
}

// pollOnce performs one status check, enforcing the minimum inter-poll
// spacing, and schedules the next one unless a terminal status was
// observed.
func (p *Poller) pollOnce() {
	p.mu.Lock()
	if !p.open || p.target == "" {
		p.mu.Unlock()
		return
	}

	now := p.now()
	res := p.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		p.scheduleLocked(delay)
		p.mu.Unlock()
		return
	}

	epoch := p.epoch
	target := p.target
	p.polling = true
	ctx, cancel := context.WithCancel(p.runCtx)
	p.inflightCancel = cancel
	p.mu.Unlock()

	resp, err := p.api.CheckDNS(ctx, target)
	// Release this poll's context now that the request resolved; the
	// session context in runCtx stays live for the next poll.
	cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.epoch != epoch || !p.open {
		// Stopped or restarted while the request was in flight; its
		// outcome must not touch state.
		return
	}
	p.inflightCancel = nil
	p.polling = false

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		p.errCount++
		p.lastErr = err.Error()
		p.logger.Warn("poll failed", logging.Target(target), logging.Errors(p.errCount), zap.Error(err))
		if p.errCount >= pollErrorThreshold {
			p.noticeGate.Do(func() {
				title := "Network error"
				var apiErr *client.Error
				if errors.As(err, &apiErr) {
					title = "DNS API unavailable"
				}
				p.notify.Error(client.Notice{
					Title:       title,
					Description: "Still retrying DNS checks in the background.",
				})
			})
		}
		p.scheduleLocked(errorDelay(p.errCount))
		p.emitLocked()
		return
	}

	p.check = resp
	p.lastErr = ""
	p.errCount = 0
	p.noticeGate = &rate.Sometimes{Interval: pollNoticeCooldown}
	if resp.NormalizedTarget != "" {
		p.target = resp.NormalizedTarget
	}

	if shouldStop(resp, p.kind) {
		p.done = true
		p.logger.Info("polling finished", logging.Target(p.target), logging.Status(string(p.snapshotLocked().Status(p.kind))))
		p.emitLocked()
		return
	}

	p.scheduleLocked(nextDelay(resp, p.kind, p.now()))
	p.emitLocked()
}

// scheduleLocked arms the poll timer, replacing any pending one.
func (p *Poller) scheduleLocked(d time.Duration) {
	if p.timerCancel != nil {
		p.timerCancel()
	}
	p.timerCancel = p.after(d, p.pollOnce)
}

// Stop clears the pending timer and aborts any in-flight request. When
// resetInterval is set the error counter, notice cooldown and spacing
// limiter are cleared too, so the next Start begins from a clean
// schedule.
func (p *Poller) Stop(resetInterval bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked(resetInterval)
}

func (p *Poller) stopLocked(resetInterval bool) {
	p.epoch++
	if p.timerCancel != nil {
		p.timerCancel()
		p.timerCancel = nil
	}
	if p.inflightCancel != nil {
		p.inflightCancel()
		p.inflightCancel = nil
	}
	if p.runCancel != nil {
		p.runCancel()
		p.runCancel = nil
	}
	p.polling = false
	if resetInterval {
		p.limiter = rate.NewLimiter(rate.Every(minPollInterval), 1)
		p.errCount = 0
		p.noticeGate = &rate.Sometimes{Interval: pollNoticeCooldown}
	}
}

// Close ends the session: polling stops unconditionally and all
// displayed results are cleared.
func (p *Poller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
	p.stopLocked(true)
	p.target = ""
	p.request = nil
	p.check = nil
	p.lastErr = ""
	p.submitting = false
	p.done = false
}

// shouldStop reports whether polling is finished: the overall status is
// terminal, or this kind's own check reached ACTIVE/EXPIRED.
func shouldStop(resp *api.CheckDNSResponse, kind api.CheckKind) bool {
	if resp == nil {
		return false
	}
	if resp.Summary != nil && resp.Summary.OverallStatus.Terminal() {
		return true
	}
	if c := resp.Check(kind); c != nil {
		return c.Status == api.DNSActive || c.Status == api.DNSExpired
	}
	return false
}

// nextDelay derives the wait before the next poll from the server's
// next_check_at (kind-specific, falling back to the summary minimum),
// clamped to the minimum spacing; absent or unparsable timestamps fall
// back to a fixed interval.
func nextDelay(resp *api.CheckDNSResponse, kind api.CheckKind, now time.Time) time.Duration {
	delay := fallbackPollInterval

	var raw string
	if c := resp.Check(kind); c != nil && c.NextCheckAt != "" {
		raw = c.NextCheckAt
	} else if resp.Summary != nil {
		raw = resp.Summary.NextCheckAtMin
	}
	if raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			delay = t.Sub(now)
			if delay < 0 {
				delay = 0
			}
		}
	}

	if delay < minPollInterval {
		delay = minPollInterval
	}
	return delay
}

// errorDelay grows 45s, 90s, 120s (capped) with consecutive failures.
func errorDelay(errCount int) time.Duration {
	mult := errCount - 1
	if mult < 0 {
		mult = 0
	}
	delay := fallbackPollInterval << uint(mult)
	if delay > maxErrorPollInterval {
		delay = maxErrorPollInterval
	}
	if delay < minPollInterval {
		delay = minPollInterval
	}
	return delay
}
