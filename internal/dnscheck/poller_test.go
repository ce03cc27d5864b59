package dnscheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/haltman-io/aliasctl/internal/api"
	"github.com/haltman-io/aliasctl/internal/client"
)

// fakeClock is a manually advanced time source shared with fakeTimer.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeTimer captures the single armed poll timer; firing advances the
// clock by the recorded delay first, as a real wait would.
type fakeTimer struct {
	clock  *fakeClock
	mu     sync.Mutex
	delays []time.Duration
	fn     func()
}

func (ft *fakeTimer) after(d time.Duration, fn func()) func() {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.delays = append(ft.delays, d)
	ft.fn = fn
	return func() {
		ft.mu.Lock()
		defer ft.mu.Unlock()
		ft.fn = nil
	}
}

func (ft *fakeTimer) fire(t *testing.T) {
	t.Helper()
	ft.mu.Lock()
	fn := ft.fn
	ft.fn = nil
	var delay time.Duration
	if len(ft.delays) > 0 {
		delay = ft.delays[len(ft.delays)-1]
	}
	ft.mu.Unlock()
	if fn == nil {
		t.Fatal("no timer armed")
	}
	ft.clock.Advance(delay)
	fn()
}

func (ft *fakeTimer) armed() bool {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.fn != nil
}

func (ft *fakeTimer) recordedDelays() []time.Duration {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	out := make([]time.Duration, len(ft.delays))
	copy(out, ft.delays)
	return out
}

type noticeLog struct {
	mu    sync.Mutex
	infos []client.Notice
	errs  []client.Notice
}

func (n *noticeLog) Info(notice client.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, notice)
}

func (n *noticeLog) Error(notice client.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, notice)
}

func (n *noticeLog) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errs)
}

func newTestPoller(t *testing.T, handler http.HandlerFunc) (*Poller, *fakeTimer, *noticeLog) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	clock := newFakeClock()
	timer := &fakeTimer{clock: clock}
	notify := &noticeLog{}
	p := NewPoller(client.New(srv.URL, ""), api.CheckUI, notify, nil)
	p.now = clock.Now
	p.after = timer.after
	t.Cleanup(p.Close)
	return p, timer, notify
}

func TestStart_InvalidTargetRejectedLocally(t *testing.T) {
	requests := 0
	p, _, _ := newTestPoller(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
	})

	for _, target := range []string{"", "not a domain", "nodots", "http://example.com"} {
		if err := p.Start(context.Background(), target); !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("Start(%q) = %v, want ErrInvalidTarget", target, err)
		}
	}
	if requests != 0 {
		t.Errorf("invalid targets reached the network %d times", requests)
	}
}

func TestPolling_StopsOnTerminalStatus(t *testing.T) {
	var mu sync.Mutex
	polls := 0
	p, timer, _ := newTestPoller(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/request/ui":
			fmt.Fprint(w, `{"id":1,"target":"example.com","type":"UI","status":"PENDING"}`)
		case "/api/checkdns/example.com":
			mu.Lock()
			polls++
			n := polls
			mu.Unlock()
			status := "PENDING"
			if n >= 3 {
				status = "ACTIVE"
			}
			fmt.Fprintf(w, `{"target":"example.com","normalized_target":"example.com","ui":{"id":1,"status":%q}}`, status)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	})

	if err := p.Start(context.Background(), "Example.COM"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Start polls once synchronously, then each armed timer is one poll.
	timer.fire(t)
	timer.fire(t)

	snap := p.Snapshot()
	if !snap.Done {
		t.Fatal("polling should be done after a terminal status")
	}
	if got := snap.Status(api.CheckUI); got != api.DNSActive {
		t.Errorf("status = %q, want ACTIVE", got)
	}
	mu.Lock()
	if polls != 3 {
		t.Errorf("polls = %d, want 3", polls)
	}
	mu.Unlock()
	if timer.armed() {
		t.Error("no timer should be armed after a terminal status")
	}

	// Fallback interval applies when the server suggests no schedule.
	for _, d := range timer.recordedDelays() {
		if d != fallbackPollInterval {
			t.Errorf("delay = %v, want %v", d, fallbackPollInterval)
		}
	}
}

func TestPolling_ErrorBackoffAndSingleNotice(t *testing.T) {
	p, timer, notify := newTestPoller(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/request/ui" {
			fmt.Fprint(w, `{"id":1,"target":"example.com","type":"UI","status":"PENDING"}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"ok":false,"error":"internal_error"}`)
	})

	if err := p.Start(context.Background(), "example.com"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// First poll (synchronous) failed; three more failures.
	timer.fire(t)
	timer.fire(t)
	timer.fire(t)

	want := []time.Duration{
		45 * time.Second,
		90 * time.Second,
		120 * time.Second,
		120 * time.Second,
	}
	got := timer.recordedDelays()
	if len(got) != len(want) {
		t.Fatalf("delays = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	// The unavailability notice fires once per cooldown, not per failure.
	if n := notify.errorCount(); n != 1 {
		t.Errorf("error notices = %d, want 1", n)
	}

	snap := p.Snapshot()
	if snap.Err == "" || snap.Done {
		t.Errorf("snapshot = %+v, want recorded error and not done", snap)
	}
}

func TestStart_ResumesExistingCheckOnCreationFailure(t *testing.T) {
	p, timer, notify := newTestPoller(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/request/ui":
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"ok":false,"error":"invalid_params"}`)
		case "/api/checkdns/example.com":
			fmt.Fprint(w, `{"target":"example.com","normalized_target":"example.com","ui":{"id":7,"status":"PENDING"}}`)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	})

	if err := p.Start(context.Background(), "example.com"); err != nil {
		t.Fatalf("Start should resume instead of failing: %v", err)
	}

	snap := p.Snapshot()
	if snap.Check == nil || snap.Check.UI == nil || snap.Check.UI.ID != 7 {
		t.Errorf("snapshot check = %+v, want resumed check", snap.Check)
	}
	if !timer.armed() {
		t.Error("resumed pending check should keep polling")
	}

	notify.mu.Lock()
	defer notify.mu.Unlock()
	if len(notify.infos) != 1 || notify.infos[0].Title != "Found existing DNS check" {
		t.Errorf("infos = %+v", notify.infos)
	}
}

func TestStart_SurfacesErrorWhenResumeAlsoFails(t *testing.T) {
	p, _, notify := newTestPoller(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok":false,"error":"invalid_domain","domain":"example.com"}`)
	})

	err := p.Start(context.Background(), "example.com")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *client.Error
	if !errors.As(err, &apiErr) || apiErr.Code != api.ErrInvalidDomain {
		t.Errorf("err = %v", err)
	}
	if notify.errorCount() != 1 {
		t.Errorf("error notices = %d, want 1", notify.errorCount())
	}
}

func TestMinimumPollSpacing(t *testing.T) {
	var mu sync.Mutex
	polls := 0
	p, timer, _ := newTestPoller(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/request/ui" {
			fmt.Fprint(w, `{"id":1,"target":"example.com","type":"UI","status":"PENDING"}`)
			return
		}
		mu.Lock()
		polls++
		mu.Unlock()
		fmt.Fprint(w, `{"target":"example.com","normalized_target":"example.com","ui":{"id":1,"status":"PENDING"}}`)
	})

	if err := p.Start(context.Background(), "example.com"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// A poll attempt without any elapsed time defers to the spacing
	// limiter instead of hitting the network.
	p.pollOnce()
	mu.Lock()
	if polls != 1 {
		t.Errorf("polls = %d, want 1 (spacing not enforced)", polls)
	}
	mu.Unlock()
	delays := timer.recordedDelays()
	last := delays[len(delays)-1]
	if last <= 0 || last > minPollInterval {
		t.Errorf("reschedule delay = %v, want within (0, %v]", last, minPollInterval)
	}
}

func TestClose_StaleTimerDoesNothing(t *testing.T) {
	var mu sync.Mutex
	polls := 0
	p, timer, _ := newTestPoller(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/request/ui" {
			fmt.Fprint(w, `{"id":1,"target":"example.com","type":"UI","status":"PENDING"}`)
			return
		}
		mu.Lock()
		polls++
		mu.Unlock()
		fmt.Fprint(w, `{"target":"example.com","ui":{"id":1,"status":"PENDING"}}`)
	})

	if err := p.Start(context.Background(), "example.com"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Grab the armed callback before Close cancels it, simulating a
	// timer that fired concurrently with shutdown.
	timer.mu.Lock()
	fn := timer.fn
	timer.mu.Unlock()

	p.Close()
	snap := p.Snapshot()
	if snap.Target != "" || snap.Check != nil || snap.Done {
		t.Errorf("snapshot after Close = %+v, want cleared", snap)
	}

	if fn != nil {
		fn()
	}
	mu.Lock()
	if polls != 1 {
		t.Errorf("polls = %d, want 1 (poll after Close)", polls)
	}
	mu.Unlock()
}

func TestPolling_ReleasesCompletedPollContext(t *testing.T) {
	p, timer, _ := newTestPoller(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/request/ui" {
			fmt.Fprint(w, `{"id":1,"target":"example.com","type":"UI","status":"PENDING"}`)
			return
		}
		fmt.Fprint(w, `{"target":"example.com","normalized_target":"example.com","ui":{"id":1,"status":"PENDING"}}`)
	})

	if err := p.Start(context.Background(), "example.com"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	timer.fire(t)
	timer.fire(t)

	// Each resolved poll must release its own context; only the session
	// context stays live between polls.
	p.mu.Lock()
	inflight := p.inflightCancel
	sessionErr := p.runCtx.Err()
	p.mu.Unlock()
	if inflight != nil {
		t.Error("completed poll left its cancel func behind")
	}
	if sessionErr != nil {
		t.Errorf("session context cancelled while polling continues: %v", sessionErr)
	}

	p.Close()
	p.mu.Lock()
	sessionErr = p.runCtx.Err()
	p.mu.Unlock()
	if sessionErr == nil {
		t.Error("session context should be cancelled after Close")
	}
}

func TestNextDelay(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	resp := &api.CheckDNSResponse{
		UI: &api.DNSCheck{NextCheckAt: now.Add(30 * time.Second).Format(time.RFC3339)},
	}
	if got := nextDelay(resp, api.CheckUI, now); got != 30*time.Second {
		t.Errorf("delay = %v, want 30s", got)
	}

	// Below the spacing floor.
	resp.UI.NextCheckAt = now.Add(2 * time.Second).Format(time.RFC3339)
	if got := nextDelay(resp, api.CheckUI, now); got != minPollInterval {
		t.Errorf("delay = %v, want %v", got, minPollInterval)
	}

	// In the past.
	resp.UI.NextCheckAt = now.Add(-time.Minute).Format(time.RFC3339)
	if got := nextDelay(resp, api.CheckUI, now); got != minPollInterval {
		t.Errorf("delay = %v, want %v", got, minPollInterval)
	}

	// Kind-specific timestamp missing: summary minimum applies.
	resp.UI.NextCheckAt = ""
	resp.Summary = &api.CheckSummary{NextCheckAtMin: now.Add(20 * time.Second).Format(time.RFC3339)}
	if got := nextDelay(resp, api.CheckUI, now); got != 20*time.Second {
		t.Errorf("delay = %v, want 20s", got)
	}

	// Unparsable timestamp: fixed fallback.
	resp.Summary.NextCheckAtMin = "soon"
	if got := nextDelay(resp, api.CheckUI, now); got != fallbackPollInterval {
		t.Errorf("delay = %v, want %v", got, fallbackPollInterval)
	}
}

func TestErrorDelay(t *testing.T) {
	tests := []struct {
		errCount int
		want     time.Duration
	}{
		{1, 45 * time.Second},
		{2, 90 * time.Second},
		{3, 120 * time.Second},
		{10, 120 * time.Second},
	}
	for _, tt := range tests {
		if got := errorDelay(tt.errCount); got != tt.want {
			t.Errorf("errorDelay(%d) = %v, want %v", tt.errCount, got, tt.want)
		}
	}
}

func TestShouldStop(t *testing.T) {
	tests := []struct {
		name string
		resp *api.CheckDNSResponse
		want bool
	}{
		{"nil response", nil, false},
		{
			"pending kind",
			&api.CheckDNSResponse{UI: &api.DNSCheck{Status: api.DNSPending}},
			false,
		},
		{
			"active kind",
			&api.CheckDNSResponse{UI: &api.DNSCheck{Status: api.DNSActive}},
			true,
		},
		{
			"expired kind",
			&api.CheckDNSResponse{UI: &api.DNSCheck{Status: api.DNSExpired}},
			true,
		},
		{
			"failed kind keeps polling",
			&api.CheckDNSResponse{UI: &api.DNSCheck{Status: api.DNSFailed}},
			false,
		},
		{
			"terminal summary",
			&api.CheckDNSResponse{Summary: &api.CheckSummary{OverallStatus: api.DNSFailed}},
			true,
		},
		{
			"mixed summary keeps polling",
			&api.CheckDNSResponse{
				Summary: &api.CheckSummary{OverallStatus: api.DNSMixed},
				UI:      &api.DNSCheck{Status: api.DNSPending},
			},
			false,
		},
	}
	for _, tt := range tests {
		if got := shouldStop(tt.resp, api.CheckUI); got != tt.want {
			t.Errorf("%s: shouldStop = %v, want %v", tt.name, got, tt.want)
		}
	}
}
