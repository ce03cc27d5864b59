package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haltman-io/aliasctl/internal/api"
)

func TestSubscribe_QueryParameters(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forward/subscribe" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `{"ok":true,"confirmation":{"sent":true,"ttl_minutes":30}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	resp, err := c.Subscribe(context.Background(), SubscribeParams{
		Name:   "hacker",
		Domain: "segfault.net",
		To:     "user+tag@example.com",
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if got := gotQuery["name"]; len(got) != 1 || got[0] != "hacker" {
		t.Errorf("name = %v", got)
	}
	if got := gotQuery["domain"]; len(got) != 1 || got[0] != "segfault.net" {
		t.Errorf("domain = %v", got)
	}
	// The destination must survive URL encoding byte for byte.
	if got := gotQuery["to"]; len(got) != 1 || got[0] != "user+tag@example.com" {
		t.Errorf("to = %v", got)
	}
	if resp.Confirmation == nil || resp.Confirmation.TTLMinutes != 30 {
		t.Errorf("confirmation = %+v", resp.Confirmation)
	}
}

func TestSubscribe_CustomAddressWins(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.Subscribe(context.Background(), SubscribeParams{
		Name:    "ignored",
		Domain:  "ignored.com",
		Address: "me@custom.org",
		To:      "dest@example.com",
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if got := gotQuery["address"]; len(got) != 1 || got[0] != "me@custom.org" {
		t.Errorf("address = %v", got)
	}
	if _, ok := gotQuery["name"]; ok {
		t.Error("name sent alongside address")
	}
}

func TestErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"ok":false,"error":"alias_taken","alias":"hacker@segfault.net"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.Subscribe(context.Background(), SubscribeParams{Name: "hacker", Domain: "segfault.net", To: "a@b.c"})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if apiErr.Status != http.StatusConflict {
		t.Errorf("status = %d", apiErr.Status)
	}
	if apiErr.Code != api.ErrAliasTaken {
		t.Errorf("code = %q", apiErr.Code)
	}
	if apiErr.Envelope == nil || apiErr.Envelope.Alias != "hacker@segfault.net" {
		t.Errorf("envelope = %+v", apiErr.Envelope)
	}
}

func TestOKFalseWith200(t *testing.T) {
	// Some endpoints report failure in the body under HTTP 200.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"error":"invalid_or_expired"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.Confirm(context.Background(), "sometokensomething")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.Code != api.ErrInvalidOrExpired {
		t.Errorf("code = %q", apiErr.Code)
	}
}

func TestBodyless429(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.Domains(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.Status != http.StatusTooManyRequests || apiErr.Code != "" {
		t.Errorf("got status %d code %q", apiErr.Status, apiErr.Code)
	}
	if !Retryable(err) {
		t.Error("429 should be retryable")
	}
}

func TestCheckDNS_PathEscapingAndAPIKey(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotKey = r.Header.Get("x-api-key")
		fmt.Fprint(w, `{"target":"example.com","normalized_target":"example.com"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-key")
	resp, err := c.CheckDNS(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("CheckDNS failed: %v", err)
	}
	if gotPath != "/api/checkdns/example.com" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret-key" {
		t.Errorf("x-api-key = %q", gotKey)
	}
	if resp.NormalizedTarget != "example.com" {
		t.Errorf("normalized_target = %q", resp.NormalizedTarget)
	}
}

func TestCheckDNS_NoAPIKeyHeader(t *testing.T) {
	var sawHeader bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawHeader = r.Header["X-Api-Key"]
		fmt.Fprint(w, `{"target":"example.com"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	if _, err := c.CheckDNS(context.Background(), "example.com"); err != nil {
		t.Fatalf("CheckDNS failed: %v", err)
	}
	if sawHeader {
		t.Error("x-api-key sent without a configured key")
	}
}

func TestDomains_Normalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[" Example.COM ","a.io","example.com","junk"]`)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	got, err := c.Domains(context.Background())
	if err != nil {
		t.Fatalf("Domains failed: %v", err)
	}
	if len(got) != 2 || got[0] != "a.io" || got[1] != "example.com" {
		t.Errorf("domains = %v", got)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"transport", errors.New("connection refused"), true},
		{"400", &Error{Status: 400}, false},
		{"404", &Error{Status: 404}, false},
		{"429", &Error{Status: 429}, true},
		{"500", &Error{Status: 500}, true},
		{"503", &Error{Status: 503}, true},
	}
	for _, tt := range tests {
		if got := Retryable(tt.err); got != tt.want {
			t.Errorf("%s: Retryable = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCurlPreviews(t *testing.T) {
	c := New("https://api.example.com/", "")

	got := c.CurlSubscribe(SubscribeParams{Name: "hacker", Domain: "segfault.net", To: "me@example.com"})
	want := "curl 'https://api.example.com/forward/subscribe?domain=segfault.net&name=hacker&to=me%40example.com'"
	if got != want {
		t.Errorf("CurlSubscribe = %q, want %q", got, want)
	}

	got = c.CurlUnsubscribe("hacker@segfault.net")
	want = "curl 'https://api.example.com/forward/unsubscribe?alias=hacker%40segfault.net'"
	if got != want {
		t.Errorf("CurlUnsubscribe = %q, want %q", got, want)
	}
}
