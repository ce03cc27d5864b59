package client

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/haltman-io/aliasctl/internal/api"
)

func TestDescribe_CodeTable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantTitle string
		wantDesc  string
	}{
		{
			name: "invalid params with field and reason",
			err: &Error{Code: api.ErrInvalidParams, Envelope: &api.ErrorEnvelope{
				Error: api.ErrInvalidParams, Field: "to", Reason: "missing",
			}},
			wantTitle: "Invalid parameters",
			wantDesc:  `Check the "to" field: missing.`,
		},
		{
			name: "invalid domain",
			err: &Error{Code: api.ErrInvalidDomain, Envelope: &api.ErrorEnvelope{
				Error: api.ErrInvalidDomain, Domain: "bad.example",
			}},
			wantTitle: "Invalid domain",
			wantDesc:  `The domain "bad.example" is not accepted by this service.`,
		},
		{
			name: "banned with type and value",
			err: &Error{Code: api.ErrBanned, Envelope: &api.ErrorEnvelope{
				Error: api.ErrBanned, BanType: "domain", BanValue: "spam.example",
			}},
			wantTitle: "Banned",
			wantDesc:  `Banned domain: "spam.example".`,
		},
		{
			name: "alias taken",
			err: &Error{Code: api.ErrAliasTaken, Envelope: &api.ErrorEnvelope{
				Error: api.ErrAliasTaken, Alias: "hacker@segfault.net",
			}},
			wantTitle: "Alias taken",
			wantDesc:  `The alias "hacker@segfault.net" already exists. Pick another handle.`,
		},
		{
			name:      "alias not found without context",
			err:       &Error{Code: api.ErrAliasNotFound},
			wantTitle: "Alias not found",
			wantDesc:  "No such alias exists.",
		},
		{
			name:      "invalid or expired",
			err:       &Error{Code: api.ErrInvalidOrExpired},
			wantTitle: "Code invalid or expired",
			wantDesc:  "Request a new confirmation code and try again.",
		},
		{
			name:      "rate limited code",
			err:       &Error{Code: api.ErrRateLimited},
			wantTitle: "Rate limited",
			wantDesc:  "Too many requests. Try again soon.",
		},
		{
			name:      "bodyless 429",
			err:       &Error{Status: http.StatusTooManyRequests},
			wantTitle: "Rate limited",
			wantDesc:  "Too many requests. Try again soon.",
		},
		{
			name:      "unknown code",
			err:       &Error{Code: "quantum_flux"},
			wantTitle: "Request failed",
			wantDesc:  "Error: quantum_flux",
		},
		{
			name:      "no code no 429",
			err:       &Error{Status: 500, Message: "boom"},
			wantTitle: "API error",
			wantDesc:  "boom",
		},
		{
			name:      "transport failure",
			err:       errors.New("dial tcp: connection refused"),
			wantTitle: "Network error",
			wantDesc:  "dial tcp: connection refused",
		},
		{
			name:      "cancellation",
			err:       context.Canceled,
			wantTitle: "Cancelled",
			wantDesc:  "The request was cancelled.",
		},
	}

	for _, tt := range tests {
		got := Describe(tt.err)
		if got.Title != tt.wantTitle {
			t.Errorf("%s: title = %q, want %q", tt.name, got.Title, tt.wantTitle)
		}
		if got.Description != tt.wantDesc {
			t.Errorf("%s: description = %q, want %q", tt.name, got.Description, tt.wantDesc)
		}
	}
}

func TestDescribe_Nil(t *testing.T) {
	if got := Describe(nil); got != (Notice{}) {
		t.Errorf("Describe(nil) = %+v", got)
	}
}
