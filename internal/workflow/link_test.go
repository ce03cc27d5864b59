package workflow

import (
	"testing"

	"github.com/haltman-io/aliasctl/internal/api"
)

func TestParseConfirmLink(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantOK     bool
		wantToken  string
		wantIntent api.Intent
		hasIntent  bool
		stripped   string
	}{
		{
			name:       "confirm_token with intent",
			raw:        "https://app.example.com/?confirm_token=abc123def456&confirm_intent=unsubscribe",
			wantOK:     true,
			wantToken:  "abc123def456",
			wantIntent: api.IntentUnsubscribe,
			hasIntent:  true,
			stripped:   "https://app.example.com/",
		},
		{
			name:       "bare token param",
			raw:        "https://app.example.com/?token=abc123def456",
			wantOK:     true,
			wantToken:  "abc123def456",
			wantIntent: api.IntentSubscribe,
			hasIntent:  false,
			stripped:   "https://app.example.com/",
		},
		{
			name:       "unknown intent defaults to subscribe",
			raw:        "https://app.example.com/?confirm_token=abc123def456&confirm_intent=destroy",
			wantOK:     true,
			wantToken:  "abc123def456",
			wantIntent: api.IntentSubscribe,
			hasIntent:  true,
			stripped:   "https://app.example.com/",
		},
		{
			name:      "other params survive stripping",
			raw:       "https://app.example.com/?confirm_token=abc123def456&lang=en",
			wantOK:    true,
			wantToken: "abc123def456",
			stripped:  "https://app.example.com/?lang=en",
		},
		{
			name:   "no token",
			raw:    "https://app.example.com/?lang=en",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		link, ok, err := ParseConfirmLink(tt.raw)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
			continue
		}
		if ok != tt.wantOK {
			t.Errorf("%s: ok = %v, want %v", tt.name, ok, tt.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if link.Token != tt.wantToken {
			t.Errorf("%s: token = %q, want %q", tt.name, link.Token, tt.wantToken)
		}
		if tt.wantIntent != "" && link.Intent != tt.wantIntent {
			t.Errorf("%s: intent = %q, want %q", tt.name, link.Intent, tt.wantIntent)
		}
		if link.HasIntent != tt.hasIntent && tt.name != "other params survive stripping" {
			t.Errorf("%s: hasIntent = %v, want %v", tt.name, link.HasIntent, tt.hasIntent)
		}
		if link.Stripped != tt.stripped {
			t.Errorf("%s: stripped = %q, want %q", tt.name, link.Stripped, tt.stripped)
		}
	}
}

func TestParseConfirmLink_ConfirmTokenWins(t *testing.T) {
	link, ok, err := ParseConfirmLink("https://x.example/?confirm_token=primary123456&token=secondary")
	if err != nil || !ok {
		t.Fatalf("parse failed: ok=%v err=%v", ok, err)
	}
	if link.Token != "primary123456" {
		t.Errorf("token = %q, want confirm_token to win", link.Token)
	}
}
