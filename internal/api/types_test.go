package api

import (
	"encoding/json"
	"testing"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		raw  string
		want Intent
	}{
		{"subscribe", IntentSubscribe},
		{"unsubscribe", IntentUnsubscribe},
		{"", IntentSubscribe},
		{"destroy", IntentSubscribe},
	}
	for _, tt := range tests {
		if got := ParseIntent(tt.raw); got != tt.want {
			t.Errorf("ParseIntent(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestDNSStatusTerminal(t *testing.T) {
	tests := []struct {
		status DNSStatus
		want   bool
	}{
		{DNSPending, false},
		{DNSMixed, false},
		{DNSActive, true},
		{DNSExpired, true},
		{DNSFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestRecordRequirement_ShapeByKey(t *testing.T) {
	raw := `{
		"key": "MX",
		"type": "MX",
		"name": "example.com",
		"expected": {"host": "mx.example.com", "priority": 10},
		"found": [{"exchange": "mx.example.com.", "priority": 10}],
		"ok": false
	}`
	var req RecordRequirement
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	mx, err := req.ExpectedMX()
	if err != nil {
		t.Fatalf("ExpectedMX failed: %v", err)
	}
	if mx.Host != "mx.example.com" || mx.Priority != 10 {
		t.Errorf("expected = %+v", mx)
	}
	found, err := req.FoundMX()
	if err != nil || len(found) != 1 || found[0].Exchange != "mx.example.com." {
		t.Errorf("found = %+v err=%v", found, err)
	}

	// The string accessors must refuse MX requirements.
	if _, err := req.ExpectedValue(); err == nil {
		t.Error("ExpectedValue should reject MX requirements")
	}
}

func TestRecordRequirement_StringShape(t *testing.T) {
	raw := `{"key":"SPF","expected":"v=spf1 ~all","found":null,"ok":true}`
	var req RecordRequirement
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	v, err := req.ExpectedValue()
	if err != nil || v != "v=spf1 ~all" {
		t.Errorf("ExpectedValue = (%q, %v)", v, err)
	}
	found, err := req.FoundValues()
	if err != nil || found != nil {
		t.Errorf("FoundValues = (%v, %v), want nil", found, err)
	}
}

func TestCheckDNSResponse_Check(t *testing.T) {
	resp := &CheckDNSResponse{
		UI:    &DNSCheck{ID: 1},
		Email: &DNSCheck{ID: 2},
	}
	if got := resp.Check(CheckUI); got == nil || got.ID != 1 {
		t.Errorf("Check(UI) = %+v", got)
	}
	if got := resp.Check(CheckEmail); got == nil || got.ID != 2 {
		t.Errorf("Check(EMAIL) = %+v", got)
	}

	var nilResp *CheckDNSResponse
	if nilResp.Check(CheckUI) != nil {
		t.Error("nil response should yield nil check")
	}
}
