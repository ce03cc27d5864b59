// Package api defines the wire contract of the hosted mail-alias
// forwarding service. The service is external; these types mirror its
// documented JSON shapes and error codes.
package api

import (
	"encoding/json"
	"fmt"
)

// Intent identifies which alias lifecycle operation a confirmation
// belongs to.
type Intent string

const (
	IntentSubscribe   Intent = "subscribe"
	IntentUnsubscribe Intent = "unsubscribe"
)

// ParseIntent maps a raw intent string onto a known intent, defaulting
// to subscribe for anything unrecognized (server behaviour).
func ParseIntent(raw string) Intent {
	if raw == string(IntentUnsubscribe) {
		return IntentUnsubscribe
	}
	return IntentSubscribe
}

// Confirmation describes the confirmation email the server dispatched.
type Confirmation struct {
	Sent       bool `json:"sent"`
	TTLMinutes int  `json:"ttl_minutes"`
}

// SubscribeResponse is returned by GET /forward/subscribe.
type SubscribeResponse struct {
	OK             *bool         `json:"ok,omitempty"`
	Confirmation   *Confirmation `json:"confirmation,omitempty"`
	AliasCandidate string        `json:"alias_candidate,omitempty"`
}

// UnsubscribeResponse is returned by GET /forward/unsubscribe.
type UnsubscribeResponse struct {
	OK         *bool  `json:"ok,omitempty"`
	Sent       bool   `json:"sent,omitempty"`
	TTLMinutes int    `json:"ttl_minutes,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// ConfirmResponse is returned by GET /forward/confirm.
type ConfirmResponse struct {
	OK        *bool  `json:"ok,omitempty"`
	Confirmed bool   `json:"confirmed,omitempty"`
	Intent    string `json:"intent,omitempty"`
	Created   bool   `json:"created,omitempty"`
	Address   string `json:"address,omitempty"`
}

// CreateCredentialsRequest is the body of POST /api/credentials/create.
type CreateCredentialsRequest struct {
	Email string `json:"email"`
	Days  int    `json:"days"`
}

// CreateCredentialsResponse is returned by POST /api/credentials/create.
type CreateCredentialsResponse struct {
	OK           *bool         `json:"ok,omitempty"`
	Confirmation *Confirmation `json:"confirmation,omitempty"`
}

// ConfirmCredentialsResponse is returned by GET /api/credentials/confirm.
type ConfirmCredentialsResponse struct {
	OK            *bool  `json:"ok,omitempty"`
	Confirmed     bool   `json:"confirmed,omitempty"`
	Action        string `json:"action,omitempty"`
	Email         string `json:"email,omitempty"`
	Token         string `json:"token,omitempty"`
	TokenType     string `json:"token_type,omitempty"`
	ExpiresInDays int    `json:"expires_in_days,omitempty"`
}

// DNSStatus is the lifecycle state of one DNS validation check.
type DNSStatus string

const (
	DNSPending DNSStatus = "PENDING"
	DNSActive  DNSStatus = "ACTIVE"
	DNSExpired DNSStatus = "EXPIRED"
	DNSFailed  DNSStatus = "FAILED"
	// DNSMixed only appears as an overall status, when the UI and email
	// checks for a target disagree.
	DNSMixed DNSStatus = "MIXED"
)

// Terminal reports whether a status will never change again server-side.
func (s DNSStatus) Terminal() bool {
	return s == DNSActive || s == DNSExpired || s == DNSFailed
}

// CheckKind selects which validation flavour a request creates.
type CheckKind string

const (
	CheckUI    CheckKind = "UI"
	CheckEmail CheckKind = "EMAIL"
)

// DNSRequest is the body of POST /request/ui and /request/email.
type DNSRequest struct {
	Target string `json:"target"`
}

// DNSRequestResponse is returned when a validation check is created.
type DNSRequestResponse struct {
	ID        int64     `json:"id"`
	Target    string    `json:"target"`
	Type      CheckKind `json:"type"`
	Status    DNSStatus `json:"status"`
	ExpiresAt string    `json:"expires_at"`
}

// RecordKey identifies the class of DNS record a requirement covers.
type RecordKey string

const (
	RecordCNAME RecordKey = "CNAME"
	RecordMX    RecordKey = "MX"
	RecordSPF   RecordKey = "SPF"
	RecordDMARC RecordKey = "DMARC"
)

// MXExpectation is the expected value of an MX requirement.
type MXExpectation struct {
	Host     string `json:"host"`
	Priority int    `json:"priority"`
}

// MXFound is one MX record the server's resolver observed.
type MXFound struct {
	Exchange string `json:"exchange"`
	Priority int    `json:"priority"`
}

// RecordRequirement is one record class the server expects to find on
// the target domain. Expected and Found stay raw because their shape
// depends on Key: MX entries are objects, everything else is a string.
type RecordRequirement struct {
	Key            RecordKey       `json:"key"`
	Type           string          `json:"type"`
	Name           string          `json:"name"`
	Expected       json.RawMessage `json:"expected"`
	Found          json.RawMessage `json:"found"`
	OK             bool            `json:"ok"`
	FoundTruncated bool            `json:"found_truncated"`
}

// ExpectedValue decodes the expected value of a non-MX requirement.
func (r *RecordRequirement) ExpectedValue() (string, error) {
	if r.Key == RecordMX {
		return "", fmt.Errorf("requirement %s: expected value is not a string", r.Key)
	}
	var s string
	if err := json.Unmarshal(r.Expected, &s); err != nil {
		return "", fmt.Errorf("decode expected for %s: %w", r.Key, err)
	}
	return s, nil
}

// ExpectedMX decodes the expected value of an MX requirement.
func (r *RecordRequirement) ExpectedMX() (MXExpectation, error) {
	var mx MXExpectation
	if r.Key != RecordMX {
		return mx, fmt.Errorf("requirement %s: expected value is not an MX object", r.Key)
	}
	if err := json.Unmarshal(r.Expected, &mx); err != nil {
		return mx, fmt.Errorf("decode expected MX: %w", err)
	}
	return mx, nil
}

// FoundValues decodes the found entries of a non-MX requirement. A
// missing or null found list decodes to nil.
func (r *RecordRequirement) FoundValues() ([]string, error) {
	if len(r.Found) == 0 {
		return nil, nil
	}
	var vals []string
	if err := json.Unmarshal(r.Found, &vals); err != nil {
		return nil, fmt.Errorf("decode found for %s: %w", r.Key, err)
	}
	return vals, nil
}

// FoundMX decodes the found entries of an MX requirement.
func (r *RecordRequirement) FoundMX() ([]MXFound, error) {
	if len(r.Found) == 0 {
		return nil, nil
	}
	var vals []MXFound
	if err := json.Unmarshal(r.Found, &vals); err != nil {
		return nil, fmt.Errorf("decode found MX: %w", err)
	}
	return vals, nil
}

// DNSCheck is the state of one validation check kind for a target.
type DNSCheck struct {
	Status        DNSStatus           `json:"status"`
	ID            int64               `json:"id"`
	CreatedAt     string              `json:"created_at,omitempty"`
	ExpiresAt     string              `json:"expires_at,omitempty"`
	LastCheckedAt string              `json:"last_checked_at,omitempty"`
	NextCheckAt   string              `json:"next_check_at,omitempty"`
	Missing       []RecordRequirement `json:"missing,omitempty"`
}

// CheckSummary aggregates both check kinds for a target.
type CheckSummary struct {
	HasUI            bool      `json:"has_ui"`
	HasEmail         bool      `json:"has_email"`
	OverallStatus    DNSStatus `json:"overall_status"`
	ExpiresAtMin     string    `json:"expires_at_min,omitempty"`
	LastCheckedAtMax string    `json:"last_checked_at_max,omitempty"`
	NextCheckAtMin   string    `json:"next_check_at_min,omitempty"`
}

// CheckDNSResponse is returned by GET /api/checkdns/{target}.
type CheckDNSResponse struct {
	Target           string        `json:"target"`
	NormalizedTarget string        `json:"normalized_target"`
	Summary          *CheckSummary `json:"summary"`
	UI               *DNSCheck     `json:"ui"`
	Email            *DNSCheck     `json:"email"`
}

// Check returns the per-kind check of the response, which may be nil.
func (r *CheckDNSResponse) Check(kind CheckKind) *DNSCheck {
	if r == nil {
		return nil
	}
	if kind == CheckUI {
		return r.UI
	}
	return r.Email
}

// ErrorEnvelope is the failure shape shared by every endpoint:
// {ok:false, error:<code>, ...context}. Context fields are optional and
// code-dependent.
type ErrorEnvelope struct {
	OK       *bool  `json:"ok,omitempty"`
	Error    string `json:"error,omitempty"`
	Message  string `json:"message,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Field    string `json:"field,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Alias    string `json:"alias,omitempty"`
	Address  string `json:"address,omitempty"`
	BanType  string `json:"ban_type,omitempty"`
	BanValue string `json:"ban_value,omitempty"`
}

// Documented error codes. Unrecognized codes fall back to a generic
// description; the set here is the published contract.
const (
	ErrInvalidParams          = "invalid_params"
	ErrInvalidDomain          = "invalid_domain"
	ErrBanned                 = "banned"
	ErrAliasTaken             = "alias_taken"
	ErrAliasNotFound          = "alias_not_found"
	ErrAliasInactive          = "alias_inactive"
	ErrAliasOwnerChanged      = "alias_owner_changed"
	ErrInvalidToken           = "invalid_token"
	ErrInvalidOrExpired       = "invalid_or_expired"
	ErrUnsupportedIntent      = "unsupported_intent"
	ErrRateLimited            = "rate_limited"
	ErrServerMisconfigured    = "server_misconfigured"
	ErrUnsupportedMediaType   = "unsupported_media_type"
	ErrTemporarilyUnavailable = "temporarily_unavailable"
	ErrInternalError          = "internal_error"
)
