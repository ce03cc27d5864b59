package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/haltman-io/aliasctl/internal/api"
	"github.com/haltman-io/aliasctl/internal/mailaddr"
)

// SubscribeParams are the fields of a subscribe request. Either
// Name+Domain or Address must be set; To is always required.
type SubscribeParams struct {
	Name    string
	Domain  string
	Address string
	To      string
}

// Query renders the request parameters: a full address wins over
// name+domain when both are set, and to is always included.
func (p SubscribeParams) Query() url.Values {
	q := url.Values{}
	if p.Address != "" {
		q.Set("address", p.Address)
	} else {
		q.Set("name", p.Name)
		q.Set("domain", p.Domain)
	}
	q.Set("to", p.To)
	return q
}

// Subscribe requests creation of an alias; the server replies after
// dispatching a confirmation email.
func (c *Client) Subscribe(ctx context.Context, p SubscribeParams) (*api.SubscribeResponse, error) {
	var out api.SubscribeResponse
	if err := c.get(ctx, "/forward/subscribe", p.Query(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Unsubscribe requests removal of an alias; confirmation is emailed to
// the alias destination.
func (c *Client) Unsubscribe(ctx context.Context, alias string) (*api.UnsubscribeResponse, error) {
	q := url.Values{}
	q.Set("alias", alias)
	var out api.UnsubscribeResponse
	if err := c.get(ctx, "/forward/unsubscribe", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Confirm finalizes a pending subscribe or unsubscribe with the emailed
// token.
func (c *Client) Confirm(ctx context.Context, token string) (*api.ConfirmResponse, error) {
	q := url.Values{}
	q.Set("token", token)
	var out api.ConfirmResponse
	if err := c.get(ctx, "/forward/confirm", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCredentials asks the server to issue an API token for email,
// valid for the given number of days, pending OTP confirmation.
func (c *Client) CreateCredentials(ctx context.Context, email string, days int) (*api.CreateCredentialsResponse, error) {
	var out api.CreateCredentialsResponse
	body := api.CreateCredentialsRequest{Email: email, Days: days}
	if err := c.post(ctx, "/api/credentials/create", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmCredentials finalizes API token issuance with the emailed
// 6-digit OTP.
func (c *Client) ConfirmCredentials(ctx context.Context, token string) (*api.ConfirmCredentialsResponse, error) {
	q := url.Values{}
	q.Set("token", token)
	var out api.ConfirmCredentialsResponse
	if err := c.get(ctx, "/api/credentials/confirm", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Domains lists the alias domains available for subscription,
// normalized and deduplicated.
func (c *Client) Domains(ctx context.Context) ([]string, error) {
	var raw []string
	if err := c.get(ctx, "/domains", nil, nil, &raw); err != nil {
		return nil, err
	}
	return mailaddr.NormalizeDomains(raw), nil
}

// RequestCheck begins DNS record validation of kind for target.
func (c *Client) RequestCheck(ctx context.Context, kind api.CheckKind, target string) (*api.DNSRequestResponse, error) {
	path := "/request/ui"
	if kind == api.CheckEmail {
		path = "/request/email"
	}
	var out api.DNSRequestResponse
	if err := c.post(ctx, path, api.DNSRequest{Target: target}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckDNS polls the validation status of target. The API key header is
// attached when configured.
func (c *Client) CheckDNS(ctx context.Context, target string) (*api.CheckDNSResponse, error) {
	var headers map[string]string
	if c.APIKey != "" {
		headers = map[string]string{"x-api-key": c.APIKey}
	}
	var out api.CheckDNSResponse
	path := "/api/checkdns/" + url.PathEscape(target)
	if err := c.get(ctx, path, nil, headers, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurlSubscribe renders the curl one-liner equivalent of a subscribe
// request, for operators scripting against the API directly.
func (c *Client) CurlSubscribe(p SubscribeParams) string {
	return fmt.Sprintf("curl '%s/forward/subscribe?%s'", c.BaseURL, p.Query().Encode())
}

// CurlUnsubscribe renders the curl one-liner equivalent of an
// unsubscribe request.
func (c *Client) CurlUnsubscribe(alias string) string {
	q := url.Values{}
	q.Set("alias", alias)
	return fmt.Sprintf("curl '%s/forward/unsubscribe?%s'", c.BaseURL, q.Encode())
}
