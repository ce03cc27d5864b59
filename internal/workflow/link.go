package workflow

import (
	"net/url"
	"strings"

	"github.com/haltman-io/aliasctl/internal/api"
)

// ConfirmLink is the confirmation payload carried by an emailed link:
// the token, the intent it belongs to, and the link with both stripped
// so it can be shown or reused without replaying the confirmation.
type ConfirmLink struct {
	Token     string
	Intent    api.Intent
	HasIntent bool
	Stripped  string
}

// ParseConfirmLink extracts confirm_token/token (and, for the alias
// flow, confirm_intent/intent) from a confirmation URL. It returns
// false when the URL carries no token.
func ParseConfirmLink(raw string) (ConfirmLink, bool, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ConfirmLink{}, false, err
	}

	q := u.Query()
	token := strings.TrimSpace(q.Get("confirm_token"))
	if token == "" {
		token = strings.TrimSpace(q.Get("token"))
	}
	if token == "" {
		return ConfirmLink{}, false, nil
	}

	rawIntent := strings.ToLower(strings.TrimSpace(q.Get("confirm_intent")))
	if rawIntent == "" {
		rawIntent = strings.ToLower(strings.TrimSpace(q.Get("intent")))
	}

	q.Del("confirm_token")
	q.Del("token")
	q.Del("confirm_intent")
	q.Del("intent")
	u.RawQuery = q.Encode()

	link := ConfirmLink{
		Token:     token,
		Intent:    api.ParseIntent(rawIntent),
		HasIntent: rawIntent != "",
		Stripped:  u.String(),
	}
	return link, true, nil
}
