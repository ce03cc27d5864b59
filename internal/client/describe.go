package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/haltman-io/aliasctl/internal/api"
)

// Notice is a user-facing failure or status message.
type Notice struct {
	Title       string
	Description string
}

// Describe classifies err for presentation. Recognized API error codes
// get a specific title and a description interpolating the context
// fields the server sent; unrecognized codes and bodyless HTTP 429
// responses fall back to generic messages; everything else is reported
// as a network error.
func Describe(err error) Notice {
	if err == nil {
		return Notice{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Notice{Title: "Cancelled", Description: "The request was cancelled."}
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return Notice{Title: "Network error", Description: err.Error()}
	}

	env := apiErr.Envelope
	if env == nil {
		env = &api.ErrorEnvelope{}
	}

	switch apiErr.Code {
	case api.ErrInvalidParams:
		d := "One or more request parameters were rejected."
		if env.Field != "" && env.Reason != "" {
			d = fmt.Sprintf("Check the %q field: %s.", env.Field, env.Reason)
		} else if env.Field != "" {
			d = fmt.Sprintf("Check the %q field.", env.Field)
		}
		return Notice{Title: "Invalid parameters", Description: d}
	case api.ErrInvalidDomain:
		d := "The domain is not accepted by this service."
		if env.Domain != "" {
			d = fmt.Sprintf("The domain %q is not accepted by this service.", env.Domain)
		}
		return Notice{Title: "Invalid domain", Description: d}
	case api.ErrBanned:
		d := "This address or domain is banned."
		if env.BanType != "" && env.BanValue != "" {
			d = fmt.Sprintf("Banned %s: %q.", env.BanType, env.BanValue)
		}
		return Notice{Title: "Banned", Description: d}
	case api.ErrAliasTaken:
		d := "That alias already exists. Pick another handle."
		if env.Alias != "" {
			d = fmt.Sprintf("The alias %q already exists. Pick another handle.", env.Alias)
		}
		return Notice{Title: "Alias taken", Description: d}
	case api.ErrAliasNotFound:
		d := "No such alias exists."
		if env.Alias != "" {
			d = fmt.Sprintf("The alias %q does not exist.", env.Alias)
		}
		return Notice{Title: "Alias not found", Description: d}
	case api.ErrAliasInactive:
		d := "The alias is inactive and cannot be changed."
		if env.Alias != "" {
			d = fmt.Sprintf("The alias %q is inactive and cannot be changed.", env.Alias)
		}
		return Notice{Title: "Alias inactive", Description: d}
	case api.ErrAliasOwnerChanged:
		return Notice{
			Title:       "Alias owner changed",
			Description: "The alias now forwards to a different destination. Re-subscribe to take it over.",
		}
	case api.ErrInvalidToken:
		return Notice{Title: "Invalid code", Description: "Code must be exactly 6 digits."}
	case api.ErrInvalidOrExpired:
		return Notice{
			Title:       "Code invalid or expired",
			Description: "Request a new confirmation code and try again.",
		}
	case api.ErrUnsupportedIntent:
		return Notice{Title: "Unsupported intent", Description: "The server rejected the requested operation."}
	case api.ErrRateLimited:
		return Notice{Title: "Rate limited", Description: "Too many requests. Try again soon."}
	case api.ErrServerMisconfigured:
		return Notice{Title: "Server misconfigured", Description: "The service is misconfigured. Try again later."}
	case api.ErrUnsupportedMediaType:
		return Notice{Title: "Unsupported media type", Description: "The server rejected the request encoding."}
	case api.ErrTemporarilyUnavailable:
		return Notice{Title: "Temporarily unavailable", Description: "The service is temporarily unavailable. Try again soon."}
	case api.ErrInternalError:
		return Notice{Title: "Server error", Description: "The service hit an internal error. Try again later."}
	case "":
		if apiErr.Status == http.StatusTooManyRequests {
			return Notice{Title: "Rate limited", Description: "Too many requests. Try again soon."}
		}
		return Notice{Title: "API error", Description: apiErr.Error()}
	default:
		return Notice{Title: "Request failed", Description: fmt.Sprintf("Error: %s", apiErr.Code)}
	}
}
