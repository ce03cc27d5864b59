package dnscheck

import (
	"fmt"
	"strings"

	"github.com/haltman-io/aliasctl/internal/api"
)

// NormalizeHostname lowercases and strips surrounding whitespace and
// trailing dots, so "Mail.Example.COM." equals "mail.example.com".
func NormalizeHostname(v string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(v)), ".")
}

// NormalizeTXT lowercases a TXT-style value (SPF/DMARC) and collapses
// internal whitespace runs to single spaces.
func NormalizeTXT(v string) string {
	return strings.ToLower(strings.Join(strings.Fields(v), " "))
}

// FoundEntry is one resolver observation with its verdict against the
// expected value.
type FoundEntry struct {
	Value string
	Match bool
}

// FoundEntries compares each of a requirement's found records against
// its expected value using kind-specific normalization: hostname rules
// for CNAME and MX exchanges (plus exact priority for MX), TXT rules
// for SPF and DMARC.
func FoundEntries(req *api.RecordRequirement) ([]FoundEntry, error) {
	if req.Key == api.RecordMX {
		expected, err := req.ExpectedMX()
		if err != nil {
			return nil, err
		}
		found, err := req.FoundMX()
		if err != nil {
			return nil, err
		}
		host := NormalizeHostname(expected.Host)
		entries := make([]FoundEntry, 0, len(found))
		for _, f := range found {
			entries = append(entries, FoundEntry{
				Value: fmt.Sprintf("%s (priority %d)", f.Exchange, f.Priority),
				Match: NormalizeHostname(f.Exchange) == host && f.Priority == expected.Priority,
			})
		}
		return entries, nil
	}

	expectedRaw, err := req.ExpectedValue()
	if err != nil {
		return nil, err
	}
	found, err := req.FoundValues()
	if err != nil {
		return nil, err
	}

	normalize := NormalizeTXT
	if req.Key == api.RecordCNAME {
		normalize = NormalizeHostname
	}
	expected := normalize(expectedRaw)
	entries := make([]FoundEntry, 0, len(found))
	for _, v := range found {
		entries = append(entries, FoundEntry{Value: v, Match: normalize(v) == expected})
	}
	return entries, nil
}

// Satisfied reports whether a requirement is met: every found entry
// matches the expected value, or, when the resolver returned nothing,
// whatever the server's own verdict says. A requirement whose entries
// cannot be decoded is unsatisfied.
func Satisfied(req *api.RecordRequirement) bool {
	entries, err := FoundEntries(req)
	if err != nil {
		return false
	}
	if len(entries) == 0 {
		return req.OK
	}
	for _, e := range entries {
		if !e.Match {
			return false
		}
	}
	return true
}
