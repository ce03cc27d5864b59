// Package mailaddr validates and normalizes alias handles, domains and
// mailbox addresses before anything reaches the network.
package mailaddr

import (
	"regexp"
	"sort"
	"strings"
)

// reHandle accepts 1-64 chars of [a-z0-9.] with no dot at start or end.
var reHandle = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9.]{0,62}[a-z0-9])?$`)

// reDomain accepts dotted lowercase labels with an alphabetic TLD of
// 2-63 chars. Overall length is checked separately (max 253).
var reDomain = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,63}$`)

// Lower trims surrounding whitespace and lowercases.
func Lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidHandle reports whether s is an acceptable alias handle. The
// input is expected to be normalized with Lower first.
func ValidHandle(s string) bool {
	return reHandle.MatchString(s)
}

// ValidDomain reports whether s is a plausible DNS domain like
// "example.com". The input is expected to be normalized with Lower.
func ValidDomain(s string) bool {
	return len(s) >= 1 && len(s) <= 253 && reDomain.MatchString(s)
}

// ProbablyEmail is a deliberately permissive mailbox check: the server
// owns real validation, the client only rejects obvious garbage.
func ProbablyEmail(v string) bool {
	s := strings.TrimSpace(v)
	return len(s) <= 254 && strings.Contains(s, "@") &&
		!strings.HasPrefix(s, "@") && !strings.HasSuffix(s, "@")
}

// Split divides an address at its last "@". Addresses without one
// return the whole input as the local part.
func Split(address string) (local, domain string) {
	at := strings.LastIndex(address, "@")
	if at == -1 {
		return address, ""
	}
	return address[:at], address[at+1:]
}

// NormalizeDomains trims, lowercases and filters a raw domain list,
// drops duplicates, and orders by length then lexicographically so the
// shortest domains lead the selection list.
func NormalizeDomains(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, d := range raw {
		n := Lower(d)
		if n == "" || !ValidDomain(n) || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) < len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}
