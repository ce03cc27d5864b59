// Package dnsprobe previews a target's live DNS records from the
// client's own vantage point, so an operator can see propagation before
// the server's next validation poll.
package dnsprobe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const defaultTimeout = 5 * time.Second

// MXRecord is one observed MX entry.
type MXRecord struct {
	Exchange string
	Priority int
}

// Result holds the record classes the forwarding service validates.
type Result struct {
	Target string
	CNAME  []string
	MX     []MXRecord
	SPF    []string
	DMARC  []string
}

// Prober performs lookups against one resolver.
type Prober struct {
	// Resolver is a host:port UDP resolver address. Empty picks the
	// first nameserver from /etc/resolv.conf, falling back to a public
	// resolver.
	Resolver string
	Timeout  time.Duration

	client *dns.Client
}

// New creates a prober for the given resolver address ("" for the
// system default).
func New(resolver string) *Prober {
	return &Prober{
		Resolver: resolver,
		Timeout:  defaultTimeout,
		client:   &dns.Client{Timeout: defaultTimeout},
	}
}

func (p *Prober) resolverAddr() string {
	if p.Resolver != "" {
		return withDefaultPort(p.Resolver)
	}
	if cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && len(cfg.Servers) > 0 {
		return cfg.Servers[0] + ":" + cfg.Port
	}
	return "9.9.9.9:53"
}

func withDefaultPort(addr string) string {
	if strings.Contains(addr, ":") {
		return addr
	}
	return addr + ":53"
}

// Lookup queries the CNAME, MX, SPF TXT and DMARC TXT records for
// target. Individual query failures leave that class empty; only a
// completely unreachable resolver returns an error.
func (p *Prober) Lookup(ctx context.Context, target string) (*Result, error) {
	if p.Timeout > 0 {
		p.client.Timeout = p.Timeout
	}
	addr := p.resolverAddr()
	res := &Result{Target: target}

	var firstErr error
	failures := 0

	cname, err := p.query(ctx, addr, target, dns.TypeCNAME)
	if err != nil {
		failures++
		firstErr = err
	} else {
		for _, rr := range cname {
			if c, ok := rr.(*dns.CNAME); ok {
				res.CNAME = append(res.CNAME, strings.TrimSuffix(c.Target, "."))
			}
		}
	}

	mx, err := p.query(ctx, addr, target, dns.TypeMX)
	if err != nil {
		failures++
		if firstErr == nil {
			firstErr = err
		}
	} else {
		for _, rr := range mx {
			if m, ok := rr.(*dns.MX); ok {
				res.MX = append(res.MX, MXRecord{
					Exchange: strings.TrimSuffix(m.Mx, "."),
					Priority: int(m.Preference),
				})
			}
		}
	}

	txt, err := p.query(ctx, addr, target, dns.TypeTXT)
	if err != nil {
		failures++
		if firstErr == nil {
			firstErr = err
		}
	} else {
		for _, v := range txtStrings(txt) {
			if strings.HasPrefix(strings.ToLower(v), "v=spf1") {
				res.SPF = append(res.SPF, v)
			}
		}
	}

	dmarc, err := p.query(ctx, addr, "_dmarc."+target, dns.TypeTXT)
	if err != nil {
		failures++
		if firstErr == nil {
			firstErr = err
		}
	} else {
		res.DMARC = txtStrings(dmarc)
	}

	if failures == 4 {
		return nil, fmt.Errorf("resolver %s unreachable: %w", addr, firstErr)
	}
	return res, nil
}

func (p *Prober) query(ctx context.Context, addr, name string, qtype uint16) ([]dns.RR, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.RecursionDesired = true

	in, _, err := p.client.ExchangeContext(ctx, m, addr)
	if err != nil {
		return nil, fmt.Errorf("query %s %s: %w", dns.TypeToString[qtype], name, err)
	}
	return in.Answer, nil
}

// txtStrings joins the character-string chunks of each TXT answer.
func txtStrings(answers []dns.RR) []string {
	var out []string
	for _, rr := range answers {
		if t, ok := rr.(*dns.TXT); ok {
			out = append(out, strings.Join(t.Txt, ""))
		}
	}
	return out
}
