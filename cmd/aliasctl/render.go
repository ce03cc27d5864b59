package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/haltman-io/aliasctl/internal/api"
	"github.com/haltman-io/aliasctl/internal/dnscheck"
	"github.com/haltman-io/aliasctl/internal/dnsprobe"
)

// renderCheck prints one kind's validation state: status line, then a
// row per missing record requirement with the resolver's observations.
func renderCheck(w io.Writer, resp *api.CheckDNSResponse, kind api.CheckKind) {
	target := resp.NormalizedTarget
	if target == "" {
		target = resp.Target
	}
	fmt.Fprintf(w, "Target: %s\n", target)

	if resp.Summary != nil {
		fmt.Fprintf(w, "Overall: %s\n", resp.Summary.OverallStatus)
	}

	check := resp.Check(kind)
	if check == nil {
		fmt.Fprintf(w, "No %s check on record.\n", kind)
		return
	}

	fmt.Fprintf(w, "%s check: %s", kind, check.Status)
	if check.NextCheckAt != "" && !check.Status.Terminal() {
		fmt.Fprintf(w, " (next check %s)", check.NextCheckAt)
	}
	fmt.Fprintln(w)

	if len(check.Missing) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORD\tNAME\tEXPECTED\tSTATE")
	for i := range check.Missing {
		req := &check.Missing[i]
		state := "missing"
		if dnscheck.Satisfied(req) {
			state = "ok"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", req.Key, req.Name, expectedString(req), state)

		entries, err := dnscheck.FoundEntries(req)
		if err != nil {
			fmt.Fprintf(tw, "\t\tfound: <undecodable>\t\n")
			continue
		}
		for _, e := range entries {
			verdict := "mismatch"
			if e.Match {
				verdict = "match"
			}
			fmt.Fprintf(tw, "\t\tfound: %s\t%s\n", e.Value, verdict)
		}
		if req.FoundTruncated {
			fmt.Fprintf(tw, "\t\tfound: ...\t\n")
		}
	}
	tw.Flush()
}

func expectedString(req *api.RecordRequirement) string {
	if req.Key == api.RecordMX {
		mx, err := req.ExpectedMX()
		if err != nil {
			return "<undecodable>"
		}
		return fmt.Sprintf("%s (priority %d)", mx.Host, mx.Priority)
	}
	v, err := req.ExpectedValue()
	if err != nil {
		return "<undecodable>"
	}
	return v
}

// renderProbe prints a local resolver observation.
func renderProbe(w io.Writer, res *dnsprobe.Result) {
	fmt.Fprintf(w, "Target: %s\n", res.Target)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, v := range res.CNAME {
		fmt.Fprintf(tw, "CNAME\t%s\n", v)
	}
	for _, mx := range res.MX {
		fmt.Fprintf(tw, "MX\t%s (priority %d)\n", mx.Exchange, mx.Priority)
	}
	for _, v := range res.SPF {
		fmt.Fprintf(tw, "SPF\t%s\n", v)
	}
	for _, v := range res.DMARC {
		fmt.Fprintf(tw, "DMARC\t%s\n", v)
	}
	tw.Flush()

	if len(res.CNAME)+len(res.MX)+len(res.SPF)+len(res.DMARC) == 0 {
		fmt.Fprintln(w, "No records found.")
	}
}
