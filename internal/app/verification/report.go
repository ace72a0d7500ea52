package verification

import "strings"

// Report is the outcome of one verification pass.
type Report struct {
	Flags        Flags
	StaticErrors []string
	// Verified lists every identity in the verified set after the pass.
	Verified []string
	// Unverified lists the active targets missing from the verified set.
	Unverified    []string
	FullyVerified bool
	// Pending is set while the timeout window is still open; unverified
	// targets are not reported yet.
	Pending bool
	// Timeout marks the report produced when the timeout window elapsed.
	Timeout bool
}

// HasErrors reports static errors or targets left unverified once the pass is
// final.
func (r Report) HasErrors() bool {
	return len(r.StaticErrors) > 0 || (!r.Pending && !r.FullyVerified && len(r.Unverified) > 0)
}

func (r Report) String() string {
	var b strings.Builder
	line := func(s string) {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s)
	}

	if r.Flags&Static != 0 {
		if len(r.StaticErrors) == 0 {
			line("Static configuration verification completed without errors")
		} else {
			line("Static configuration errors detected!")
			for _, e := range r.StaticErrors {
				line(e)
			}
		}
	} else if len(r.StaticErrors) > 0 {
		for _, e := range r.StaticErrors {
			line(e)
		}
	}

	if r.Flags&ChannelLinks != 0 || r.Timeout {
		for _, id := range r.Verified {
			line("Channel Link Verified: " + id)
		}
		switch {
		case r.FullyVerified:
			line("All channel links successfully verified")
		case r.Pending:
			line("Awaiting channel link verification")
		case len(r.Unverified) > 0:
			line("Unverified channels detected:")
			for _, id := range r.Unverified {
				line(id)
			}
		}
	}

	return b.String()
}
