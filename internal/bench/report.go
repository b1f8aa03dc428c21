package bench

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary renders a human-readable run report with grouped digits.
func (r *Result) Summary() string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	fmt.Fprintf(&b, "run %s (%s)\n", r.RunID, r.Elapsed.Round(time.Millisecond))
	p.Fprintf(&b, "  writes:      %d (%d evictions)\n", r.Stats.Writes, r.Stats.Evictions)
	p.Fprintf(&b, "  reads:       %d (%d hits, %d misses)\n", r.Reads, r.Hits, r.Misses)
	if r.Reads > 0 {
		fmt.Fprintf(&b, "  hit rate:    %.2f%%\n", float64(r.Hits)/float64(r.Reads)*100)
	}
	if r.Elapsed > 0 {
		perSec := float64(r.Stats.Writes+r.Reads) / r.Elapsed.Seconds()
		p.Fprintf(&b, "  throughput:  %d ops/s\n", int64(perSec))
	}
	p.Fprintf(&b, "  working set: %d bytes\n", r.WorkingSet)
	return b.String()
}
