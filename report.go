package main

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"
)

func separator(s string, n int) string {
	return strings.Repeat(s, n)
}

func describeReadMode(mode string) string {
	if mode == readModeFramed {
		return "framed (length-aware reads; latencies are not comparable with single-read runs)"
	}
	return fmt.Sprintf("single (one %d byte read per reply; long replies are truncated)", replyBufferSize)
}

// compareDurations returns which side is faster and by what factor. Ties go
// to the reference.
func compareDurations(ref, sub time.Duration) (subjectFaster bool, ratio float64) {
	subjectFaster = sub < ref
	slow, fast := sub, ref
	if subjectFaster {
		slow, fast = ref, sub
	}
	if fast <= 0 {
		if slow <= 0 {
			return subjectFaster, 1
		}
		return subjectFaster, math.Inf(1)
	}
	return subjectFaster, float64(slow) / float64(fast)
}

// formatCell renders one category line without the leading label.
func formatCell(refName string, ref *measurement, subName string, sub *measurement) string {
	switch {
	case ref != nil && sub != nil:
		subjectFaster, ratio := compareDurations(ref.Elapsed, sub.Elapsed)
		faster := refName
		if subjectFaster {
			faster = subName
		}
		return fmt.Sprintf("%s: %.2f ms | %s: %.2f ms | %s is %.2fx faster",
			refName, millis(ref.Elapsed), subName, millis(sub.Elapsed), faster, ratio)
	case ref != nil:
		return fmt.Sprintf("%s: %.2f ms | %s: N/A", refName, millis(ref.Elapsed), subName)
	case sub != nil:
		return fmt.Sprintf("%s: N/A | %s: %.2f ms", refName, subName, millis(sub.Elapsed))
	}
	return "Both: N/A"
}

func printSummary(out io.Writer, cfg Config, results []sizeResult) {
	refName, subName := cfg.Reference.Name, cfg.Subject.Name
	fmt.Fprintf(out, "\n%s\n", separator("=", 60))
	fmt.Fprintf(out, "PERFORMANCE SUMMARY\n")
	fmt.Fprintf(out, "%s\n", separator("=", 60))
	fmt.Fprintf(out, "Read mode: %s\n", describeReadMode(cfg.ReadMode))

	for _, sr := range results {
		fmt.Fprintf(out, "\nData Size: %d records\n", sr.Size)
		fmt.Fprintf(out, "%s\n", separator("-", 40))
		for _, c := range categories {
			cr, ok := sr.category(c)
			if !ok {
				continue
			}
			fmt.Fprintf(out, "%-12s -> %s\n", strings.ToUpper(string(c)), formatCell(refName, cr.Reference, subName, cr.Subject))
		}
	}
}
