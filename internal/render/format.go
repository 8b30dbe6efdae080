package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sanspareilsmyn/latencymap/internal/record"
)

// FormatValue renders a readout: one significant digit up to 9, a rounded integer
// below one million, two significant digits above.
func FormatValue(v float64) string {
	switch {
	case v < 0:
		return "0"
	case v <= 9:
		return fmt.Sprintf("%.1g", v)
	case v < 1_000_000:
		return strconv.FormatFloat(math.RoundToEven(v), 'f', 0, 64)
	}
	return fmt.Sprintf("%.2g", v)
}

// BucketLabel renders the upper bound of bucket 2^exp, given in unit, as milliseconds:
// ".512" style below 1 ms, integers from 1 ms up.
func BucketLabel(exp int, unit record.LatencyUnit) string {
	ms := unit.Milliseconds(math.Exp2(float64(exp)))
	if ms < 1 {
		return strings.TrimLeft(strconv.FormatFloat(ms, 'f', 3, 64), "0")
	}
	return strconv.FormatFloat(math.RoundToEven(ms), 'f', 0, 64)
}

// padRight pads s with spaces up to width, like a left-justified column.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// padLeft right-justifies s in width using fill.
func padLeft(s string, width int, fill string) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(fill, width-len(s)) + s
}
