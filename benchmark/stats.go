package benchmark

import (
	"fmt"
	"strconv"
	"strings"
)

// nameSeparators split a benchmark name into a namespace and a leaf.
var nameSeparators = []string{"::", "/"}

// NiceMean rescales a time in seconds to ns, µs, ms or s with two decimals.
func NiceMean(seconds float64) string {
	switch {
	case seconds < 0.000_001:
		return fmt.Sprintf("%.2f ns", seconds*1e9)
	case seconds < 0.001:
		return fmt.Sprintf("%.2f µs", seconds*1e6)
	case seconds < 1:
		return fmt.Sprintf("%.2f ms", seconds*1e3)
	default:
		return fmt.Sprintf("%.2f s", seconds)
	}
}

// nicePercent formats a relative change with an explicit sign.
func nicePercent(change float64) string {
	return fmt.Sprintf("%+.2f%%", change*100)
}

// niceCount formats a sample count with thousands separators.
func niceCount(n int) string {
	s := strconv.Itoa(n)
	if n < 0 || len(s) <= 3 {
		return s
	}

	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// splitName separates the namespace of a benchmark name, which is printed
// dimmed, from the part that identifies the call. With an argument list the
// split happens at the last separator before the final "(". A name with no
// structure is all namespace.
func splitName(name string) (namespace, leaf string) {
	head := name
	if i := strings.LastIndexByte(name, '('); i >= 0 {
		head = name[:i]
		if j, sep := lastSeparator(head); j >= 0 {
			return name[:j+len(sep)], name[j+len(sep):]
		}
		return name[:i], name[i:]
	}
	if j, sep := lastSeparator(head); j >= 0 {
		return name[:j+len(sep)], name[j+len(sep):]
	}
	return name, ""
}

func lastSeparator(s string) (int, string) {
	pos, found := -1, ""
	for _, sep := range nameSeparators {
		if i := strings.LastIndex(s, sep); i > pos {
			pos, found = i, sep
		}
	}
	return pos, found
}
