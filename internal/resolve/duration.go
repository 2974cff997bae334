package resolve

import (
	"strconv"
	"strings"
)

// ParseISO8601Duration converts a YouTube contentDetails duration such as
// "PT1H2M3S" to seconds. Every component is optional; a bare "PT" is zero.
// A leading day component ("P1DT2H") is honoured for very long streams.
func ParseISO8601Duration(s string) int {
	s = strings.TrimPrefix(s, "P")

	days := 0
	if date, rest, ok := strings.Cut(s, "T"); ok {
		if d, found := strings.CutSuffix(date, "D"); found {
			days = atoi(d)
		}
		s = rest
	} else if d, found := strings.CutSuffix(s, "D"); found {
		return atoi(d) * 86400
	}

	var hours, minutes, seconds int
	if part, rest, ok := strings.Cut(s, "H"); ok {
		hours = atoi(part)
		s = rest
	}
	if part, rest, ok := strings.Cut(s, "M"); ok {
		minutes = atoi(part)
		s = rest
	}
	if part, _, ok := strings.Cut(s, "S"); ok {
		seconds = atoi(part)
	}

	return days*86400 + hours*3600 + minutes*60 + seconds
}

// atoi reads the leading integer part; "3.5" is 3 and garbage is 0
func atoi(s string) int {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
