package youtube

import (
	"regexp"
	"strconv"
)

// isoDurationRe matches the ISO-8601 durations the Data API emits, e.g.
// PT1H23M45S, PT4M13S, P1DT2H.
var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// parseISODuration converts an ISO-8601 duration string to whole seconds.
// Unparseable input yields 0; durations never carry fractions on YouTube.
func parseISODuration(s string) int64 {
	if s == "" {
		return 0
	}
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	part := func(idx int) int64 {
		if m[idx] == "" {
			return 0
		}
		n, err := strconv.ParseInt(m[idx], 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return part(1)*86400 + part(2)*3600 + part(3)*60 + part(4)
}
