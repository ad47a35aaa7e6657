package collector

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// knownTimeframes is the enumerated set spec §4.1 names explicitly.
var knownTimeframes = map[string]time.Duration{
	"15m": 15 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"8h":  8 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

var reGenericTimeframe = regexp.MustCompile(`^(\d+)(m|h|d|w)$`)

// ParseTimeframe resolves a timeframe string to a duration. The
// enumerated map is checked first (the common case); any other
// well-formed "<N><unit>" string (e.g. "30m", "2d", "3w") is parsed
// through a generic grammar instead of being rejected, since a
// lookup-only parser silently drops any timeframe the caller could
// legitimately request that the map's authors didn't enumerate.
func ParseTimeframe(timeframe string) (time.Duration, error) {
	if d, ok := knownTimeframes[timeframe]; ok {
		return d, nil
	}

	m := reGenericTimeframe.FindStringSubmatch(timeframe)
	if m == nil {
		return 0, fmt.Errorf("unrecognized timeframe %q", timeframe)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("unrecognized timeframe %q", timeframe)
	}

	var unit time.Duration
	switch m[2] {
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	case "w":
		unit = 7 * 24 * time.Hour
	}
	return time.Duration(n) * unit, nil
}

// IsKnownTimeframe reports whether timeframe resolves under either
// grammar, without returning the duration.
func IsKnownTimeframe(timeframe string) bool {
	_, err := ParseTimeframe(timeframe)
	return err == nil
}

// mtfTimeframes are the fixed multi-timeframe context set (spec §4.1):
// always 1h/4h/1d regardless of the primary timeframe requested.
var mtfTimeframes = []string{"1h", "4h", "1d"}
