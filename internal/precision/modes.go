package precision

import (
	"fmt"
	"strings"
)

// RoundingMode selects how bits below the least significant bit are discarded.
// The zero value is unset and is never rendered.
type RoundingMode int

const (
	RoundingUnset RoundingMode = iota
	TRN                        // truncate towards minus infinity
	RND                        // round to plus infinity
	RND_ZERO                   // round to zero
	RND_INF                    // round away from zero
	RND_MIN_INF                // round to minus infinity
	RND_CONV                   // convergent rounding
)

var roundingNames = map[RoundingMode]string{
	TRN:         "TRN",
	RND:         "RND",
	RND_ZERO:    "RND_ZERO",
	RND_INF:     "RND_INF",
	RND_MIN_INF: "RND_MIN_INF",
	RND_CONV:    "RND_CONV",
}

func (m RoundingMode) String() string {
	if name, ok := roundingNames[m]; ok {
		return name
	}
	return ""
}

// ParseRoundingMode accepts a mode name with or without an AP_/AC_ prefix.
func ParseRoundingMode(s string) (RoundingMode, error) {
	name := stripModePrefix(s)
	for mode, n := range roundingNames {
		if n == name {
			return mode, nil
		}
	}
	return RoundingUnset, fmt.Errorf("unknown rounding mode %q", s)
}

// SaturationMode selects overflow behavior. The zero value is unset and is
// never rendered.
type SaturationMode int

const (
	SaturationUnset SaturationMode = iota
	WRAP                           // wrap around
	SAT                            // saturate to min/max
	SAT_ZERO                       // set to zero on overflow
	SAT_SYM                        // symmetric saturation
)

var saturationNames = map[SaturationMode]string{
	WRAP:     "WRAP",
	SAT:      "SAT",
	SAT_ZERO: "SAT_ZERO",
	SAT_SYM:  "SAT_SYM",
}

func (m SaturationMode) String() string {
	if name, ok := saturationNames[m]; ok {
		return name
	}
	return ""
}

// ParseSaturationMode accepts a mode name with or without an AP_/AC_ prefix.
func ParseSaturationMode(s string) (SaturationMode, error) {
	name := stripModePrefix(s)
	for mode, n := range saturationNames {
		if n == name {
			return mode, nil
		}
	}
	return SaturationUnset, fmt.Errorf("unknown saturation mode %q", s)
}

func stripModePrefix(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, prefix := range []string{"AP_", "AC_"} {
		if strings.HasPrefix(s, prefix) {
			return s[len(prefix):]
		}
	}
	return s
}
