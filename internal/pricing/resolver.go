package pricing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock converts a wall-clock string ("HH:MM" or "HH:MM:SS") into
// minutes since midnight. Seconds are ignored, matching the resolution the
// billing backend uses for time bands.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("pricing: invalid clock value %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("pricing: invalid clock value %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("pricing: invalid clock value %q: %w", s, err)
	}
	// "24:00" marks end of day, so an all-day band can be written 00:00-24:00.
	if hour == 24 && minute == 0 {
		return 24 * 60, nil
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("pricing: clock value %q out of range", s)
	}
	return hour*60 + minute, nil
}

// Validate reports an error when either clock bound of the band does not
// parse. Such a band never matches; callers surface this once at fetch
// time rather than on every resolution.
func (r PricingRule) Validate() error {
	if _, err := ParseClock(r.Start); err != nil {
		return err
	}
	_, err := ParseClock(r.End)
	return err
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// ActiveRule returns the first rule whose time band contains t. Bands are
// half-open [start, end); a band with start > end wraps past midnight and
// matches t >= start || t < end. Returns false when no band matches.
func ActiveRule(rules []PricingRule, t time.Time) (PricingRule, bool) {
	now := minutesOfDay(t)

	for _, rule := range rules {
		start, err := ParseClock(rule.Start)
		if err != nil {
			continue
		}
		end, err := ParseClock(rule.End)
		if err != nil {
			continue
		}

		if start <= end {
			if start <= now && now < end {
				return rule, true
			}
		} else if now >= start || now < end {
			return rule, true
		}
	}
	return PricingRule{}, false
}

// RateAt returns the price per unit in effect at t, or false when no time
// band matches.
func RateAt(rules []PricingRule, t time.Time) (float64, bool) {
	rule, ok := ActiveRule(rules, t)
	if !ok {
		return 0, false
	}
	return rule.Amount, true
}
