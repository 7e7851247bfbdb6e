package timeparse

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// AbsoluteLayout is the accepted format for absolute arrival times.
const AbsoluteLayout = "2006-01-02 15:04"

// ParseError describes input rejected by the duration or timestamp grammar.
type ParseError struct {
	Input string
	Rule  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Input, e.Rule)
}

// Long unit spellings folded into the short markers before tokenizing.
// Order matters: longer spellings first.
var unitReplacer = strings.NewReplacer(
	"minutes", "min",
	"minute", "min",
	"mins", "min",
	"分", "min",
	"hours", "h",
	"hour", "h",
	"hrs", "h",
	"hr", "h",
	"時間", "h",
)

// Normalize applies NFKC (full-width to half-width), trims and lower-cases s.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}

func isSeparator(ch byte) bool {
	return ch == ' ' || ch == ':' || ch == '/' || ch == '+'
}

// ParseDuration parses expressions like "18h10min", "90min", "1h 30m" or "30分".
// Digits without a unit count as minutes.
func ParseDuration(text string) (time.Duration, error) {
	s := unitReplacer.Replace(Normalize(text))
	if s == "" {
		return 0, &ParseError{Input: text, Rule: "duration is empty"}
	}

	var (
		total  time.Duration
		digits string
		tokens int
	)
	add := func(unit time.Duration) error {
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil || n > int64(math.MaxInt64/unit) {
			return &ParseError{Input: text, Rule: "number out of range"}
		}
		part := time.Duration(n) * unit
		if total > math.MaxInt64-part {
			return &ParseError{Input: text, Rule: "duration out of range"}
		}
		total += part
		digits = ""
		tokens++
		return nil
	}

	for i := 0; i < len(s); {
		ch := s[i]
		switch {
		case ch >= '0' && ch <= '9':
			digits += string(ch)
			i++
		case ch == 'h':
			if digits == "" {
				return 0, &ParseError{Input: text, Rule: `digits required before "h"`}
			}
			if err := add(time.Hour); err != nil {
				return 0, err
			}
			i++
		case strings.HasPrefix(s[i:], "min"):
			if digits == "" {
				return 0, &ParseError{Input: text, Rule: `digits required before "min"`}
			}
			if err := add(time.Minute); err != nil {
				return 0, err
			}
			i += len("min")
		case ch == 'm':
			if digits == "" {
				return 0, &ParseError{Input: text, Rule: `digits required before "m"`}
			}
			if err := add(time.Minute); err != nil {
				return 0, err
			}
			i++
		case isSeparator(ch):
			i++
		default:
			return 0, &ParseError{Input: text, Rule: fmt.Sprintf("unexpected character at offset %d (use e.g. 18h10min / 90min / 30分)", i)}
		}
	}
	if digits != "" {
		if err := add(time.Minute); err != nil {
			return 0, err
		}
	}
	if tokens == 0 {
		return 0, &ParseError{Input: text, Rule: "no duration given"}
	}
	return total, nil
}

// ParseAbsolute parses "YYYY-MM-DD HH:MM" in loc and returns the instant in UTC.
func ParseAbsolute(text string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(norm.NFKC.String(text))
	if s == "" {
		return time.Time{}, &ParseError{Input: text, Rule: "timestamp is empty"}
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(AbsoluteLayout, s, loc)
	if err != nil {
		return time.Time{}, &ParseError{Input: text, Rule: "expected YYYY-MM-DD HH:MM"}
	}
	return t.UTC(), nil
}
