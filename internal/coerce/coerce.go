// Package coerce implements RAMOSE's fixed data-type registry: the five
// named coercions used both to type path parameters before SPARQL
// substitution and to type result columns for comparison and sorting.
package coerce

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind names one of the five registered data types.
type Kind string

const (
	Str      Kind = "str"
	Int      Kind = "int"
	Float    Kind = "float"
	DateTime Kind = "datetime"
	Duration Kind = "duration"
)

// durationEpoch is the fixed instant the duration coercion adds parsed
// durations to. Preserved verbatim from the original implementation; only
// relative ordering depends on the exact value.
var durationEpoch = time.Date(1983, time.January, 15, 0, 0, 0, 0, time.UTC)

// zeroDateTime is the sentinel returned for empty/absent datetime input.
var zeroDateTime = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// minInt is the sentinel returned for empty/absent int input.
const minInt = math.MinInt64

// minFloat is the sentinel returned for empty/absent float input.
const minFloat = -math.MaxFloat64

// Value is a tagged union over the five coercion result types. Exactly one
// field is meaningful for a given Kind; comparisons must dispatch on Kind
// and never compare across kinds.
type Value struct {
	Kind     Kind
	Str      string
	Int      int64
	Float    float64
	DateTime time.Time
}

// Coerce applies the named coercion to s (which may be empty, representing
// absent or empty input). An unknown kind name is an error.
func Coerce(kind Kind, s string) (Value, error) {
	switch kind {
	case Str:
		return Value{Kind: Str, Str: coerceStr(s)}, nil
	case Int:
		i, err := coerceInt(s)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: Int, Int: i}, nil
	case Float:
		f, err := coerceFloat(s)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: Float, Float: f}, nil
	case DateTime:
		t, err := coerceDateTime(s)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: DateTime, DateTime: t}, nil
	case Duration:
		t, err := coerceDuration(s)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: DateTime, DateTime: t}, nil
	default:
		return Value{}, fmt.Errorf("coerce: unknown type %q", kind)
	}
}

func coerceStr(s string) string {
	return strings.ToLower(s)
}

func coerceInt(s string) (int64, error) {
	if s == "" {
		return minInt, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func coerceFloat(s string) (float64, error) {
	if s == "" {
		return minFloat, nil
	}
	return strconv.ParseFloat(s, 64)
}

// dateTimeLayouts lists the layouts tried, in order, for permissive
// ISO-8601/RFC-3339 datetime parsing: full RFC 3339 timestamps first,
// then local date-times, then partial dates down to a bare year.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01",
	"2006-01-02",
	"2006",
}

func coerceDateTime(s string) (time.Time, error) {
	if s == "" {
		return zeroDateTime, nil
	}
	var lastErr error
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, fmt.Errorf("coerce: cannot parse datetime %q: %w", s, lastErr)
}

func coerceDuration(s string) (time.Time, error) {
	if s == "" {
		// 2000 years, matching the original's "high duration value" sentinel.
		return durationEpoch.AddDate(2000, 0, 0), nil
	}
	d, err := parseISODuration(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("coerce: cannot parse duration %q: %w", s, err)
	}
	return durationEpoch.Add(d), nil
}

// parseISODuration parses a subset of ISO-8601 durations of the form
// P[n]Y[n]M[n]D[T[n]H[n]M[n]S], returning an approximation as time.Duration
// (years as 365 days, months as 30 days — exact to the day/hour/minute/
// second components, approximate for year/month as time.Duration has no
// calendar awareness).
func parseISODuration(s string) (time.Duration, error) {
	orig := s
	if s == "" || s[0] != 'P' {
		return 0, fmt.Errorf("not an ISO-8601 duration: %q", orig)
	}
	s = s[1:]

	datePart := s
	timePart := ""
	if idx := strings.IndexByte(s, 'T'); idx >= 0 {
		datePart = s[:idx]
		timePart = s[idx+1:]
	}

	var total time.Duration
	var err error

	total, datePart, err = consumeComponent(datePart, 'Y', 365*24*time.Hour, total)
	if err != nil {
		return 0, err
	}
	total, datePart, err = consumeComponent(datePart, 'M', 30*24*time.Hour, total)
	if err != nil {
		return 0, err
	}
	total, datePart, err = consumeComponent(datePart, 'D', 24*time.Hour, total)
	if err != nil {
		return 0, err
	}
	if datePart != "" {
		return 0, fmt.Errorf("unexpected trailing date component in duration: %q", orig)
	}

	total, timePart, err = consumeComponent(timePart, 'H', time.Hour, total)
	if err != nil {
		return 0, err
	}
	total, timePart, err = consumeComponent(timePart, 'M', time.Minute, total)
	if err != nil {
		return 0, err
	}
	total, timePart, err = consumeComponent(timePart, 'S', time.Second, total)
	if err != nil {
		return 0, err
	}
	if timePart != "" {
		return 0, fmt.Errorf("unexpected trailing time component in duration: %q", orig)
	}

	return total, nil
}

func consumeComponent(s string, unit byte, scale time.Duration, total time.Duration) (time.Duration, string, error) {
	idx := strings.IndexByte(s, unit)
	if idx < 0 {
		return total, s, nil
	}
	numStr := s[:idx]
	n, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid duration component %q%c: %w", numStr, unit, err)
	}
	return total + time.Duration(n*float64(scale)), s[idx+1:], nil
}

// String renders v the way the original's str(par_value) call would: the
// coerced Go value formatted back to text for splicing into a SPARQL
// template. Callers substituting a str-kind parameter should use the raw
// captured string instead of this method, since the str coercion itself
// lowercases (see coerceStr) and the original never applies that lowering
// before substitution.
func (v Value) String() string {
	switch v.Kind {
	case Str:
		return v.Str
	case Int:
		return strconv.FormatInt(v.Int, 10)
	case Float:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case DateTime:
		if v.DateTime.Nanosecond() == 0 {
			return v.DateTime.Format("2006-01-02 15:04:05")
		}
		return v.DateTime.Format("2006-01-02 15:04:05.000000")
	default:
		return ""
	}
}

// Compare returns -1, 0, or 1 comparing a to b. Both values must share the
// same Kind; this is the caller's responsibility (the Executor always
// derives the right-hand side's kind from the left-hand side's runtime
// type, per spec.md §4.5 item 2).
func Compare(a, b Value) int {
	switch a.Kind {
	case Str:
		return strings.Compare(a.Str, b.Str)
	case Int:
		switch {
		case a.Int < b.Int:
			return -1
		case a.Int > b.Int:
			return 1
		default:
			return 0
		}
	case Float:
		switch {
		case a.Float < b.Float:
			return -1
		case a.Float > b.Float:
			return 1
		default:
			return 0
		}
	case DateTime:
		switch {
		case a.DateTime.Before(b.DateTime):
			return -1
		case a.DateTime.After(b.DateTime):
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}
