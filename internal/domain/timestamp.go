package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const DefaultLocalOffset = "-03:00"

var (
	explicitOffset = regexp.MustCompile(`(?:[zZ]|[+-]\d{2}(?::?\d{2})?)$`)
	offsetPattern  = regexp.MustCompile(`^([+-])(\d{2}):?(\d{2})$`)
	digitsOnly     = regexp.MustCompile(`^\d+$`)
)

// NormalizeTimestamp makes a start time unambiguous. Values that already end
// in Z or a numeric offset are returned unchanged. Naive values are local
// civil time and get offset appended. Epoch seconds or milliseconds become
// UTC. An empty input yields an empty string.
func NormalizeTimestamp(raw, offset string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if digitsOnly.MatchString(value) {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return value
		}
		var t time.Time
		if len(value) >= 13 {
			t = time.UnixMilli(n)
		} else {
			t = time.Unix(n, 0)
		}
		return t.UTC().Format(time.RFC3339)
	}
	if len(value) > 10 && value[10] == ' ' {
		value = value[:10] + "T" + value[11:]
	}
	_, clock, hasClock := strings.Cut(value, "T")
	if !hasClock {
		return value + "T00:00:00" + offset
	}
	if explicitOffset.MatchString(clock) {
		return value
	}
	return value + offset
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04-0700",
	"2006-01-02T15:04:05-07",
}

// ParseTimestamp parses the output of NormalizeTimestamp.
func ParseTimestamp(normalized string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable timestamp %q", ErrInvalidInput, normalized)
}

// LocalZone builds a fixed zone from an offset such as "-03:00".
func LocalZone(offset string) (*time.Location, error) {
	m := offsetPattern.FindStringSubmatch(strings.TrimSpace(offset))
	if m == nil {
		return nil, fmt.Errorf("%w: invalid utc offset %q", ErrInvalidInput, offset)
	}
	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	seconds := hours*3600 + minutes*60
	if m[1] == "-" {
		seconds = -seconds
	}
	return time.FixedZone(m[1]+m[2]+":"+m[3], seconds), nil
}

// MonthRange returns [start, end) of the "YYYY-MM" month in loc.
func MonthRange(month string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01", strings.TrimSpace(month), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: month must be YYYY-MM", ErrInvalidInput)
	}
	return start, start.AddDate(0, 1, 0), nil
}

// DayRange returns [start, end) of the calendar day containing t in loc.
func DayRange(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
