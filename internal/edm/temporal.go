package edm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Normal forms used for decoded temporal values.
const (
	DateLayout      = "2006-01-02"
	DateTimeLayout  = "2006-01-02 15:04:05"
	filterTimestamp = "2006-01-02T15:04:05"
)

var (
	legacyDatePattern   = regexp.MustCompile(`^/Date\((-?\d+)([+-]\d{4})?\)/$`)
	durationPattern     = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)(?:\.\d+)?S)?$`)
	clockPattern        = regexp.MustCompile(`^(\d{1,2})(?::(\d{1,2}))?(?::(\d{1,2}))?$`)
	naiveTimestampForms = []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04",
		DateLayout,
	}
)

func init() {
	registerType(TypeDateTime, handler{kind: KindDateTime, filter: dateTimeFilter, body: dateTimeBody, decode: decodeDateTime})
	registerType(TypeDateTimeOffset, handler{kind: KindDateTime, filter: dateTimeOffsetFilter, body: dateTimeOffsetBody, decode: decodeDateTime})
	registerType(TypeDate, handler{kind: KindDate, filter: dateFilter, body: dateBody, decode: decodeDate})
	registerType(TypeTime, handler{kind: KindTime, filter: timeFilter, body: timeBody, decode: decodeTime})
	registerType(TypeTimeOfDay, handler{kind: KindTime, filter: timeOfDayFilter, body: timeOfDayBody, decode: decodeTime})
	registerType(TypeDuration, handler{kind: KindTime, filter: durationFilter, body: durationBody, decode: decodeString})
}

// parseTimestamp reads a host timestamp. Values without an offset are taken
// to be in the codec location.
func parseTimestamp(c *Codec, value interface{}) (time.Time, error) {
	loc := c.location()
	switch v := value.(type) {
	case time.Time:
		return v.In(loc), nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("cannot convert nil to a timestamp")
		}
		return v.In(loc), nil
	}

	s := strings.TrimSpace(toString(value))
	if m := legacyDatePattern.FindStringSubmatch(s); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("cannot parse '%s' as a timestamp: %w", s, err)
		}
		return time.UnixMilli(ms).In(loc), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range naiveTimestampForms {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse '%s' as a timestamp", s)
}

func dateTimeFilter(c *Codec, value interface{}) (string, error) {
	t, err := parseTimestamp(c, value)
	if err != nil {
		return "", err
	}
	return "datetime'" + t.Format(filterTimestamp) + "'", nil
}

// dateTimeBody renders the legacy /Date(<seconds>000)/ form. Milliseconds are
// always zero-padded since older services reject fractional values.
func dateTimeBody(c *Codec, value interface{}) (interface{}, error) {
	t, err := parseTimestamp(c, value)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("/Date(%d000)/", t.Unix()), nil
}

func dateTimeOffsetFilter(c *Codec, value interface{}) (string, error) {
	t, err := parseTimestamp(c, value)
	if err != nil {
		return "", err
	}
	if c.isV2() {
		return "datetimeoffset'" + t.Format(time.RFC3339) + "'", nil
	}
	return t.Format(time.RFC3339), nil
}

func dateTimeOffsetBody(c *Codec, value interface{}) (interface{}, error) {
	t, err := parseTimestamp(c, value)
	if err != nil {
		return nil, err
	}
	return t.Format(time.RFC3339), nil
}

func dateFilter(c *Codec, value interface{}) (string, error) {
	if c.isV2() {
		return dateTimeFilter(c, value)
	}
	t, err := parseTimestamp(c, value)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}

func dateBody(c *Codec, value interface{}) (interface{}, error) {
	if c.isV2() {
		return dateTimeBody(c, value)
	}
	t, err := parseTimestamp(c, value)
	if err != nil {
		return nil, err
	}
	return t.Format(DateLayout), nil
}

func decodeDateTime(c *Codec, raw interface{}) (interface{}, error) {
	t, err := parseTimestamp(c, raw)
	if err != nil {
		return nil, err
	}
	return t.Format(DateTimeLayout), nil
}

func decodeDate(c *Codec, raw interface{}) (interface{}, error) {
	t, err := parseTimestamp(c, raw)
	if err != nil {
		return nil, err
	}
	return t.Format(DateLayout), nil
}

// clockParts splits a time-of-day value into zero-padded hour, minute and
// (possibly empty) second components.
func clockParts(c *Codec, value interface{}) (h, m, s string, err error) {
	if t, ok := value.(time.Time); ok {
		t = t.In(c.location())
		return pad2(strconv.Itoa(t.Hour())), pad2(strconv.Itoa(t.Minute())), pad2(strconv.Itoa(t.Second())), nil
	}
	raw := strings.TrimSpace(toString(value))
	if normalized, ok := NormalizeTime(raw); ok {
		raw = normalized
	}
	match := clockPattern.FindStringSubmatch(raw)
	if match == nil {
		return "", "", "", fmt.Errorf("cannot parse '%s' as a time", raw)
	}
	h, m, s = "00", "00", ""
	if match[1] != "" {
		h = pad2(match[1])
	}
	if match[2] != "" {
		m = pad2(match[2])
	}
	if match[3] != "" {
		s = pad2(match[3])
	}
	return h, m, s, nil
}

// clockToDuration renders HH:MM[:SS] as PT<H>H<M>M[<S>S].
func clockToDuration(c *Codec, value interface{}) (string, error) {
	h, m, s, err := clockParts(c, value)
	if err != nil {
		return "", err
	}
	out := "PT" + h + "H" + m + "M"
	if s != "" {
		out += s + "S"
	}
	return out, nil
}

func timeFilter(c *Codec, value interface{}) (string, error) {
	return clockToDuration(c, value)
}

func timeBody(c *Codec, value interface{}) (interface{}, error) {
	return clockToDuration(c, value)
}

func clockString(c *Codec, value interface{}) (string, error) {
	h, m, s, err := clockParts(c, value)
	if err != nil {
		return "", err
	}
	if s == "" {
		s = "00"
	}
	return h + ":" + m + ":" + s, nil
}

func timeOfDayFilter(c *Codec, value interface{}) (string, error) {
	return clockString(c, value)
}

func timeOfDayBody(c *Codec, value interface{}) (interface{}, error) {
	return clockString(c, value)
}

func durationFilter(_ *Codec, value interface{}) (string, error) {
	return "duration'" + toString(value) + "'", nil
}

func durationBody(_ *Codec, value interface{}) (interface{}, error) {
	return toString(value), nil
}

func decodeTime(_ *Codec, raw interface{}) (interface{}, error) {
	s := strings.TrimSpace(toString(raw))
	if normalized, ok := NormalizeTime(s); ok {
		return normalized, nil
	}
	if clockPattern.MatchString(s) {
		return s, nil
	}
	return nil, fmt.Errorf("cannot parse '%s' as a time", s)
}

// NormalizeTime converts an ISO-8601 duration like PT20H23M51S into
// HH:MM[:SS]. Missing hours and minutes default to "00"; seconds are only
// emitted when present.
func NormalizeTime(raw string) (string, bool) {
	m := durationPattern.FindStringSubmatch(raw)
	if m == nil || raw == "PT" {
		return "", false
	}
	h, mins := "00", "00"
	if m[1] != "" {
		h = pad2(m[1])
	}
	if m[2] != "" {
		mins = pad2(m[2])
	}
	out := h + ":" + mins
	if m[3] != "" {
		out += ":" + pad2(m[3])
	}
	return out, true
}

func pad2(s string) string {
	if len(s) < 2 {
		return strings.Repeat("0", 2-len(s)) + s
	}
	return s
}
