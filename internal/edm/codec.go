package edm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NullSentinel is the string form of an explicit null compare value.
const NullSentinel = "NULL"

// Codec converts host values to wire literals and back. A Codec is immutable
// after construction and safe for concurrent use.
type Codec struct {
	// Syntax selects the literal flavour.
	Syntax Syntax
	// Location interprets timestamps without an offset. Defaults to UTC.
	Location *time.Location
	// EscapeQuotes doubles single quotes inside string literals.
	EscapeQuotes bool
}

// NewCodec creates a codec for the given syntax using UTC.
func NewCodec(syntax Syntax) *Codec {
	return &Codec{Syntax: syntax, Location: time.UTC}
}

func (c *Codec) location() *time.Location {
	if c == nil || c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c *Codec) isV2() bool {
	return c == nil || c.Syntax == SyntaxV2
}

// EncodeFilterLiteral renders value as a literal suitable for a filter
// expression. The type tag wins over the declared kind when both are given.
func (c *Codec) EncodeFilterLiteral(value interface{}, kind Kind, typeName string) (string, error) {
	if IsNull(value) {
		return "null", nil
	}
	if h, ok := lookupType(typeName); ok {
		return h.filter(c, value)
	}
	return c.filterByKind(value, kind)
}

// EncodeBodyValue renders value for a JSON request body.
func (c *Codec) EncodeBodyValue(value interface{}, kind Kind, typeName string) (interface{}, error) {
	if IsNull(value) {
		return nil, nil
	}
	if h, ok := lookupType(typeName); ok {
		return h.body(c, value)
	}
	return c.bodyByKind(value, kind)
}

// Decode converts a raw JSON value from a response into its normal form.
func (c *Codec) Decode(raw interface{}, kind Kind, typeName string) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	if h, ok := lookupType(typeName); ok {
		return h.decode(c, raw)
	}
	return c.decodeByKind(raw, kind)
}

func (c *Codec) filterByKind(value interface{}, kind Kind) (string, error) {
	switch kind {
	case KindString:
		return c.quote(toString(value)), nil
	case KindInteger, KindNumber:
		s := toString(value)
		if !isNumeric(s) {
			return c.fallbackLiteral(value), nil
		}
		return s, nil
	case KindBoolean:
		b, err := toBool(value)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case KindDate:
		if c.isV2() {
			return dateTimeFilter(c, value)
		}
		return dateFilter(c, value)
	case KindDateTime:
		if c.isV2() {
			return dateTimeFilter(c, value)
		}
		return dateTimeOffsetFilter(c, value)
	case KindTime:
		return timeFilter(c, value)
	case KindBinary:
		return binaryFilter(c, value)
	}
	return c.fallbackLiteral(value), nil
}

func (c *Codec) bodyByKind(value interface{}, kind Kind) (interface{}, error) {
	switch kind {
	case KindString:
		return toString(value), nil
	case KindInteger:
		return integerBody(c, value)
	case KindNumber:
		s := toString(value)
		if !isNumeric(s) {
			return nil, fmt.Errorf("cannot convert %q to a number", s)
		}
		return json.Number(s), nil
	case KindBoolean:
		return booleanBody(c, value)
	case KindDate:
		if c.isV2() {
			return dateTimeBody(c, value)
		}
		return dateBody(c, value)
	case KindDateTime:
		if c.isV2() {
			return dateTimeBody(c, value)
		}
		return dateTimeOffsetBody(c, value)
	case KindTime:
		return timeBody(c, value)
	case KindBinary:
		return binaryBody(c, value)
	}
	return value, nil
}

func (c *Codec) decodeByKind(raw interface{}, kind Kind) (interface{}, error) {
	switch kind {
	case KindString:
		return toString(raw), nil
	case KindInteger:
		return decodeInteger(c, raw)
	case KindNumber:
		return decodeDouble(c, raw)
	case KindBoolean:
		return decodeBoolean(c, raw)
	case KindDate:
		return decodeDate(c, raw)
	case KindDateTime:
		return decodeDateTime(c, raw)
	case KindTime:
		return decodeTime(c, raw)
	case KindBinary:
		return decodeBinary(c, raw)
	}
	if n, ok := raw.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		return n.Float64()
	}
	return raw, nil
}

// quote wraps s in single quotes.
func (c *Codec) quote(s string) string {
	if c != nil && c.EscapeQuotes {
		s = strings.ReplaceAll(s, "'", "''")
	}
	return "'" + s + "'"
}

// fallbackLiteral renders a value with no usable type information. Numbers pass
// through unquoted unless they start with a zero and have no decimal point,
// which keeps identifiers like "0815" from being read as octal-ish numbers.
func (c *Codec) fallbackLiteral(value interface{}) string {
	s := toString(value)
	if isNumeric(s) && !hasAmbiguousLeadingZero(s) {
		return s
	}
	return c.quote(s)
}

func hasAmbiguousLeadingZero(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return len(s) > 1 && s[0] == '0' && !strings.Contains(s, ".")
}

// IsNull reports whether value is nil or the explicit null sentinel.
func IsNull(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == NullSentinel
	case *string:
		return v == nil
	}
	return false
}

func isNumeric(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func toString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case []byte:
		return string(v)
	case json.Number:
		return v.String()
	case decimal.Decimal:
		return v.String()
	case uuid.UUID:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case time.Time:
		return v.Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprintf("%v", value)
}
