package edm

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

func init() {
	registerType(TypeInt16, handler{kind: KindInteger, filter: integerFilter, body: integerBody, decode: decodeInteger})
	registerType(TypeInt32, handler{kind: KindInteger, filter: integerFilter, body: integerBody, decode: decodeInteger})
	registerType(TypeSByte, handler{kind: KindInteger, filter: integerFilter, body: integerBody, decode: decodeInteger})
	registerType(TypeByte, handler{kind: KindInteger, filter: integerFilter, body: stringIntegerBody, decode: decodeInteger})
	registerType(TypeInt64, handler{kind: KindInteger, filter: int64Filter, body: int64Body, decode: decodeInteger})
	registerType(TypeSingle, handler{kind: KindNumber, filter: suffixedFloatFilter("f"), body: floatBody, decode: decodeDouble})
	registerType(TypeDouble, handler{kind: KindNumber, filter: suffixedFloatFilter("d"), body: floatBody, decode: decodeDouble})
}

// toInt64 converts integer-like values, rejecting fractions.
func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, fmt.Errorf("value %d out of range for an integer", v)
		}
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("value %d out of range for an integer", v)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || v < math.MinInt64 || v > math.MaxInt64 {
			return 0, fmt.Errorf("value %v is not an integer", v)
		}
		return int64(v), nil
	case float32:
		return toInt64(float64(v))
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	s := strings.TrimSpace(toString(value))
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse '%s' as an integer", s)
	}
	return i, nil
}

func toFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	}
	if i, err := toInt64(value); err == nil {
		return float64(i), nil
	}
	s := strings.TrimSpace(toString(value))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse '%s' as a number", s)
	}
	return f, nil
}

func integerFilter(_ *Codec, value interface{}) (string, error) {
	i, err := toInt64(value)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(i, 10), nil
}

func integerBody(_ *Codec, value interface{}) (interface{}, error) {
	return toInt64(value)
}

// stringIntegerBody keeps the integer in a JSON string.
func stringIntegerBody(_ *Codec, value interface{}) (interface{}, error) {
	i, err := toInt64(value)
	if err != nil {
		return nil, err
	}
	return strconv.FormatInt(i, 10), nil
}

func int64Filter(c *Codec, value interface{}) (string, error) {
	i, err := toInt64(value)
	if err != nil {
		return "", err
	}
	if c.isV2() {
		return strconv.FormatInt(i, 10) + "L", nil
	}
	return strconv.FormatInt(i, 10), nil
}

// int64Body renders 64-bit integers as strings in v2 since JSON numbers lose
// precision beyond 2^53.
func int64Body(c *Codec, value interface{}) (interface{}, error) {
	i, err := toInt64(value)
	if err != nil {
		return nil, err
	}
	s := strconv.FormatInt(i, 10)
	if c.isV2() {
		return s, nil
	}
	return json.Number(s), nil
}

func suffixedFloatFilter(suffix string) func(c *Codec, value interface{}) (string, error) {
	return func(c *Codec, value interface{}) (string, error) {
		f, err := toFloat(value)
		if err != nil {
			return "", err
		}
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if c.isV2() {
			return s + suffix, nil
		}
		return s, nil
	}
}

func floatBody(_ *Codec, value interface{}) (interface{}, error) {
	f, err := toFloat(value)
	if err != nil {
		return nil, err
	}
	return json.Number(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

func decodeInteger(_ *Codec, raw interface{}) (interface{}, error) {
	if n, ok := raw.(json.Number); ok {
		return n.Int64()
	}
	return toInt64(raw)
}

func decodeDouble(_ *Codec, raw interface{}) (interface{}, error) {
	return toFloat(raw)
}
