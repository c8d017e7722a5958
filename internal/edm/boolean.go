package edm

import (
	"fmt"
	"strconv"
	"strings"
)

func init() {
	registerType(TypeBoolean, handler{
		kind:   KindBoolean,
		filter: booleanFilter,
		body:   booleanBody,
		decode: decodeBoolean,
	})
}

func toBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case *bool:
		if v == nil {
			return false, fmt.Errorf("cannot convert nil to Edm.Boolean")
		}
		return *v, nil
	}
	s := strings.ToLower(strings.TrimSpace(toString(value)))
	switch s {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no", "":
		return false, nil
	}
	return false, fmt.Errorf("cannot convert %T '%s' to Edm.Boolean", value, s)
}

func booleanFilter(_ *Codec, value interface{}) (string, error) {
	b, err := toBool(value)
	if err != nil {
		return "", err
	}
	return strconv.FormatBool(b), nil
}

// booleanBody uses the lower-case string form in v2 and a JSON boolean in v4.
func booleanBody(c *Codec, value interface{}) (interface{}, error) {
	b, err := toBool(value)
	if err != nil {
		return nil, err
	}
	if c.isV2() {
		return strconv.FormatBool(b), nil
	}
	return b, nil
}

func decodeBoolean(_ *Codec, raw interface{}) (interface{}, error) {
	return toBool(raw)
}
