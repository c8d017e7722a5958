package edm

import (
	"fmt"

	"github.com/google/uuid"
)

func init() {
	registerType(TypeString, handler{
		kind:   KindString,
		filter: stringFilter,
		body:   stringBody,
		decode: decodeString,
	})
	registerType(TypeGuid, handler{
		kind:   KindString,
		filter: guidFilter,
		body:   guidBody,
		decode: decodeString,
	})
}

func stringFilter(c *Codec, value interface{}) (string, error) {
	return c.quote(toString(value)), nil
}

func stringBody(_ *Codec, value interface{}) (interface{}, error) {
	return toString(value), nil
}

func decodeString(_ *Codec, raw interface{}) (interface{}, error) {
	return toString(raw), nil
}

// guidString validates value as a GUID and returns it unchanged.
func guidString(value interface{}) (string, error) {
	s := toString(value)
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("cannot parse '%s' as Edm.Guid: %w", s, err)
	}
	return s, nil
}

func guidFilter(c *Codec, value interface{}) (string, error) {
	s, err := guidString(value)
	if err != nil {
		return "", err
	}
	if c.isV2() {
		return "guid'" + s + "'", nil
	}
	return s, nil
}

func guidBody(_ *Codec, value interface{}) (interface{}, error) {
	return guidString(value)
}
