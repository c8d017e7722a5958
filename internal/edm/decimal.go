package edm

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

func init() {
	registerType(TypeDecimal, handler{
		kind:   KindNumber,
		filter: decimalFilter,
		body:   decimalBody,
		decode: decodeDecimal,
	})
}

// toDecimal converts a value into an arbitrary precision decimal.
func toDecimal(value interface{}) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, fmt.Errorf("cannot convert nil to Edm.Decimal")
		}
		return *v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	}
	s := toString(value)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("cannot parse '%s' as Edm.Decimal: %w", s, err)
	}
	return d, nil
}

func decimalFilter(c *Codec, value interface{}) (string, error) {
	d, err := toDecimal(value)
	if err != nil {
		return "", err
	}
	if c.isV2() {
		return d.String() + "M", nil
	}
	return d.String(), nil
}

// decimalBody keeps decimals out of float64 on the way to the wire.
func decimalBody(c *Codec, value interface{}) (interface{}, error) {
	d, err := toDecimal(value)
	if err != nil {
		return nil, err
	}
	if c.isV2() {
		return d.String(), nil
	}
	return json.Number(d.String()), nil
}

func decodeDecimal(_ *Codec, raw interface{}) (interface{}, error) {
	return toDecimal(raw)
}
