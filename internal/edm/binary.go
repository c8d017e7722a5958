package edm

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

func init() {
	registerType(TypeBinary, handler{
		kind:   KindBinary,
		filter: binaryFilter,
		body:   binaryBody,
		decode: decodeBinary,
	})
}

// toBytes accepts raw bytes or a 0x-prefixed hex string. Any other string is
// taken byte for byte.
func toBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
			b, err := hex.DecodeString(v[2:])
			if err != nil {
				return nil, fmt.Errorf("cannot parse '%s' as Edm.Binary: %w", v, err)
			}
			return b, nil
		}
		return []byte(v), nil
	}
	return nil, fmt.Errorf("cannot convert %T to Edm.Binary", value)
}

func binaryFilter(_ *Codec, value interface{}) (string, error) {
	b, err := toBytes(value)
	if err != nil {
		return "", err
	}
	return "binary'" + hex.EncodeToString(b) + "'", nil
}

func binaryBody(_ *Codec, value interface{}) (interface{}, error) {
	b, err := toBytes(value)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func decodeBinary(_ *Codec, raw interface{}) (interface{}, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("cannot convert %T to Edm.Binary", raw)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("cannot decode '%s' as Edm.Binary: %w", s, err)
	}
	return b, nil
}
