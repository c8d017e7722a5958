package edm

import (
	"fmt"
	"strings"
	"sync"
)

// EDM type tags understood by the codec.
const (
	TypeString         = "Edm.String"
	TypeGuid           = "Edm.Guid"
	TypeBoolean        = "Edm.Boolean"
	TypeByte           = "Edm.Byte"
	TypeSByte          = "Edm.SByte"
	TypeInt16          = "Edm.Int16"
	TypeInt32          = "Edm.Int32"
	TypeInt64          = "Edm.Int64"
	TypeDecimal        = "Edm.Decimal"
	TypeSingle         = "Edm.Single"
	TypeDouble         = "Edm.Double"
	TypeDateTime       = "Edm.DateTime"
	TypeDateTimeOffset = "Edm.DateTimeOffset"
	TypeDate           = "Edm.Date"
	TypeTime           = "Edm.Time"
	TypeTimeOfDay      = "Edm.TimeOfDay"
	TypeDuration       = "Edm.Duration"
	TypeBinary         = "Edm.Binary"
)

// Syntax selects the literal flavour of a protocol generation.
type Syntax int

const (
	// SyntaxV2 produces OData v2 literals (guid'..', datetime'..', 12L, 1.5d).
	SyntaxV2 Syntax = iota
	// SyntaxV4 produces OData v4 literals (bare guids, dates and numbers).
	SyntaxV4
)

// String returns the syntax name.
func (s Syntax) String() string {
	if s == SyntaxV4 {
		return "v4"
	}
	return "v2"
}

// Kind is the declared data type of a value in the host model. It decides how
// untagged values are rendered and whether comparisons are strict.
type Kind int

const (
	KindUnknown Kind = iota
	KindString
	KindNumber
	KindInteger
	KindBoolean
	KindDate
	KindDateTime
	KindTime
	KindBinary
)

var kindNames = map[Kind]string{
	KindUnknown:  "unknown",
	KindString:   "string",
	KindNumber:   "number",
	KindInteger:  "integer",
	KindBoolean:  "boolean",
	KindDate:     "date",
	KindDateTime: "datetime",
	KindTime:     "time",
	KindBinary:   "binary",
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind parses a kind name as used in configuration files.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return KindUnknown, nil
	}
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	switch name {
	case "text":
		return KindString, nil
	case "int", "long":
		return KindInteger, nil
	case "float", "double", "decimal", "numeric":
		return KindNumber, nil
	case "bool":
		return KindBoolean, nil
	case "timestamp":
		return KindDateTime, nil
	}
	return KindUnknown, fmt.Errorf("unknown data type: %s", name)
}

// IsExact reports whether values of this kind must be compared with strict
// equality. Substring matching is meaningless for numbers, dates and booleans.
func (k Kind) IsExact() bool {
	switch k {
	case KindNumber, KindInteger, KindBoolean, KindDate, KindDateTime, KindTime:
		return true
	}
	return false
}

// handler renders and parses values of one EDM type tag.
type handler struct {
	kind   Kind
	filter func(c *Codec, value interface{}) (string, error)
	body   func(c *Codec, value interface{}) (interface{}, error)
	decode func(c *Codec, raw interface{}) (interface{}, error)
}

// typeRegistry maintains registered EDM type handlers.
// Uses sync.Map for concurrent-safe access during package initialization
var typeRegistry sync.Map

func registerType(typeName string, h handler) {
	typeRegistry.Store(typeName, h)
}

func lookupType(typeName string) (handler, bool) {
	if typeName == "" {
		return handler{}, false
	}
	val, ok := typeRegistry.Load(typeName)
	if !ok {
		return handler{}, false
	}
	h, ok := val.(handler)
	return h, ok
}

// IsValidType checks if a type name is registered
func IsValidType(typeName string) bool {
	_, ok := lookupType(typeName)
	return ok
}

// KindOf returns the kind a type tag implies, or KindUnknown for unknown tags.
func KindOf(typeName string) Kind {
	h, ok := lookupType(typeName)
	if !ok {
		return KindUnknown
	}
	return h.kind
}
