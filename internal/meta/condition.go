package meta

import (
	"fmt"
	"strings"
)

// Comparator is a filter comparison token.
type Comparator string

// Supported comparators. "Is" compares loosely (substring match for text),
// "Equals" always compares strictly.
const (
	ComparatorIs          Comparator = "="
	ComparatorIsNot       Comparator = "!="
	ComparatorEquals      Comparator = "=="
	ComparatorEqualsNot   Comparator = "!=="
	ComparatorLessThan    Comparator = "<"
	ComparatorLessOrEqual Comparator = "<="
	ComparatorGreaterThan Comparator = ">"
	ComparatorGreaterOrEq Comparator = ">="
	ComparatorIn          Comparator = "["
	ComparatorNotIn       Comparator = "!["
)

var comparatorNames = map[string]Comparator{
	"IS":     ComparatorIs,
	"IS_NOT": ComparatorIsNot,
	"EQ":     ComparatorEquals,
	"NE":     ComparatorEqualsNot,
	"LT":     ComparatorLessThan,
	"LE":     ComparatorLessOrEqual,
	"GT":     ComparatorGreaterThan,
	"GE":     ComparatorGreaterOrEq,
	"IN":     ComparatorIn,
	"NOT_IN": ComparatorNotIn,
}

// ParseComparator accepts either a comparator token ("==") or its name ("EQ").
// Unknown tokens are returned as-is so the builder can report them with the
// dialect in context.
func ParseComparator(s string) Comparator {
	s = strings.TrimSpace(s)
	if c, ok := comparatorNames[strings.ToUpper(s)]; ok {
		return c
	}
	return Comparator(s)
}

// IsNegative reports whether the comparator negates its match.
func (c Comparator) IsNegative() bool {
	return c == ComparatorIsNot || c == ComparatorEqualsNot || c == ComparatorNotIn
}

// Operator joins the conditions of a group.
type Operator string

const (
	OperatorAnd  Operator = "AND"
	OperatorOr   Operator = "OR"
	OperatorXor  Operator = "XOR"
	OperatorNull Operator = "NULL"
)

// ParseOperator normalizes an operator name. An empty name means AND.
func ParseOperator(s string) (Operator, error) {
	switch op := Operator(strings.ToUpper(strings.TrimSpace(s))); op {
	case "":
		return OperatorAnd, nil
	case OperatorAnd, OperatorOr, OperatorXor, OperatorNull:
		return op, nil
	}
	return "", fmt.Errorf("unknown logical operator: %s", s)
}

// Condition is a leaf of the filter tree. A condition with Group set wraps a
// nested group instead of comparing a value.
type Condition struct {
	Attribute  *Attribute
	Comparator Comparator
	Value      interface{}
	// Delimiter overrides the attribute list delimiter for IN filters.
	Delimiter string
	Group     *Group
}

// IsCompound reports whether the condition wraps a nested group.
func (c *Condition) IsCompound() bool {
	return c.Group != nil
}

// ListDelimiter returns the delimiter for splitting IN values.
func (c *Condition) ListDelimiter() string {
	if c.Delimiter != "" {
		return c.Delimiter
	}
	if c.Attribute != nil {
		return c.Attribute.Delimiter()
	}
	return DefaultListDelimiter
}

// Values returns the compare value as a list. Lists are returned unchanged;
// strings are split by the list delimiter and trimmed.
func (c *Condition) Values() []interface{} {
	switch v := c.Value.(type) {
	case nil:
		return nil
	case []interface{}:
		return v
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		parts := strings.Split(v, c.ListDelimiter())
		out := make([]interface{}, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out
	}
	return []interface{}{c.Value}
}

// Group is a node of the filter tree.
type Group struct {
	Operator   Operator
	Conditions []*Condition
	Groups     []*Group
}

// NewGroup creates a group with the given operator and conditions.
func NewGroup(op Operator, conditions ...*Condition) *Group {
	return &Group{Operator: op, Conditions: conditions}
}

// IsEmpty reports whether the group has neither conditions nor nested groups.
func (g *Group) IsEmpty() bool {
	return g == nil || (len(g.Conditions) == 0 && len(g.Groups) == 0)
}

// PassThrough returns the only nested group of a group without direct
// conditions.
func (g *Group) PassThrough() (*Group, bool) {
	if g == nil || len(g.Conditions) != 0 || len(g.Groups) != 1 {
		return nil, false
	}
	return g.Groups[0], true
}
