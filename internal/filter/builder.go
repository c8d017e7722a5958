// Package filter renders filter trees for a protocol dialect.
package filter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nlstn/go-webquery/internal/dataerrors"
	"github.com/nlstn/go-webquery/internal/edm"
	"github.com/nlstn/go-webquery/internal/meta"
	"github.com/nlstn/go-webquery/internal/protocol"
)

const component = "filter"

// Param is one rendered query parameter.
type Param struct {
	Name  string
	Value string
}

// Builder renders filter groups. A Builder holds no state besides its dialect
// and is safe for concurrent use.
type Builder struct {
	dialect protocol.Dialect
}

// New creates a builder for the dialect.
func New(d protocol.Dialect) *Builder {
	return &Builder{dialect: d}
}

// Build renders group as a filter expression. The top-level call (nested
// false) prefixes a non-empty result with the dialect filter parameter, e.g.
// "$filter=Name eq 'x'".
func (b *Builder) Build(group *meta.Group, nested bool) (string, error) {
	if !b.dialect.IsOData() {
		return "", &dataerrors.ConfigError{
			Component: component,
			Dialect:   b.dialect.String(),
			Message:   "dialect renders filters as query parameters",
		}
	}
	expr, err := b.build(group)
	if err != nil {
		return "", err
	}
	if !nested && expr != "" {
		return b.dialect.FilterParam + "=" + expr, nil
	}
	return expr, nil
}

// Expression renders group without the parameter prefix.
func (b *Builder) Expression(group *meta.Group) (string, error) {
	return b.Build(group, true)
}

func (b *Builder) build(group *meta.Group) (string, error) {
	if group == nil {
		return "", nil
	}

	// XOR and NULL are rejected even on empty and pass-through groups.
	op, ok := b.dialect.LogicalToken(group.Operator)
	if !ok {
		return "", &dataerrors.ConfigError{
			Component: component,
			Dialect:   b.dialect.String(),
			Operator:  string(group.Operator),
			Message:   "logical operator not supported",
		}
	}

	if group.IsEmpty() {
		return "", nil
	}
	if inner, ok := group.PassThrough(); ok {
		return b.build(inner)
	}

	parts := make([]string, 0, len(group.Conditions)+len(group.Groups))
	for _, cond := range group.Conditions {
		var (
			s   string
			err error
		)
		if cond.IsCompound() {
			s, err = b.build(cond.Group)
			if s != "" {
				s = "(" + s + ")"
			}
		} else {
			s, err = b.predicate(cond)
		}
		if err != nil {
			return "", err
		}
		if s != "" {
			parts = append(parts, s)
		}
	}

	for _, nested := range group.Groups {
		s, err := b.build(nested)
		if err != nil {
			return "", err
		}
		if s != "" {
			parts = append(parts, "("+s+")")
		}
	}

	return strings.Join(parts, " "+op+" "), nil
}

// predicate renders a single condition. Conditions on attributes without a
// remote field or marked unfilterable render to "".
func (b *Builder) predicate(cond *meta.Condition) (string, error) {
	attr := cond.Attribute
	if attr == nil || attr.Unfilterable {
		return "", nil
	}
	field, err := b.field(attr)
	if err != nil || field == "" {
		return "", err
	}

	switch cond.Comparator {
	case meta.ComparatorIn, meta.ComparatorNotIn:
		return b.multiValue(field, cond)
	case meta.ComparatorIs, meta.ComparatorIsNot:
		if !edm.IsNull(cond.Value) && !strictEquality(attr) && b.dialect.TextMatch != protocol.TextMatchNone {
			return b.textMatch(field, cond)
		}
	}

	tok, ok := b.dialect.Comparator(cond.Comparator)
	if !ok {
		return "", &dataerrors.ConfigError{
			Component:  component,
			Dialect:    b.dialect.String(),
			Attribute:  attr.Alias,
			Comparator: string(cond.Comparator),
			Message:    "comparator not supported",
		}
	}
	lit, err := b.literal(attr, cond.Value)
	if err != nil {
		return "", err
	}
	return field + " " + tok + " " + lit, nil
}

func (b *Builder) textMatch(field string, cond *meta.Condition) (string, error) {
	lit, err := b.literal(cond.Attribute, cond.Value)
	if err != nil {
		return "", err
	}
	var call string
	if b.dialect.TextMatch == protocol.TextMatchSubstringOf {
		call = "substringof(" + lit + ", " + field + ")"
	} else {
		call = "contains(" + field + "," + lit + ")"
	}
	if cond.Comparator.IsNegative() {
		return "not " + call, nil
	}
	return call, nil
}

func (b *Builder) multiValue(field string, cond *meta.Condition) (string, error) {
	values := cond.Values()
	if len(values) == 0 {
		return "", nil
	}
	lits := make([]string, 0, len(values))
	for _, v := range values {
		lit, err := b.literal(cond.Attribute, v)
		if err != nil {
			return "", err
		}
		lits = append(lits, lit)
	}

	negative := cond.Comparator.IsNegative()
	eq, join := "eq", " or "
	if negative {
		eq, join = "ne", " and "
	}

	// Some services reject a singleton in-list.
	if len(lits) == 1 {
		return field + " " + eq + " " + lits[0], nil
	}

	if b.dialect.MultiValue == protocol.MultiValueNativeIn {
		in := field + " in (" + strings.Join(lits, ",") + ")"
		if negative {
			return "not (" + in + ")", nil
		}
		return in, nil
	}

	parts := make([]string, len(lits))
	for i, lit := range lits {
		parts[i] = field + " " + eq + " " + lit
	}
	return "(" + strings.Join(parts, join) + ")", nil
}

func (b *Builder) literal(attr *meta.Attribute, value interface{}) (string, error) {
	lit, err := b.dialect.Codec.EncodeFilterLiteral(value, attr.ValueKind(), attr.RemoteType)
	if err != nil {
		return "", &dataerrors.ConfigError{
			Component: component,
			Dialect:   b.dialect.String(),
			Attribute: attr.Alias,
			Message:   "cannot encode filter value",
			Err:       err,
		}
	}
	return attr.FilterPrefix + lit, nil
}

// field resolves the remote path of attr. Filtering on a to-one relation
// filters on the key of the related object.
func (b *Builder) field(attr *meta.Attribute) (string, error) {
	path, err := attr.RemotePath()
	if err != nil {
		return "", err
	}
	ref := attr.Reference
	if ref == nil || ref.Navigation == "" || (attr.DataAddress != "" && attr.DataAddress != ref.Navigation) {
		return path, nil
	}

	var key string
	if ref.Related != nil {
		key = ref.Related.KeyField()
	}
	if key == "" {
		return "", &dataerrors.ConfigError{
			Component:  component,
			Dialect:    b.dialect.String(),
			Attribute:  attr.Alias,
			Navigation: ref.Navigation,
			Message:    "cannot filter over a relation to an object without a key",
		}
	}
	nav, err := attr.NavigationPath()
	if err != nil {
		return "", err
	}
	if nav != "" {
		nav += "/"
	}
	return nav + ref.Navigation + "/" + key, nil
}

// Params renders group as one query parameter per condition. Only AND groups
// can be expressed this way.
func (b *Builder) Params(group *meta.Group) ([]Param, error) {
	if group.IsEmpty() {
		return nil, nil
	}
	if op := group.Operator; op != "" && op != meta.OperatorAnd {
		return nil, &dataerrors.ConfigError{
			Component: component,
			Dialect:   b.dialect.String(),
			Operator:  string(op),
			Message:   "logical operator not supported",
		}
	}

	var params []Param
	for _, cond := range group.Conditions {
		if cond.IsCompound() {
			nested, err := b.Params(cond.Group)
			if err != nil {
				return nil, err
			}
			params = append(params, nested...)
			continue
		}
		p, ok, err := b.param(cond)
		if err != nil {
			return nil, err
		}
		if ok {
			params = append(params, p)
		}
	}
	for _, g := range group.Groups {
		nested, err := b.Params(g)
		if err != nil {
			return nil, err
		}
		params = append(params, nested...)
	}
	return params, nil
}

func (b *Builder) param(cond *meta.Condition) (Param, bool, error) {
	attr := cond.Attribute
	if attr == nil || attr.Unfilterable {
		return Param{}, false, nil
	}
	field, err := b.field(attr)
	if err != nil || field == "" {
		return Param{}, false, err
	}

	switch cond.Comparator {
	case meta.ComparatorIs, meta.ComparatorEquals:
		v, err := b.plainValue(attr, cond.Value)
		if err != nil {
			return Param{}, false, err
		}
		return Param{Name: field, Value: v}, true, nil
	case meta.ComparatorIn:
		values := cond.Values()
		if len(values) == 0 {
			return Param{}, false, nil
		}
		rendered := make([]string, 0, len(values))
		for _, v := range values {
			s, err := b.plainValue(attr, v)
			if err != nil {
				return Param{}, false, err
			}
			rendered = append(rendered, s)
		}
		return Param{Name: field, Value: strings.Join(rendered, ",")}, true, nil
	}
	return Param{}, false, &dataerrors.ConfigError{
		Component:  component,
		Dialect:    b.dialect.String(),
		Attribute:  attr.Alias,
		Comparator: string(cond.Comparator),
		Message:    "comparator not supported",
	}
}

// plainValue renders a value without literal decoration.
func (b *Builder) plainValue(attr *meta.Attribute, value interface{}) (string, error) {
	if edm.IsNull(value) {
		return "", nil
	}
	v, err := b.dialect.Codec.EncodeBodyValue(value, attr.ValueKind(), attr.RemoteType)
	if err != nil {
		return "", &dataerrors.ConfigError{
			Component: component,
			Dialect:   b.dialect.String(),
			Attribute: attr.Alias,
			Message:   "cannot encode filter value",
			Err:       err,
		}
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case bool:
		s = strconv.FormatBool(t)
	case nil:
	default:
		s = fmt.Sprint(t)
	}
	return attr.FilterPrefix + s, nil
}

// strictEquality reports whether loose comparators must still compare
// strictly. GUIDs are strings on the wire but never partial matches.
func strictEquality(attr *meta.Attribute) bool {
	return attr.ValueKind().IsExact() || attr.RemoteType == edm.TypeGuid
}
