// Package protocol describes the wire dialects the request builders can speak.
// A Dialect is a plain value: the builders read its tables and switches instead
// of being specialized per protocol.
package protocol

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/nlstn/go-webquery/internal/edm"
	"github.com/nlstn/go-webquery/internal/meta"
	"github.com/nlstn/go-webquery/internal/preference"
	"github.com/nlstn/go-webquery/internal/version"
)

// Name identifies a dialect family.
type Name string

const (
	NameODataV2 Name = "odata2"
	NameODataV4 Name = "odata4"
	NameREST    Name = "rest"
)

// TextMatch selects how loose equality on text is rendered.
type TextMatch int

const (
	// TextMatchNone compares text with strict equality.
	TextMatchNone TextMatch = iota
	// TextMatchSubstringOf renders substringof('v', Field).
	TextMatchSubstringOf
	// TextMatchContains renders contains(Field, 'v').
	TextMatchContains
)

// MultiValue selects how IN lists are rendered.
type MultiValue int

const (
	// MultiValueOrChain renders (F eq a or F eq b).
	MultiValueOrChain MultiValue = iota
	// MultiValueNativeIn renders F in (a,b).
	MultiValueNativeIn
)

// ExpandStyle selects how multi-hop expand paths are rendered.
type ExpandStyle int

const (
	// ExpandSlash renders A/B.
	ExpandSlash ExpandStyle = iota
	// ExpandNested renders A($expand=B).
	ExpandNested
)

// SortStyle selects how sorters are rendered.
type SortStyle int

const (
	// SortPerField renders field asc,other desc in one parameter.
	SortPerField SortStyle = iota
	// SortTrailingClause renders fields and directions as two parameters.
	SortTrailingClause
)

// Dialect holds everything that differs between protocol variants.
type Dialect struct {
	Name    Name
	Version version.Version
	Codec   *edm.Codec

	// Comparators maps comparator tokens to wire operators. IN and NOT IN
	// are handled by MultiValue and are not listed here.
	Comparators map[meta.Comparator]string
	// Logical maps group operators to wire tokens.
	Logical map[meta.Operator]string

	TextMatch      TextMatch
	MultiValue     MultiValue
	ExpandStyle    ExpandStyle
	SortStyle      SortStyle
	SupportsSelect bool

	FilterParam  string
	OrderByParam string
	// OrderParam carries directions for SortTrailingClause.
	OrderParam  string
	ExpandParam string
	SelectParam string
	SkipParam   string
	TopParam    string

	InlineCountParam string
	InlineCountValue string
	FormatParam      string
	FormatValue      string
	// CountSegment is appended to the collection path for counts. Empty
	// means the dialect cannot count.
	CountSegment string

	RowsPath     string
	CountPath    string
	NextLinkPath string
	// EntityPath locates a single entity in read-by-key and write responses.
	EntityPath string

	// Headers are sent with every request.
	Headers map[string]string
	// WritePreference is sent as Prefer header with create and update
	// requests; nil sends none.
	WritePreference *preference.Preference
}

var odataComparators = map[meta.Comparator]string{
	meta.ComparatorIs:          "eq",
	meta.ComparatorIsNot:       "ne",
	meta.ComparatorEquals:      "eq",
	meta.ComparatorEqualsNot:   "ne",
	meta.ComparatorLessThan:    "lt",
	meta.ComparatorLessOrEqual: "le",
	meta.ComparatorGreaterThan: "gt",
	meta.ComparatorGreaterOrEq: "ge",
}

var odataLogical = map[meta.Operator]string{
	meta.OperatorAnd: "and",
	meta.OperatorOr:  "or",
}

// V2 returns the OData v2 dialect.
func V2() Dialect {
	return Dialect{
		Name:             NameODataV2,
		Version:          version.V2,
		Codec:            edm.NewCodec(edm.SyntaxV2),
		Comparators:      odataComparators,
		Logical:          odataLogical,
		TextMatch:        TextMatchSubstringOf,
		MultiValue:       MultiValueOrChain,
		ExpandStyle:      ExpandSlash,
		SortStyle:        SortPerField,
		FilterParam:      "$filter",
		OrderByParam:     "$orderby",
		ExpandParam:      "$expand",
		SelectParam:      "$select",
		SkipParam:        "$skip",
		TopParam:         "$top",
		InlineCountParam: "$inlinecount",
		InlineCountValue: "allpages",
		FormatParam:      "$format",
		FormatValue:      "json",
		CountSegment:     "/$count",
		RowsPath:         "d",
		CountPath:        "d.__count",
		NextLinkPath:     "d.__next",
		EntityPath:       "d",
		Headers: map[string]string{
			"Accept":                "application/json",
			"DataServiceVersion":    "2.0",
			"MaxDataServiceVersion": "2.0",
		},
	}
}

// V4 returns the OData v4 dialect for the given protocol version. A zero
// version means 4.01. Native IN lists are only used from 4.01 on.
func V4(v version.Version) Dialect {
	if v.IsZero() {
		v = version.V401
	}
	multi := MultiValueOrChain
	if v.Supports("in-operator") {
		multi = MultiValueNativeIn
	}
	return Dialect{
		Name:             NameODataV4,
		Version:          v,
		Codec:            edm.NewCodec(edm.SyntaxV4),
		Comparators:      odataComparators,
		Logical:          odataLogical,
		TextMatch:        TextMatchContains,
		MultiValue:       multi,
		ExpandStyle:      ExpandNested,
		SortStyle:        SortPerField,
		SupportsSelect:   true,
		FilterParam:      "$filter",
		OrderByParam:     "$orderby",
		ExpandParam:      "$expand",
		SelectParam:      "$select",
		SkipParam:        "$skip",
		TopParam:         "$top",
		InlineCountParam: "$count",
		InlineCountValue: "true",
		CountSegment:     "/$count",
		RowsPath:         "value",
		CountPath:        "@odata.count",
		NextLinkPath:     "@odata.nextLink",
		Headers: map[string]string{
			"Accept":           "application/json",
			"OData-Version":    v.String(),
			"OData-MaxVersion": v.String(),
		},
		WritePreference: &preference.Preference{ReturnRepresentation: true},
	}
}

// RESTParams names the query parameters of a plain REST service.
type RESTParams struct {
	Offset string
	Limit  string
	Sort   string
	// Order enables the trailing-clause sort style when set.
	Order string
	// Rows and Count are response paths.
	Rows  string
	Count string
}

// REST returns a plain REST dialect. Filters become one query parameter per
// condition; empty parameter names fall back to offset, limit and sort.
func REST(p RESTParams) Dialect {
	d := Dialect{
		Name:  NameREST,
		Codec: edm.NewCodec(edm.SyntaxV4),
		Comparators: map[meta.Comparator]string{
			meta.ComparatorIs:     "=",
			meta.ComparatorEquals: "=",
		},
		Logical:      map[meta.Operator]string{meta.OperatorAnd: "&"},
		TextMatch:    TextMatchNone,
		MultiValue:   MultiValueOrChain,
		ExpandStyle:  ExpandSlash,
		SortStyle:    SortPerField,
		OrderByParam: firstNonEmpty(p.Sort, "sort"),
		SkipParam:    firstNonEmpty(p.Offset, "offset"),
		TopParam:     firstNonEmpty(p.Limit, "limit"),
		RowsPath:     p.Rows,
		CountPath:    p.Count,
		Headers:      map[string]string{"Accept": "application/json"},
	}
	if p.Order != "" {
		d.SortStyle = SortTrailingClause
		d.OrderParam = p.Order
	}
	return d
}

// ParseProtocol normalizes a protocol name from configuration.
func ParseProtocol(name string) (Name, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "odata2", "odatav2", "odata-v2", "v2", "2":
		return NameODataV2, nil
	case "odata4", "odatav4", "odata-v4", "v4", "4":
		return NameODataV4, nil
	case "rest", "http", "json":
		return NameREST, nil
	}
	return "", fmt.Errorf("unknown protocol: %s", name)
}

// New returns the dialect for name. The version only applies to OData v4 and
// the REST parameters only to REST.
func New(name Name, v version.Version, p RESTParams) (Dialect, error) {
	switch name {
	case NameODataV2:
		return V2(), nil
	case NameODataV4:
		return V4(v), nil
	case NameREST:
		return REST(p), nil
	}
	return Dialect{}, fmt.Errorf("unknown protocol: %s", name)
}

// String returns the dialect name as used in error messages.
func (d Dialect) String() string {
	switch d.Name {
	case NameODataV2:
		return "v2"
	case NameODataV4:
		return "v4"
	}
	return string(d.Name)
}

// IsOData reports whether the dialect renders a single filter expression.
func (d Dialect) IsOData() bool {
	return d.Name == NameODataV2 || d.Name == NameODataV4
}

// CanCount reports whether the dialect exposes a count endpoint.
func (d Dialect) CanCount() bool {
	return d.CountSegment != ""
}

// Comparator returns the wire token for c.
func (d Dialect) Comparator(c meta.Comparator) (string, bool) {
	tok, ok := d.Comparators[c]
	return tok, ok
}

// LogicalToken returns the wire token for op.
func (d Dialect) LogicalToken(op meta.Operator) (string, bool) {
	if op == "" {
		op = meta.OperatorAnd
	}
	tok, ok := d.Logical[op]
	return tok, ok
}

// WithCodec returns a copy of the dialect using c.
func (d Dialect) WithCodec(c *edm.Codec) Dialect {
	d.Codec = c
	return d
}

// ApplyHeaders sets the dialect headers on h without overwriting existing
// values.
func (d Dialect) ApplyHeaders(h http.Header) {
	for k, v := range d.Headers {
		if h.Get(k) == "" {
			h.Set(k, v)
		}
	}
}

// Expand renders navigation paths for the expand parameter.
func (d Dialect) Expand(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	if d.ExpandStyle == ExpandSlash {
		return strings.Join(paths, ",")
	}
	root := &expandNode{}
	for _, p := range paths {
		root.add(strings.Split(p, "/"))
	}
	return root.render(d.ExpandParam)
}

type expandNode struct {
	names    []string
	children map[string]*expandNode
}

func (n *expandNode) add(segments []string) {
	if len(segments) == 0 {
		return
	}
	if n.children == nil {
		n.children = make(map[string]*expandNode)
	}
	child, ok := n.children[segments[0]]
	if !ok {
		child = &expandNode{}
		n.children[segments[0]] = child
		n.names = append(n.names, segments[0])
	}
	child.add(segments[1:])
}

func (n *expandNode) render(param string) string {
	parts := make([]string, 0, len(n.names))
	for _, name := range n.names {
		child := n.children[name]
		if len(child.names) == 0 {
			parts = append(parts, name)
			continue
		}
		parts = append(parts, name+"("+param+"="+child.render(param)+")")
	}
	return strings.Join(parts, ",")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
