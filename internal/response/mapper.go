package response

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nlstn/go-webquery/internal/dataerrors"
	"github.com/nlstn/go-webquery/internal/edm"
	"github.com/nlstn/go-webquery/internal/etag"
	"github.com/nlstn/go-webquery/internal/meta"
	"github.com/nlstn/go-webquery/internal/protocol"
)

// Layout locates the parts of a response document.
type Layout struct {
	Rows     string
	Count    string
	NextLink string
	// Probe is set when one row more than the page limit was requested.
	Probe bool
}

// LayoutFor returns the dialect's layout with the object's overrides.
func LayoutFor(d protocol.Dialect, obj *meta.Object, probe bool) Layout {
	l := Layout{
		Rows:     d.RowsPath,
		Count:    d.CountPath,
		NextLink: d.NextLinkPath,
		Probe:    probe,
	}
	if obj != nil {
		if obj.RowsPath != "" {
			l.Rows = obj.RowsPath
		}
		if obj.CountPath != "" {
			l.Count = obj.CountPath
		}
	}
	return l
}

// Mapper maps remote rows onto attribute aliases.
type Mapper struct {
	codec *edm.Codec
}

// NewMapper creates a mapper decoding values with codec.
func NewMapper(codec *edm.Codec) *Mapper {
	return &Mapper{codec: codec}
}

// Map extracts and maps all rows of doc. Any failing row aborts the whole
// result.
func (m *Mapper) Map(doc interface{}, q *meta.Query, layout Layout) (*meta.ResultSet, error) {
	remote, err := ExtractRows(doc, layout.Rows)
	if err != nil {
		return nil, err
	}

	rs := &meta.ResultSet{
		Rows:     make([]meta.Row, 0, len(remote)),
		NextLink: ExtractNextLink(doc, layout.NextLink),
	}
	limit := q.Page.Limit
	if layout.Probe && limit > 0 && len(remote) > limit {
		remote = remote[:limit]
		rs.HasMore = true
	}
	if rs.NextLink != "" {
		rs.HasMore = true
	}

	for i, raw := range remote {
		row, err := m.MapRow(raw, q.Columns)
		if err != nil {
			var me *dataerrors.MappingError
			if errors.As(err, &me) {
				me.Row = i
			}
			return nil, err
		}
		rs.Rows = append(rs.Rows, row)
	}

	total, err := ExtractTotalCount(doc, layout.Count)
	if err != nil {
		return nil, err
	}
	switch {
	case total != nil:
		rs.Total = total
		rs.TotalExact = true
	case !q.Page.Requested():
		n := int64(len(rs.Rows))
		rs.Total = &n
		rs.TotalExact = !rs.HasMore
	case rs.HasMore:
		// At least one row past this page exists.
		n := int64(q.Page.Offset + len(rs.Rows) + 1)
		rs.Total = &n
	case limit == 0 || len(rs.Rows) < limit || layout.Probe:
		n := int64(q.Page.Offset + len(rs.Rows))
		rs.Total = &n
		rs.TotalExact = true
	}
	return rs, nil
}

// MapRow maps one remote row. Attributes without a data address are skipped.
// The entity tag, if any, is kept under meta.ETagKey.
func (m *Mapper) MapRow(row map[string]interface{}, attrs []*meta.Attribute) (meta.Row, error) {
	out := make(meta.Row, len(attrs))
	for _, attr := range attrs {
		if attr.DataAddress == "" {
			continue
		}
		owner, err := walkHops(row, attr)
		if err != nil {
			return nil, err
		}
		if owner == nil {
			out[attr.Alias] = nil
			continue
		}

		raw := readField(owner, attr.DataAddress)
		value, err := m.codec.Decode(raw, attr.ValueKind(), attr.RemoteType)
		if err != nil {
			return nil, &dataerrors.MappingError{
				Attribute: attr.Alias,
				Row:       -1,
				Message:   fmt.Sprintf("cannot decode value of %q", attr.DataAddress),
				Err:       err,
			}
		}
		out[attr.Alias] = value
	}
	if tag := etag.FromEntity(row); tag != "" {
		out[meta.ETagKey] = tag
	}
	return out, nil
}

// walkHops follows the attribute's relation path to the row owning the
// field. A null to-one relation yields a nil row and no error.
func walkHops(row map[string]interface{}, attr *meta.Attribute) (map[string]interface{}, error) {
	current := row
	for _, hop := range attr.Hops {
		if hop.Navigation == "" {
			return nil, &dataerrors.MappingError{
				Attribute:  attr.Alias,
				Navigation: hop.Relation,
				Row:        -1,
				Message:    "relation has no navigation property",
			}
		}
		raw, ok := current[hop.Navigation]
		if !ok {
			return nil, &dataerrors.MappingError{
				Attribute:  attr.Alias,
				Navigation: hop.Navigation,
				Row:        -1,
				Message:    "expected expanded data not found",
			}
		}
		if raw == nil {
			return nil, nil
		}
		if isDeferred(raw) {
			return nil, &dataerrors.MappingError{
				Attribute:  attr.Alias,
				Navigation: hop.Navigation,
				Row:        -1,
				Message:    "expected expanded data not found, relation is deferred",
			}
		}
		next, err := toOne(raw)
		if err != nil {
			return nil, &dataerrors.MappingError{
				Attribute:  attr.Alias,
				Navigation: hop.Navigation,
				Row:        -1,
				Message:    err.Error(),
			}
		}
		current = next
	}
	return current, nil
}

// isDeferred reports whether raw is an unexpanded OData v2 link such as
// {"__deferred": {"uri": "..."}}.
func isDeferred(raw interface{}) bool {
	m, ok := raw.(map[string]interface{})
	if !ok || len(m) != 1 {
		return false
	}
	_, ok = m[deferredKey]
	return ok
}

// toOne resolves expanded data of a to-one relation to exactly one object.
func toOne(raw interface{}) (map[string]interface{}, error) {
	var items []interface{}
	switch v := raw.(type) {
	case map[string]interface{}:
		results, ok := unwrapResults(v)
		if !ok {
			return v, nil
		}
		items = results
	case []interface{}:
		items = v
	default:
		return nil, fmt.Errorf("expanded data is %T, not an object", raw)
	}

	if len(items) != 1 {
		return nil, fmt.Errorf("expected exactly one related record, got %d", len(items))
	}
	obj, ok := items[0].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("related record is %T, not an object", items[0])
	}
	return obj, nil
}

// readField reads a possibly nested field; complex properties are addressed
// with "/". Missing fields read as nil.
func readField(row map[string]interface{}, address string) interface{} {
	if v, ok := row[address]; ok || !strings.Contains(address, "/") {
		return v
	}
	var current interface{} = row
	for _, part := range strings.Split(address, "/") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}
