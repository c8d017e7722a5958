// Package webquery reads and writes data held by OData v2, OData v4 and plain
// REST services as if they were tables.
//
// A Query describes what to read: an Object (collection, keys, attributes),
// filters, sorters, pagination and the columns to return. The Client turns it
// into protocol-correct HTTP requests and maps the JSON responses back into
// rows keyed by attribute alias.
package webquery

import (
	"fmt"

	"github.com/nlstn/go-webquery/internal/actions"
	"github.com/nlstn/go-webquery/internal/batch"
	"github.com/nlstn/go-webquery/internal/edm"
	"github.com/nlstn/go-webquery/internal/meta"
	"github.com/nlstn/go-webquery/internal/request"
	"github.com/nlstn/go-webquery/internal/rowbind"
)

// Data model.
type (
	Attribute  = meta.Attribute
	Hop        = meta.Hop
	Reference  = meta.Reference
	Object     = meta.Object
	Condition  = meta.Condition
	Group      = meta.Group
	Comparator = meta.Comparator
	Operator   = meta.Operator
	Sorter     = meta.Sorter
	Direction  = meta.Direction
	Pagination = meta.Pagination
	Query      = meta.Query
	Row        = meta.Row
	ResultSet  = meta.ResultSet
	Kind       = edm.Kind
)

// Wire types.
type (
	// Request is an assembled wire request.
	Request = request.Request
	// Operation is a write operation.
	Operation = request.Operation
	// BatchResponse is one sub-response of a batch.
	BatchResponse = batch.Response

	// OperationDef describes a function import, function or action.
	OperationDef = actions.Definition
	// OperationParam declares one parameter of an operation.
	OperationParam = actions.Parameter
	// OperationBinding binds an operation to a collection or entity.
	OperationBinding = actions.Binding
)

const (
	ComparatorIs          = meta.ComparatorIs
	ComparatorIsNot       = meta.ComparatorIsNot
	ComparatorEquals      = meta.ComparatorEquals
	ComparatorEqualsNot   = meta.ComparatorEqualsNot
	ComparatorLessThan    = meta.ComparatorLessThan
	ComparatorLessOrEqual = meta.ComparatorLessOrEqual
	ComparatorGreaterThan = meta.ComparatorGreaterThan
	ComparatorGreaterOrEq = meta.ComparatorGreaterOrEq
	ComparatorIn          = meta.ComparatorIn
	ComparatorNotIn       = meta.ComparatorNotIn

	OperatorAnd = meta.OperatorAnd
	OperatorOr  = meta.OperatorOr

	Ascending  = meta.Ascending
	Descending = meta.Descending

	OpCreate = request.OpCreate
	OpUpdate = request.OpUpdate
	OpDelete = request.OpDelete
)

// ETagKey holds the entity tag in rows returned by reads and writes. Rows
// passed to Update and Delete with this key are sent with an If-Match header.
const ETagKey = meta.ETagKey

// Declared kinds.
const (
	KindUnknown  = edm.KindUnknown
	KindString   = edm.KindString
	KindNumber   = edm.KindNumber
	KindInteger  = edm.KindInteger
	KindBoolean  = edm.KindBoolean
	KindDate     = edm.KindDate
	KindDateTime = edm.KindDateTime
	KindTime     = edm.KindTime
	KindBinary   = edm.KindBinary
)

// NewGroup creates a filter group with the given operator and conditions.
func NewGroup(op Operator, conditions ...*Condition) *Group {
	return meta.NewGroup(op, conditions...)
}

// Page requests rows [offset, offset+limit).
func Page(offset, limit int) Pagination {
	return meta.Page(offset, limit)
}

// Scan copies row into a new T. Fields are matched by their webquery tag,
// their json tag or their name; the "required" tag option rejects rows
// without the attribute.
func Scan[T any](row Row) (T, error) {
	return rowbind.Bind[T](row)
}

// ScanRows copies every row into a new T.
func ScanRows[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		v, err := rowbind.Bind[T](row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
