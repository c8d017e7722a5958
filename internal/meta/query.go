package meta

import (
	"sync"
)

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// Sorter orders results by one attribute.
type Sorter struct {
	Attribute *Attribute
	Direction Direction
}

// Pagination requests a page of rows. A zero Limit means no limit.
type Pagination struct {
	Offset int
	Limit  int
}

// Page creates a pagination request.
func Page(offset, limit int) Pagination {
	return Pagination{Offset: offset, Limit: limit}
}

// Requested reports whether remote pagination should be requested.
func (p Pagination) Requested() bool {
	return p.Offset > 0 || p.Limit > 0
}

// Query describes one logical read against an object. A Query must not be
// modified after it has been passed to a builder.
type Query struct {
	Object  *Object
	Filters *Group
	Sorters []Sorter
	Page    Pagination
	// Columns are the attributes to read.
	Columns []*Attribute
	// InlineCount asks the service to report the total count with the rows.
	InlineCount bool
	// Select restricts the response to the requested columns.
	Select bool
	// Key addresses a single entity by its primary key value(s), in the
	// order of Object.Keys.
	Key []interface{}

	navOnce sync.Once
	navs    []string
	navErr  error
}

// Navigations returns the distinct navigation paths required by the columns,
// in order of first use. The result is computed once.
func (q *Query) Navigations() ([]string, error) {
	q.navOnce.Do(func() {
		seen := make(map[string]bool)
		for _, attr := range q.Columns {
			if !attr.IsRelated() {
				continue
			}
			path, err := attr.NavigationPath()
			if err != nil {
				q.navErr = err
				return
			}
			if !seen[path] {
				seen[path] = true
				q.navs = append(q.navs, path)
			}
		}
	})
	return q.navs, q.navErr
}

// Row maps attribute aliases to values.
type Row map[string]interface{}

// ETagKey holds the entity tag in mapped rows. Update and delete send it as
// If-Match header.
const ETagKey = "@etag"

// ResultSet is the mapped outcome of a read.
type ResultSet struct {
	Rows []Row
	// Total is nil when the total count is unknown.
	Total *int64
	// TotalExact is false when Total is only a lower bound.
	TotalExact bool
	// HasMore reports that more rows exist beyond the requested page.
	HasMore bool
	// NextLink is the server-driven paging link, if any.
	NextLink string
}
