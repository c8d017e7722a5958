package response

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nlstn/go-webquery/internal/dataerrors"
)

const (
	// resultsKey wraps collections in OData v2 responses.
	resultsKey = "results"
	// entityMarker is present on single entities in OData v2 responses.
	entityMarker = "__metadata"
	// deferredKey marks an OData v2 navigation property that was not expanded.
	deferredKey = "__deferred"
)

// ExtractRows returns the rows found at path. An object holding a "results"
// collection is unwrapped; any other object is a single row. A null value
// yields no rows.
func ExtractRows(doc interface{}, path string) ([]map[string]interface{}, error) {
	v, ok := Lookup(doc, path)
	if !ok {
		return nil, &dataerrors.MappingError{
			Row:     -1,
			Message: fmt.Sprintf("rows not found at path %q", path),
		}
	}

	switch val := v.(type) {
	case nil:
		return []map[string]interface{}{}, nil
	case []interface{}:
		return toRows(val, path)
	case map[string]interface{}:
		if results, ok := unwrapResults(val); ok {
			return toRows(results, path)
		}
		return []map[string]interface{}{val}, nil
	}
	return nil, &dataerrors.MappingError{
		Row:     -1,
		Message: fmt.Sprintf("value at path %q is %T, not rows", path, v),
	}
}

// unwrapResults returns the "results" array of a collection wrapper.
func unwrapResults(m map[string]interface{}) ([]interface{}, bool) {
	if _, isEntity := m[entityMarker]; isEntity {
		return nil, false
	}
	results, ok := m[resultsKey].([]interface{})
	return results, ok
}

func toRows(items []interface{}, path string) ([]map[string]interface{}, error) {
	rows := make([]map[string]interface{}, 0, len(items))
	for i, item := range items {
		row, ok := item.(map[string]interface{})
		if !ok {
			return nil, &dataerrors.MappingError{
				Row:     i,
				Message: fmt.Sprintf("item at path %q is %T, not an object", path, item),
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ExtractTotalCount reads the total count at path. It returns nil when the
// path is empty or absent; v2 services send the count as a string.
func ExtractTotalCount(doc interface{}, path string) (*int64, error) {
	if path == "" {
		return nil, nil
	}
	v, ok := Lookup(doc, path)
	if !ok || v == nil {
		return nil, nil
	}

	var (
		n   int64
		err error
	)
	switch val := v.(type) {
	case json.Number:
		n, err = val.Int64()
	case string:
		n, err = strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	case float64:
		n = int64(val)
	default:
		err = fmt.Errorf("unexpected type %T", v)
	}
	if err != nil {
		return nil, &dataerrors.MappingError{
			Row:     -1,
			Message: fmt.Sprintf("invalid total count at path %q", path),
			Err:     err,
		}
	}
	return &n, nil
}

// ExtractNextLink returns the server-driven paging link at path, or "".
func ExtractNextLink(doc interface{}, path string) string {
	if path == "" {
		return ""
	}
	v, ok := Lookup(doc, path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
