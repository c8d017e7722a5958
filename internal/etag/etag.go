// Package etag reads entity tags from service responses. Tags are sent back
// unchanged in If-Match headers of updates and deletes.
package etag

import (
	"net/http"
	"strings"
)

// Header is the response header carrying the tag of a single entity.
const Header = "ETag"

// FromEntity returns the tag annotated on a response entity: "@odata.etag"
// (v4) or "__metadata.etag" (v2). It returns "" if the entity has none.
func FromEntity(entity map[string]interface{}) string {
	if tag, ok := entity["@odata.etag"].(string); ok {
		return strings.TrimSpace(tag)
	}
	if md, ok := entity["__metadata"].(map[string]interface{}); ok {
		if tag, ok := md["etag"].(string); ok {
			return strings.TrimSpace(tag)
		}
	}
	return ""
}

// FromHeader returns the ETag header of a response.
func FromHeader(h http.Header) string {
	return strings.TrimSpace(h.Get(Header))
}
