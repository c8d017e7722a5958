// Package preference renders OData Prefer headers.
package preference

import (
	"strconv"
	"strings"
)

// Preference represents the OData Prefer header preferences a client sends
type Preference struct {
	ReturnRepresentation bool
	ReturnMinimal        bool
	// MaxPageSize asks the service for server-driven paging; 0 means unset.
	MaxPageSize int
}

// String renders the Prefer header value. An empty string means no header.
func (p *Preference) String() string {
	if p == nil {
		return ""
	}
	var parts []string
	switch {
	case p.ReturnRepresentation:
		parts = append(parts, "return=representation")
	case p.ReturnMinimal:
		parts = append(parts, "return=minimal")
	}
	if p.MaxPageSize > 0 {
		parts = append(parts, "odata.maxpagesize="+strconv.Itoa(p.MaxPageSize))
	}
	return strings.Join(parts, ", ")
}
