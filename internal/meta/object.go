// Package meta describes remote objects, their attributes and the abstract
// queries run against them. All types are treated as read-only once a query
// has been handed to a builder.
package meta

import (
	"strings"

	"github.com/nlstn/go-webquery/internal/dataerrors"
	"github.com/nlstn/go-webquery/internal/edm"
)

// DefaultListDelimiter separates values of IN filters given as a string.
const DefaultListDelimiter = ","

// Hop is one navigation step from an object to a related object.
type Hop struct {
	// Relation is the host-side relation alias, used in error messages.
	Relation string
	// Navigation is the navigation property name on the wire.
	Navigation string
}

// Reference marks an attribute that is itself a to-one relation.
type Reference struct {
	// Navigation is the navigation property leading to the related object.
	Navigation string
	// Related is the object the relation points to.
	Related *Object
}

// Attribute describes one column of a remote object.
type Attribute struct {
	// Alias identifies the attribute in rows and error messages.
	Alias string
	// DataAddress is the remote field name (complex properties use "/").
	DataAddress string
	// Hops is the relation path from the query object to the attribute owner.
	Hops []Hop
	// Reference is set when the attribute is a to-one relation key.
	Reference *Reference

	Kind       edm.Kind
	RemoteType string

	// Unsortable and Unfilterable exclude the attribute from sort and filter
	// rendering. Sorters and conditions on it are skipped.
	Unsortable   bool
	Unfilterable bool
	Writable     bool

	// FilterPrefix is prepended to encoded filter values.
	FilterPrefix string
	// ListDelimiter splits string values of IN filters.
	ListDelimiter string
}

// IsRelated reports whether the attribute is reached through a relation.
func (a *Attribute) IsRelated() bool {
	return len(a.Hops) > 0
}

// ValueKind returns the declared kind, falling back to the kind implied by
// the remote type tag.
func (a *Attribute) ValueKind() edm.Kind {
	if a.Kind != edm.KindUnknown {
		return a.Kind
	}
	return edm.KindOf(a.RemoteType)
}

// Delimiter returns the configured list delimiter or the default.
func (a *Attribute) Delimiter() string {
	if a.ListDelimiter == "" {
		return DefaultListDelimiter
	}
	return a.ListDelimiter
}

// NavigationPath joins the navigation ids of all hops with "/". Every hop must
// declare a navigation id.
func (a *Attribute) NavigationPath() (string, error) {
	if len(a.Hops) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(a.Hops))
	for _, hop := range a.Hops {
		if hop.Navigation == "" {
			return "", &dataerrors.ConfigError{
				Component:  "meta",
				Attribute:  a.Alias,
				Navigation: hop.Relation,
				Message:    "relation has no navigation property",
			}
		}
		parts = append(parts, hop.Navigation)
	}
	return strings.Join(parts, "/"), nil
}

// RemotePath returns the full remote path of the attribute, or "" if the
// attribute has no data address.
func (a *Attribute) RemotePath() (string, error) {
	if a.DataAddress == "" {
		return "", nil
	}
	nav, err := a.NavigationPath()
	if err != nil {
		return "", err
	}
	if nav == "" {
		return a.DataAddress, nil
	}
	return nav + "/" + a.DataAddress, nil
}

// Object describes a remote collection.
type Object struct {
	Alias string
	// Collection is the collection path relative to the service root.
	Collection string
	// Keys lists the primary key attributes in declared order.
	Keys       []*Attribute
	Attributes []*Attribute

	// Per-object HTTP method overrides for writes.
	CreateMethod string
	UpdateMethod string
	DeleteMethod string

	// UpdatePath and DeletePath override the key-based entity path. They may
	// contain {Alias} placeholders.
	UpdatePath string
	DeletePath string

	// StaticParams are appended to every read request of this object.
	StaticParams map[string]string

	// RowsPath and CountPath override the dialect response paths.
	RowsPath  string
	CountPath string
}

// Attribute returns the attribute with the given alias.
func (o *Object) Attribute(alias string) (*Attribute, bool) {
	for _, a := range o.Attributes {
		if a.Alias == alias {
			return a, true
		}
	}
	for _, a := range o.Keys {
		if a.Alias == alias {
			return a, true
		}
	}
	return nil, false
}

// IsKey reports whether attr is one of the object's key attributes.
func (o *Object) IsKey(attr *Attribute) bool {
	for _, k := range o.Keys {
		if k == attr || (k.Alias != "" && k.Alias == attr.Alias) {
			return true
		}
	}
	return false
}

// KeyField returns the remote field of a single-key object, or "" if the
// object has no key.
func (o *Object) KeyField() string {
	if o == nil || len(o.Keys) == 0 {
		return ""
	}
	return o.Keys[0].DataAddress
}

// KeyFields returns the remote fields of all key attributes in declared order.
func (o *Object) KeyFields() []string {
	if o == nil {
		return nil
	}
	fields := make([]string, 0, len(o.Keys))
	for _, k := range o.Keys {
		fields = append(fields, k.DataAddress)
	}
	return fields
}
