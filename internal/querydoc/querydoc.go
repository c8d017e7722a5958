// Package querydoc reads YAML documents describing a remote object and a
// query against it.
package querydoc

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nlstn/go-webquery/internal/actions"
	"github.com/nlstn/go-webquery/internal/edm"
	"github.com/nlstn/go-webquery/internal/meta"
)

// Document is the YAML form of an object, a query and optional rows to write.
// A document may instead describe a service operation to invoke.
type Document struct {
	Object    ObjectDoc                `yaml:"object"`
	Query     QueryDoc                 `yaml:"query"`
	Rows      []map[string]interface{} `yaml:"rows,omitempty"`
	Operation *OperationDoc            `yaml:"operation,omitempty"`
}

// ObjectDoc describes a remote collection.
type ObjectDoc struct {
	Alias        string            `yaml:"alias"`
	Collection   string            `yaml:"collection"`
	Keys         []string          `yaml:"keys"`
	Attributes   []AttributeDoc    `yaml:"attributes"`
	StaticParams map[string]string `yaml:"static_params,omitempty"`
	RowsPath     string            `yaml:"rows_path,omitempty"`
	CountPath    string            `yaml:"count_path,omitempty"`
	CreateMethod string            `yaml:"create_method,omitempty"`
	UpdateMethod string            `yaml:"update_method,omitempty"`
	DeleteMethod string            `yaml:"delete_method,omitempty"`
	UpdatePath   string            `yaml:"update_path,omitempty"`
	DeletePath   string            `yaml:"delete_path,omitempty"`
}

// AttributeDoc describes one attribute.
type AttributeDoc struct {
	Alias         string        `yaml:"alias"`
	Address       string        `yaml:"address"`
	Type          string        `yaml:"type,omitempty"`
	Kind          string        `yaml:"kind,omitempty"`
	Relations     []HopDoc      `yaml:"relations,omitempty"`
	Reference     *ReferenceDoc `yaml:"reference,omitempty"`
	Sortable      *bool         `yaml:"sortable,omitempty"`
	Filterable    *bool         `yaml:"filterable,omitempty"`
	Writable      *bool         `yaml:"writable,omitempty"`
	FilterPrefix  string        `yaml:"filter_prefix,omitempty"`
	ListDelimiter string        `yaml:"list_delimiter,omitempty"`
}

// HopDoc is one relation step.
type HopDoc struct {
	Relation   string `yaml:"relation"`
	Navigation string `yaml:"navigation"`
}

// ReferenceDoc marks a to-one relation key attribute.
type ReferenceDoc struct {
	Navigation string `yaml:"navigation"`
	// Key is the remote key field of the related object.
	Key string `yaml:"key"`
}

// QueryDoc describes the query.
type QueryDoc struct {
	Columns     []string      `yaml:"columns"`
	Filter      *GroupDoc     `yaml:"filter,omitempty"`
	Sort        []SortDoc     `yaml:"sort,omitempty"`
	Offset      int           `yaml:"offset,omitempty"`
	Limit       int           `yaml:"limit,omitempty"`
	InlineCount bool          `yaml:"inline_count,omitempty"`
	Select      bool          `yaml:"select,omitempty"`
	Key         []interface{} `yaml:"key,omitempty"`
}

// GroupDoc is a filter group.
type GroupDoc struct {
	Operator   string         `yaml:"operator"`
	Conditions []ConditionDoc `yaml:"conditions,omitempty"`
	Groups     []GroupDoc     `yaml:"groups,omitempty"`
}

// ConditionDoc is a filter condition.
type ConditionDoc struct {
	Attribute  string      `yaml:"attribute"`
	Comparator string      `yaml:"comparator"`
	Value      interface{} `yaml:"value"`
	Delimiter  string      `yaml:"delimiter,omitempty"`
}

// OperationDoc describes a function import, function or action and the
// arguments to call it with.
type OperationDoc struct {
	Name       string                 `yaml:"name"`
	Action     bool                   `yaml:"action,omitempty"`
	Method     string                 `yaml:"method,omitempty"`
	Namespace  string                 `yaml:"namespace,omitempty"`
	Path       string                 `yaml:"path,omitempty"`
	Bound      bool                   `yaml:"bound,omitempty"`
	Key        []interface{}          `yaml:"key,omitempty"`
	Parameters []ParameterDoc         `yaml:"parameters,omitempty"`
	Returns    *ParameterDoc          `yaml:"returns,omitempty"`
	Arguments  map[string]interface{} `yaml:"arguments,omitempty"`
}

// ParameterDoc declares an operation parameter or return value.
type ParameterDoc struct {
	Name     string `yaml:"name,omitempty"`
	Type     string `yaml:"type,omitempty"`
	Kind     string `yaml:"kind,omitempty"`
	Required bool   `yaml:"required,omitempty"`
}

// SortDoc is one sort order.
type SortDoc struct {
	Attribute string `yaml:"attribute"`
	Direction string `yaml:"direction"`
}

// Parse decodes a YAML document. Unknown fields are rejected.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse query document: %w", err)
	}
	return &doc, nil
}

// Load reads and parses the document at path.
func Load(path string) (*Document, error) {
	f, err := os.Open(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// BuildObject builds the object described by the document.
func (d *Document) BuildObject() (*meta.Object, error) {
	od := d.Object
	if od.Collection == "" {
		return nil, fmt.Errorf("object %q has no collection", od.Alias)
	}
	obj := &meta.Object{
		Alias:        od.Alias,
		Collection:   od.Collection,
		CreateMethod: od.CreateMethod,
		UpdateMethod: od.UpdateMethod,
		DeleteMethod: od.DeleteMethod,
		UpdatePath:   od.UpdatePath,
		DeletePath:   od.DeletePath,
		StaticParams: od.StaticParams,
		RowsPath:     od.RowsPath,
		CountPath:    od.CountPath,
	}

	for _, ad := range od.Attributes {
		attr, err := ad.build()
		if err != nil {
			return nil, err
		}
		obj.Attributes = append(obj.Attributes, attr)
	}
	for _, alias := range od.Keys {
		attr, ok := obj.Attribute(alias)
		if !ok {
			return nil, fmt.Errorf("key %q is not an attribute of %q", alias, od.Alias)
		}
		obj.Keys = append(obj.Keys, attr)
	}
	return obj, nil
}

func (ad AttributeDoc) build() (*meta.Attribute, error) {
	if ad.Alias == "" {
		return nil, fmt.Errorf("attribute without alias (address %q)", ad.Address)
	}
	kind, err := edm.ParseKind(ad.Kind)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", ad.Alias, err)
	}
	if ad.Type != "" && !edm.IsValidType(ad.Type) {
		return nil, fmt.Errorf("attribute %q: unknown type %s", ad.Alias, ad.Type)
	}

	attr := &meta.Attribute{
		Alias:         ad.Alias,
		DataAddress:   ad.Address,
		Kind:          kind,
		RemoteType:    ad.Type,
		Unsortable:    !flag(ad.Sortable, true),
		Unfilterable:  !flag(ad.Filterable, true),
		Writable:      flag(ad.Writable, true),
		FilterPrefix:  ad.FilterPrefix,
		ListDelimiter: ad.ListDelimiter,
	}
	for _, h := range ad.Relations {
		attr.Hops = append(attr.Hops, meta.Hop{Relation: h.Relation, Navigation: h.Navigation})
	}
	if ad.Reference != nil {
		ref := &meta.Reference{Navigation: ad.Reference.Navigation}
		if ad.Reference.Key != "" {
			key := &meta.Attribute{Alias: ad.Reference.Key, DataAddress: ad.Reference.Key}
			ref.Related = &meta.Object{Alias: ad.Reference.Navigation, Keys: []*meta.Attribute{key}}
		}
		attr.Reference = ref
	}
	return attr, nil
}

func flag(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// BuildQuery builds the query against obj. Columns default to all
// attributes of the object.
func (d *Document) BuildQuery(obj *meta.Object) (*meta.Query, error) {
	qd := d.Query
	q := &meta.Query{
		Object:      obj,
		Page:        meta.Page(qd.Offset, qd.Limit),
		InlineCount: qd.InlineCount,
		Select:      qd.Select,
		Key:         qd.Key,
	}

	if len(qd.Columns) == 0 {
		q.Columns = obj.Attributes
	}
	for _, alias := range qd.Columns {
		attr, err := lookup(obj, alias)
		if err != nil {
			return nil, err
		}
		q.Columns = append(q.Columns, attr)
	}

	if qd.Filter != nil {
		g, err := buildGroup(obj, *qd.Filter)
		if err != nil {
			return nil, err
		}
		q.Filters = g
	}

	for _, sd := range qd.Sort {
		attr, err := lookup(obj, sd.Attribute)
		if err != nil {
			return nil, err
		}
		dir := meta.Ascending
		switch strings.ToUpper(sd.Direction) {
		case "", "ASC":
		case "DESC":
			dir = meta.Descending
		default:
			return nil, fmt.Errorf("unknown sort direction %q", sd.Direction)
		}
		q.Sorters = append(q.Sorters, meta.Sorter{Attribute: attr, Direction: dir})
	}
	return q, nil
}

func buildGroup(obj *meta.Object, gd GroupDoc) (*meta.Group, error) {
	op, err := meta.ParseOperator(gd.Operator)
	if err != nil {
		return nil, err
	}
	g := &meta.Group{Operator: op}
	for _, cd := range gd.Conditions {
		attr, err := lookup(obj, cd.Attribute)
		if err != nil {
			return nil, err
		}
		g.Conditions = append(g.Conditions, &meta.Condition{
			Attribute:  attr,
			Comparator: meta.ParseComparator(cd.Comparator),
			Value:      cd.Value,
			Delimiter:  cd.Delimiter,
		})
	}
	for _, nested := range gd.Groups {
		ng, err := buildGroup(obj, nested)
		if err != nil {
			return nil, err
		}
		g.Groups = append(g.Groups, ng)
	}
	return g, nil
}

func lookup(obj *meta.Object, alias string) (*meta.Attribute, error) {
	attr, ok := obj.Attribute(alias)
	if !ok {
		return nil, fmt.Errorf("unknown attribute %q of %q", alias, obj.Alias)
	}
	return attr, nil
}

// BuildRows converts the document rows to meta rows.
func (d *Document) BuildRows() []meta.Row {
	rows := make([]meta.Row, 0, len(d.Rows))
	for _, r := range d.Rows {
		rows = append(rows, meta.Row(r))
	}
	return rows
}

// BuildOperation builds the operation of the document. Bound operations are
// bound to obj, which must then be non-nil.
func (d *Document) BuildOperation(obj *meta.Object) (*actions.Definition, map[string]interface{}, error) {
	od := d.Operation
	if od == nil || od.Name == "" {
		return nil, nil, fmt.Errorf("document has no operation")
	}
	def := &actions.Definition{
		Name:      od.Name,
		Action:    od.Action,
		Method:    od.Method,
		Namespace: od.Namespace,
		Path:      od.Path,
	}
	if od.Bound {
		if obj == nil {
			return nil, nil, fmt.Errorf("operation %q is bound but the document has no object", od.Name)
		}
		def.Binding = &actions.Binding{Object: obj, Key: od.Key}
	}
	for _, pd := range od.Parameters {
		kind, err := pd.kind()
		if err != nil {
			return nil, nil, fmt.Errorf("operation %q: %w", od.Name, err)
		}
		def.Parameters = append(def.Parameters, actions.Parameter{
			Name:       pd.Name,
			RemoteType: pd.Type,
			Kind:       kind,
			Required:   pd.Required,
		})
	}
	if od.Returns != nil {
		kind, err := od.Returns.kind()
		if err != nil {
			return nil, nil, fmt.Errorf("operation %q: %w", od.Name, err)
		}
		def.ReturnType, def.ReturnKind = od.Returns.Type, kind
	}
	return def, od.Arguments, nil
}

func (pd ParameterDoc) kind() (edm.Kind, error) {
	if pd.Type != "" && !edm.IsValidType(pd.Type) {
		return edm.KindUnknown, fmt.Errorf("parameter %q: unknown type %s", pd.Name, pd.Type)
	}
	if pd.Kind == "" && pd.Type != "" {
		return edm.KindOf(pd.Type), nil
	}
	return edm.ParseKind(pd.Kind)
}
