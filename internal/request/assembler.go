package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/nlstn/go-webquery/internal/dataerrors"
	"github.com/nlstn/go-webquery/internal/filter"
	"github.com/nlstn/go-webquery/internal/meta"
	"github.com/nlstn/go-webquery/internal/preference"
	"github.com/nlstn/go-webquery/internal/protocol"
)

const component = "request"

// ErrCountNotSupported is returned by BuildCount for dialects without a count
// endpoint.
var ErrCountNotSupported = errors.New("webquery: dialect cannot count")

// Operation is a write operation.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ParseOperation normalizes an operation name.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(s))); op {
	case OpCreate, OpUpdate, OpDelete:
		return op, nil
	}
	return "", fmt.Errorf("unknown write operation: %s", s)
}

// Options tune the assembled requests. Empty parameter names fall back to
// the dialect defaults.
type Options struct {
	OffsetParam string
	LimitParam  string
	// PageParam switches pagination from offsets to page numbers.
	PageParam string
	// PageBase is the number of the first page, usually 0 or 1.
	PageBase   int
	SortParam  string
	OrderParam string

	// InlineCount requests the total count with every paged read.
	InlineCount bool
	// ProbeNextPage reads one row more than requested to detect more data.
	ProbeNextPage bool
	// MaxPageSize asks OData v4 services for server-driven paging.
	MaxPageSize int

	CreateMethod string
	UpdateMethod string
	DeleteMethod string

	// Headers are sent with every request.
	Headers map[string]string
}

// Assembler builds wire requests for one dialect. It is safe for concurrent
// use.
type Assembler struct {
	dialect protocol.Dialect
	filters *filter.Builder
	opts    Options
}

// New creates an assembler.
func New(d protocol.Dialect, opts Options) *Assembler {
	return &Assembler{dialect: d, filters: filter.New(d), opts: opts}
}

// Dialect returns the dialect of the assembler.
func (a *Assembler) Dialect() protocol.Dialect {
	return a.dialect
}

// Filters returns the filter builder of the assembler.
func (a *Assembler) Filters() *filter.Builder {
	return a.filters
}

// BuildRead builds the request reading the rows described by q.
func (a *Assembler) BuildRead(q *meta.Query) (*Request, error) {
	if err := checkQuery(q); err != nil {
		return nil, err
	}
	r := a.NewRequest(http.MethodGet, q.Object.Collection)

	if err := a.addExpand(r, q); err != nil {
		return nil, err
	}
	a.addSelect(r, q)
	if err := a.addFilter(r, q.Filters); err != nil {
		return nil, err
	}
	if err := a.addSort(r, q.Sorters); err != nil {
		return nil, err
	}
	a.addPagination(r, q.Page)
	if (q.InlineCount || (a.opts.InlineCount && q.Page.Requested())) && a.dialect.InlineCountParam != "" {
		r.Query.Add(a.dialect.InlineCountParam, a.dialect.InlineCountValue)
	}
	a.addStatic(r, q.Object)
	if a.dialect.FormatParam != "" {
		r.Query.Set(a.dialect.FormatParam, a.dialect.FormatValue)
	}
	if a.opts.MaxPageSize > 0 && a.dialect.Name == protocol.NameODataV4 {
		r.Header.Set("Prefer", (&preference.Preference{MaxPageSize: a.opts.MaxPageSize}).String())
	}
	return r, nil
}

// BuildReadByKey builds the request reading a single entity addressed by
// q.Key.
func (a *Assembler) BuildReadByKey(q *meta.Query) (*Request, error) {
	if err := checkQuery(q); err != nil {
		return nil, err
	}
	pred, err := a.KeyPredicate(q.Object, q.Key)
	if err != nil {
		return nil, err
	}
	r := a.NewRequest(http.MethodGet, q.Object.Collection+pred)
	if err := a.addExpand(r, q); err != nil {
		return nil, err
	}
	a.addSelect(r, q)
	a.addStatic(r, q.Object)
	if a.dialect.FormatParam != "" {
		r.Query.Set(a.dialect.FormatParam, a.dialect.FormatValue)
	}
	return r, nil
}

// BuildCount builds the request for the count endpoint. Only filters and
// static object parameters are kept.
func (a *Assembler) BuildCount(q *meta.Query) (*Request, error) {
	if !a.dialect.CanCount() {
		return nil, ErrCountNotSupported
	}
	if err := checkQuery(q); err != nil {
		return nil, err
	}
	r := a.NewRequest(http.MethodGet, q.Object.Collection+a.dialect.CountSegment)
	r.Header.Set("Accept", "text/plain")
	if err := a.addFilter(r, q.Filters); err != nil {
		return nil, err
	}
	a.addStatic(r, q.Object)
	// The count endpoint returns a bare number.
	if a.dialect.FormatParam != "" {
		r.Query.Del(a.dialect.FormatParam)
	}
	r.Query.Del("$format")
	return r, nil
}

// BuildWrite builds one request per row.
func (a *Assembler) BuildWrite(op Operation, obj *meta.Object, rows []meta.Row) ([]*Request, error) {
	if obj == nil {
		return nil, &dataerrors.ConfigError{Component: component, Message: "no object given"}
	}
	reqs := make([]*Request, 0, len(rows))
	for _, row := range rows {
		var (
			r   *Request
			err error
		)
		switch op {
		case OpCreate:
			r, err = a.buildCreate(obj, row)
		case OpUpdate:
			r, err = a.buildUpdate(obj, row)
		case OpDelete:
			r, err = a.buildDelete(obj, row)
		default:
			err = &dataerrors.ConfigError{
				Component: component,
				Dialect:   a.dialect.String(),
				Message:   fmt.Sprintf("unsupported write operation %q", op),
			}
		}
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, r)
	}
	return reqs, nil
}

func (a *Assembler) buildCreate(obj *meta.Object, row meta.Row) (*Request, error) {
	method := firstNonEmpty(obj.CreateMethod, a.opts.CreateMethod, http.MethodPost)
	r := a.NewRequest(strings.ToUpper(method), obj.Collection)
	body, err := a.body(obj, row, true)
	if err != nil {
		return nil, err
	}
	a.setBody(r, body)
	return r, nil
}

func (a *Assembler) buildUpdate(obj *meta.Object, row meta.Row) (*Request, error) {
	path, err := a.entityPath(obj, row, obj.UpdatePath)
	if err != nil {
		return nil, err
	}
	method := firstNonEmpty(obj.UpdateMethod, a.opts.UpdateMethod, http.MethodPatch)
	r := a.NewRequest(strings.ToUpper(method), path)
	body, err := a.body(obj, row, false)
	if err != nil {
		return nil, err
	}
	a.setBody(r, body)
	setIfMatch(r, row)
	return r, nil
}

func (a *Assembler) buildDelete(obj *meta.Object, row meta.Row) (*Request, error) {
	path, err := a.entityPath(obj, row, obj.DeletePath)
	if err != nil {
		return nil, err
	}
	method := firstNonEmpty(obj.DeleteMethod, a.opts.DeleteMethod, http.MethodDelete)
	r := a.NewRequest(strings.ToUpper(method), path)
	setIfMatch(r, row)
	return r, nil
}

// setIfMatch makes the write conditional on the entity tag the row was read
// with.
func setIfMatch(r *Request, row meta.Row) {
	if tag, ok := row[meta.ETagKey].(string); ok && tag != "" {
		r.Header.Set("If-Match", tag)
	}
}

func (a *Assembler) setBody(r *Request, body []byte) {
	r.Body = body
	r.Header.Set("Content-Type", "application/json")
	if pref := a.dialect.WritePreference.String(); pref != "" {
		r.Header.Set("Prefer", pref)
	}
}

// body encodes the writable direct attributes present in row. Keys are only
// sent on create.
func (a *Assembler) body(obj *meta.Object, row meta.Row, withKeys bool) ([]byte, error) {
	doc := make(map[string]interface{})
	write := func(attr *meta.Attribute) error {
		if attr.IsRelated() || attr.DataAddress == "" {
			return nil
		}
		value, ok := row[attr.Alias]
		if !ok {
			return nil
		}
		v, err := a.dialect.Codec.EncodeBodyValue(value, attr.ValueKind(), attr.RemoteType)
		if err != nil {
			return &dataerrors.ConfigError{
				Component: component,
				Dialect:   a.dialect.String(),
				Attribute: attr.Alias,
				Message:   "cannot encode body value",
				Err:       err,
			}
		}
		setPath(doc, strings.Split(attr.DataAddress, "/"), v)
		return nil
	}

	if withKeys {
		for _, k := range obj.Keys {
			if err := write(k); err != nil {
				return nil, err
			}
		}
	}
	for _, attr := range obj.Attributes {
		if !attr.Writable || obj.IsKey(attr) {
			continue
		}
		if err := write(attr); err != nil {
			return nil, err
		}
	}
	return json.Marshal(doc)
}

// setPath stores v below the complex property path.
func setPath(doc map[string]interface{}, path []string, v interface{}) {
	for _, seg := range path[:len(path)-1] {
		next, ok := doc[seg].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			doc[seg] = next
		}
		doc = next
	}
	doc[path[len(path)-1]] = v
}

var placeholder = regexp.MustCompile(`\{([^{}]+)\}`)

// entityPath resolves the path of a single entity for update and delete.
func (a *Assembler) entityPath(obj *meta.Object, row meta.Row, override string) (string, error) {
	if override != "" {
		var missing string
		path := placeholder.ReplaceAllStringFunc(override, func(m string) string {
			alias := m[1 : len(m)-1]
			v, ok := row[alias]
			if !ok && missing == "" {
				missing = alias
			}
			return escapePath(plain(v))
		})
		if missing != "" {
			return "", &dataerrors.ConfigError{
				Component: component,
				Dialect:   a.dialect.String(),
				Attribute: missing,
				Message:   "path placeholder has no value in the row",
			}
		}
		return path, nil
	}

	if len(obj.Keys) == 0 {
		return "", &dataerrors.ConfigError{
			Component: component,
			Dialect:   a.dialect.String(),
			Message:   fmt.Sprintf("object %q has no primary key and no path override", objectName(obj)),
		}
	}
	values := make([]interface{}, len(obj.Keys))
	for i, k := range obj.Keys {
		v, ok := row[k.Alias]
		if !ok || v == nil {
			return "", &dataerrors.ConfigError{
				Component: component,
				Dialect:   a.dialect.String(),
				Attribute: k.Alias,
				Message:   "row has no primary key value",
			}
		}
		values[i] = v
	}
	pred, err := a.KeyPredicate(obj, values)
	if err != nil {
		return "", err
	}
	return obj.Collection + pred, nil
}

// KeyPredicate renders the entity key suffix for obj: "(1)" for single keys,
// "(K1=1,K2='a')" for compound keys. REST dialects use "/1".
func (a *Assembler) KeyPredicate(obj *meta.Object, values []interface{}) (string, error) {
	if len(obj.Keys) == 0 {
		return "", &dataerrors.ConfigError{
			Component: component,
			Dialect:   a.dialect.String(),
			Message:   fmt.Sprintf("object %q has no primary key", objectName(obj)),
		}
	}
	if len(values) != len(obj.Keys) {
		return "", &dataerrors.ConfigError{
			Component: component,
			Dialect:   a.dialect.String(),
			Message:   fmt.Sprintf("expected %d key values, got %d", len(obj.Keys), len(values)),
		}
	}

	if !a.dialect.IsOData() {
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = escapePath(plain(v))
		}
		return "/" + strings.Join(parts, "/"), nil
	}

	lits := make([]string, len(values))
	for i, k := range obj.Keys {
		lit, err := a.dialect.Codec.EncodeFilterLiteral(values[i], k.ValueKind(), k.RemoteType)
		if err != nil {
			return "", &dataerrors.ConfigError{
				Component: component,
				Dialect:   a.dialect.String(),
				Attribute: k.Alias,
				Message:   "cannot encode key value",
				Err:       err,
			}
		}
		lits[i] = escapePath(lit)
	}
	if len(lits) == 1 {
		return "(" + lits[0] + ")", nil
	}
	parts := make([]string, len(lits))
	for i, k := range obj.Keys {
		parts[i] = k.DataAddress + "=" + lits[i]
	}
	return "(" + strings.Join(parts, ",") + ")", nil
}

// NewRequest returns an empty request carrying the configured and dialect
// headers.
func (a *Assembler) NewRequest(method, path string) *Request {
	r := &Request{Method: method, Path: path, Header: make(http.Header)}
	for k, v := range a.opts.Headers {
		r.Header.Set(k, v)
	}
	a.dialect.ApplyHeaders(r.Header)
	return r
}

func (a *Assembler) addExpand(r *Request, q *meta.Query) error {
	navs, err := q.Navigations()
	if err != nil {
		return err
	}
	if len(navs) > 0 && a.dialect.ExpandParam != "" {
		r.Query.Add(a.dialect.ExpandParam, a.dialect.Expand(navs))
	}
	return nil
}

func (a *Assembler) addSelect(r *Request, q *meta.Query) {
	if !q.Select || !a.dialect.SupportsSelect || a.dialect.SelectParam == "" {
		return
	}
	seen := make(map[string]bool)
	var fields []string
	add := func(attr *meta.Attribute) {
		if attr.IsRelated() || attr.DataAddress == "" {
			return
		}
		if !seen[attr.DataAddress] {
			seen[attr.DataAddress] = true
			fields = append(fields, attr.DataAddress)
		}
	}
	for _, k := range q.Object.Keys {
		add(k)
	}
	for _, c := range q.Columns {
		add(c)
	}
	if len(fields) > 0 {
		r.Query.Add(a.dialect.SelectParam, strings.Join(fields, ","))
	}
}

func (a *Assembler) addFilter(r *Request, g *meta.Group) error {
	if a.dialect.IsOData() {
		expr, err := a.filters.Expression(g)
		if err != nil {
			return err
		}
		if expr != "" {
			r.Query.Add(a.dialect.FilterParam, expr)
		}
		return nil
	}
	params, err := a.filters.Params(g)
	if err != nil {
		return err
	}
	for _, p := range params {
		r.Query.Add(p.Name, p.Value)
	}
	return nil
}

func (a *Assembler) addSort(r *Request, sorters []meta.Sorter) error {
	var fields, dirs []string
	for _, s := range sorters {
		if s.Attribute == nil || s.Attribute.Unsortable {
			continue
		}
		path, err := s.Attribute.RemotePath()
		if err != nil {
			return err
		}
		if path == "" {
			continue
		}
		dir := "asc"
		if s.Direction == meta.Descending {
			dir = "desc"
		}
		fields = append(fields, path)
		dirs = append(dirs, dir)
	}
	if len(fields) == 0 {
		return nil
	}

	sortParam := firstNonEmpty(a.opts.SortParam, a.dialect.OrderByParam)
	orderParam := firstNonEmpty(a.opts.OrderParam, a.dialect.OrderParam)
	if a.dialect.SortStyle == protocol.SortTrailingClause || (a.opts.OrderParam != "" && !a.dialect.IsOData()) {
		r.Query.Add(sortParam, strings.Join(fields, ","))
		r.Query.Add(orderParam, strings.Join(dirs, ","))
		return nil
	}
	parts := make([]string, len(fields))
	for i := range fields {
		parts[i] = fields[i] + " " + dirs[i]
	}
	r.Query.Add(sortParam, strings.Join(parts, ","))
	return nil
}

func (a *Assembler) addPagination(r *Request, p meta.Pagination) {
	if !p.Requested() {
		return
	}
	limitParam := firstNonEmpty(a.opts.LimitParam, a.dialect.TopParam)

	if a.opts.PageParam != "" && p.Limit > 0 {
		page := p.Offset/p.Limit + a.opts.PageBase
		r.Query.Add(a.opts.PageParam, strconv.Itoa(page))
		r.Query.Add(limitParam, strconv.Itoa(p.Limit))
		return
	}

	if p.Offset > 0 {
		r.Query.Add(firstNonEmpty(a.opts.OffsetParam, a.dialect.SkipParam), strconv.Itoa(p.Offset))
	}
	if p.Limit > 0 {
		limit := p.Limit
		if a.Probes(p) {
			limit++
		}
		r.Query.Add(limitParam, strconv.Itoa(limit))
	}
}

// Probes reports whether reads of page p ask for one row more than the
// page holds. Page-number pagination never does, since the extra row would
// shift every following page.
func (a *Assembler) Probes(p meta.Pagination) bool {
	return a.opts.ProbeNextPage && a.opts.PageParam == "" && p.Limit > 0
}

// addStatic appends the object's static parameters in name order.
func (a *Assembler) addStatic(r *Request, obj *meta.Object) {
	if len(obj.StaticParams) == 0 {
		return
	}
	names := make([]string, 0, len(obj.StaticParams))
	for name := range obj.StaticParams {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.Query.Set(name, obj.StaticParams[name])
	}
}

func checkQuery(q *meta.Query) error {
	if q == nil || q.Object == nil {
		return &dataerrors.ConfigError{Component: component, Message: "query has no object"}
	}
	if q.Object.Collection == "" {
		return &dataerrors.ConfigError{
			Component: component,
			Message:   fmt.Sprintf("object %q has no collection path", q.Object.Alias),
		}
	}
	return nil
}

func objectName(obj *meta.Object) string {
	if obj.Alias != "" {
		return obj.Alias
	}
	return obj.Collection
}

// escapePath escapes a single path segment the way Escape does for queries.
func escapePath(s string) string {
	return strings.ReplaceAll(Escape(s), "/", "%2F")
}

func plain(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	return fmt.Sprint(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
