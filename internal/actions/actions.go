// Package actions builds requests that invoke service operations: OData v2
// function imports, OData v4 functions and actions, and plain REST endpoints.
package actions

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/nlstn/go-webquery/internal/dataerrors"
	"github.com/nlstn/go-webquery/internal/edm"
	"github.com/nlstn/go-webquery/internal/meta"
	"github.com/nlstn/go-webquery/internal/protocol"
	"github.com/nlstn/go-webquery/internal/request"
	"github.com/nlstn/go-webquery/internal/response"
)

const component = "actions"

// Parameter declares one operation parameter.
type Parameter struct {
	Name       string
	RemoteType string
	Kind       edm.Kind
	Required   bool
}

// Binding binds an operation to a collection or, with Key, to one entity.
type Binding struct {
	Object *meta.Object
	Key    []interface{}
}

// Definition describes a remote operation.
type Definition struct {
	Name string
	// Action selects side-effecting operations. They are sent as POST and,
	// outside OData v2, carry their arguments in a JSON body.
	Action bool
	// Method overrides the HTTP method.
	Method string
	// Namespace qualifies bound OData v4 operations.
	Namespace string
	Binding   *Binding
	// Path overrides the operation path below the service root.
	Path       string
	Parameters []Parameter

	// ReturnType and ReturnKind decode primitive results.
	ReturnType string
	ReturnKind edm.Kind
}

// argument is a validated parameter value.
type argument struct {
	param Parameter
	value interface{}
}

// Builder renders invocation requests for one dialect.
type Builder struct {
	assembler *request.Assembler
}

// New creates a builder that takes headers and key predicates from a.
func New(a *request.Assembler) *Builder {
	return &Builder{assembler: a}
}

// Build renders the request invoking def with args. Missing required
// arguments and arguments not declared by def are rejected.
func (b *Builder) Build(def *Definition, args map[string]interface{}) (*request.Request, error) {
	d := b.assembler.Dialect()
	if def == nil || def.Name == "" {
		return nil, &dataerrors.ConfigError{Component: component, Message: "operation has no name"}
	}
	list, err := arguments(def.Parameters, args)
	if err != nil {
		return nil, configError(d, def, err)
	}
	path, err := b.path(d, def)
	if err != nil {
		return nil, err
	}

	method := http.MethodGet
	if def.Action {
		method = http.MethodPost
	}
	if def.Method != "" {
		method = strings.ToUpper(def.Method)
	}

	switch {
	case def.Action && d.Name != protocol.NameODataV2:
		r := b.assembler.NewRequest(method, path)
		body, err := encodeBody(d.Codec, list)
		if err != nil {
			return nil, configError(d, def, err)
		}
		r.Body = body
		r.Header.Set("Content-Type", "application/json")
		return r, nil
	case d.Name == protocol.NameODataV4:
		inline, err := inlineArguments(d.Codec, list)
		if err != nil {
			return nil, configError(d, def, err)
		}
		r := b.assembler.NewRequest(method, path+"("+inline+")")
		setFormat(r, d)
		return r, nil
	default:
		r := b.assembler.NewRequest(method, path)
		for _, a := range list {
			v, err := queryValue(d, a)
			if err != nil {
				return nil, configError(d, def, err)
			}
			r.Query.Add(a.param.Name, v)
		}
		setFormat(r, d)
		return r, nil
	}
}

func (b *Builder) path(d protocol.Dialect, def *Definition) (string, error) {
	if def.Path != "" {
		return def.Path, nil
	}
	if def.Binding == nil || def.Binding.Object == nil {
		return def.Name, nil
	}
	if d.Name == protocol.NameODataV2 {
		return "", &dataerrors.ConfigError{
			Component: component,
			Dialect:   d.String(),
			Message:   fmt.Sprintf("operation %q cannot be bound in OData v2", def.Name),
		}
	}

	base := def.Binding.Object.Collection
	if len(def.Binding.Key) > 0 {
		pred, err := b.assembler.KeyPredicate(def.Binding.Object, def.Binding.Key)
		if err != nil {
			return "", err
		}
		base += pred
	}
	name := def.Name
	if def.Namespace != "" && d.IsOData() {
		name = def.Namespace + "." + def.Name
	}
	return base + "/" + name, nil
}

// arguments validates args against params and returns them in declaration
// order. Parameters without a value are skipped unless required.
func arguments(params []Parameter, args map[string]interface{}) ([]argument, error) {
	known := make(map[string]struct{}, len(params))
	list := make([]argument, 0, len(args))
	for _, p := range params {
		known[p.Name] = struct{}{}
		v, ok := args[p.Name]
		if !ok {
			if p.Required {
				return nil, fmt.Errorf("required parameter '%s' is missing", p.Name)
			}
			continue
		}
		list = append(list, argument{param: p, value: v})
	}
	for name := range args {
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("unknown parameter '%s'", name)
		}
	}
	return list, nil
}

func encodeBody(codec *edm.Codec, list []argument) ([]byte, error) {
	body := make(map[string]interface{}, len(list))
	for _, a := range list {
		v, err := codec.EncodeBodyValue(a.value, a.param.Kind, a.param.RemoteType)
		if err != nil {
			return nil, fmt.Errorf("parameter '%s': %w", a.param.Name, err)
		}
		body[a.param.Name] = v
	}
	return json.Marshal(body)
}

func inlineArguments(codec *edm.Codec, list []argument) (string, error) {
	parts := make([]string, len(list))
	for i, a := range list {
		lit, err := codec.EncodeFilterLiteral(a.value, a.param.Kind, a.param.RemoteType)
		if err != nil {
			return "", fmt.Errorf("parameter '%s': %w", a.param.Name, err)
		}
		parts[i] = a.param.Name + "=" + request.Escape(lit)
	}
	return strings.Join(parts, ","), nil
}

func queryValue(d protocol.Dialect, a argument) (string, error) {
	if !d.IsOData() {
		if a.value == nil {
			return "", nil
		}
		if s, ok := a.value.(string); ok {
			return s, nil
		}
		return fmt.Sprint(a.value), nil
	}
	lit, err := d.Codec.EncodeFilterLiteral(a.value, a.param.Kind, a.param.RemoteType)
	if err != nil {
		return "", fmt.Errorf("parameter '%s': %w", a.param.Name, err)
	}
	return lit, nil
}

func setFormat(r *request.Request, d protocol.Dialect) {
	if d.FormatParam != "" {
		r.Query.Set(d.FormatParam, d.FormatValue)
	}
}

func configError(d protocol.Dialect, def *Definition, err error) error {
	return &dataerrors.ConfigError{
		Component: component,
		Dialect:   d.String(),
		Message:   fmt.Sprintf("cannot invoke %q", def.Name),
		Err:       err,
	}
}

// Result extracts the operation result from a response body. OData v4
// "value" wrappers and OData v2 "d", "results" and single-property wrappers
// are removed. Primitive results are decoded when def declares a return type
// or kind. An empty body yields nil.
func Result(d protocol.Dialect, def *Definition, body []byte) (interface{}, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	doc, err := response.Parse(body)
	if err != nil {
		return nil, &dataerrors.MappingError{Row: -1, Message: "response is not valid JSON", Err: err}
	}

	switch d.Name {
	case protocol.NameODataV2:
		doc, _ = response.Lookup(doc, d.EntityPath)
		if m, ok := doc.(map[string]interface{}); ok {
			if results, ok := m["results"]; ok {
				doc = results
			} else if v, ok := m[def.Name]; ok && len(m) == 1 {
				doc = v
			}
		}
	case protocol.NameODataV4:
		if m, ok := doc.(map[string]interface{}); ok {
			if v, ok := m["value"]; ok && onlyAnnotations(m) {
				doc = v
			}
		}
	}

	switch doc.(type) {
	case map[string]interface{}, []interface{}:
		return doc, nil
	}
	if def.ReturnType == "" && def.ReturnKind == edm.KindUnknown {
		return doc, nil
	}
	v, err := d.Codec.Decode(doc, def.ReturnKind, def.ReturnType)
	if err != nil {
		return nil, &dataerrors.MappingError{Row: -1, Message: "cannot decode operation result", Err: err}
	}
	return v, nil
}

func onlyAnnotations(m map[string]interface{}) bool {
	for k := range m {
		if k != "value" && !strings.HasPrefix(k, "@") {
			return false
		}
	}
	return true
}
