package request

import (
	"net/url"
	"strings"
)

// Param is a single query parameter.
type Param struct {
	Name  string
	Value string
}

// Params is an ordered list of query parameters. Unlike url.Values the
// order of insertion is kept, so requests render deterministically.
type Params []Param

// Add appends a parameter.
func (p *Params) Add(name, value string) {
	*p = append(*p, Param{Name: name, Value: value})
}

// Set replaces the first parameter with the given name and removes the
// others, or appends it if absent.
func (p *Params) Set(name, value string) {
	for i, param := range *p {
		if param.Name == name {
			(*p)[i].Value = value
			rest := (*p)[i+1:]
			kept := (*p)[:i+1]
			for _, r := range rest {
				if r.Name != name {
					kept = append(kept, r)
				}
			}
			*p = kept
			return
		}
	}
	p.Add(name, value)
}

// Get returns the first value for name.
func (p Params) Get(name string) string {
	for _, param := range p {
		if param.Name == name {
			return param.Value
		}
	}
	return ""
}

// Has reports whether a parameter with the given name exists.
func (p Params) Has(name string) bool {
	for _, param := range p {
		if param.Name == name {
			return true
		}
	}
	return false
}

// Del removes all parameters with the given name.
func (p *Params) Del(name string) {
	kept := (*p)[:0]
	for _, param := range *p {
		if param.Name != name {
			kept = append(kept, param)
		}
	}
	*p = kept
}

// Encode renders the parameters as a query string.
func (p Params) Encode() string {
	var b strings.Builder
	for i, param := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(Escape(param.Name))
		b.WriteByte('=')
		b.WriteString(Escape(param.Value))
	}
	return b.String()
}

// readable are the characters OData services expect unescaped in query
// strings.
var readable = strings.NewReplacer(
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2C", ",",
	"%24", "$",
	"%3A", ":",
	"%2F", "/",
)

// Escape escapes s for use in a query string. Spaces become %20 and OData
// punctuation stays readable; a literal "+" stays escaped.
func Escape(s string) string {
	e := url.QueryEscape(s)
	e = strings.ReplaceAll(e, "+", "%20")
	return readable.Replace(e)
}
