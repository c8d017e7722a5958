package request

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Name eq 'A B'", "Name%20eq%20'A%20B'"},
		{"$filter", "$filter"},
		{"a+b", "a%2Bb"},
		{"datetime'2022-05-29T20:23:00'", "datetime'2022-05-29T20:23:00'"},
		{"Supplier/Name,Category", "Supplier/Name,Category"},
		{"(a eq 1)", "(a%20eq%201)"},
		{"x&y=z", "x%26y%3Dz"},
		{"50%", "50%25"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Escape(tt.input))
		})
	}
}

func TestParams(t *testing.T) {
	var p Params
	p.Add("$filter", "a eq 1")
	p.Add("$top", "10")
	p.Add("$top", "20")
	p.Add("$format", "json")

	assert.Equal(t, "10", p.Get("$top"), "Get returns the first value")

	p.Set("$top", "5")
	assert.Equal(t, "$filter=a%20eq%201&$top=5&$format=json", p.Encode())

	p.Set("$skip", "3")
	p.Del("$format")
	assert.Equal(t, "$filter=a%20eq%201&$top=5&$skip=3", p.Encode())
	assert.False(t, p.Has("$format"))
	assert.True(t, p.Has("$skip"))

	var empty Params
	assert.Empty(t, empty.Encode())
	assert.Empty(t, empty.Get("x"))
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		base, target, expected string
	}{
		{"http://host/svc", "Products", "http://host/svc/Products"},
		{"http://host/svc/", "/Products?$top=1", "http://host/svc/Products?$top=1"},
		{"", "Products", "Products"},
		{"http://host/svc", "https://other/next?page=2", "https://other/next?page=2"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, JoinURL(tt.base, tt.target), "JoinURL(%q, %q)", tt.base, tt.target)
	}
}

func TestHTTPRequest(t *testing.T) {
	r := &Request{
		Method: http.MethodPatch,
		Path:   "Products(5)",
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   []byte(`{"Name":"Foo"}`),
	}
	r.Query.Add("$format", "json")

	req, err := r.HTTPRequest(context.Background(), "http://host/svc/")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "http://host/svc/Products(5)?$format=json", req.URL.String())
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"Name":"Foo"}`, string(body))

	r.Header.Set("Content-Type", "text/plain")
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"), "headers must not be shared with the source request")
}
