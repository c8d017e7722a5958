// Package request assembles wire requests for reads, counts and writes.
package request

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
)

// Request is a protocol request ready to be executed by a transport.
type Request struct {
	Method string
	// Path is relative to the service root, e.g. "Products(1)".
	Path   string
	Query  Params
	Header http.Header
	Body   []byte
}

// RawQuery returns the encoded query string.
func (r *Request) RawQuery() string {
	return r.Query.Encode()
}

// Target returns the path with its query string.
func (r *Request) Target() string {
	q := r.RawQuery()
	if q == "" {
		return r.Path
	}
	return r.Path + "?" + q
}

// URL returns the absolute URL of the request below base.
func (r *Request) URL(base string) string {
	return JoinURL(base, r.Target())
}

// HTTPRequest converts the request into an *http.Request below base.
func (r *Request) HTTPRequest(ctx context.Context, base string) (*http.Request, error) {
	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL(base), body)
	if err != nil {
		return nil, err
	}
	for k, v := range r.Header {
		req.Header[k] = append([]string(nil), v...)
	}
	return req, nil
}

// JoinURL joins a base URL and a relative target with exactly one slash.
// Absolute targets, such as server-driven next links, are returned as is.
func JoinURL(base, target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	if base == "" {
		return target
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(target, "/")
}
