// Package batch wraps write requests into OData $batch envelopes and reads
// the multipart responses.
package batch

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/nlstn/go-webquery/internal/protocol"
	"github.com/nlstn/go-webquery/internal/request"
)

const crlf = "\r\n"

// ErrEmptyBatch is returned when a batch has no sub-requests.
var ErrEmptyBatch = errors.New("webquery: batch has no requests")

// Builder assembles multipart/mixed batch requests.
type Builder struct {
	// Host is sent as Host header of every sub-request. Defaults to the host
	// of BaseURL.
	Host string
	// BaseURL is the service root. Absolute sub-request URLs below it are
	// made relative.
	BaseURL string
	// NewBoundary generates boundary tokens. Defaults to random UUIDs.
	NewBoundary func() string
	// ContentID numbers the parts with Content-ID headers.
	ContentID bool
	// Headers are set on the outer request.
	Headers map[string]string
}

// New creates a builder for the dialect and service root.
func New(d protocol.Dialect, baseURL string) *Builder {
	return &Builder{
		BaseURL:   baseURL,
		ContentID: d.Name == protocol.NameODataV4,
		Headers:   d.Headers,
	}
}

func (b *Builder) boundary() string {
	if b.NewBoundary != nil {
		return b.NewBoundary()
	}
	return uuid.NewString()
}

func (b *Builder) host() string {
	if b.Host != "" {
		return b.Host
	}
	if u, err := url.Parse(b.BaseURL); err == nil {
		return u.Host
	}
	return ""
}

// Build wraps subs into one POST $batch request. Writes are grouped into a
// single changeset; reads are sent as standalone parts after it.
func (b *Builder) Build(subs []*request.Request) (*request.Request, error) {
	if len(subs) == 0 {
		return nil, ErrEmptyBatch
	}

	outer := "batch_" + b.boundary()
	var writes, reads []*request.Request
	for _, sub := range subs {
		if sub.Method == http.MethodGet {
			reads = append(reads, sub)
		} else {
			writes = append(writes, sub)
		}
	}

	var buf bytes.Buffer
	host := b.host()
	id := 0
	if len(writes) > 0 {
		inner := "changeset_" + b.boundary()
		buf.WriteString("--" + outer + crlf)
		buf.WriteString("Content-Type: multipart/mixed; boundary=" + inner + crlf)
		buf.WriteString(crlf)
		for _, sub := range writes {
			id++
			buf.WriteString("--" + inner + crlf)
			b.writePart(&buf, sub, host, id)
		}
		buf.WriteString("--" + inner + "--" + crlf)
		buf.WriteString(crlf)
	}
	for _, sub := range reads {
		id++
		buf.WriteString("--" + outer + crlf)
		b.writePart(&buf, sub, host, id)
	}
	buf.WriteString("--" + outer + "--" + crlf)

	r := &request.Request{
		Method: http.MethodPost,
		Path:   "$batch",
		Header: make(http.Header),
		Body:   buf.Bytes(),
	}
	for k, v := range b.Headers {
		r.Header.Set(k, v)
	}
	r.Header.Set("Accept", "multipart/mixed")
	r.Header.Set("Content-Type", "multipart/mixed; boundary="+outer)
	return r, nil
}

// writePart writes one embedded HTTP request including its trailing CRLF.
func (b *Builder) writePart(buf *bytes.Buffer, sub *request.Request, host string, id int) {
	buf.WriteString("Content-Type: application/http" + crlf)
	buf.WriteString("Content-Transfer-Encoding: binary" + crlf)
	if b.ContentID {
		buf.WriteString("Content-ID: " + strconv.Itoa(id) + crlf)
	}
	buf.WriteString(crlf)

	fmt.Fprintf(buf, "%s %s HTTP/1.1%s", sub.Method, b.relative(sub.Target()), crlf)
	if host != "" {
		buf.WriteString("Host: " + host + crlf)
	}
	keys := make([]string, 0, len(sub.Header))
	for k := range sub.Header {
		if !strings.EqualFold(k, "Host") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range sub.Header[k] {
			buf.WriteString(k + ": " + v + crlf)
		}
	}
	buf.WriteString(crlf)
	buf.Write(sub.Body)
	buf.WriteString(crlf)
}

// relative strips the service root or any scheme and host from target.
func (b *Builder) relative(target string) string {
	if b.BaseURL != "" {
		base := strings.TrimRight(b.BaseURL, "/") + "/"
		if strings.HasPrefix(target, base) {
			return strings.TrimPrefix(target, base)
		}
	}
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		if u, err := url.Parse(target); err == nil {
			u.Scheme, u.Host, u.User = "", "", nil
			return strings.TrimPrefix(u.String(), "/")
		}
	}
	return strings.TrimPrefix(target, "/")
}

// Response is one sub-response of a batch.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// ContentID echoes the Content-ID of the request part, if any.
	ContentID string
	// Changeset is the index of the changeset the response belongs to, or
	// -1 for standalone parts.
	Changeset int
}

// OK reports a 2xx status.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ParseResponse reads a multipart/mixed batch response. Changesets are
// flattened in order.
func ParseResponse(contentType string, body io.Reader) ([]Response, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("invalid batch content type: %w", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, fmt.Errorf("batch response is %s, not multipart", mediaType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("batch content type has no boundary")
	}

	var (
		out       []Response
		changeset int
	)
	reader := multipart.NewReader(body, boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read batch part: %w", err)
		}

		partType, partParams, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			return nil, fmt.Errorf("invalid part content type: %w", err)
		}
		if strings.HasPrefix(partType, "multipart/") {
			nested, err := parseChangeset(part, partParams["boundary"], changeset)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			changeset++
			continue
		}
		resp, err := parsePart(part)
		if err != nil {
			return nil, err
		}
		resp.Changeset = -1
		out = append(out, resp)
	}
	return out, nil
}

func parseChangeset(r io.Reader, boundary string, index int) ([]Response, error) {
	if boundary == "" {
		return nil, fmt.Errorf("changeset has no boundary")
	}
	var out []Response
	reader := multipart.NewReader(r, boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read changeset part: %w", err)
		}
		resp, err := parsePart(part)
		if err != nil {
			return nil, err
		}
		resp.Changeset = index
		out = append(out, resp)
	}
}

func parsePart(part *multipart.Part) (Response, error) {
	resp, err := http.ReadResponse(bufio.NewReader(part), nil)
	if err != nil {
		return Response{}, fmt.Errorf("failed to parse batch sub-response: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read batch sub-response body: %w", err)
	}
	return Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       bytes.TrimSpace(body),
		ContentID:  part.Header.Get("Content-ID"),
	}, nil
}
