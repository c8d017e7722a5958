package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productsDoc = `
object:
  alias: products
  collection: Products
  keys: [id]
  attributes:
    - alias: id
      address: ID
      type: Edm.Int32
    - alias: name
      address: Name
      type: Edm.String
query:
  columns: [id, name]
  filter:
    operator: AND
    conditions:
      - attribute: name
        comparator: "=="
        value: Chai
  limit: 2
  key: [1]
rows:
  - id: 1
    name: Chai
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBuildCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "service.yaml", "base_url: https://example.com/odata\nprotocol: odata4\n")
	query := writeFile(t, dir, "products.yaml", productsDoc)

	out, err := run(t, nil, "build", "-c", cfg, "-q", query)
	require.NoError(t, err)
	firstLine := strings.SplitN(out, "\n", 2)[0]
	assert.True(t, strings.HasPrefix(firstLine, "GET https://example.com/odata/Products?"), firstLine)
	assert.Contains(t, firstLine, "$top=2")
	assert.Contains(t, out, "Odata-Version: 4.01")

	out, err = run(t, nil, "build", "-c", cfg, "-q", query, "--op", "by-key")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "GET https://example.com/odata/Products(1)"), out)

	out, err = run(t, nil, "build", "-c", cfg, "-q", query, "--op", "create", "--batch")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "POST https://example.com/odata/$batch\n"), out)
	assert.Contains(t, out, "POST Products HTTP/1.1")

	_, err = run(t, nil, "build", "-c", cfg, "-q", query, "--op", "upsert")
	assert.Error(t, err)
	_, err = run(t, nil, "build", "-c", cfg)
	assert.Error(t, err)
}

func TestMapCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "service.yaml", "base_url: https://example.com/odata\n")
	query := writeFile(t, dir, "products.yaml", productsDoc)
	body := `{"d":{"results":[{"ID":1,"Name":"Chai"}],"__count":"17"}}`

	out, err := run(t, strings.NewReader(body), "map", "-c", cfg, "-q", query)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rows":[{"id":1,"name":"Chai"}],"total":17,"total_exact":true,"has_more":false}`, out)

	resp := writeFile(t, dir, "response.json", body)
	out, err = run(t, nil, "map", "-c", cfg, "-q", query, "-r", resp, "--log-format", "json", "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, out, `"total": 17`)

	_, err = run(t, strings.NewReader("{"), "map", "-c", cfg, "-q", query)
	assert.Error(t, err)
	_, err = run(t, strings.NewReader(body), "map", "-c", cfg, "-q", query, "--log-level", "loud")
	assert.Error(t, err)
}

func TestReadCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "$count"):
			_, _ = io.WriteString(w, "5")
		case r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"d":{"ID":1,"Name":"Chai"}}`)
		default:
			_, _ = io.WriteString(w, `{"d":{"results":[{"ID":1,"Name":"Chai"},{"ID":2,"Name":"Chang"}]}}`)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	query := writeFile(t, dir, "products.yaml", productsDoc)
	t.Setenv("WEBQUERY_BASE_URL", srv.URL)

	out, err := run(t, nil, "read", "-q", query)
	require.NoError(t, err)
	assert.Contains(t, out, `"total": 5`)
	assert.Contains(t, out, `"name": "Chang"`)

	out, err = run(t, nil, "read", "-q", query, "--op", "count")
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":5}`, out)

	out, err = run(t, nil, "read", "-q", query, "--op", "create")
	require.NoError(t, err)
	assert.JSONEq(t, `{"affected":1,"rows":[{"id":1,"name":"Chai"}]}`, out)
}

const countDoc = `
operation:
  name: CountByCategory
  parameters:
    - name: Category
      type: Edm.String
      required: true
  returns:
    type: Edm.Int32
  arguments:
    Category: Tools
`

func TestInvokeCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"value":12}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := writeFile(t, dir, "service.yaml", "base_url: "+srv.URL+"\nprotocol: odata4\n")
	doc := writeFile(t, dir, "count.yaml", countDoc)

	out, err := run(t, nil, "invoke", "-c", cfg, "-q", doc, "--dry-run")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "GET "+srv.URL+"/CountByCategory(Category='Tools')"), out)

	out, err = run(t, nil, "invoke", "-c", cfg, "-q", doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":12}`, out)

	query := writeFile(t, dir, "products.yaml", productsDoc)
	_, err = run(t, nil, "invoke", "-c", cfg, "-q", query)
	assert.Error(t, err)
}
