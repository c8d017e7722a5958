package querydoc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlstn/go-webquery/internal/edm"
	"github.com/nlstn/go-webquery/internal/meta"
)

const productsDoc = `
object:
  alias: PRODUCT
  collection: Products
  keys: [ID]
  static_params:
    sap-client: "100"
  attributes:
    - alias: ID
      address: ID
      type: Edm.Int32
      writable: false
    - alias: NAME
      address: Name
      type: Edm.String
    - alias: SUPPLIER_NAME
      address: Name
      type: Edm.String
      relations:
        - relation: SUPPLIER
          navigation: Supplier
    - alias: CATEGORY
      address: Category
      reference:
        navigation: Category
        key: ID
    - alias: PRICE
      address: Price
      kind: number
query:
  columns: [ID, NAME, SUPPLIER_NAME]
  filter:
    operator: and
    conditions:
      - attribute: NAME
        comparator: "="
        value: Foo
      - attribute: ID
        comparator: IN
        value: [1, 2]
    groups:
      - operator: or
        conditions:
          - attribute: PRICE
            comparator: ">"
            value: 10
  sort:
    - attribute: NAME
      direction: desc
  offset: 20
  limit: 10
  inline_count: true
rows:
  - NAME: Chai
    PRICE: 18
`

func TestParseAndBuild(t *testing.T) {
	doc, err := Parse(strings.NewReader(productsDoc))
	require.NoError(t, err)

	obj, err := doc.BuildObject()
	require.NoError(t, err)
	assert.Equal(t, "Products", obj.Collection)
	assert.Equal(t, "ID", obj.KeyField())
	assert.Equal(t, map[string]string{"sap-client": "100"}, obj.StaticParams)
	require.Len(t, obj.Attributes, 5)

	id, _ := obj.Attribute("ID")
	assert.False(t, id.Writable)
	assert.False(t, id.Unsortable)

	supplier, _ := obj.Attribute("SUPPLIER_NAME")
	assert.Equal(t, []meta.Hop{{Relation: "SUPPLIER", Navigation: "Supplier"}}, supplier.Hops)

	category, _ := obj.Attribute("CATEGORY")
	require.NotNil(t, category.Reference)
	assert.Equal(t, "ID", category.Reference.Related.KeyField())

	price, _ := obj.Attribute("PRICE")
	assert.Equal(t, edm.KindNumber, price.Kind)

	q, err := doc.BuildQuery(obj)
	require.NoError(t, err)
	assert.Len(t, q.Columns, 3)
	assert.Equal(t, meta.Page(20, 10), q.Page)
	assert.True(t, q.InlineCount)
	require.Len(t, q.Sorters, 1)
	assert.Equal(t, meta.Descending, q.Sorters[0].Direction)

	require.NotNil(t, q.Filters)
	assert.Equal(t, meta.OperatorAnd, q.Filters.Operator)
	require.Len(t, q.Filters.Conditions, 2)
	assert.Equal(t, meta.ComparatorIs, q.Filters.Conditions[0].Comparator)
	assert.Equal(t, meta.ComparatorIn, q.Filters.Conditions[1].Comparator)
	assert.Len(t, q.Filters.Conditions[1].Values(), 2)
	require.Len(t, q.Filters.Groups, 1)
	assert.Equal(t, meta.OperatorOr, q.Filters.Groups[0].Operator)

	rows := doc.BuildRows()
	require.Len(t, rows, 1)
	assert.Equal(t, "Chai", rows[0]["NAME"])
}

func TestDefaultColumns(t *testing.T) {
	doc, err := Parse(strings.NewReader(`
object:
  collection: Products
  attributes:
    - {alias: ID, address: ID}
    - {alias: NAME, address: Name}
`))
	require.NoError(t, err)
	obj, err := doc.BuildObject()
	require.NoError(t, err)
	q, err := doc.BuildQuery(obj)
	require.NoError(t, err)
	assert.Len(t, q.Columns, 2)
	assert.Nil(t, q.Filters)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no collection", "object: {alias: X}"},
		{"unknown key", "object: {collection: P, keys: [ID], attributes: [{alias: NAME, address: Name}]}"},
		{"unknown type", "object: {collection: P, attributes: [{alias: ID, address: ID, type: Edm.Nope}]}"},
		{"unknown kind", "object: {collection: P, attributes: [{alias: ID, address: ID, kind: colour}]}"},
		{"missing alias", "object: {collection: P, attributes: [{address: ID}]}"},
		{"unknown column", "object: {collection: P, attributes: [{alias: ID, address: ID}]}\nquery: {columns: [NAME]}"},
		{"unknown operator", "object: {collection: P, attributes: [{alias: ID, address: ID}]}\nquery: {filter: {operator: NAND}}"},
		{"unknown direction", "object: {collection: P, attributes: [{alias: ID, address: ID}]}\nquery: {sort: [{attribute: ID, direction: up}]}"},
		{"unknown filter attribute", "object: {collection: P, attributes: [{alias: ID, address: ID}]}\nquery: {filter: {conditions: [{attribute: NAME, comparator: '=', value: x}]}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse(strings.NewReader(tt.doc))
			require.NoError(t, err)
			obj, err := doc.BuildObject()
			if err != nil {
				return
			}
			_, err = doc.BuildQuery(obj)
			assert.Error(t, err)
		})
	}
}

func TestXorIsKeptForTheBuilder(t *testing.T) {
	doc, err := Parse(strings.NewReader("object: {collection: P, attributes: [{alias: ID, address: ID}]}\nquery: {filter: {operator: xor}}"))
	require.NoError(t, err)
	obj, err := doc.BuildObject()
	require.NoError(t, err)
	q, err := doc.BuildQuery(obj)
	require.NoError(t, err)
	assert.Equal(t, meta.OperatorXor, q.Filters.Operator)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("object: {collection: P, colour: red}"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query.yaml")
	require.NoError(t, os.WriteFile(path, []byte(productsDoc), 0o600))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "PRODUCT", doc.Object.Alias)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBuildOperation(t *testing.T) {
	doc, err := Parse(strings.NewReader(productsDoc + `
operation:
  name: Discount
  action: true
  namespace: Shop
  bound: true
  key: [7]
  parameters:
    - name: Percent
      type: Edm.Int32
      required: true
    - name: Reason
      kind: text
  returns:
    kind: number
  arguments:
    Percent: 5
`))
	require.NoError(t, err)
	obj, err := doc.BuildObject()
	require.NoError(t, err)

	def, args, err := doc.BuildOperation(obj)
	require.NoError(t, err)
	assert.Equal(t, "Discount", def.Name)
	assert.True(t, def.Action)
	require.NotNil(t, def.Binding)
	assert.Same(t, obj, def.Binding.Object)
	assert.Equal(t, []interface{}{7}, def.Binding.Key)
	require.Len(t, def.Parameters, 2)
	assert.Equal(t, edm.KindInteger, def.Parameters[0].Kind)
	assert.Equal(t, edm.KindString, def.Parameters[1].Kind)
	assert.Equal(t, edm.KindNumber, def.ReturnKind)
	assert.Equal(t, map[string]interface{}{"Percent": 5}, args)

	_, _, err = doc.BuildOperation(nil)
	assert.Error(t, err)
}

func TestBuildOperationErrors(t *testing.T) {
	doc := &Document{}
	_, _, err := doc.BuildOperation(nil)
	assert.Error(t, err)

	doc.Operation = &OperationDoc{Name: "X", Parameters: []ParameterDoc{{Name: "p", Type: "Edm.Color"}}}
	_, _, err = doc.BuildOperation(nil)
	assert.Error(t, err)
}
