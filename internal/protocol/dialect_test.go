package protocol

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlstn/go-webquery/internal/edm"
	"github.com/nlstn/go-webquery/internal/meta"
	"github.com/nlstn/go-webquery/internal/version"
)

func TestV2Defaults(t *testing.T) {
	d := V2()

	assert.Equal(t, "v2", d.String())
	assert.Equal(t, edm.SyntaxV2, d.Codec.Syntax)
	assert.Equal(t, TextMatchSubstringOf, d.TextMatch)
	assert.Equal(t, MultiValueOrChain, d.MultiValue)
	assert.False(t, d.SupportsSelect)
	assert.Equal(t, "$inlinecount", d.InlineCountParam)
	assert.Equal(t, "allpages", d.InlineCountValue)
	assert.Equal(t, "d.__count", d.CountPath)
	assert.Equal(t, "d", d.EntityPath)
	assert.True(t, d.CanCount())
	assert.Nil(t, d.WritePreference)
}

func TestV4MultiValueDependsOnVersion(t *testing.T) {
	tests := []struct {
		name     string
		version  version.Version
		expected MultiValue
	}{
		{"default is 4.01", version.Version{}, MultiValueNativeIn},
		{"4.01", version.V401, MultiValueNativeIn},
		{"4.0 falls back to or chains", version.V4, MultiValueOrChain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, V4(tt.version).MultiValue)
		})
	}
}

func TestV4Defaults(t *testing.T) {
	d := V4(version.V4)

	assert.Equal(t, "v4", d.String())
	assert.Equal(t, "4.0", d.Headers["OData-Version"])
	assert.Equal(t, "@odata.count", d.CountPath)
	assert.Empty(t, d.EntityPath)
	assert.Equal(t, "@odata.nextLink", d.NextLinkPath)
	assert.Empty(t, d.FormatParam)
	require.NotNil(t, d.WritePreference)
	assert.Equal(t, "return=representation", d.WritePreference.String())
}

func TestRESTDefaults(t *testing.T) {
	d := REST(RESTParams{})
	assert.Equal(t, "offset", d.SkipParam)
	assert.Equal(t, "limit", d.TopParam)
	assert.Equal(t, SortPerField, d.SortStyle)
	assert.False(t, d.CanCount())
	assert.False(t, d.IsOData())

	legacy := REST(RESTParams{Offset: "start", Limit: "size", Sort: "sort", Order: "order"})
	assert.Equal(t, "start", legacy.SkipParam)
	assert.Equal(t, SortTrailingClause, legacy.SortStyle)
	assert.Equal(t, "order", legacy.OrderParam)
}

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		input    string
		expected Name
		wantErr  bool
	}{
		{"odata2", NameODataV2, false},
		{"", NameODataV2, false},
		{"OData4", NameODataV4, false},
		{" v4 ", NameODataV4, false},
		{"rest", NameREST, false},
		{"soap", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProtocol(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNew(t *testing.T) {
	d, err := New(NameODataV4, version.V4, RESTParams{})
	require.NoError(t, err)
	assert.Equal(t, NameODataV4, d.Name)

	_, err = New("soap", version.Version{}, RESTParams{})
	assert.Error(t, err)
}

func TestTokens(t *testing.T) {
	d := V2()

	tok, ok := d.Comparator(meta.ComparatorGreaterOrEq)
	assert.True(t, ok)
	assert.Equal(t, "ge", tok)

	_, ok = d.Comparator(meta.ComparatorIn)
	assert.False(t, ok)

	tok, ok = d.LogicalToken("")
	assert.True(t, ok)
	assert.Equal(t, "and", tok)

	_, ok = d.LogicalToken(meta.OperatorXor)
	assert.False(t, ok)
}

func TestExpand(t *testing.T) {
	paths := []string{"Supplier", "Supplier/Country", "Category", "Supplier/Address"}

	assert.Equal(t, "Supplier,Supplier/Country,Category,Supplier/Address", V2().Expand(paths))
	assert.Equal(t, "Supplier($expand=Country,Address),Category", V4(version.V401).Expand(paths))
	assert.Equal(t, "", V4(version.V401).Expand(nil))
}

func TestApplyHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Accept", "application/xml")
	V2().ApplyHeaders(h)

	assert.Equal(t, "application/xml", h.Get("Accept"))
	assert.Equal(t, "2.0", h.Get("DataServiceVersion"))
}
