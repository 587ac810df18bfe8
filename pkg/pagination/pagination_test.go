package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRequest_Defaults(t *testing.T) {
	req := httptest.NewRequest("GET", "/reviews", nil)
	p := FromRequest(req)

	assert.Nil(t, p.First)
	assert.Equal(t, uint64(0), p.Skip)
	assert.Empty(t, p.OrderBy)
	assert.Equal(t, Asc, p.Direction)
}

func TestFromRequest_AllParams(t *testing.T) {
	req := httptest.NewRequest("GET", "/reviews?first=10&skip=20&order_by=rating&direction=DESC", nil)
	p := FromRequest(req)

	require.NotNil(t, p.First)
	assert.Equal(t, int32(10), *p.First)
	assert.Equal(t, uint64(20), p.Skip)
	assert.Equal(t, "rating", p.OrderBy)
	assert.Equal(t, Desc, p.Direction)
}

func TestFromRequest_MalformedValuesIgnored(t *testing.T) {
	req := httptest.NewRequest("GET", "/reviews?first=abc&skip=-3&direction=sideways", nil)
	p := FromRequest(req)

	assert.Nil(t, p.First)
	assert.Equal(t, uint64(0), p.Skip)
	assert.Equal(t, Asc, p.Direction)
}

func TestDirection_SQL(t *testing.T) {
	assert.Equal(t, "ASC", Asc.SQL())
	assert.Equal(t, "DESC", Desc.SQL())
	assert.Equal(t, "ASC", Direction("bogus").SQL())
}

func TestNewPage_HasNextPage(t *testing.T) {
	tests := []struct {
		name    string
		nodes   int
		total   uint64
		skip    uint64
		hasNext bool
	}{
		{"middle window", 4, 10, 3, true},
		{"last window exact", 4, 10, 6, false},
		{"beyond end", 0, 10, 15, false},
		{"empty collection", 0, 0, 0, false},
		{"whole collection", 10, 10, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := make([]int, tt.nodes)
			page := NewPage(nodes, tt.total, tt.skip)
			assert.Equal(t, tt.hasNext, page.HasNextPage)
			assert.Equal(t, tt.total, page.TotalCount)
		})
	}
}

func TestNewPage_NilNodesBecomesEmpty(t *testing.T) {
	page := NewPage[int](nil, 0, 0)
	assert.NotNil(t, page.Nodes)
	assert.Empty(t, page.Nodes)
}
