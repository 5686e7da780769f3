package pagination

import (
	"math"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest_Defaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/bakugan", nil)
	p := FromRequest(r)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest_Parses(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/bakugan?page=3&limit=12", nil)
	p := FromRequest(r)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 12, p.Limit)
	assert.Equal(t, 24, p.Offset)
}

func TestFromRequest_IgnoresInvalid(t *testing.T) {
	tests := []string{
		"/api/bakugan?page=0&limit=0",
		"/api/bakugan?page=-2&limit=1000",
		"/api/bakugan?page=abc&limit=xyz",
	}
	for _, target := range tests {
		p := FromRequest(httptest.NewRequest("GET", target, nil))
		assert.Equal(t, 1, p.Page, target)
		assert.Equal(t, DefaultLimit, p.Limit, target)
	}
}

func TestNewMeta(t *testing.T) {
	m := NewMeta(45, Params{Page: 2, Limit: 20})
	assert.Equal(t, Meta{Total: 45, Page: 2, Limit: 20, Pages: 3}, m)
	assert.True(t, m.HasNext())
	assert.True(t, m.HasPrev())

	empty := NewMeta(0, DefaultParams())
	assert.Equal(t, 0, empty.Pages)
	assert.False(t, empty.HasNext())
	assert.False(t, empty.HasPrev())
}

func TestNormalize_CapsPageToAvoidOverflow(t *testing.T) {
	p := Params{Page: math.MaxInt, Limit: MaxLimit}.Normalize()
	assert.Equal(t, math.MaxInt/MaxLimit, p.Page)
	assert.GreaterOrEqual(t, p.Offset, 0)

	r := httptest.NewRequest("GET", "/api/bakugan?page=100000000000000000&limit=100", nil)
	p = FromRequest(r)
	assert.GreaterOrEqual(t, p.Offset, 0)
	assert.LessOrEqual(t, p.Page, math.MaxInt/p.Limit)
}
