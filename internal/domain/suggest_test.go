package domain

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func urlValues(raw string) (url.Values, error) {
	return url.ParseQuery(raw)
}

func TestSuggestNames_ContainsQueryAndDeduplicates(t *testing.T) {
	items := []CatalogItem{
		{Names: []string{"Dragonoid", "Delta Dragonoid"}},
		{Names: []string{"Hydranoid", "Dragonoid"}},
		{Names: []string{"Tigrerra"}},
		{Names: []string{"DRAGO"}},
	}

	got := SuggestNames(items, "dra")

	assert.Equal(t, []string{"Dragonoid", "Delta Dragonoid", "Hydranoid", "DRAGO"}, got)
	seen := map[string]bool{}
	for _, name := range got {
		assert.Contains(t, strings.ToLower(name), "dra")
		assert.False(t, seen[name], "duplicate %q", name)
		seen[name] = true
	}
}

func TestSuggestNames_EmptyQuery(t *testing.T) {
	items := []CatalogItem{{Names: []string{"Dragonoid"}}}

	assert.Empty(t, SuggestNames(items, ""))
	assert.Empty(t, SuggestNames(items, "   "))
	assert.NotNil(t, SuggestNames(items, ""))
}

func TestCatalogItem_PrimaryName(t *testing.T) {
	assert.Equal(t, "", (&CatalogItem{}).PrimaryName())
	assert.Equal(t, "Preyas", (&CatalogItem{Names: []string{"Preyas", "Preyas II"}}).PrimaryName())
}
