package domain

import (
	"time"
)

// SizeB3 is the size class of the tech subset.
const SizeB3 = "B3"

// CatalogItem is one collectible in the catalog. The first entry of Names is
// the primary display name; the rest are aliases.
type CatalogItem struct {
	ID                string    `json:"id"`
	Names             []string  `json:"names"`
	Size              string    `json:"size"`
	Element           string    `json:"element"`
	SpecialProperties string    `json:"specialProperties"`
	Series            string    `json:"series,omitempty"`
	ImageURL          string    `json:"imageUrl"`
	CurrentPrice      float64   `json:"currentPrice"`
	ReferenceURI      string    `json:"referenceUri"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// PrimaryName returns the first display name, or "" when the item has none.
func (c *CatalogItem) PrimaryName() string {
	if len(c.Names) == 0 {
		return ""
	}
	return c.Names[0]
}

// PricePoint is one historical price observation. Timestamp is kept exactly
// as recorded and is not normalized.
type PricePoint struct {
	ID           string    `json:"id"`
	ItemID       string    `json:"bakuganId"`
	Price        float64   `json:"price"`
	Timestamp    string    `json:"timestamp"`
	Notes        string    `json:"notes,omitempty"`
	ReferenceURI string    `json:"referenceUri,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ItemDetail is an item together with its full price history.
type ItemDetail struct {
	CatalogItem
	PriceHistory []PricePoint `json:"priceHistory"`
}
