package elasticsearch

// DefaultIndexName is the index holding catalog item documents.
const DefaultIndexName = "bakugan_items"

// indexMapping keeps names as lowercase-normalized keywords so that wildcard
// queries give case-insensitive substring matches.
const indexMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "normalizer": {
        "lowercase_normalizer": { "type": "custom", "filter": ["lowercase"] }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":                { "type": "keyword" },
      "names":             { "type": "keyword", "normalizer": "lowercase_normalizer" },
      "size":              { "type": "keyword" },
      "element":           { "type": "keyword" },
      "specialProperties": { "type": "keyword" },
      "series":            { "type": "keyword" },
      "imageUrl":          { "type": "keyword", "index": false },
      "currentPrice":      { "type": "double" },
      "referenceUri":      { "type": "keyword", "index": false },
      "createdAt":         { "type": "date" },
      "updatedAt":         { "type": "date" }
    }
  }
}`
