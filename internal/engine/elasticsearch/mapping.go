package elasticsearch

// DefaultIndexName is the index product documents live in.
const DefaultIndexName = "products"

// referenceMapping is shared by category, brand and manufacturer.
const referenceMapping = `{
        "properties": {
          "id":          { "type": "long" },
          "name":        { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
          "description": { "type": "text" },
          "slug":        { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
          "is_deleted":  { "type": "boolean" },
          "created_at":  { "type": "date" },
          "updated_at":  { "type": "date" },
          "deleted_at":  { "type": "date" }
        }
      }`

// indexMapping returns the settings and mappings the index is created with.
// Every searchable field is analysed text; title also carries the keyword
// sub-field results are sorted on.
func indexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "dynamic": "strict",
    "properties": {
      "id":           { "type": "keyword" },
      "product_id":   { "type": "long" },
      "title":        { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "description":  { "type": "text" },
      "code":         { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 128 } } },
      "slug":         { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "image":        { "type": "text" },
      "price":        { "type": "long" },
      "stock":        { "type": "integer" },
      "category":     ` + referenceMapping + `,
      "brand":        ` + referenceMapping + `,
      "manufacturer": ` + referenceMapping + `,
      "created_at":   { "type": "date" },
      "updated_at":   { "type": "date" }
    }
  }
}`
}
