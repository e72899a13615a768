// internal/corpus/schema.go
package corpus

import (
	"encoding/json"

	"listing-grader/internal/common/validation"
)

const listingSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["title", "category"],
  "anyOf": [
    {"required": ["id"], "properties": {"id": {"minLength": 1}}},
    {"required": ["url"], "properties": {"url": {"minLength": 1}}}
  ],
  "properties": {
    "id": {"type": "string"},
    "url": {"type": "string"},
    "title": {"type": "string", "minLength": 1},
    "shortDescription": {"type": "string"},
    "longDescription": {"type": "string"},
    "tags": {"type": ["array", "null"], "items": {"type": "string"}},
    "category": {"type": "string", "minLength": 1},
    "price": {"type": ["number", "null"], "minimum": 0},
    "imagesCount": {"type": "integer", "minimum": 0},
    "videosCount": {"type": "integer", "minimum": 0},
    "rating": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["stars", "count"],
        "properties": {
          "stars": {"type": "integer", "minimum": 1, "maximum": 5},
          "count": {"type": "integer", "minimum": 0}
        }
      }
    },
    "reviewsCount": {"type": "integer", "minimum": 0},
    "lastUpdate": {"type": ["string", "null"]}
  }
}`

var listingSchema = validation.MustCompile(listingSchemaJSON)

// ValidateRecord checks one raw listing record against the listing schema.
func ValidateRecord(raw json.RawMessage) (*validation.ValidationResult, error) {
	return listingSchema.ValidateJSON(raw)
}
