package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CreateRequestSchemaJSON is the schema for POST /simulations bodies.
// schemas/create_request.schema.json ships the same document.
const CreateRequestSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "CreateRequest",
  "type": "object",
  "required": ["players"],
  "additionalProperties": false,
  "properties": {
    "seed": { "type": "integer" },
    "players": {
      "type": "array",
      "minItems": 2,
      "maxItems": 10,
      "items": {
        "type": "object",
        "required": ["id", "agent", "team"],
        "additionalProperties": false,
        "properties": {
          "id": { "type": "integer", "minimum": 0 },
          "name": { "type": "string" },
          "agent": { "type": "string", "minLength": 1 },
          "team": { "enum": ["ATTACKERS", "DEFENDERS"] },
          "aim": { "type": "number", "minimum": 0 },
          "headshot": { "type": "number", "minimum": 0 },
          "movement": { "type": "number", "minimum": 0 },
          "utility": { "type": "number", "minimum": 0 }
        }
      }
    }
  }
}`

var createRequestSchema = jsonschema.MustCompileString("create_request.schema.json", CreateRequestSchemaJSON)

// ValidateCreateRequest checks a raw request body against the schema
// before it is decoded into CreateRequest.
func ValidateCreateRequest(body []byte) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return createRequestSchema.Validate(v)
}
