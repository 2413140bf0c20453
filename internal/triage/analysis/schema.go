package analysis

import (
	"encoding/json"

	"mental-triage/internal/common/validation"
)

// resultSchema describes the analysis payload before normalization. Urgency
// case and percentage strings are handled by the validator after the schema.
const resultSchema = `{
  "type": "object",
  "required": ["urgency_level", "main_concerns", "preliminary_diagnoses",
               "risk_factors", "protective_factors", "recommendations"],
  "properties": {
    "urgency_level": {"type": "string"},
    "main_concerns": {"type": "array", "maxItems": 3, "items": {"type": "string"}},
    "preliminary_diagnoses": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["condition", "confidence", "key_indicators"],
        "properties": {
          "condition": {"type": "string", "minLength": 1},
          "confidence": {"type": ["number", "string"], "minimum": 0, "maximum": 100},
          "key_indicators": {"type": "array", "items": {"type": "string"}},
          "severity": {"type": ["string", "null"]},
          "duration": {"type": ["number", "null"], "minimum": 0}
        }
      }
    },
    "risk_factors": {"type": "array", "items": {"type": "string"}},
    "protective_factors": {"type": "array", "items": {"type": "string"}},
    "recommendations": {"type": "array", "items": {"type": "string"}},
    "timestamp": {"type": ["string", "null"]}
  }
}`

var compiledResultSchema = validation.MustCompile(resultSchema)

// ResultSchemaDocument returns the payload schema as a decoded JSON document,
// for callers that hand it to a structured-output API.
func ResultSchemaDocument() map[string]interface{} {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(resultSchema), &doc); err != nil {
		panic(err)
	}
	return doc
}
