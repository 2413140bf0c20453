package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "required": ["name", "items"],
  "properties": {
    "name": {"type": "string"},
    "items": {
      "type": "array",
      "maxItems": 2,
      "items": {
        "type": "object",
        "required": ["score"],
        "properties": {"score": {"type": "number", "minimum": 0, "maximum": 100}}
      }
    }
  }
}`

func TestSchema_Validate(t *testing.T) {
	schema := MustCompile(testSchema)

	tests := []struct {
		name      string
		doc       map[string]interface{}
		wantValid bool
		wantField string
	}{
		{
			name:      "valid document",
			doc:       map[string]interface{}{"name": "x", "items": []interface{}{map[string]interface{}{"score": 50.0}}},
			wantValid: true,
		},
		{
			name:      "missing top-level field",
			doc:       map[string]interface{}{"name": "x"},
			wantField: "items",
		},
		{
			name:      "missing nested field",
			doc:       map[string]interface{}{"name": "x", "items": []interface{}{map[string]interface{}{}}},
			wantField: "items[0].score",
		},
		{
			name:      "nested value out of range",
			doc:       map[string]interface{}{"name": "x", "items": []interface{}{map[string]interface{}{"score": 101.0}}},
			wantField: "items[0].score",
		},
		{
			name: "too many items",
			doc: map[string]interface{}{"name": "x", "items": []interface{}{
				map[string]interface{}{"score": 1.0},
				map[string]interface{}{"score": 2.0},
				map[string]interface{}{"score": 3.0},
			}},
			wantField: "items",
		},
		{
			name:      "wrong type",
			doc:       map[string]interface{}{"name": 12.0, "items": []interface{}{}},
			wantField: "name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := schema.Validate(tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid)
			if tt.wantValid {
				assert.Empty(t, result.Errors)
				return
			}
			first, ok := result.First()
			require.True(t, ok)
			assert.Equal(t, tt.wantField, first.Field)
			assert.Contains(t, result.GetErrorMessages()[0], tt.wantField)
		})
	}
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)
}
