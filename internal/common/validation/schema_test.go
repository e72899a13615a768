// internal/common/validation/schema_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "required": ["title", "count"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "count": {"type": "integer", "minimum": 0},
    "nested": {
      "type": "object",
      "properties": {"stars": {"type": "integer", "minimum": 1, "maximum": 5}}
    }
  }
}`

func TestSchema_Validate(t *testing.T) {
	s := MustCompile(testSchema)

	tests := []struct {
		name    string
		doc     map[string]interface{}
		valid   bool
		field   string
		errCode string
	}{
		{
			name:  "valid",
			doc:   map[string]interface{}{"title": "x", "count": 2},
			valid: true,
		},
		{
			name:    "missing required",
			doc:     map[string]interface{}{"title": "x"},
			field:   "count",
			errCode: "REQUIRED",
		},
		{
			name:    "wrong type",
			doc:     map[string]interface{}{"title": 3, "count": 1},
			field:   "title",
			errCode: "INVALID_TYPE",
		},
		{
			name:    "nested range",
			doc:     map[string]interface{}{"title": "x", "count": 1, "nested": map[string]interface{}{"stars": 9}},
			field:   "nested.stars",
			errCode: "NUMBER_LTE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Validate(tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid)
			if tt.valid {
				assert.Empty(t, res.Errors)
				return
			}
			require.NotEmpty(t, res.Errors)
			assert.True(t, res.HasErrors(tt.field), res.GetErrorMessages())
			assert.Equal(t, tt.errCode, res.GetErrorsForField(tt.field)[0].Code)
		})
	}
}

func TestSchema_ValidateJSON(t *testing.T) {
	s := MustCompile(testSchema)
	res, err := s.ValidateJSON([]byte(`{"title":"ok","count":-1}`))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Len(t, res.GetErrorsForField("count"), 1)

	_, err = s.ValidateJSON([]byte(`{not json`))
	assert.Error(t, err)
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)
	assert.Panics(t, func() { MustCompile(`{"type": 12}`) })
}
