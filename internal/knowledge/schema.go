package knowledge

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const factFileSchema = `{
  "type": "object",
  "additionalProperties": {
    "oneOf": [
      {"type": "string"},
      {
        "type": "object",
        "properties": {
          "answer": {"type": "string"},
          "context": {"type": "string"}
        },
        "required": ["answer", "context"],
        "additionalProperties": false
      }
    ]
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(factFileSchema)

// validate checks raw fact file contents against the fact file schema.
func validate(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validation execution failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := result.Errors()
	msgs := make([]string, 0, 3)
	for i, desc := range errs {
		if i == 3 {
			msgs = append(msgs, fmt.Sprintf("... and %d more", len(errs)-3))
			break
		}
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("%w:\n- %s", ErrInvalidFile, strings.Join(msgs, "\n- "))
}
