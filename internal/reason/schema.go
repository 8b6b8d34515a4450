package reason

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const citationsSchema = `{
  "type": "array",
  "items": {
    "anyOf": [
      {"type": "string"},
      {"type": "object", "properties": {"source": {"type": "string"}, "url": {"type": "string"}}}
    ]
  }
}`

var verdictSchema = mustSchema(`{
  "type": "object",
  "required": ["verdict", "confidence"],
  "properties": {
    "verdict": {"type": "string", "minLength": 1},
    "confidence": {"type": "number"},
    "reasoning": {"type": "string"},
    "citations": ` + citationsSchema + `
  }
}`)

var answerSchema = mustSchema(`{
  "type": "object",
  "required": ["answer"],
  "properties": {
    "answer": {"type": "string", "minLength": 1},
    "citations": ` + citationsSchema + `
  }
}`)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return s
}

func validate(schema *gojsonschema.Schema, raw []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("output validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// rawCitation accepts either "source" or {"source": ..., "url": ...}
type rawCitation struct {
	Source string
	URL    string
}

func (c *rawCitation) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		c.Source = s
		return nil
	}
	var obj struct {
		Source string `json:"source"`
		URL    string `json:"url"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	c.Source, c.URL = obj.Source, obj.URL
	return nil
}

type verdictOutput struct {
	Verdict    string        `json:"verdict"`
	Confidence float64       `json:"confidence"`
	Reasoning  string        `json:"reasoning"`
	Citations  []rawCitation `json:"citations"`
}

type answerOutput struct {
	Answer    string        `json:"answer"`
	Citations []rawCitation `json:"citations"`
}
