package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// bundleSchemaJSON is the structural schema for a full dataset bundle.
// Unknown object keys are tolerated; only declared shape is enforced.
const bundleSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["courseBlocks", "drugs", "questions", "cases", "interactions", "doseTemplates"],
  "definitions": {
    "localizedText": {
      "type": "object",
      "required": ["en", "cs"],
      "properties": {
        "en": {"type": "string"},
        "cs": {"type": "string"}
      }
    },
    "tags": {
      "type": "array",
      "items": {"type": "string"}
    },
    "courseBlock": {
      "type": "object",
      "required": ["id", "title", "description"],
      "properties": {
        "id": {"type": "string"},
        "title": {"$ref": "#/definitions/localizedText"},
        "description": {"$ref": "#/definitions/localizedText"}
      }
    },
    "drug": {
      "type": "object",
      "required": ["id", "name", "class", "indications", "mechanism", "adverseEffects",
                   "contraindications", "monitoring", "interactionsSummary", "typicalDoseText",
                   "tags", "courseBlockId"],
      "properties": {
        "id": {"type": "string"},
        "name": {"$ref": "#/definitions/localizedText"},
        "class": {"$ref": "#/definitions/localizedText"},
        "indications": {"$ref": "#/definitions/localizedText"},
        "mechanism": {"$ref": "#/definitions/localizedText"},
        "adverseEffects": {"$ref": "#/definitions/localizedText"},
        "contraindications": {"$ref": "#/definitions/localizedText"},
        "monitoring": {"$ref": "#/definitions/localizedText"},
        "interactionsSummary": {"$ref": "#/definitions/localizedText"},
        "typicalDoseText": {"$ref": "#/definitions/localizedText"},
        "tags": {"$ref": "#/definitions/tags"},
        "courseBlockId": {"type": "string"}
      }
    },
    "question": {
      "type": "object",
      "required": ["id", "stem", "options", "explanation", "tags", "courseBlockId"],
      "properties": {
        "id": {"type": "string"},
        "stem": {"$ref": "#/definitions/localizedText"},
        "options": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["id", "text", "correct"],
            "properties": {
              "id": {"type": "string"},
              "text": {"$ref": "#/definitions/localizedText"},
              "correct": {"type": "boolean"}
            }
          }
        },
        "explanation": {"$ref": "#/definitions/localizedText"},
        "tags": {"$ref": "#/definitions/tags"},
        "courseBlockId": {"type": "string"}
      }
    },
    "case": {
      "type": "object",
      "required": ["id", "stem", "patient", "vitals", "choices", "rubric", "courseBlockId", "tags"],
      "properties": {
        "id": {"type": "string"},
        "stem": {"$ref": "#/definitions/localizedText"},
        "patient": {
          "type": "object",
          "properties": {
            "age": {"type": "number"},
            "sex": {"type": "string"},
            "weightKg": {"type": "number"}
          }
        },
        "vitals": {
          "type": "object",
          "additionalProperties": {"type": ["string", "number"]}
        },
        "labs": {
          "type": "object",
          "additionalProperties": {"type": "number"}
        },
        "choices": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["id", "option", "explanation"],
            "properties": {
              "id": {"type": "string"},
              "option": {"$ref": "#/definitions/localizedText"},
              "explanation": {"$ref": "#/definitions/localizedText"}
            }
          }
        },
        "rubric": {
          "type": "object",
          "required": ["correctChoiceId", "contraindicationsMissed", "interactionsMissed",
                       "monitoringMissing", "scoring"],
          "properties": {
            "correctChoiceId": {"type": "string"},
            "contraindicationsMissed": {"type": "array", "items": {"type": "string"}},
            "interactionsMissed": {"type": "array", "items": {"type": "string"}},
            "monitoringMissing": {"type": "array", "items": {"type": "string"}},
            "scoring": {
              "type": "object",
              "required": ["correct", "safety", "monitoring"],
              "properties": {
                "correct": {"type": "number"},
                "safety": {"type": "number"},
                "monitoring": {"type": "number"}
              }
            }
          }
        },
        "courseBlockId": {"type": "string"},
        "tags": {"$ref": "#/definitions/tags"}
      }
    },
    "interaction": {
      "type": "object",
      "required": ["id", "appliesWhen", "severity", "mechanism", "recommendation", "rationale"],
      "properties": {
        "id": {"type": "string"},
        "appliesWhen": {
          "type": "object",
          "properties": {
            "drugIds": {"type": "array", "items": {"type": "string"}},
            "classes": {"type": "array", "items": {"type": "string"}},
            "tags": {"type": "array", "items": {"type": "string"}}
          }
        },
        "severity": {"enum": ["low", "moderate", "high"]},
        "mechanism": {"$ref": "#/definitions/localizedText"},
        "recommendation": {"$ref": "#/definitions/localizedText"},
        "rationale": {"$ref": "#/definitions/localizedText"}
      }
    },
    "doseTemplate": {
      "type": "object",
      "required": ["id", "title", "inputs", "formula", "example", "tags"],
      "properties": {
        "id": {"type": "string"},
        "title": {"$ref": "#/definitions/localizedText"},
        "inputs": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["name", "label", "type"],
            "properties": {
              "name": {"type": "string"},
              "label": {"$ref": "#/definitions/localizedText"},
              "type": {"enum": ["number", "text"]}
            }
          }
        },
        "formula": {"$ref": "#/definitions/localizedText"},
        "example": {"$ref": "#/definitions/localizedText"},
        "tags": {"$ref": "#/definitions/tags"}
      }
    }
  },
  "properties": {
    "courseBlocks": {"type": "array", "items": {"$ref": "#/definitions/courseBlock"}},
    "drugs": {"type": "array", "items": {"$ref": "#/definitions/drug"}},
    "questions": {"type": "array", "items": {"$ref": "#/definitions/question"}},
    "cases": {"type": "array", "items": {"$ref": "#/definitions/case"}},
    "interactions": {"type": "array", "items": {"$ref": "#/definitions/interaction"}},
    "doseTemplates": {"type": "array", "items": {"$ref": "#/definitions/doseTemplate"}}
  }
}`

var (
	bundleSchemaOnce sync.Once
	bundleSchema     *gojsonschema.Schema
	bundleSchemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	bundleSchemaOnce.Do(func() {
		bundleSchema, bundleSchemaErr = gojsonschema.NewSchema(
			gojsonschema.NewStringLoader(bundleSchemaJSON))
	})
	return bundleSchema, bundleSchemaErr
}

// FieldError is one structural violation keyed by field path. It is the
// library-agnostic intermediate shape between the schema validator's
// error tree and the flat lint issue list.
type FieldError struct {
	Path    []string
	Message string
}

// PathString joins the field path with dots ("drugs.0.name.en").
func (f FieldError) PathString() string {
	return strings.Join(f.Path, ".")
}

// ValidateStructure checks raw JSON against the bundle schema and returns
// every violated field path, not just the first. A returned error means
// the input was not parseable JSON or the validator itself failed, never
// a data-shape problem.
func ValidateStructure(raw []byte) ([]FieldError, error) {
	if !json.Valid(raw) {
		return nil, NewError(CodeParseFailed, "invalid JSON syntax")
	}

	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling bundle schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validating bundle: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	fieldErrs := make([]FieldError, 0, len(result.Errors()))
	for _, resErr := range result.Errors() {
		fieldErrs = append(fieldErrs, FieldError{
			Path:    fieldPath(resErr),
			Message: resErr.Description(),
		})
	}
	return fieldErrs, nil
}

// fieldPath rebuilds a field path from a validator error. Required-property
// violations report the parent object, so the missing property name is
// appended to point at the absent field itself.
func fieldPath(resErr gojsonschema.ResultError) []string {
	var path []string
	if field := resErr.Field(); field != "(root)" {
		path = strings.Split(field, ".")
	}
	if resErr.Type() == "required" {
		if prop, ok := resErr.Details()["property"].(string); ok {
			path = append(path, prop)
		}
	}
	return path
}

// DecodeBundle decodes raw JSON into a typed bundle. Callers are expected
// to have run ValidateStructure first; decode failures here indicate a
// shape the schema does not catch (for example a non-object root).
func DecodeBundle(raw []byte) (*Bundle, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var b Bundle
	if err := dec.Decode(&b); err != nil {
		return nil, WrapError(CodeParseFailed, "decoding bundle", err)
	}
	b.normalize()
	return &b, nil
}

// normalize replaces nil collections with empty ones so a decoded bundle
// re-encodes as arrays, keeping export output structurally valid.
func (b *Bundle) normalize() {
	if b.CourseBlocks == nil {
		b.CourseBlocks = []CourseBlock{}
	}
	if b.Drugs == nil {
		b.Drugs = []Drug{}
	}
	if b.Questions == nil {
		b.Questions = []Question{}
	}
	if b.Cases == nil {
		b.Cases = []CaseStudy{}
	}
	if b.Interactions == nil {
		b.Interactions = []InteractionRule{}
	}
	if b.DoseTemplates == nil {
		b.DoseTemplates = []DoseTemplate{}
	}
}
