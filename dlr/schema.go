package dlr

import (
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/kaptinlin/jsonschema"
)

// Schema is the JSON schema every DLR must satisfy before handoff to
// storage or API clients. It pins the stable keys consumers depend on;
// additional keys are allowed so the record can grow without breaking
// older readers.
const Schema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": [
    "borrower_name", "agreement_date", "governing_law", "document_type",
    "currency", "facility_type", "total_commitment", "margin_bps",
    "base_rate", "is_esg_linked", "transferability_mode",
    "parties", "facilities", "transferability", "covenants", "obligations",
    "events_of_default", "esg", "citations", "tables",
    "extraction_summary", "extraction_confidence", "ai_enhanced"
  ],
  "properties": {
    "borrower_name": {"type": "string"},
    "agreement_date": {"type": "string"},
    "maturity_date": {"type": ["string", "null"]},
    "governing_law": {"type": "string"},
    "document_type": {"type": "string"},
    "currency": {"type": "string"},
    "facility_type": {"type": "string"},
    "total_commitment": {"type": "number", "minimum": 0},
    "margin_bps": {"type": "integer", "minimum": 0},
    "base_rate": {"type": "string"},
    "is_esg_linked": {"type": "boolean"},
    "esg_score": {"type": ["number", "null"]},
    "transferability_mode": {"type": "string"},
    "parties": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "role"],
        "properties": {
          "name": {"type": "string"},
          "role": {"type": "string"}
        }
      }
    },
    "facilities": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "amount", "currency"],
        "properties": {
          "name": {"type": "string"},
          "type": {"type": "string"},
          "amount": {"type": "number"},
          "currency": {"type": "string"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        }
      }
    },
    "transferability": {
      "type": "object",
      "required": ["mode", "consent_required", "restrictions"],
      "properties": {
        "mode": {"type": "string"},
        "consent_required": {"type": "boolean"},
        "consent_type": {"type": "string"},
        "restrictions": {"type": "array", "items": {"type": "string"}},
        "confidence": {"type": "number", "minimum": 0, "maximum": 1}
      }
    },
    "covenants": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type", "name", "threshold", "current_value", "test_frequency", "confidence"],
        "properties": {
          "type": {"type": "string"},
          "name": {"type": "string"},
          "threshold": {"type": "string"},
          "current_value": {"type": "number"},
          "headroom_percent": {"type": "number"},
          "test_frequency": {"type": "string"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        }
      }
    },
    "obligations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["role", "title", "details", "due_hint", "is_esg", "confidence"],
        "properties": {
          "role": {"type": "string"},
          "title": {"type": "string"},
          "details": {"type": "string"},
          "due_hint": {"type": "string"},
          "status": {"type": "string"},
          "is_esg": {"type": "boolean"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        }
      }
    },
    "events_of_default": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["trigger", "notice", "grace_period"],
        "properties": {
          "trigger": {"type": "string"},
          "notice": {"type": "string"},
          "grace_period": {"type": "string"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        }
      }
    },
    "esg": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["kpi_name", "target_description", "status"],
        "properties": {
          "kpi_name": {"type": "string"},
          "target_description": {"type": "string"},
          "reporting_frequency": {"type": "string"},
          "status": {"type": "string"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        }
      }
    },
    "citations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["keyword", "clause", "page_start", "confidence"],
        "properties": {
          "keyword": {"type": "string"},
          "clause": {"type": "string"},
          "page_start": {"type": "integer", "minimum": 1},
          "page_end": {"type": "integer", "minimum": 1},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        }
      }
    },
    "tables": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type", "page", "title", "data", "confidence"],
        "properties": {
          "type": {"enum": ["pricing_grid", "fee_schedule", "facility_schedule"]},
          "page": {"type": "integer", "minimum": 1},
          "title": {"type": "string"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        }
      }
    },
    "extraction_summary": {
      "type": "object",
      "required": ["total_pages", "ocr_pages", "clauses_extracted", "tables_extracted", "extraction_method"],
      "properties": {
        "total_pages": {"type": "integer", "minimum": 0},
        "ocr_pages": {"type": "array", "items": {"type": "integer", "minimum": 1}},
        "clauses_extracted": {"type": "integer", "minimum": 0},
        "tables_extracted": {"type": "integer", "minimum": 0},
        "table_types": {"type": "array", "items": {"type": "string"}},
        "extraction_method": {"enum": ["hybrid", "regex_only"]}
      }
    },
    "extraction_confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "ai_enhanced": {"type": "boolean"}
  }
}`

// ValidationError is a single schema violation.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationResult reports the outcome of validating a record against the
// DLR schema.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.WithDecoderJSON(sonic.Unmarshal)
		compiler.WithEncoderJSON(sonic.Marshal)
		compiledSchema, schemaErr = compiler.Compile([]byte(Schema))
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compiling DLR schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// Validate checks a record against the DLR schema. The schema is compiled
// once per process. A non-nil error means validation could not run; schema
// violations come back in the result.
func Validate(record *DLR) (*ValidationResult, error) {
	schema, err := compiled()
	if err != nil {
		return nil, err
	}

	raw, err := sonic.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshalling record: %w", err)
	}
	var doc map[string]any
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshalling record to map: %w", err)
	}

	result := schema.ValidateMap(doc)
	out := &ValidationResult{Valid: result.IsValid()}
	if !result.IsValid() {
		out.Errors = make([]ValidationError, 0, len(result.Errors))
		for field, e := range result.Errors {
			out.Errors = append(out.Errors, ValidationError{Field: field, Message: e.Message})
		}
	}
	return out, nil
}
