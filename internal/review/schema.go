package review

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildCorrectionSchema returns the JSON schema a corrected invoice document must satisfy.
func BuildCorrectionSchema() map[string]any {
	str := map[string]any{"type": "string"}
	amount := map[string]any{"type": "number"}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"metadata", "vendor", "items", "totals"},
		"properties": map[string]any{
			"metadata": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"invoice_no":    map[string]any{"type": "string", "minLength": 1, "maxLength": 64},
					"date":          str,
					"due_date":      str,
					"po_number":     str,
					"payment_terms": str,
				},
			},
			"vendor": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"name"},
				"properties": map[string]any{
					"name":       map[string]any{"type": "string", "minLength": 1},
					"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
				},
			},
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"description", "quantity", "unit_price", "total"},
					"properties": map[string]any{
						"description": map[string]any{"type": "string", "minLength": 1},
						"quantity":    map[string]any{"type": "number", "minimum": 0},
						"unit_price":  amount,
						"total":       amount,
					},
				},
			},
			"totals": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"subtotal":     amount,
					"tax":          amount,
					"shipping":     amount,
					"discount":     amount,
					"total_amount": amount,
				},
			},
		},
	}
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func correctionSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		b, err := json.Marshal(BuildCorrectionSchema())
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("correction.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile("correction.json")
	})
	return compiledSchema, compileErr
}

// ValidateDocument checks data against the correction schema.
func ValidateDocument(data []byte) error {
	schema, err := correctionSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
