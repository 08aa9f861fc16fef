package tool

import (
	"encoding/json"
	"fmt"
	"math"
)

// ValidateArguments checks JSON tool arguments against the tool's parameter
// schema. This is deliberately a small subset of JSON Schema: required
// fields, primitive types, arrays with item schemas, and nested objects.
// Unknown fields pass through so looser model output still executes.
func ValidateArguments(schema map[string]interface{}, input json.RawMessage) error {
	var args map[string]interface{}
	if err := json.Unmarshal(input, &args); err != nil {
		return fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	return validateObject(schema, args)
}

func validateObject(schema map[string]interface{}, args map[string]interface{}) error {
	for _, field := range requiredFields(schema) {
		if _, exists := args[field]; !exists {
			return fmt.Errorf("missing required field: %s", field)
		}
	}

	properties, ok := schema["properties"].(map[string]interface{})
	if !ok {
		return nil
	}

	for key, value := range args {
		propSchema, ok := properties[key].(map[string]interface{})
		if !ok {
			continue
		}
		if err := validateValue(key, propSchema, value); err != nil {
			return err
		}
	}
	return nil
}

// requiredFields tolerates both []interface{} (decoded JSON) and []string
// (hand-written schema literals).
func requiredFields(schema map[string]interface{}) []string {
	switch required := schema["required"].(type) {
	case []string:
		return required
	case []interface{}:
		fields := make([]string, 0, len(required))
		for _, f := range required {
			if name, ok := f.(string); ok {
				fields = append(fields, name)
			}
		}
		return fields
	}
	return nil
}

func validateValue(field string, schema map[string]interface{}, value interface{}) error {
	expected, ok := schema["type"].(string)
	if !ok {
		return nil
	}

	switch expected {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field %q expected string, got %T", field, value)
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("field %q expected number, got %T", field, value)
		}
	case "integer":
		n, ok := value.(float64)
		if !ok || n != math.Trunc(n) {
			return fmt.Errorf("field %q expected integer, got %v", field, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field %q expected boolean, got %T", field, value)
		}
	case "array":
		arr, ok := value.([]interface{})
		if !ok {
			return fmt.Errorf("field %q expected array, got %T", field, value)
		}
		if items, ok := schema["items"].(map[string]interface{}); ok {
			for i, item := range arr {
				if err := validateValue(fmt.Sprintf("%s[%d]", field, i), items, item); err != nil {
					return err
				}
			}
		}
	case "object":
		obj, ok := value.(map[string]interface{})
		if !ok {
			return fmt.Errorf("field %q expected object, got %T", field, value)
		}
		return validateObject(schema, obj)
	}
	return nil
}
