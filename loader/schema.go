package loader

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// schemaJSON is the JSON Schema every module document must satisfy before it
// is decoded. Type annotations are checked structurally; whether a variant is
// supported by the generator is decided later by the resolver.
var schemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://craby.dev/schemas/module/v1",
  "title": "craby module schema",
  "description": "A React Native native module description as emitted by the JS codegen step.",
  "type": "object",
  "required": ["moduleName", "type", "spec"],
  "properties": {
    "moduleName": { "type": "string", "pattern": "^[A-Za-z][A-Za-z0-9_]*$" },
    "type": { "type": "string", "enum": ["NativeModule", "Component"] },
    "aliasMap": {
      "type": "object",
      "additionalProperties": { "$ref": "#/$defs/type_annotation" }
    },
    "enumMap": {
      "type": "object",
      "additionalProperties": { "$ref": "#/$defs/type_annotation" }
    },
    "spec": {
      "type": "object",
      "required": ["methods"],
      "properties": {
        "eventEmitters": {
          "type": "array",
          "items": { "$ref": "#/$defs/event_emitter" }
        },
        "methods": {
          "type": "array",
          "items": { "$ref": "#/$defs/method" }
        }
      }
    }
  },
  "$defs": {
    "identifier": { "type": "string", "pattern": "^[A-Za-z_$][A-Za-z0-9_$]*$" },
    "event_emitter": {
      "oneOf": [
        { "$ref": "#/$defs/identifier" },
        {
          "type": "object",
          "required": ["name"],
          "properties": { "name": { "$ref": "#/$defs/identifier" } }
        }
      ]
    },
    "method": {
      "type": "object",
      "required": ["name", "typeAnnotation"],
      "properties": {
        "name": { "$ref": "#/$defs/identifier" },
        "optional": { "type": "boolean" },
        "typeAnnotation": { "$ref": "#/$defs/type_annotation" }
      }
    },
    "param": {
      "type": "object",
      "required": ["name", "typeAnnotation"],
      "properties": {
        "name": { "type": "string", "minLength": 1 },
        "optional": { "type": "boolean" },
        "typeAnnotation": { "$ref": "#/$defs/type_annotation" }
      }
    },
    "type_annotation": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {
          "type": "string",
          "enum": [
            "ReservedTypeAnnotation",
            "StringTypeAnnotation",
            "StringLiteralTypeAnnotation",
            "StringLiteralUnionTypeAnnotation",
            "BooleanTypeAnnotation",
            "NumberTypeAnnotation",
            "FloatTypeAnnotation",
            "DoubleTypeAnnotation",
            "Int32TypeAnnotation",
            "NumberLiteralTypeAnnotation",
            "EnumDeclaration",
            "EnumDeclarationWithMembers",
            "ArrayTypeAnnotation",
            "FunctionTypeAnnotation",
            "GenericObjectTypeAnnotation",
            "ObjectTypeAnnotation",
            "UnionTypeAnnotation",
            "MixedTypeAnnotation",
            "VoidTypeAnnotation",
            "NullableTypeAnnotation",
            "TypeAliasTypeAnnotation"
          ]
        },
        "name": { "type": "string" },
        "memberType": { "type": "string" },
        "values": { "type": "array", "items": { "type": "string" } },
        "members": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["name"],
            "properties": { "name": { "type": "string" } }
          }
        },
        "elementType": { "$ref": "#/$defs/type_annotation" },
        "returnTypeAnnotation": { "$ref": "#/$defs/type_annotation" },
        "typeAnnotation": { "$ref": "#/$defs/type_annotation" },
        "params": { "type": "array", "items": { "$ref": "#/$defs/param" } },
        "properties": { "type": "array", "items": { "$ref": "#/$defs/param" } },
        "types": { "type": "array", "items": { "$ref": "#/$defs/type_annotation" } }
      },
      "allOf": [
        {
          "if": { "properties": { "type": { "const": "FunctionTypeAnnotation" } } },
          "then": { "required": ["returnTypeAnnotation", "params"] }
        },
        {
          "if": { "properties": { "type": { "const": "NullableTypeAnnotation" } } },
          "then": { "required": ["typeAnnotation"] }
        },
        {
          "if": { "properties": { "type": { "const": "ArrayTypeAnnotation" } } },
          "then": { "required": ["elementType"] }
        }
      ]
    }
  }
}`

var compiledSchema *jsonschema.Schema

func init() {
	var schemaDoc interface{}
	if err := json.Unmarshal([]byte(schemaJSON), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to decode schema JSON: %v", err))
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("module.json", schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add schema resource: %v", err))
	}
	var err error
	compiledSchema, err = c.Compile("module.json")
	if err != nil {
		panic(fmt.Sprintf("failed to compile schema: %v", err))
	}
}

// SchemaJSON returns the embedded module-document JSON Schema.
func SchemaJSON() string {
	return schemaJSON
}

// ValidateSchema validates a YAML or JSON module document against the JSON
// Schema.
func ValidateSchema(data []byte) error {
	raw, err := decodeDocument(data)
	if err != nil {
		return err
	}
	return validateValue(raw)
}

// ValidateSchemaJSON validates a JSON document without going through YAML.
func ValidateSchemaJSON(jsonData []byte) error {
	var raw interface{}
	if err := json.Unmarshal(jsonData, &raw); err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}
	return validateValue(raw)
}

func validateValue(v interface{}) error {
	if err := compiledSchema.Validate(v); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// decodeDocument parses YAML (and therefore JSON) into JSON-compatible values.
func decodeDocument(data []byte) (interface{}, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return convertYAMLToJSON(raw), nil
}

// convertYAMLToJSON converts YAML-parsed values to JSON-compatible types.
// yaml.v3 decodes integers as int, and the validator and encoding/json both
// expect float64.
func convertYAMLToJSON(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for k, val := range v {
			result[k] = convertYAMLToJSON(val)
		}
		return result
	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(v))
		for k, val := range v {
			result[fmt.Sprint(k)] = convertYAMLToJSON(val)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, val := range v {
			result[i] = convertYAMLToJSON(val)
		}
		return result
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	default:
		return v
	}
}
