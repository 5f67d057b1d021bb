package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is the JSON schema a config file must satisfy
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "listenAddr": {"type": "string"},
    "router": {"type": "string", "enum": ["gin", "echo", "stdlib"]},
    "mcpPath": {"type": "string"},
    "logLevel": {"type": "string"},
    "development": {"type": "boolean"},
    "balanceTimeoutSeconds": {"type": "integer", "minimum": 0},
    "connectTimeoutSeconds": {"type": "integer", "minimum": 0},
    "evm": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "rpcUrl": {"type": "string"},
        "privateKeys": {"type": "array", "items": {"type": "string", "minLength": 1}}
      }
    },
    "svm": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "rpcUrl": {"type": "string"},
        "privateKeys": {"type": "array", "items": {"type": "string", "minLength": 1}},
        "commitment": {"type": "string", "enum": ["processed", "confirmed", "finalized"]}
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(Schema)

// ValidateDocument checks data against Schema and returns one message per
// violation
func ValidateDocument(data []byte) ([]string, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	var violations []string
	for _, desc := range result.Errors() {
		violations = append(violations, fmt.Sprintf("%s: %s", desc.Context().String(), desc.Description()))
	}
	return violations, nil
}

func (c *Config) decode(data []byte) error {
	violations, err := ValidateDocument(data)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidFile, strings.Join(violations, "; "))
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}
