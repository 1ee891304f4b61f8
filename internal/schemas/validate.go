// Package schemas provides JSON Schema checks for the LLM response
// contracts. Strict decoding still decides run success; schema checks are
// diagnostic, flagging contract drift that normalization papered over.
package schemas

import (
	"embed"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed *.json
var schemaFiles embed.FS

var (
	compiled   = make(map[string]*gojsonschema.Schema)
	compiledMu sync.Mutex
)

// ValidateReplyResult checks raw reply JSON against the two-shape contract.
// Returns a description per deviation; empty means conformant.
func ValidateReplyResult(raw string) []string {
	return validate("reply_result.schema.json", raw)
}

// ValidateEvaluation checks raw evaluation JSON against its contract.
func ValidateEvaluation(raw string) []string {
	return validate("evaluation.schema.json", raw)
}

func validate(name, raw string) []string {
	schema, err := load(name)
	if err != nil {
		return []string{fmt.Sprintf("schema %s unavailable: %v", name, err)}
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return []string{fmt.Sprintf("document could not be validated: %v", err)}
	}

	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return issues
}

func load(name string) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if schema, ok := compiled[name]; ok {
		return schema, nil
	}

	data, err := schemaFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", name, err)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	compiled[name] = schema
	return schema, nil
}
