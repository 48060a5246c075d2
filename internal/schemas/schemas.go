// Package schemas provides the structured-output boundary: embedded JSON Schemas
// for every record exchanged with the model, and typed decoding against them.
package schemas

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed *.schema.json
var schemaFS embed.FS

// Name identifies an embedded schema.
type Name string

const (
	ProductSpecs    Name = "product_specs"
	ScenePlan       Name = "scene_plan"
	JudgeEvaluation Name = "judge_evaluation"
	ResultRecord    Name = "result_record"
)

var (
	compiled   = make(map[Name]*gojsonschema.Schema)
	compiledMu sync.RWMutex
)

// Get returns the raw content of an embedded schema.
func Get(name Name) (string, error) {
	data, err := schemaFS.ReadFile(string(name) + ".schema.json")
	if err != nil {
		return "", &SchemaLoadError{Path: string(name), Message: "unknown schema", Cause: err}
	}
	return string(data), nil
}

// Names lists the embedded schemas.
func Names() []Name {
	entries, err := schemaFS.ReadDir(".")
	if err != nil {
		return nil
	}
	var names []Name
	for _, entry := range entries {
		names = append(names, Name(strings.TrimSuffix(entry.Name(), ".schema.json")))
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Known reports whether name is an embedded schema.
func Known(name string) bool {
	_, err := schemaFS.ReadFile(name + ".schema.json")
	return err == nil
}

func load(name Name) (*gojsonschema.Schema, error) {
	compiledMu.RLock()
	schema, ok := compiled[name]
	compiledMu.RUnlock()
	if ok {
		return schema, nil
	}

	content, err := Get(name)
	if err != nil {
		return nil, err
	}
	schema, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(content))
	if err != nil {
		return nil, &SchemaLoadError{Path: string(name), Message: "invalid schema", Cause: err}
	}

	compiledMu.Lock()
	compiled[name] = schema
	compiledMu.Unlock()
	return schema, nil
}

// ValidateNamed validates JSON content against an embedded schema.
func ValidateNamed(name Name, jsonContent string) error {
	schema, err := load(name)
	if err != nil {
		return err
	}
	result, err := schema.Validate(gojsonschema.NewStringLoader(jsonContent))
	if err != nil {
		return fmt.Errorf("failed to parse JSON document: %w", err)
	}
	return resultError(result)
}
