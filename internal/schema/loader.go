package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

//go:embed schema.json
var bundledSchema []byte

// ErrInvalidSchema is wrapped by every Parse failure.
var ErrInvalidSchema = errors.New("failed to parse schema")

// Bundled returns the schema shipped with the binary. It is used until
// `hubctl schema refresh` has cached the hub's own schema for a profile.
func Bundled() (*Document, error) {
	doc, err := Parse(bundledSchema)
	if err != nil {
		return nil, fmt.Errorf("bundled schema: %w", err)
	}
	return doc, nil
}

// Parse decodes a schema document. Method names are taken from the map keys
// when absent and categories default to the prefix before the first '.'.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	if len(doc.Methods) == 0 {
		return nil, fmt.Errorf("%w: no methods", ErrInvalidSchema)
	}
	for name, method := range doc.Methods {
		if method == nil {
			method = &Method{}
			doc.Methods[name] = method
		}
		normalizeMethod(name, method)
	}
	return &doc, nil
}

func normalizeMethod(key string, method *Method) {
	if method.Name == "" {
		method.Name = key
	}
	if method.Category == "" {
		category, _, _ := strings.Cut(method.Name, ".")
		method.Category = category
	}
}
