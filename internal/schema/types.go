// Package schema models the hub's RPC method schema.
package schema

import (
	"fmt"
	"slices"
	"strings"
)

// ParamType is the JSON type of a parameter shape node.
type ParamType string

const (
	TypeObject  ParamType = "object"
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
)

// Primitive reports whether values of this type can be given on the command line.
func (t ParamType) Primitive() bool {
	switch t {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean:
		return true
	}
	return false
}

// Numeric reports whether the type is number or integer.
func (t ParamType) Numeric() bool {
	return t == TypeNumber || t == TypeInteger
}

// Shape is one node of a method's parameter tree.
type Shape struct {
	Type        ParamType         `json:"type"`
	Description string            `json:"description,omitempty"`
	Properties  map[string]*Shape `json:"properties,omitempty"`
	Required    []string          `json:"required,omitempty"`
	Enum        []interface{}     `json:"enum,omitempty"`
	Default     interface{}       `json:"default,omitempty"`
}

// IsObject reports whether the node is an object node.
func (s *Shape) IsObject() bool {
	return s != nil && s.Type == TypeObject
}

// IsRequired reports whether the named property is listed in this node's required set.
func (s *Shape) IsRequired(name string) bool {
	if s == nil {
		return false
	}
	return slices.Contains(s.Required, name)
}

// PropertyNames returns the property names in lexical order.
func (s *Shape) PropertyNames() []string {
	if s == nil || len(s.Properties) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Validate checks the structural invariants of a shape tree.
func (s *Shape) Validate() error {
	return s.validate(nil)
}

func (s *Shape) validate(path []string) error {
	if s == nil {
		return nil
	}
	where := "params"
	if len(path) > 0 {
		where = strings.Join(path, ".")
	}
	if s.Type == "" {
		return fmt.Errorf("%s: missing type", where)
	}
	if !s.IsObject() {
		if len(s.Properties) > 0 {
			return fmt.Errorf("%s: %s node must not have properties", where, s.Type)
		}
		return nil
	}
	for _, name := range s.PropertyNames() {
		child := s.Properties[name]
		if child == nil {
			return fmt.Errorf("%s.%s: empty property definition", where, name)
		}
		if err := child.validate(append(slices.Clone(path), name)); err != nil {
			return err
		}
	}
	for _, name := range s.Required {
		if _, ok := s.Properties[name]; !ok && len(s.Properties) > 0 {
			return fmt.Errorf("%s: required property %q is not defined", where, name)
		}
	}
	return nil
}

// Method describes one remote RPC method.
type Method struct {
	Name        string `json:"method"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Params      *Shape `json:"params,omitempty"`
}

// Action returns the text after the first '.' of the dotted method name.
func (m *Method) Action() string {
	if _, action, ok := strings.Cut(m.Name, "."); ok {
		return action
	}
	return m.Name
}

// Document is a full schema as served by the hub or bundled with the binary.
type Document struct {
	Version string             `json:"version,omitempty"`
	Methods map[string]*Method `json:"methods"`
}
