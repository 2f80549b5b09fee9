// Package scenario converts hub scenarios between their remote JSON form and
// a directory of editable files, and synchronizes those directories with
// the hub.
package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Type is the scenario variant.
type Type string

const (
	TypeBlock  Type = "BLOCK"
	TypeLogic  Type = "LOGIC"
	TypeGlobal Type = "GLOBAL"
)

// ErrUnsupportedType is returned for scenarios that are not BLOCK, LOGIC or
// GLOBAL.
var ErrUnsupportedType = errors.New("unsupported scenario type")

// ParseType validates a scenario type string.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeBlock, TypeLogic, TypeGlobal:
		return t, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnsupportedType, s)
	}
}

// Textual reports whether the scenario data is raw script text.
func (t Type) Textual() bool {
	return t == TypeLogic || t == TypeGlobal
}

// Scenario is a remote scenario document. Fields other than the ones the
// codec touches pass through untouched and in their original order.
type Scenario struct {
	fields *Object
}

// Parse parses a scenario document. It must be an object with an index.
func Parse(data []byte) (*Scenario, error) {
	obj, err := ParseObject(data)
	if err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return FromObject(obj)
}

// FromObject wraps an already parsed document.
func FromObject(obj *Object) (*Scenario, error) {
	raw, ok := obj.Get("index")
	if !ok || isNull(raw) {
		return nil, fmt.Errorf("scenario has no index")
	}
	return &Scenario{fields: obj}, nil
}

// Fields returns the underlying document.
func (s *Scenario) Fields() *Object { return s.fields }

// IndexKey returns the JSON text of the index, e.g. `3` or `"porch"`. It is
// what the hub expects back in scenario.get.
func (s *Scenario) IndexKey() string {
	raw, _ := s.fields.Get("index")
	return string(compactJSON(raw))
}

// Index returns the index as plain text.
func (s *Scenario) Index() string {
	if str, ok := s.fields.String("index"); ok {
		return str
	}
	return s.IndexKey()
}

// Name returns the scenario name, or "" when absent.
func (s *Scenario) Name() string {
	name, _ := s.fields.String("name")
	return name
}

// Label names the scenario for messages.
func (s *Scenario) Label() string {
	if name := s.Name(); name != "" {
		return fmt.Sprintf("%s (%s)", name, s.Index())
	}
	return s.Index()
}

// RawType returns the type field as text.
func (s *Scenario) RawType() string {
	t, _ := s.fields.String("type")
	return t
}

// Type returns the validated scenario type.
func (s *Scenario) Type() (Type, error) {
	return ParseType(s.RawType())
}

// Data returns the raw data field.
func (s *Scenario) Data() (json.RawMessage, bool) {
	return s.fields.Get("data")
}

// DataString returns the data field, which must be a JSON string.
func (s *Scenario) DataString() (string, error) {
	raw, ok := s.fields.Get("data")
	if !ok {
		return "", fmt.Errorf("scenario %s has no data", s.Index())
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return "", fmt.Errorf("scenario %s: data is not a string", s.Index())
	}
	return str, nil
}

// Clone returns a deep copy.
func (s *Scenario) Clone() *Scenario {
	return &Scenario{fields: s.fields.Clone()}
}

// MarshalJSON implements json.Marshaler.
func (s *Scenario) MarshalJSON() ([]byte, error) {
	return s.fields.MarshalJSON()
}

// IndexParam converts an index typed on the command line to the JSON value
// sent to the hub: numbers stay numbers, anything else becomes a string.
func IndexParam(text string) json.RawMessage {
	text = strings.TrimSpace(text)
	var n json.Number
	if text != "" && text[0] != '"' && json.Unmarshal([]byte(text), &n) == nil {
		return json.RawMessage(n.String())
	}
	var quoted string
	if strings.HasPrefix(text, `"`) && json.Unmarshal([]byte(text), &quoted) == nil {
		return encodeString(quoted)
	}
	return encodeString(text)
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func compactJSON(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
