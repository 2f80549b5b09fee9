// Package params builds RPC parameter objects from command-line input.
package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/hubctl/hubctl/internal/schema"
)

// InputError reports a malformed value supplied by the user. Param names the
// flag or parameter that carried it.
type InputError struct {
	Param string
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid value for %s: %v", e.Param, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// Flag is the value a per-parameter flag was given on the command line.
type Flag struct {
	// Name is the flag name without dashes, used in error messages.
	Name string
	// Value is a string for string and numeric parameters and a bool for
	// boolean parameters.
	Value interface{}
}

// Options are the parameter sources of one invocation.
type Options struct {
	// Params is inline JSON from --params.
	Params string
	// File is a path to a JSON file from --file.
	File string
	// Flags holds the per-parameter flags that were set, keyed by dotted
	// parameter path.
	Flags map[string]Flag
}

// Build merges all parameter sources into one nested object shaped like the
// method's schema. Later sources win:
//
//  1. inline JSON (--params)
//  2. JSON file (--file), merged over inline JSON at the top level
//  3. per-parameter flags, written at their nested path
//  4. positional arguments, in schema.ResolvePositional order
//
// An empty result for a method with required top-level fields becomes a
// skeleton of empty objects for its required object-typed fields.
func Build(opts Options, method *schema.Method, args []string) (map[string]interface{}, error) {
	result := make(map[string]interface{})

	if strings.TrimSpace(opts.Params) != "" {
		inline, err := decodeObject([]byte(opts.Params))
		if err != nil {
			return nil, &InputError{Param: "--params", Err: err}
		}
		result = inline
	}

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, &InputError{Param: "--file", Err: err}
		}
		fromFile, err := decodeObject(data)
		if err != nil {
			return nil, &InputError{Param: "--file", Err: fmt.Errorf("%s: %w", opts.File, err)}
		}
		for key, value := range fromFile {
			result[key] = value
		}
	}

	var shape *schema.Shape
	if method != nil {
		shape = method.Params
	}

	if len(opts.Flags) > 0 {
		for _, leaf := range schema.Leaves(shape) {
			flag, ok := opts.Flags[leaf.Key()]
			if !ok {
				continue
			}
			value, err := flagValue(flag, leaf.Shape.Type)
			if err != nil {
				return nil, err
			}
			setPath(result, leaf.Path, value)
		}
	}

	positional := schema.ResolvePositional(shape)
	if len(args) > len(positional) {
		return nil, &InputError{
			Param: "arguments",
			Err:   fmt.Errorf("expected at most %d positional arguments, got %d", len(positional), len(args)),
		}
	}
	for i, arg := range args {
		param := positional[i]
		value, err := Coerce(arg, param.Type)
		if err != nil {
			return nil, &InputError{Param: param.Name, Err: err}
		}
		setPath(result, param.Path, value)
	}

	if len(result) == 0 && shape != nil && len(shape.Required) > 0 {
		result = Skeleton(shape)
	}

	return result, nil
}

// Coerce converts a command-line string to the JSON value of a parameter type.
// Numeric values are parsed as integers first; "number" parameters also
// accept decimals.
func Coerce(raw string, typ schema.ParamType) (interface{}, error) {
	switch typ {
	case schema.TypeInteger, schema.TypeNumber:
		trimmed := strings.TrimSpace(raw)
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return n, nil
		}
		if typ == schema.TypeNumber {
			if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
				return f, nil
			}
		}
		return nil, fmt.Errorf("%q is not a valid %s", raw, typ)
	case schema.TypeBoolean:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid boolean", raw)
		}
		return b, nil
	default:
		return raw, nil
	}
}

// Skeleton returns an object with an empty object for every required
// object-typed field of shape, and one level further for the required
// object-typed fields of each of those.
func Skeleton(shape *schema.Shape) map[string]interface{} {
	out := make(map[string]interface{})
	for _, name := range shape.Required {
		child := shape.Properties[name]
		if !child.IsObject() {
			continue
		}
		nested := make(map[string]interface{})
		for _, childName := range child.Required {
			if child.Properties[childName].IsObject() {
				nested[childName] = map[string]interface{}{}
			}
		}
		out[name] = nested
	}
	return out
}

func flagValue(flag Flag, typ schema.ParamType) (interface{}, error) {
	raw, ok := flag.Value.(string)
	if !ok {
		return flag.Value, nil
	}
	if !typ.Numeric() && typ != schema.TypeBoolean {
		return raw, nil
	}
	value, err := Coerce(raw, typ)
	if err != nil {
		return nil, &InputError{Param: "--" + flag.Name, Err: err}
	}
	return value, nil
}

// decodeObject parses JSON (comments and trailing commas allowed) that must
// hold an object. Numbers are kept as json.Number so large integers survive.
func decodeObject(data []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()

	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("malformed JSON: unexpected data after object")
	}
	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a JSON object")
	}
	return obj, nil
}

func setPath(obj map[string]interface{}, path []string, value interface{}) {
	current := obj
	for _, segment := range path[:len(path)-1] {
		next, ok := current[segment].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			current[segment] = next
		}
		current = next
	}
	current[path[len(path)-1]] = value
}
