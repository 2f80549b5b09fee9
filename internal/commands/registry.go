// Package commands synthesizes CLI command metadata from the hub's method
// schema. The registry is built in one static pass at startup so the mapping
// from schema to CLI surface can be inspected and tested without parsing a
// command line.
package commands

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/hubctl/hubctl/internal/schema"
)

// Names of the flags every synthesized command declares.
const (
	FlagProfile = "profile"
	FlagParams  = "params"
	FlagFile    = "file"
)

// ErrFlagCollision is returned when two parameters of a method cannot be
// given distinct flag names.
var ErrFlagCollision = errors.New("flag name collision")

// Meta defines a CLI command generated from one RPC method.
type Meta struct {
	Method      string         // Dotted RPC method name (e.g., "device.get")
	Category    string         // Parent command name
	Name        string         // Command name (the method's action)
	Description string         // Short description
	LongDesc    string         // Long description (for --help)
	Args        []ArgMeta      // Positional arguments, in resolver order
	Flags       []FlagMeta     // Command flags
	Schema      *schema.Method // Source schema, used to build parameters
}

// Use returns the cobra usage line: the command name followed by one
// <name> per positional argument.
func (m Meta) Use() string {
	var sb strings.Builder
	sb.WriteString(m.Name)
	for _, arg := range m.Args {
		fmt.Fprintf(&sb, " <%s>", arg.Name)
	}
	return sb.String()
}

// ArgMeta defines a positional argument.
type ArgMeta struct {
	Name        string
	Description string
	Path        []string
	Type        schema.ParamType
	Completions []string // Static completions from the schema enum
}

// FlagMeta defines a command flag.
type FlagMeta struct {
	Name        string
	Description string
	Type        FlagType
	Path        []string // Parameter path; empty for the generic flags
}

// Key returns the dotted parameter path of a parameter flag.
func (f FlagMeta) Key() string {
	return strings.Join(f.Path, ".")
}

// FlagType represents the type of a flag.
type FlagType string

const (
	FlagTypeString FlagType = "string"
	FlagTypeBool   FlagType = "bool"
	FlagTypeNumber FlagType = "number" // Parsed by the parameter builder so errors name the flag
)

// CategoryMeta groups the commands of one schema category.
type CategoryMeta struct {
	Name     string
	Commands []Meta
}

// Registry holds the command metadata synthesized from a schema.
type Registry struct {
	Categories []CategoryMeta
	// Rejected maps method names that could not become commands to the reason.
	Rejected map[string]error

	byMethod map[string]Meta
}

// NewRegistry builds command metadata for every method in idx. Methods the
// index rejected, or whose flags collide, are recorded in Rejected.
func NewRegistry(idx *schema.Index) *Registry {
	reg := &Registry{
		Rejected: idx.Invalid(),
		byMethod: make(map[string]Meta),
	}

	for _, category := range idx.Categories() {
		cat := CategoryMeta{Name: category}
		for _, method := range idx.MethodsByCategory(category) {
			meta, err := BuildMeta(method)
			if err != nil {
				reg.Rejected[method.Name] = err
				continue
			}
			cat.Commands = append(cat.Commands, meta)
			reg.byMethod[method.Name] = meta
		}
		if len(cat.Commands) > 0 {
			reg.Categories = append(reg.Categories, cat)
		}
	}
	return reg
}

// Lookup returns the metadata for a dotted method name.
func (r *Registry) Lookup(method string) (Meta, bool) {
	meta, ok := r.byMethod[method]
	return meta, ok
}

// LookupByPath resolves a CLI command path to its metadata.
// Example: "device get" -> device.get
func (r *Registry) LookupByPath(path string) (Meta, bool) {
	fields := strings.Fields(path)
	if len(fields) != 2 {
		return Meta{}, false
	}
	for _, cat := range r.Categories {
		if cat.Name != fields[0] {
			continue
		}
		for _, meta := range cat.Commands {
			if meta.Name == fields[1] {
				return meta, true
			}
		}
	}
	return Meta{}, false
}

// Methods returns all registered method names in lexical order.
func (r *Registry) Methods() []string {
	names := make([]string, 0, len(r.byMethod))
	for name := range r.byMethod {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// BuildMeta synthesizes the command metadata for one method.
func BuildMeta(method *schema.Method) (Meta, error) {
	meta := Meta{
		Method:      method.Name,
		Category:    method.Category,
		Name:        method.Action(),
		Description: schema.Summary(method.Description),
		Schema:      method,
	}
	if meta.Description == "" {
		meta.Description = "Call " + method.Name
	}
	meta.LongDesc = strings.TrimSpace(method.Description)
	if meta.LongDesc != "" {
		meta.LongDesc += "\n\n"
	}
	meta.LongDesc += "RPC method: " + method.Name

	positional := schema.ResolvePositional(method.Params)
	isPositional := make(map[string]bool, len(positional))
	leaves := make(map[string]schema.Leaf)
	for _, leaf := range schema.Leaves(method.Params) {
		leaves[leaf.Key()] = leaf
	}

	for _, p := range positional {
		isPositional[p.Key()] = true
		leaf := leaves[p.Key()]
		meta.Args = append(meta.Args, ArgMeta{
			Name:        p.Name,
			Description: leaf.Shape.Description,
			Path:        p.Path,
			Type:        p.Type,
			Completions: enumStrings(leaf.Shape.Enum),
		})
	}

	var flagLeaves []schema.Leaf
	for _, leaf := range schema.Leaves(method.Params) {
		if !isPositional[leaf.Key()] {
			flagLeaves = append(flagLeaves, leaf)
		}
	}

	names, err := flagNames(flagLeaves)
	if err != nil {
		return Meta{}, fmt.Errorf("method %s: %w", method.Name, err)
	}

	for i, leaf := range flagLeaves {
		meta.Flags = append(meta.Flags, FlagMeta{
			Name:        names[i],
			Description: flagDescription(leaf),
			Type:        flagType(leaf.Shape.Type),
			Path:        leaf.Path,
		})
	}

	meta.Flags = append(meta.Flags,
		FlagMeta{Name: FlagProfile, Description: "Profile to use", Type: FlagTypeString},
		FlagMeta{Name: FlagParams, Description: "Parameters as inline JSON", Type: FlagTypeString},
		FlagMeta{Name: FlagFile, Description: "Path to a JSON file with parameters", Type: FlagTypeString},
	)
	return meta, nil
}

// GlobalFlags are the root persistent flags and their shorthands. A method
// flag of the same name would shadow them.
var GlobalFlags = []string{"config", "state", "profile", "output", "o", "verbose", "v"}

// flagNames names each leaf after its own key. Leaves that share a name are
// qualified with their full path instead, as are leaves named like a generic
// or global flag; anything still ambiguous is an error.
func flagNames(leaves []schema.Leaf) ([]string, error) {
	count := make(map[string]int)
	for _, leaf := range leaves {
		count[KebabCase(leaf.Name)]++
	}

	names := make([]string, len(leaves))
	owner := map[string]string{
		FlagProfile: "--" + FlagProfile,
		FlagParams:  "--" + FlagParams,
		FlagFile:    "--" + FlagFile,
		"help":      "--help",
	}
	for _, name := range GlobalFlags {
		if _, ok := owner[name]; !ok {
			owner[name] = "the global --" + name
		}
	}
	for i, leaf := range leaves {
		name := KebabCase(leaf.Name)
		if _, global := owner[name]; count[name] > 1 || global {
			segments := make([]string, len(leaf.Path))
			for j, segment := range leaf.Path {
				segments[j] = KebabCase(segment)
			}
			name = strings.Join(segments, "-")
		}
		if other, taken := owner[name]; taken {
			return nil, fmt.Errorf("%w: --%s for %s conflicts with %s", ErrFlagCollision, name, leaf.Key(), other)
		}
		owner[name] = leaf.Key()
		names[i] = name
	}
	return names, nil
}

func flagType(t schema.ParamType) FlagType {
	switch {
	case t == schema.TypeBoolean:
		return FlagTypeBool
	case t.Numeric():
		return FlagTypeNumber
	default:
		return FlagTypeString
	}
}

func flagDescription(leaf schema.Leaf) string {
	desc := leaf.Shape.Description
	if desc == "" {
		desc = leaf.Key()
	}
	if values := enumStrings(leaf.Shape.Enum); len(values) > 0 {
		desc += " (one of: " + strings.Join(values, ", ") + ")"
	}
	return desc
}

func enumStrings(values []interface{}) []string {
	var out []string
	for _, v := range values {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

// KebabCase converts a camelCase or snake_case parameter name to a flag name:
// "blockId" -> "block-id", "HTTPPort" -> "http-port".
func KebabCase(name string) string {
	runes := []rune(name)
	var sb strings.Builder
	for i, r := range runes {
		switch {
		case r == '_' || r == ' ' || r == '.':
			if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "-") {
				sb.WriteByte('-')
			}
			continue
		case unicode.IsUpper(r):
			if i > 0 && !strings.HasSuffix(sb.String(), "-") {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sb.WriteByte('-')
				}
			}
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteRune(r)
		}
	}
	return strings.Trim(sb.String(), "-")
}
