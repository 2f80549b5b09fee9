package schema

import (
	"cmp"
	"slices"
	"strings"
)

// Positional is a required primitive leaf promoted to a positional CLI argument.
type Positional struct {
	Name string
	Path []string
	Type ParamType
}

// Key returns the dotted parameter path.
func (p Positional) Key() string {
	return strings.Join(p.Path, ".")
}

// Leaf is a primitive parameter reachable from the schema root.
type Leaf struct {
	Name     string
	Path     []string
	Shape    *Shape
	Required bool
}

// Key returns the dotted parameter path.
func (l Leaf) Key() string {
	return strings.Join(l.Path, ".")
}

// Leaves walks every object node of shape and returns its primitive leaves
// ordered by path. Leaves of type array or free-form objects are skipped:
// they can only be supplied through --params or --file.
func Leaves(shape *Shape) []Leaf {
	var leaves []Leaf
	var walk func(node *Shape, path []string)
	walk = func(node *Shape, path []string) {
		for _, name := range node.PropertyNames() {
			child := node.Properties[name]
			childPath := append(slices.Clone(path), name)
			if child.IsObject() {
				walk(child, childPath)
				continue
			}
			if !child.Type.Primitive() {
				continue
			}
			leaves = append(leaves, Leaf{
				Name:     name,
				Path:     childPath,
				Shape:    child,
				Required: node.IsRequired(name),
			})
		}
	}
	if shape.IsObject() {
		walk(shape, nil)
	}
	slices.SortFunc(leaves, func(a, b Leaf) int {
		return cmp.Compare(a.Key(), b.Key())
	})
	return leaves
}

// ResolvePositional returns the parameters of shape that become positional
// arguments: every leaf that is required at its own level and is a string,
// number or integer. Booleans stay flags so they are always explicit.
//
// The result is ordered by path depth, then leaf name, then full path, which
// keeps a parameter's position stable regardless of property order or where
// the schema nests it.
func ResolvePositional(shape *Shape) []Positional {
	var out []Positional
	for _, leaf := range Leaves(shape) {
		if !leaf.Required {
			continue
		}
		switch leaf.Shape.Type {
		case TypeString, TypeNumber, TypeInteger:
		default:
			continue
		}
		out = append(out, Positional{
			Name: leaf.Name,
			Path: leaf.Path,
			Type: leaf.Shape.Type,
		})
	}

	slices.SortStableFunc(out, func(a, b Positional) int {
		if c := cmp.Compare(len(a.Path), len(b.Path)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.Key(), b.Key())
	})
	return out
}
