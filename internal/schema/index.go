package schema

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// ErrMethodNotFound is returned when a method is not in the schema.
var ErrMethodNotFound = errors.New("method not found")

// Index is a read-only view over a schema document, keyed by method name and
// grouped by category. Methods whose parameter shape is malformed are kept
// out of the index and reported by Invalid.
type Index struct {
	methods    map[string]*Method
	categories map[string][]*Method
	invalid    map[string]error
}

// NewIndex builds an index over doc.
func NewIndex(doc *Document) *Index {
	idx := &Index{
		methods:    make(map[string]*Method),
		categories: make(map[string][]*Method),
		invalid:    make(map[string]error),
	}
	if doc == nil {
		return idx
	}

	for name, method := range doc.Methods {
		if err := method.Params.Validate(); err != nil {
			idx.invalid[name] = fmt.Errorf("method %s: %w", name, err)
			continue
		}
		if method.Params != nil && !method.Params.IsObject() {
			idx.invalid[name] = fmt.Errorf("method %s: params must be an object, got %s", name, method.Params.Type)
			continue
		}
		idx.methods[name] = method
		idx.categories[method.Category] = append(idx.categories[method.Category], method)
	}

	for _, methods := range idx.categories {
		slices.SortFunc(methods, func(a, b *Method) int {
			return cmp.Compare(a.Name, b.Name)
		})
	}
	return idx
}

// Categories returns all category names in lexical order.
func (i *Index) Categories() []string {
	names := make([]string, 0, len(i.categories))
	for name := range i.categories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// MethodsByCategory returns the methods of a category ordered by name.
func (i *Index) MethodsByCategory(category string) []*Method {
	return slices.Clone(i.categories[category])
}

// Method looks up a method by its dotted name.
func (i *Index) Method(name string) (*Method, error) {
	method, ok := i.methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, name)
	}
	return method, nil
}

// Len returns the number of valid methods.
func (i *Index) Len() int {
	return len(i.methods)
}

// Invalid returns the methods rejected while building the index.
func (i *Index) Invalid() map[string]error {
	out := make(map[string]error, len(i.invalid))
	for name, err := range i.invalid {
		out[name] = err
	}
	return out
}
