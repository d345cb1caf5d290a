// Package association maps items (genes) to the ontology terms they are
// directly annotated with.
package association

import (
	"slices"

	"github.com/ontobench/ontobench/internal/ontology"
)

// Container holds direct annotations per item. Items are kept in the order
// they were first seen.
type Container struct {
	items []string
	terms map[string][]ontology.TermID
}

func NewContainer() *Container {
	return &Container{terms: map[string][]ontology.TermID{}}
}

// Add records that item is annotated with term. Repeated annotations are
// ignored.
func (c *Container) Add(item string, term ontology.TermID) {
	existing, ok := c.terms[item]
	if !ok {
		c.items = append(c.items, item)
	}
	if slices.Contains(existing, term) {
		return
	}
	c.terms[item] = append(existing, term)
}

// Items returns all annotated items.
func (c *Container) Items() []string {
	return slices.Clone(c.items)
}

// Annotations returns the direct annotations of item.
func (c *Container) Annotations(item string) []ontology.TermID {
	return c.terms[item]
}

// Has reports whether item carries at least one annotation.
func (c *Container) Has(item string) bool {
	_, ok := c.terms[item]
	return ok
}

func (c *Container) Len() int {
	return len(c.items)
}
