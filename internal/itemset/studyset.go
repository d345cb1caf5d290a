// Package itemset provides study sets (ordered item collections with
// optional per-item attributes) and their enumeration over an ontology.
package itemset

import (
	"slices"

	"github.com/ontobench/ontobench/internal/association"
)

// Attribute is optional per-item information. Valued items carry a score
// where smaller means more relevant.
type Attribute struct {
	Description string
	Value       float64
	Valued      bool
}

// StudySet is an insertion-ordered set of item names.
type StudySet struct {
	name  string
	items []string
	attrs map[string]Attribute
}

func New(name string) *StudySet {
	return &StudySet{name: name, attrs: map[string]Attribute{}}
}

// FromItems builds a set from items, dropping duplicates.
func FromItems(name string, items []string) *StudySet {
	s := New(name)
	for _, it := range items {
		s.Add(it)
	}
	return s
}

func (s *StudySet) Name() string {
	return s.name
}

// Add inserts item and reports whether it was new.
func (s *StudySet) Add(item string) bool {
	return s.AddWithAttribute(item, Attribute{})
}

// AddValued inserts item with a value.
func (s *StudySet) AddValued(item string, value float64) bool {
	return s.AddWithAttribute(item, Attribute{Value: value, Valued: true})
}

func (s *StudySet) AddWithAttribute(item string, attr Attribute) bool {
	if _, ok := s.attrs[item]; ok {
		return false
	}
	s.items = append(s.items, item)
	s.attrs[item] = attr
	return true
}

func (s *StudySet) Contains(item string) bool {
	_, ok := s.attrs[item]
	return ok
}

// Remove deletes item and reports whether it was present.
func (s *StudySet) Remove(item string) bool {
	if _, ok := s.attrs[item]; !ok {
		return false
	}
	delete(s.attrs, item)
	s.items = slices.DeleteFunc(s.items, func(it string) bool { return it == item })
	return true
}

func (s *StudySet) Attribute(item string) (Attribute, bool) {
	a, ok := s.attrs[item]
	return a, ok
}

// Items returns the items in insertion order.
func (s *StudySet) Items() []string {
	return slices.Clone(s.items)
}

func (s *StudySet) Len() int {
	return len(s.items)
}

// Valued reports whether any item carries a value.
func (s *StudySet) Valued() bool {
	for _, a := range s.attrs {
		if a.Valued {
			return true
		}
	}
	return false
}

// FilterUnannotated removes items without annotations in c and returns how
// many were removed.
func (s *StudySet) FilterUnannotated(c *association.Container) int {
	before := len(s.items)
	s.items = slices.DeleteFunc(s.items, func(it string) bool {
		if c.Has(it) {
			return false
		}
		delete(s.attrs, it)
		return true
	})
	return before - len(s.items)
}
