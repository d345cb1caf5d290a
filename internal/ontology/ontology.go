// Package ontology holds the category hierarchy the benchmark draws its
// target combinations from and answers ancestry questions about it.
package ontology

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// ArtificialRootName is the name given to the synthetic root that joins
// several top-level terms.
const ArtificialRootName = "root"

var ErrEmptyOntology = errors.New("ontology contains no terms")

// Ontology is an immutable directed acyclic graph of terms. Edges point from
// parent to child. It is safe for concurrent use once built.
type Ontology struct {
	terms []Term
	index map[TermID]int64

	// down has parent -> child edges, up the reverse.
	down *simple.DirectedGraph
	up   *simple.DirectedGraph

	root int64

	// ancestors[i] lists the node IDs of every proper ancestor of i, sorted.
	ancestors [][]int64
}

// Builder collects terms before they are frozen into an Ontology.
type Builder struct {
	terms []Term
	seen  map[TermID]struct{}
}

func NewBuilder() *Builder {
	return &Builder{seen: map[TermID]struct{}{}}
}

// Add registers a term. Adding the same ID twice is an error.
func (b *Builder) Add(t Term) error {
	if _, ok := b.seen[t.ID]; ok {
		return fmt.Errorf("duplicate term %s", t.ID)
	}
	b.seen[t.ID] = struct{}{}
	b.terms = append(b.terms, t)
	return nil
}

// Build freezes the collected terms. Obsolete terms and relations to
// unknown terms are dropped. When more than one term has no parent an
// artificial root is added above them.
func (b *Builder) Build() (*Ontology, error) {
	o := &Ontology{
		index: make(map[TermID]int64, len(b.terms)),
		down:  simple.NewDirectedGraph(),
		up:    simple.NewDirectedGraph(),
	}

	for _, t := range b.terms {
		if t.Obsolete {
			continue
		}
		id := int64(len(o.terms))
		o.index[t.ID] = id
		o.terms = append(o.terms, t)
		o.down.AddNode(simple.Node(id))
		o.up.AddNode(simple.Node(id))
	}
	if len(o.terms) == 0 {
		return nil, ErrEmptyOntology
	}

	for i := range o.terms {
		child := int64(i)
		parents := o.terms[i].Parents[:0:0]
		for _, p := range o.terms[i].Parents {
			pid, ok := o.index[p]
			if !ok || pid == child {
				slog.Debug("Dropping relation to unknown term", "term", o.terms[i].ID, "parent", p)
				continue
			}
			parents = append(parents, p)
			o.link(pid, child)
		}
		o.terms[i].Parents = parents
	}

	if _, err := topo.Sort(o.down); err != nil {
		return nil, fmt.Errorf("ontology is not acyclic: %w", err)
	}

	if err := o.findRoot(); err != nil {
		return nil, err
	}

	o.ancestors = make([][]int64, len(o.terms))
	for i := range o.terms {
		o.ancestors[i] = o.collectAncestors(int64(i))
	}
	return o, nil
}

func (o *Ontology) link(parent, child int64) {
	o.down.SetEdge(simple.Edge{F: simple.Node(parent), T: simple.Node(child)})
	o.up.SetEdge(simple.Edge{F: simple.Node(child), T: simple.Node(parent)})
}

func (o *Ontology) findRoot() error {
	var roots []int64
	for i := range o.terms {
		if o.down.To(int64(i)).Len() == 0 {
			roots = append(roots, int64(i))
		}
	}

	if len(roots) == 1 {
		o.root = roots[0]
		return nil
	}

	rootID := TermID{Prefix: o.terms[roots[0]].ID.Prefix}
	if _, taken := o.index[rootID]; taken {
		return fmt.Errorf("cannot add artificial root: %s already in use", rootID)
	}
	o.root = int64(len(o.terms))
	o.index[rootID] = o.root
	o.terms = append(o.terms, Term{ID: rootID, Name: ArtificialRootName})
	o.down.AddNode(simple.Node(o.root))
	o.up.AddNode(simple.Node(o.root))
	for _, r := range roots {
		o.link(o.root, r)
		o.terms[r].Parents = append(o.terms[r].Parents, rootID)
	}
	return nil
}

func (o *Ontology) collectAncestors(id int64) []int64 {
	var anc []int64
	bf := traverse.BreadthFirst{
		Visit: func(n graph.Node) {
			if n.ID() != id {
				anc = append(anc, n.ID())
			}
		},
	}
	bf.Walk(o.up, simple.Node(id), nil)
	slices.Sort(anc)
	return anc
}

// Len returns the number of terms including an artificial root.
func (o *Ontology) Len() int {
	return len(o.terms)
}

// Root returns the ID of the single root term.
func (o *Ontology) Root() TermID {
	return o.terms[o.root].ID
}

// Term resolves an ID to its term.
func (o *Ontology) Term(id TermID) (Term, bool) {
	i, ok := o.index[id]
	if !ok {
		return Term{}, false
	}
	return o.terms[i], true
}

// Has reports whether id is a known, non-obsolete term.
func (o *Ontology) Has(id TermID) bool {
	_, ok := o.index[id]
	return ok
}

// Terms returns all term IDs in definition order.
func (o *Ontology) Terms() []TermID {
	ids := make([]TermID, len(o.terms))
	for i, t := range o.terms {
		ids[i] = t.ID
	}
	return ids
}

// Parents returns the direct parents of id.
func (o *Ontology) Parents(id TermID) []TermID {
	i, ok := o.index[id]
	if !ok {
		return nil
	}
	return slices.Clone(o.terms[i].Parents)
}

// Ancestors returns every proper ancestor of id.
func (o *Ontology) Ancestors(id TermID) []TermID {
	i, ok := o.index[id]
	if !ok {
		return nil
	}
	out := make([]TermID, len(o.ancestors[i]))
	for j, a := range o.ancestors[i] {
		out[j] = o.terms[a].ID
	}
	return out
}

// ExistsPath reports whether a directed path of at least one edge leads
// from the term from down to the term to, i.e. whether from is a proper
// ancestor of to.
func (o *Ontology) ExistsPath(from, to TermID) bool {
	f, ok := o.index[from]
	if !ok {
		return false
	}
	t, ok := o.index[to]
	if !ok || f == t {
		return false
	}
	_, found := slices.BinarySearch(o.ancestors[t], f)
	return found
}

// order returns the definition index of id, used to keep enumerations
// deterministic.
func (o *Ontology) order(id TermID) (int64, bool) {
	i, ok := o.index[id]
	return i, ok
}

// Order returns the definition index of id, or -1 if unknown.
func (o *Ontology) Order(id TermID) int {
	i, ok := o.order(id)
	if !ok {
		return -1
	}
	return int(i)
}
