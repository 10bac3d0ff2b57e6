package graph

import "iter"

// Quad is a statement: subject, predicate, object and an optional graph
// label. A zero Graph term places the statement in the default graph.
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

// NewQuad returns a statement in the default graph.
func NewQuad(s, p, o Term) Quad {
	return Quad{Subject: s, Predicate: p, Object: o}
}

// InGraph returns a copy of q labelled with graph g.
func (q Quad) InGraph(g Term) Quad {
	q.Graph = g
	return q
}

// Triple returns q moved to the default graph.
func (q Quad) Triple() Quad {
	q.Graph = Term{}
	return q
}

// IsDefaultGraph reports whether q belongs to the default graph.
func (q Quad) IsDefaultGraph() bool {
	return q.Graph.IsZero()
}

// String returns the N-Quads line for q, without the trailing newline.
func (q Quad) String() string {
	s := q.Subject.String() + " " + q.Predicate.String() + " " + q.Object.String()
	if !q.Graph.IsZero() {
		s += " " + q.Graph.String()
	}
	return s + " ."
}

// Values returns a sequence over the given statements.
func Values(quads []Quad) iter.Seq[Quad] {
	return func(yield func(Quad) bool) {
		for _, q := range quads {
			if !yield(q) {
				return
			}
		}
	}
}

// NoErrors adapts seq to the fallible form used by Store.Quads.
func NoErrors(seq iter.Seq[Quad]) iter.Seq2[Quad, error] {
	return func(yield func(Quad, error) bool) {
		for q := range seq {
			if !yield(q, nil) {
				return
			}
		}
	}
}

// Concat chains several sequences into one.
func Concat(seqs ...iter.Seq[Quad]) iter.Seq[Quad] {
	return func(yield func(Quad) bool) {
		for _, seq := range seqs {
			for q := range seq {
				if !yield(q) {
					return
				}
			}
		}
	}
}

// Collect drains a store into a slice.
func Collect(store Store) ([]Quad, error) {
	n, err := store.Count()
	if err != nil {
		return nil, err
	}
	quads := make([]Quad, 0, n)
	for q, err := range store.Quads() {
		if err != nil {
			return nil, err
		}
		quads = append(quads, q)
	}
	return quads, nil
}
