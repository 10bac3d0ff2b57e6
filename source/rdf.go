package source

import (
	"io"
	"iter"
	"strings"
	"sync"

	"github.com/c360studio/stbgraph/graph"
	"github.com/cockroachdb/errors"
	knakk "github.com/knakk/rdf"
)

// DecodeTurtle streams the statements of a Turtle document. Every statement
// is placed in the default graph.
func DecodeTurtle(r io.Reader) iter.Seq2[graph.Quad, error] {
	return func(yield func(graph.Quad, error) bool) {
		dec := knakk.NewTripleDecoder(r, knakk.Turtle)
		for {
			tr, err := dec.Decode()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(graph.Quad{}, errors.Wrap(err, "decode turtle"))
				return
			}
			q, err := fromTriple(tr)
			if err != nil {
				yield(graph.Quad{}, err)
				return
			}
			if !yield(q, nil) {
				return
			}
		}
	}
}

// DecodeNQuads streams the statements of an N-Quads document, keeping graph
// labels. Statements without a label land in the default graph.
func DecodeNQuads(r io.Reader) iter.Seq2[graph.Quad, error] {
	return func(yield func(graph.Quad, error) bool) {
		dec := knakk.NewQuadDecoder(r, knakk.NQuads)
		marker := defaultContext()
		for {
			kq, err := dec.Decode()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(graph.Quad{}, errors.Wrap(err, "decode n-quads"))
				return
			}
			q, err := fromTriple(kq.Triple)
			if err != nil {
				yield(graph.Quad{}, err)
				return
			}
			if kq.Ctx != nil && kq.Ctx != marker {
				g, err := fromTerm(kq.Ctx)
				if err != nil {
					yield(graph.Quad{}, err)
					return
				}
				q.Graph = g
			}
			if !yield(q, nil) {
				return
			}
		}
	}
}

// defaultContext is the context the N-Quads decoder assigns to statements
// that carry no graph label.
var defaultContext = sync.OnceValue(func() knakk.Context {
	dec := knakk.NewQuadDecoder(strings.NewReader("<urn:s> <urn:p> <urn:o> .\n"), knakk.NQuads)
	q, err := dec.Decode()
	if err != nil {
		return nil
	}
	return q.Ctx
})

func fromTriple(tr knakk.Triple) (graph.Quad, error) {
	s, err := fromTerm(tr.Subj)
	if err != nil {
		return graph.Quad{}, err
	}
	p, err := fromTerm(tr.Pred)
	if err != nil {
		return graph.Quad{}, err
	}
	o, err := fromTerm(tr.Obj)
	if err != nil {
		return graph.Quad{}, err
	}
	return graph.NewQuad(s, p, o), nil
}

func fromTerm(t knakk.Term) (graph.Term, error) {
	switch v := t.(type) {
	case knakk.IRI:
		return graph.IRI(v.String()), nil
	case knakk.Blank:
		return graph.Blank(v.String()), nil
	case knakk.Literal:
		if lang := v.Lang(); lang != "" {
			return graph.LangLiteral(v.String(), lang), nil
		}
		return graph.TypedLiteral(v.String(), v.DataType.String()), nil
	default:
		return graph.Term{}, errors.Newf("unsupported term %T", t)
	}
}
