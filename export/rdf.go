// Package export serializes statements to line-based RDF formats.
package export

import (
	"bufio"
	"io"
	"iter"
	"sort"
	"strings"

	"github.com/c360studio/stbgraph/graph"
	"github.com/cockroachdb/errors"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatNQuads produces N-Quads (.nq) output, keeping graph labels.
	FormatNQuads Format = "nquads"

	// FormatNTriples produces N-Triples (.nt) output. Graph labels are dropped.
	FormatNTriples Format = "ntriples"

	// FormatTurtle produces Turtle (.ttl) output. Graph labels are dropped.
	FormatTurtle Format = "turtle"
)

// Writer writes statements one at a time. Flush must be called once all
// statements are written.
type Writer interface {
	Write(q graph.Quad) error
	Flush() error
}

// NewWriter returns the writer for format.
func NewWriter(format Format, w io.Writer) (Writer, error) {
	switch format {
	case FormatNQuads:
		return NewNQuadsWriter(w), nil
	case FormatNTriples:
		return NewNTriplesWriter(w), nil
	case FormatTurtle:
		return NewTurtleWriter(w), nil
	default:
		return nil, errors.Newf("unsupported format: %s", format)
	}
}

// WriteAll writes every statement of seq and flushes. It returns the number
// of statements written.
func WriteAll(w Writer, seq iter.Seq2[graph.Quad, error]) (int, error) {
	n := 0
	for q, err := range seq {
		if err != nil {
			return n, err
		}
		if err := w.Write(q); err != nil {
			return n, errors.Wrapf(err, "write statement %d", n+1)
		}
		n++
	}
	if err := w.Flush(); err != nil {
		return n, errors.Wrap(err, "flush output")
	}
	return n, nil
}

// NQuadsWriter writes RDF in N-Quads format.
type NQuadsWriter struct {
	bw *bufio.Writer
}

// NewNQuadsWriter creates a new N-Quads writer.
func NewNQuadsWriter(w io.Writer) *NQuadsWriter {
	return &NQuadsWriter{bw: bufio.NewWriter(w)}
}

// Write writes a single statement.
func (w *NQuadsWriter) Write(q graph.Quad) error {
	if _, err := w.bw.WriteString(q.String()); err != nil {
		return err
	}
	return w.bw.WriteByte('\n')
}

// Flush flushes buffered output.
func (w *NQuadsWriter) Flush() error {
	return w.bw.Flush()
}

// NTriplesWriter writes RDF in N-Triples format.
type NTriplesWriter struct {
	bw *bufio.Writer
}

// NewNTriplesWriter creates a new N-Triples writer.
func NewNTriplesWriter(w io.Writer) *NTriplesWriter {
	return &NTriplesWriter{bw: bufio.NewWriter(w)}
}

// Write writes the triple part of q.
func (w *NTriplesWriter) Write(q graph.Quad) error {
	if _, err := w.bw.WriteString(q.Triple().String()); err != nil {
		return err
	}
	return w.bw.WriteByte('\n')
}

// Flush flushes buffered output.
func (w *NTriplesWriter) Flush() error {
	return w.bw.Flush()
}

// TurtleWriter writes RDF in Turtle format. IRIs are shortened with the
// registered prefixes; statements are written one per line.
type TurtleWriter struct {
	bw       *bufio.Writer
	prefixes map[string]string
	started  bool
}

// NewTurtleWriter creates a new Turtle writer with default prefixes.
func NewTurtleWriter(w io.Writer) *TurtleWriter {
	return &TurtleWriter{
		bw:       bufio.NewWriter(w),
		prefixes: DefaultPrefixes(),
	}
}

// SetPrefix sets a namespace prefix. Prefixes must be set before the first Write.
func (w *TurtleWriter) SetPrefix(prefix, iri string) {
	w.prefixes[prefix] = iri
}

// Write writes the triple part of q.
func (w *TurtleWriter) Write(q graph.Quad) error {
	if !w.started {
		w.writePrefixes()
		w.started = true
	}
	line := w.term(q.Subject) + " " + w.predicate(q.Predicate) + " " + w.term(q.Object) + " .\n"
	_, err := w.bw.WriteString(line)
	return err
}

// Flush writes the prefixes if nothing was written and flushes buffered output.
func (w *TurtleWriter) Flush() error {
	if !w.started {
		w.writePrefixes()
		w.started = true
	}
	return w.bw.Flush()
}

func (w *TurtleWriter) writePrefixes() {
	keys := make([]string, 0, len(w.prefixes))
	for k := range w.prefixes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, prefix := range keys {
		_, _ = w.bw.WriteString("@prefix " + prefix + ": <" + w.prefixes[prefix] + "> .\n")
	}
	_, _ = w.bw.WriteString("\n")
}

func (w *TurtleWriter) predicate(t graph.Term) string {
	if t.Value == graph.RDFType {
		return "a"
	}
	return w.term(t)
}

func (w *TurtleWriter) term(t graph.Term) string {
	switch t.Kind {
	case graph.KindIRI:
		return w.compact(t.Value)
	case graph.KindLiteral:
		if t.Datatype != "" && t.Lang == "" {
			return `"` + graph.EscapeLiteral(t.Value) + `"^^` + w.compact(t.Datatype)
		}
		return t.String()
	default:
		return t.String()
	}
}

// compact returns prefix:local when a prefix matches and the local part is a
// safe local name, otherwise the full <iri>.
func (w *TurtleWriter) compact(iri string) string {
	best := ""
	for prefix, ns := range w.prefixes {
		if !strings.HasPrefix(iri, ns) {
			continue
		}
		local := iri[len(ns):]
		if !isLocalName(local) {
			continue
		}
		if c := prefix + ":" + local; best == "" || len(c) < len(best) {
			best = c
		}
	}
	if best != "" {
		return best
	}
	return "<" + iri + ">"
}

func isLocalName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case i > 0 && (r >= '0' && r <= '9' || r == '-'):
		default:
			return false
		}
	}
	return true
}

// DefaultPrefixes returns the namespace prefixes used for Turtle output.
func DefaultPrefixes() map[string]string {
	return map[string]string{
		"rdf":     "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"rdfs":    "http://www.w3.org/2000/01/rdf-schema#",
		"owl":     "http://www.w3.org/2002/07/owl#",
		"xsd":     "http://www.w3.org/2001/XMLSchema#",
		"nen2660": "https://w3id.org/nen2660/def#",
		"stb":     "urn:standaardtaakbeschrijving:def/",
		"stbid":   "urn:standaardtaakbeschrijving:id/",
	}
}
