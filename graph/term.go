// Package graph provides the statement model and the in-memory graph store
// used by the stbgraph pipeline, plus the run-completed event publisher.
package graph

import (
	"fmt"
	"strings"
)

// Standard IRIs used by the term model.
const (
	// RDFType is rdf:type.
	RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

	// RDFLangString is the datatype of language-tagged literals.
	RDFLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"

	// XSDString is the datatype of simple literals.
	XSDString = "http://www.w3.org/2001/XMLSchema#string"

	// XSDBoolean is xsd:boolean.
	XSDBoolean = "http://www.w3.org/2001/XMLSchema#boolean"

	// XSDInteger is xsd:integer.
	XSDInteger = "http://www.w3.org/2001/XMLSchema#integer"

	// XSDDecimal is xsd:decimal.
	XSDDecimal = "http://www.w3.org/2001/XMLSchema#decimal"

	// XSDDouble is xsd:double.
	XSDDouble = "http://www.w3.org/2001/XMLSchema#double"
)

// TermKind distinguishes the three kinds of RDF terms.
type TermKind uint8

// Term kinds. The zero value marks an unset term (the default graph label).
const (
	KindIRI TermKind = iota + 1
	KindBlank
	KindLiteral
)

// String returns the kind name.
func (k TermKind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	default:
		return "none"
	}
}

// Term is an RDF term. Terms are comparable, so statements built from them
// can be used as map keys.
type Term struct {
	Kind  TermKind
	Value string

	// Datatype is the literal datatype IRI. Empty means xsd:string, or
	// rdf:langString when Lang is set.
	Datatype string

	// Lang is the language tag of a literal.
	Lang string
}

// IRI returns a named node.
func IRI(iri string) Term {
	return Term{Kind: KindIRI, Value: iri}
}

// Blank returns a blank node with the given label, without the "_:" prefix.
func Blank(label string) Term {
	return Term{Kind: KindBlank, Value: strings.TrimPrefix(label, "_:")}
}

// Literal returns a simple (xsd:string) literal.
func Literal(value string) Term {
	return Term{Kind: KindLiteral, Value: value}
}

// LangLiteral returns a language-tagged literal. An empty tag yields a simple literal.
func LangLiteral(value, lang string) Term {
	return Term{Kind: KindLiteral, Value: value, Lang: strings.ToLower(lang)}
}

// TypedLiteral returns a literal with the given datatype. xsd:string and
// rdf:langString collapse to a simple literal.
func TypedLiteral(value, datatype string) Term {
	if datatype == XSDString || datatype == RDFLangString {
		datatype = ""
	}
	return Term{Kind: KindLiteral, Value: value, Datatype: datatype}
}

// BoolLiteral returns an xsd:boolean literal.
func BoolLiteral(v bool) Term {
	return TypedLiteral(fmt.Sprintf("%t", v), XSDBoolean)
}

// IsZero reports whether the term is unset.
func (t Term) IsZero() bool {
	return t.Kind == 0
}

// IsIRI reports whether the term is a named node.
func (t Term) IsIRI() bool { return t.Kind == KindIRI }

// IsBlank reports whether the term is a blank node.
func (t Term) IsBlank() bool { return t.Kind == KindBlank }

// IsLiteral reports whether the term is a literal.
func (t Term) IsLiteral() bool { return t.Kind == KindLiteral }

// String returns the N-Triples form of the term.
func (t Term) String() string {
	switch t.Kind {
	case KindIRI:
		return "<" + t.Value + ">"
	case KindBlank:
		return "_:" + t.Value
	case KindLiteral:
		lit := `"` + EscapeLiteral(t.Value) + `"`
		if t.Lang != "" {
			return lit + "@" + t.Lang
		}
		if t.Datatype != "" {
			return lit + "^^<" + t.Datatype + ">"
		}
		return lit
	default:
		return ""
	}
}

// EscapeLiteral escapes a lexical form for N-Triples and N-Quads output.
func EscapeLiteral(s string) string {
	if !strings.ContainsAny(s, "\\\"\n\r\t\b\f") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 8)
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
