package rules

import (
	"strings"

	"github.com/c360studio/stbgraph/graph"
	"github.com/cockroachdb/errors"
)

// Node is a pattern position: a variable or a fixed term.
type Node struct {
	Var  string
	Term graph.Term
}

// IsVar reports whether n is a variable.
func (n Node) IsVar() bool {
	return n.Var != ""
}

func (n Node) String() string {
	if n.IsVar() {
		return "?" + n.Var
	}
	return n.Term.String()
}

// Pattern is a triple pattern.
type Pattern struct {
	S, P, O Node
}

func (p Pattern) String() string {
	return p.S.String() + " " + p.P.String() + " " + p.O.String()
}

// Rule derives the Conclusions for every binding that satisfies all
// Premises.
type Rule struct {
	Premises    []Pattern
	Conclusions []Pattern
}

// Program is a parsed rule document: its rules plus any top-level facts.
type Program struct {
	Rules []Rule
	Facts []graph.Quad
}

const (
	xsdNS          = "http://www.w3.org/2001/XMLSchema#"
	implicationIRI = "http://www.w3.org/2000/10/swap/log#implies"
)

// Parse reads an N3 document. Supported: @prefix/PREFIX, @base/BASE
// (ignored), IRIs, prefixed names, the keyword a, ?variables, blank node
// labels, string literals with a language tag or datatype, numbers,
// booleans, predicate lists (;) and object lists (,), and rules written as
// { premises } => { conclusions } . Blank node labels inside rules act as
// variables.
func Parse(src string) (*Program, error) {
	p := &parser{lex: newLexer(src), prefixes: map[string]string{}}
	if err := p.advance(); err != nil {
		return nil, err
	}

	prog := &Program{}
	for p.tok.kind != tokEOF {
		if err := p.statement(prog); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

type parser struct {
	lex      *lexer
	tok      token
	prefixes map[string]string

	// inFormula is set while parsing the inside of { }.
	inFormula bool
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return errors.Newf("line %d: "+format, append([]any{p.tok.line}, args...)...)
}

func (p *parser) expect(kind tokenKind) (token, error) {
	if p.tok.kind != kind {
		return token{}, p.errorf("expected %s, found %s %q", kind, p.tok.kind, p.tok.text)
	}
	tok := p.tok
	return tok, p.advance()
}

func (p *parser) statement(prog *Program) error {
	if p.tok.kind == tokKeyword {
		switch p.tok.text {
		case "@prefix", "PREFIX", "prefix":
			return p.prefix(p.tok.text == "@prefix")
		case "@base", "BASE", "base":
			return p.base(p.tok.text == "@base")
		}
	}

	if p.tok.kind == tokLBrace {
		return p.rule(prog)
	}

	patterns, err := p.triples(nil)
	if err != nil {
		return err
	}
	if _, err := p.expect(tokDot); err != nil {
		return err
	}
	for _, pat := range patterns {
		q, ok := ground(pat)
		if !ok {
			return p.errorf("variables are only allowed inside rules: %s", pat)
		}
		prog.Facts = append(prog.Facts, q)
	}
	return nil
}

func (p *parser) prefix(dotted bool) error {
	if err := p.advance(); err != nil {
		return err
	}
	name, err := p.expect(tokPName)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(name.text, ":") || strings.Count(name.text, ":") != 1 {
		return p.errorf("invalid prefix name %q", name.text)
	}
	iri, err := p.expect(tokIRI)
	if err != nil {
		return err
	}
	p.prefixes[strings.TrimSuffix(name.text, ":")] = iri.text
	if dotted {
		_, err = p.expect(tokDot)
	}
	return err
}

func (p *parser) base(dotted bool) error {
	if err := p.advance(); err != nil {
		return err
	}
	if _, err := p.expect(tokIRI); err != nil {
		return err
	}
	if dotted {
		_, err := p.expect(tokDot)
		return err
	}
	return nil
}

func (p *parser) rule(prog *Program) error {
	premises, err := p.formula()
	if err != nil {
		return err
	}
	if p.tok.kind == tokPName || p.tok.kind == tokIRI {
		iri, err := p.iri()
		if err != nil {
			return err
		}
		if iri != implicationIRI {
			return p.errorf("unsupported formula predicate <%s>", iri)
		}
	} else if _, err := p.expect(tokImplies); err != nil {
		return err
	}
	conclusions, err := p.formula()
	if err != nil {
		return err
	}
	if _, err := p.expect(tokDot); err != nil {
		return err
	}

	prog.Rules = append(prog.Rules, Rule{Premises: premises, Conclusions: conclusions})
	return nil
}

func (p *parser) formula() ([]Pattern, error) {
	if _, err := p.expect(tokLBrace); err != nil {
		return nil, err
	}
	p.inFormula = true
	defer func() { p.inFormula = false }()

	var patterns []Pattern
	for p.tok.kind != tokRBrace {
		var err error
		patterns, err = p.triples(patterns)
		if err != nil {
			return nil, err
		}
		if p.tok.kind == tokDot {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.tok.kind != tokRBrace {
			return nil, p.errorf("expected '.' or '}', found %s %q", p.tok.kind, p.tok.text)
		}
	}
	return patterns, p.advance()
}

// triples parses subject predicateObjectList and appends the patterns.
func (p *parser) triples(out []Pattern) ([]Pattern, error) {
	subj, err := p.node()
	if err != nil {
		return nil, err
	}
	for {
		pred, err := p.verb()
		if err != nil {
			return nil, err
		}
		for {
			obj, err := p.node()
			if err != nil {
				return nil, err
			}
			out = append(out, Pattern{S: subj, P: pred, O: obj})
			if p.tok.kind != tokComma {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.tok.kind != tokSemicolon {
			return out, nil
		}
		// Repeated or trailing semicolons are allowed.
		for p.tok.kind == tokSemicolon {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.tok.kind == tokDot || p.tok.kind == tokRBrace {
			return out, nil
		}
	}
}

func (p *parser) verb() (Node, error) {
	if p.tok.kind == tokKeyword && p.tok.text == "a" {
		return Node{Term: graph.IRI(graph.RDFType)}, p.advance()
	}
	n, err := p.node()
	if err != nil {
		return Node{}, err
	}
	if !n.IsVar() && !n.Term.IsIRI() {
		return Node{}, p.errorf("predicate must be an IRI or variable, found %s", n)
	}
	return n, nil
}

func (p *parser) node() (Node, error) {
	tok := p.tok
	switch tok.kind {
	case tokVar:
		return Node{Var: tok.text}, p.advance()
	case tokBlank:
		if p.inFormula {
			return Node{Var: "_:" + tok.text}, p.advance()
		}
		return Node{Term: graph.Blank(tok.text)}, p.advance()
	case tokIRI, tokPName:
		iri, err := p.iri()
		if err != nil {
			return Node{}, err
		}
		return Node{Term: graph.IRI(iri)}, nil
	case tokString:
		return p.literal()
	case tokInteger:
		return Node{Term: graph.TypedLiteral(tok.text, graph.XSDInteger)}, p.advance()
	case tokDecimal:
		return Node{Term: graph.TypedLiteral(tok.text, graph.XSDDecimal)}, p.advance()
	case tokDouble:
		return Node{Term: graph.TypedLiteral(tok.text, xsdNS+"double")}, p.advance()
	case tokKeyword:
		switch tok.text {
		case "true", "false":
			return Node{Term: graph.TypedLiteral(tok.text, graph.XSDBoolean)}, p.advance()
		}
	}
	return Node{}, p.errorf("unexpected %s %q", tok.kind, tok.text)
}

func (p *parser) literal() (Node, error) {
	lexical := p.tok.text
	if err := p.advance(); err != nil {
		return Node{}, err
	}
	switch p.tok.kind {
	case tokLangTag:
		lang := p.tok.text
		return Node{Term: graph.LangLiteral(lexical, lang)}, p.advance()
	case tokDatatypeMark:
		if err := p.advance(); err != nil {
			return Node{}, err
		}
		dt, err := p.iri()
		if err != nil {
			return Node{}, err
		}
		return Node{Term: graph.TypedLiteral(lexical, dt)}, nil
	default:
		return Node{Term: graph.Literal(lexical)}, nil
	}
}

// iri consumes an IRI or prefixed name and returns the full IRI.
func (p *parser) iri() (string, error) {
	tok := p.tok
	switch tok.kind {
	case tokIRI:
		return tok.text, p.advance()
	case tokPName:
		prefix, local, _ := strings.Cut(tok.text, ":")
		ns, ok := p.prefixes[prefix]
		if !ok {
			return "", p.errorf("undefined prefix %q", prefix)
		}
		return ns + local, p.advance()
	default:
		return "", p.errorf("expected IRI, found %s %q", tok.kind, tok.text)
	}
}

// ground converts a variable-free pattern to a statement.
func ground(p Pattern) (graph.Quad, bool) {
	if p.S.IsVar() || p.P.IsVar() || p.O.IsVar() {
		return graph.Quad{}, false
	}
	return graph.NewQuad(p.S.Term, p.P.Term, p.O.Term), true
}
