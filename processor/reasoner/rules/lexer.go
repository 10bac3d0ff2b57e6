package rules

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIRI
	tokPName
	tokVar
	tokBlank
	tokString
	tokLangTag
	tokDatatypeMark
	tokInteger
	tokDecimal
	tokDouble
	tokKeyword
	tokDot
	tokSemicolon
	tokComma
	tokLBrace
	tokRBrace
	tokImplies
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIRI:
		return "IRI"
	case tokPName:
		return "prefixed name"
	case tokVar:
		return "variable"
	case tokBlank:
		return "blank node"
	case tokString:
		return "string"
	case tokLangTag:
		return "language tag"
	case tokDatatypeMark:
		return "'^^'"
	case tokInteger, tokDecimal, tokDouble:
		return "number"
	case tokKeyword:
		return "keyword"
	case tokDot:
		return "'.'"
	case tokSemicolon:
		return "';'"
	case tokComma:
		return "','"
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	case tokImplies:
		return "'=>'"
	default:
		return "token"
	}
}

type token struct {
	kind tokenKind
	text string
	line int
}

// lexer splits an N3 document into tokens.
type lexer struct {
	src  string
	pos  int
	line int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1}
}

func (l *lexer) errorf(format string, args ...any) error {
	return errors.Newf("line %d: "+format, append([]any{l.line}, args...)...)
}

func (l *lexer) peekByte(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: l.line}, nil
	}

	start := l.pos
	c := l.src[l.pos]
	single := func(k tokenKind) (token, error) {
		l.pos++
		return token{kind: k, text: l.src[start:l.pos], line: l.line}, nil
	}

	switch {
	case c == '{':
		return single(tokLBrace)
	case c == '}':
		return single(tokRBrace)
	case c == ';':
		return single(tokSemicolon)
	case c == ',':
		return single(tokComma)
	case c == '.' && !isDigit(l.peekByte(1)):
		return single(tokDot)
	case c == '=' && l.peekByte(1) == '>':
		l.pos += 2
		return token{kind: tokImplies, text: "=>", line: l.line}, nil
	case c == '^' && l.peekByte(1) == '^':
		l.pos += 2
		return token{kind: tokDatatypeMark, text: "^^", line: l.line}, nil
	case c == '<':
		return l.iri()
	case c == '"' || c == '\'':
		return l.str(c)
	case c == '?':
		l.pos++
		name := l.name()
		if name == "" {
			return token{}, l.errorf("empty variable name")
		}
		return token{kind: tokVar, text: name, line: l.line}, nil
	case c == '_' && l.peekByte(1) == ':':
		l.pos += 2
		name := l.name()
		if name == "" {
			return token{}, l.errorf("empty blank node label")
		}
		return token{kind: tokBlank, text: name, line: l.line}, nil
	case c == '@':
		l.pos++
		word := l.name()
		switch word {
		case "prefix", "base":
			return token{kind: tokKeyword, text: "@" + word, line: l.line}, nil
		case "":
			return token{}, l.errorf("empty language tag")
		default:
			return token{kind: tokLangTag, text: word, line: l.line}, nil
		}
	case isDigit(c) || ((c == '+' || c == '-' || c == '.') && (isDigit(l.peekByte(1)) || l.peekByte(1) == '.')):
		return l.number()
	default:
		return l.pname()
	}
}

func (l *lexer) iri() (token, error) {
	l.pos++ // <
	end := strings.IndexByte(l.src[l.pos:], '>')
	if end < 0 {
		return token{}, l.errorf("unterminated IRI")
	}
	iri := l.src[l.pos : l.pos+end]
	if strings.ContainsAny(iri, " \n\t") {
		return token{}, l.errorf("invalid IRI <%s>", iri)
	}
	l.pos += end + 1
	return token{kind: tokIRI, text: iri, line: l.line}, nil
}

func (l *lexer) str(quote byte) (token, error) {
	long := l.peekByte(1) == quote && l.peekByte(2) == quote
	if long {
		l.pos += 3
	} else {
		l.pos++
	}

	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, l.errorf("unterminated string")
		}
		c := l.src[l.pos]
		switch {
		case c == quote && !long:
			l.pos++
			return token{kind: tokString, text: sb.String(), line: l.line}, nil
		case c == quote && long && l.peekByte(1) == quote && l.peekByte(2) == quote:
			l.pos += 3
			return token{kind: tokString, text: sb.String(), line: l.line}, nil
		case c == '\\':
			r, err := l.escape()
			if err != nil {
				return token{}, err
			}
			sb.WriteRune(r)
		case c == '\n' && !long:
			return token{}, l.errorf("newline in string")
		default:
			if c == '\n' {
				l.line++
			}
			sb.WriteByte(c)
			l.pos++
		}
	}
}

func (l *lexer) escape() (rune, error) {
	l.pos++ // backslash
	if l.pos >= len(l.src) {
		return 0, l.errorf("unterminated escape")
	}
	c := l.src[l.pos]
	l.pos++
	switch c {
	case 't':
		return '\t', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case '"', '\'', '\\':
		return rune(c), nil
	case 'u', 'U':
		n := 4
		if c == 'U' {
			n = 8
		}
		if l.pos+n > len(l.src) {
			return 0, l.errorf("short unicode escape")
		}
		var r rune
		for _, h := range l.src[l.pos : l.pos+n] {
			d, ok := hexValue(h)
			if !ok {
				return 0, l.errorf("invalid unicode escape")
			}
			r = r<<4 | d
		}
		l.pos += n
		if !utf8.ValidRune(r) {
			return 0, l.errorf("invalid code point %U", r)
		}
		return r, nil
	default:
		return 0, l.errorf("unknown escape \\%c", c)
	}
}

func (l *lexer) number() (token, error) {
	start := l.pos
	if c := l.src[l.pos]; c == '+' || c == '-' {
		l.pos++
	}
	kind := tokInteger
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case isDigit(c):
			l.pos++
		case c == '.' && isDigit(l.peekByte(1)) && kind == tokInteger:
			kind = tokDecimal
			l.pos++
		case (c == 'e' || c == 'E') && kind != tokDouble:
			kind = tokDouble
			l.pos++
			if s := l.peekByte(0); s == '+' || s == '-' {
				l.pos++
			}
		default:
			return token{kind: kind, text: l.src[start:l.pos], line: l.line}, nil
		}
	}
	return token{kind: kind, text: l.src[start:l.pos], line: l.line}, nil
}

// pname reads a prefixed name or a bare keyword (a, true, false, PREFIX, BASE).
func (l *lexer) pname() (token, error) {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isNameRune(r) && r != ':' && r != '.' {
			break
		}
		l.pos += size
	}
	// A trailing dot ends the statement.
	for l.pos > start && l.src[l.pos-1] == '.' {
		l.pos--
	}

	text := l.src[start:l.pos]
	if text == "" {
		r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
		return token{}, l.errorf("unexpected character %q", r)
	}
	if strings.Contains(text, ":") {
		return token{kind: tokPName, text: text, line: l.line}, nil
	}
	switch text {
	case "a", "true", "false", "PREFIX", "BASE", "prefix", "base":
		return token{kind: tokKeyword, text: text, line: l.line}, nil
	}
	return token{}, l.errorf("unexpected word %q", text)
}

// name reads a variable, blank node or language tag name.
func (l *lexer) name() string {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isNameRune(r) {
			break
		}
		l.pos += size
	}
	return l.src[start:l.pos]
}

func isNameRune(r rune) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func hexValue(r rune) (rune, bool) {
	switch {
	case r >= '0' && r <= '9':
		return r - '0', true
	case r >= 'a' && r <= 'f':
		return r - 'a' + 10, true
	case r >= 'A' && r <= 'F':
		return r - 'A' + 10, true
	default:
		return 0, false
	}
}
