package descriptor

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/swayhq/sway/internal/types"
)

/*
 * Type expression parser.
 *
 * Grammar (| binds loosest, postfix [] tightest):
 *
 *   expr    := inter ('|' inter)*
 *   inter   := postfix ('&' postfix)*
 *   postfix := primary ('[' ']')*
 *   primary := ident
 *            | ident '<' literal '>'      annotation marker, or Array<expr>
 *            | '(' expr ')'
 *
 * Primitive identifiers: string, number, boolean, any, unknown. Other
 * identifiers are resolved against the catalog into enum or object
 * references. Annotation literals are kept as raw text; the compiler owns
 * their grammar.
 */

// ParseType parses a type expression written in source.
func (c *Catalog) ParseType(source, expr string) (*Descriptor, error) {
	p := &exprParser{catalog: c, source: source, input: expr}
	d, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return nil, p.errorf("unexpected %q", p.input[p.pos:])
	}
	return d, nil
}

type exprParser struct {
	catalog *Catalog
	source  string
	input   string
	pos     int
}

func (p *exprParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d in %q", types.ErrInvalidTypeExpression,
		fmt.Sprintf(format, args...), p.pos, p.input)
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) parseUnion() (*Descriptor, error) {
	first, err := p.parseIntersection()
	if err != nil {
		return nil, err
	}
	branches := []*Descriptor{first}
	for p.peek() == '|' {
		p.pos++
		next, err := p.parseIntersection()
		if err != nil {
			return nil, err
		}
		branches = append(branches, next)
	}
	return Union(branches...), nil
}

func (p *exprParser) parseIntersection() (*Descriptor, error) {
	first, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	branches := []*Descriptor{first}
	for p.peek() == '&' {
		p.pos++
		next, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		branches = append(branches, next)
	}
	return Intersection(branches...), nil
}

func (p *exprParser) parsePostfix() (*Descriptor, error) {
	d, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peek() == '[' {
		p.pos++
		if p.peek() != ']' {
			return nil, p.errorf("expected ]")
		}
		p.pos++
		d = Array(d)
	}
	return d, nil
}

func (p *exprParser) parsePrimary() (*Descriptor, error) {
	switch c := p.peek(); {
	case c == 0:
		return nil, p.errorf("unexpected end of expression")
	case c == '(':
		p.pos++
		d, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		if p.peek() != ')' {
			return nil, p.errorf("expected )")
		}
		p.pos++
		return d, nil
	case isIdentStart(c):
		name := p.ident()
		if p.peek() == '<' {
			return p.parseGeneric(name)
		}
		return p.resolve(name), nil
	default:
		return nil, p.errorf("unexpected %q", string(c))
	}
}

func (p *exprParser) ident() string {
	start := p.pos
	for p.pos < len(p.input) && isIdentPart(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

// parseGeneric handles name<...>. Array<T> is array sugar; anything else is
// an annotation marker whose literal is scanned up to the matching '>'.
func (p *exprParser) parseGeneric(name string) (*Descriptor, error) {
	open := p.pos
	p.pos++

	if name == "Array" {
		elem, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		if p.peek() != '>' {
			return nil, p.errorf("expected >")
		}
		p.pos++
		return Array(elem), nil
	}

	depth := 1
	var quote byte
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		switch {
		case quote != 0:
			if c == '\\' {
				p.pos++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '<':
			depth++
		case c == '>':
			depth--
			if depth == 0 {
				p.pos++
				return Annotation(name + p.input[open:p.pos]), nil
			}
		}
		p.pos++
	}
	p.pos = open
	return nil, p.errorf("unterminated annotation %s<", name)
}

func (p *exprParser) resolve(name string) *Descriptor {
	switch name {
	case "string":
		return String()
	case "number":
		return Number()
	case "boolean":
		return Boolean()
	case "any", "unknown":
		return Any()
	}
	return p.catalog.Resolve(p.source, name)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '.' || c == '/' || c == '-'
}

// SplitTopLevel splits s on sep where sep is outside brackets and quotes.
// Used for struct tags that list several expressions.
func SplitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '<' || c == '(' || c == '[':
			depth++
		case c == '>' || c == ')' || c == ']':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}
