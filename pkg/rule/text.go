package rule

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError is returned by Parse for malformed rule text.
type SyntaxError struct {
	Pos  int    // byte offset into the input
	Text string // offending token, if any
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("rule: syntax error at %d near %q: %s", e.Pos, e.Text, e.Msg)
	}
	return fmt.Sprintf("rule: syntax error at %d: %s", e.Pos, e.Msg)
}

// String returns the canonical text of r. Intersection children are
// separated by one space, union children by " : ", complements are written
// #(...), and every intersection or union that appears as a child is
// parenthesized. The empty rule prints as "".
func (r Rule) String() string {
	var sb strings.Builder
	r.write(&sb)
	return sb.String()
}

func (r Rule) write(sb *strings.Builder) {
	switch r.kind {
	case KindLiteral:
		sb.WriteString(strconv.Itoa(r.id))
	case KindIntersection, KindUnion:
		sep := " "
		if r.kind == KindUnion {
			sep = " : "
		}
		for i, c := range r.kids {
			if i > 0 {
				sb.WriteString(sep)
			}
			c.writeChild(sb)
		}
	case KindComplement:
		sb.WriteString("#(")
		r.kids[0].write(sb)
		sb.WriteString(")")
	}
}

func (r Rule) writeChild(sb *strings.Builder) {
	if r.kind == KindIntersection || r.kind == KindUnion {
		sb.WriteString("(")
		r.write(sb)
		sb.WriteString(")")
		return
	}
	r.write(sb)
}

// MarshalText implements encoding.TextMarshaler.
func (r Rule) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rule) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ----------------------------------------------------------------------------
// Parser
// ----------------------------------------------------------------------------

type tokenKind int

const (
	tokInt tokenKind = iota
	tokLParen
	tokRParen
	tokColon
	tokHash
	tokEOF
)

type token struct {
	kind tokenKind
	pos  int
	text string
}

func tokenize(text string) []token {
	var toks []token
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, i, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, i, ")"})
			i++
		case c == ':':
			toks = append(toks, token{tokColon, i, ":"})
			i++
		case c == '#':
			toks = append(toks, token{tokHash, i, "#"})
			i++
		default:
			start := i
			for i < len(text) && !strings.ContainsRune(" \t\n\r():#", rune(text[i])) {
				i++
			}
			toks = append(toks, token{tokInt, start, text[start:i]})
		}
	}
	toks = append(toks, token{tokEOF, len(text), ""})
	return toks
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// Parse reads canonical rule text back into a Rule. It accepts any
// whitespace between tokens. Blank input yields the empty rule.
//
//	union  := inter { ":" inter }
//	inter  := factor { factor }
//	factor := INT | "(" union ")" | "#" "(" union ")"
func Parse(text string) (Rule, error) {
	p := &parser{toks: tokenize(text)}
	if p.peek().kind == tokEOF {
		return Rule{}, nil
	}
	r, err := p.union()
	if err != nil {
		return Rule{}, err
	}
	if t := p.peek(); t.kind != tokEOF {
		msg := "unexpected trailing token"
		if t.kind == tokRParen {
			msg = "unmatched parenthesis"
		}
		return Rule{}, &SyntaxError{Pos: t.pos, Text: t.text, Msg: msg}
	}
	return r, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) Rule {
	r, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return r
}

func (p *parser) union() (Rule, error) {
	first, err := p.inter()
	if err != nil {
		return Rule{}, err
	}
	kids := []Rule{first}
	for p.peek().kind == tokColon {
		p.next()
		r, err := p.inter()
		if err != nil {
			return Rule{}, err
		}
		kids = append(kids, r)
	}
	if len(kids) == 1 {
		return first, nil
	}
	return Rule{kind: KindUnion, kids: kids}, nil
}

func (p *parser) inter() (Rule, error) {
	var kids []Rule
	for {
		switch p.peek().kind {
		case tokInt, tokLParen, tokHash:
			r, err := p.factor()
			if err != nil {
				return Rule{}, err
			}
			kids = append(kids, r)
			continue
		}
		break
	}
	switch len(kids) {
	case 0:
		t := p.peek()
		return Rule{}, &SyntaxError{Pos: t.pos, Text: t.text, Msg: "expected surface number, '(' or '#'"}
	case 1:
		return kids[0], nil
	}
	return Rule{kind: KindIntersection, kids: kids}, nil
}

func (p *parser) factor() (Rule, error) {
	t := p.next()
	switch t.kind {
	case tokInt:
		n, err := strconv.Atoi(t.text)
		if err != nil {
			return Rule{}, &SyntaxError{Pos: t.pos, Text: t.text, Msg: "not an integer surface number"}
		}
		if n == 0 {
			return Rule{}, &SyntaxError{Pos: t.pos, Text: t.text, Msg: "surface number 0 is not allowed"}
		}
		return Rule{kind: KindLiteral, id: n}, nil
	case tokLParen:
		r, err := p.group(t)
		if err != nil {
			return Rule{}, err
		}
		return r, nil
	case tokHash:
		open := p.next()
		if open.kind != tokLParen {
			return Rule{}, &SyntaxError{Pos: open.pos, Text: open.text, Msg: "expected '(' after '#'"}
		}
		r, err := p.group(open)
		if err != nil {
			return Rule{}, err
		}
		return Rule{kind: KindComplement, kids: []Rule{r}}, nil
	}
	return Rule{}, &SyntaxError{Pos: t.pos, Text: t.text, Msg: "unexpected token"}
}

// group parses the body of a parenthesized expression whose '(' has been
// consumed.
func (p *parser) group(open token) (Rule, error) {
	r, err := p.union()
	if err != nil {
		return Rule{}, err
	}
	if c := p.next(); c.kind != tokRParen {
		return Rule{}, &SyntaxError{Pos: open.pos, Text: "(", Msg: "unmatched parenthesis"}
	}
	return r, nil
}
