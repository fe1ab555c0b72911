package pattern

import (
	"fmt"
	"strconv"
)

// MaxDepth bounds how deeply brackets and parentheses may nest. Deeper
// input is rejected with a ParseError at the opening token.
const MaxDepth = 1000

// Parse parses a complete STIX pattern and returns its root node.
//
// The grammar, from loosest to tightest binding:
//
//	pattern      := obsOr
//	obsOr        := obsAnd ('OR' obsAnd)*
//	obsAnd       := obsFollowed ('AND' obsFollowed)*
//	obsFollowed  := unit ('FOLLOWEDBY' unit)*
//	unit         := ('[' compOr ']' | '(' obsOr ')') qualifier*
//	compOr       := compAnd ('OR' compAnd)*
//	compAnd      := compUnary ('AND' compUnary)*
//	compUnary    := '(' compOr ')' | comparison
//
// All binary operators are left-associative. The whole input must be
// consumed; the returned error is a *LexError, *LiteralError or *ParseError.
func Parse(text string) (PatternExpression, error) {
	p, err := newParser(text)
	if err != nil {
		return nil, err
	}
	expr, err := p.parseObservationOr()
	if err != nil {
		return nil, err
	}
	if p.tok.Type != TokenEOF {
		perr := p.errorf("end of input", "")
		if p.tok.Type == TokenIdent {
			perr.Suggestion = suggestKeyword(p.tok.Text,
				TokenAnd, TokenOr, TokenFollowedBy, TokenRepeats, TokenWithin, TokenStart)
		}
		return nil, perr
	}
	return expr, nil
}

// MustParse is like Parse but panics on error. It simplifies
// initialization of tables of known-good patterns.
func MustParse(text string) PatternExpression {
	expr, err := Parse(text)
	if err != nil {
		panic(fmt.Sprintf("pattern: Parse(%q): %v", text, err))
	}
	return expr
}

// parser is a recursive-descent parser with a single token of lookahead.
type parser struct {
	src   string
	lex   *Lexer
	tok   Token
	depth int
}

func newParser(src string) (*parser, error) {
	p := &parser{src: src, lex: NewLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

// advance moves to the next token.
func (p *parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

// enter records one more level of nesting at the current '(' or '['.
// Callers pair it with leave.
func (p *parser) enter() error {
	if p.depth >= MaxDepth {
		return p.errorf("shallower nesting", "nesting deeper than "+strconv.Itoa(MaxDepth)+" levels")
	}
	p.depth++
	return nil
}

func (p *parser) leave() { p.depth-- }

// check reports whether the current token has type tt.
func (p *parser) check(tt TokenType) bool {
	return p.tok.Type == tt
}

// accept consumes the current token if it has type tt.
func (p *parser) accept(tt TokenType) (bool, error) {
	if !p.check(tt) {
		return false, nil
	}
	return true, p.advance()
}

// expect consumes a token of type tt or fails with a ParseError.
func (p *parser) expect(tt TokenType, context string) (Token, error) {
	if !p.check(tt) {
		return Token{}, p.errorf(tt.String(), context)
	}
	tok := p.tok
	return tok, p.advance()
}

// errorf builds a ParseError positioned at the current token.
func (p *parser) errorf(expected, context string) *ParseError {
	return p.errorAt(p.tok, expected, context)
}

func (p *parser) errorAt(tok Token, expected, context string) *ParseError {
	return &ParseError{
		Pos:      positionAt(p.src, tok.Offset),
		Found:    tok.describe(),
		Expected: expected,
		Context:  context,
	}
}
