package pattern

import (
	"strings"
	"unicode/utf8"
)

// Lexer splits pattern text into tokens on demand. The zero value is not
// usable; create one with NewLexer. A Lexer is not safe for concurrent use,
// but independent lexers share no state.
type Lexer struct {
	src string
	pos int
}

// NewLexer returns a lexer positioned at the start of src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src}
}

// Tokenize lexes the whole of src. The returned slice always ends with a
// TokenEOF token when err is nil.
func Tokenize(src string) ([]Token, error) {
	l := NewLexer(src)
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// Next returns the next token. Once the end of input is reached every
// further call returns TokenEOF.
func (l *Lexer) Next() (Token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return Token{}, err
	}
	if l.pos >= len(l.src) {
		return Token{Type: TokenEOF, Offset: len(l.src), End: len(l.src)}, nil
	}

	start := l.pos
	c := l.src[l.pos]
	switch c {
	case '[':
		return l.punct(TokenLBracket, 1), nil
	case ']':
		return l.punct(TokenRBracket, 1), nil
	case '(':
		return l.punct(TokenLParen, 1), nil
	case ')':
		return l.punct(TokenRParen, 1), nil
	case ':':
		return l.punct(TokenColon, 1), nil
	case ',':
		return l.punct(TokenComma, 1), nil
	case '*':
		return l.punct(TokenStar, 1), nil
	case '.':
		if isDigit(l.peekByte(1)) {
			return l.number(start)
		}
		return l.punct(TokenDot, 1), nil
	case '=':
		if l.peekByte(1) == '=' {
			return l.punct(TokenEq, 2), nil
		}
		return l.punct(TokenEq, 1), nil
	case '!':
		if l.peekByte(1) == '=' {
			return l.punct(TokenNeq, 2), nil
		}
	case '<':
		switch l.peekByte(1) {
		case '=':
			return l.punct(TokenLe, 2), nil
		case '>':
			return l.punct(TokenNeq, 2), nil
		}
		return l.punct(TokenLt, 1), nil
	case '>':
		if l.peekByte(1) == '=' {
			return l.punct(TokenGe, 2), nil
		}
		return l.punct(TokenGt, 1), nil
	case '\'':
		return l.quoted(start, TokenString, 0)
	case '+', '-':
		next := l.peekByte(1)
		if isDigit(next) || (next == '.' && isDigit(l.peekByte(2))) {
			return l.number(start)
		}
	}

	if isDigit(c) {
		return l.number(start)
	}
	if isIdentStart(c) {
		return l.word(start)
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return Token{}, &LexError{
		Pos:    positionAt(l.src, start),
		Char:   r,
		Reason: "unexpected character",
	}
}

func (l *Lexer) peekByte(ahead int) byte {
	if l.pos+ahead < len(l.src) {
		return l.src[l.pos+ahead]
	}
	return 0
}

func (l *Lexer) punct(tt TokenType, width int) Token {
	start := l.pos
	l.pos += width
	return Token{Type: tt, Text: l.src[start:l.pos], Offset: start, End: l.pos}
}

func (l *Lexer) skipSpaceAndComments() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			l.pos++
		case c == '/' && l.peekByte(1) == '*':
			end := indexFrom(l.src, "*/", l.pos+2)
			if end < 0 {
				return &LexError{Pos: positionAt(l.src, l.pos), Reason: "unterminated block comment"}
			}
			l.pos = end + 2
		case c == '/' && l.peekByte(1) == '/':
			end := indexFrom(l.src, "\n", l.pos+2)
			if end < 0 {
				l.pos = len(l.src)
			} else {
				l.pos = end + 1
			}
		default:
			return nil
		}
	}
	return nil
}

// word scans an identifier, keyword, boolean or the prefix of a typed
// literal such as t'...'.
func (l *Lexer) word(start int) (Token, error) {
	l.pos++
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	text := l.src[start:l.pos]

	if len(text) == 1 && l.peekByte(0) == '\'' {
		switch text {
		case "t":
			return l.quoted(start, TokenTimestamp, 1)
		case "h":
			return l.quoted(start, TokenHex, 1)
		case "b":
			return l.quoted(start, TokenBinary, 1)
		}
	}

	tok := Token{Type: lookupKeyword(text), Text: text, Offset: start, End: l.pos}
	if tok.Type == TokenBool {
		tok.Value = decodeBool(text)
	}
	return tok, nil
}

// number scans an integer or float literal with an optional sign.
func (l *Lexer) number(start int) (Token, error) {
	if c := l.src[l.pos]; c == '+' || c == '-' {
		l.pos++
	}
	isFloat := false
	l.digits()
	if l.peekByte(0) == '.' && isDigit(l.peekByte(1)) {
		isFloat = true
		l.pos++
		l.digits()
	}
	if e := l.peekByte(0); e == 'e' || e == 'E' {
		next := l.peekByte(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekByte(2))) {
			isFloat = true
			l.pos += 2
			l.digits()
		}
	}

	text := l.src[start:l.pos]
	tok := Token{Type: TokenInt, Text: text, Offset: start, End: l.pos}
	var (
		value Constant
		fault *literalFault
		kind  = KindInt
	)
	if isFloat {
		tok.Type = TokenFloat
		kind = KindFloat
		value, fault = decodeFloat(text)
	} else {
		value, fault = decodeInt(text)
	}
	if fault != nil {
		return Token{}, l.literalError(start, kind, text, fault)
	}
	tok.Value = value
	return tok, nil
}

func (l *Lexer) digits() {
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
}

// quoted scans a single-quoted body starting prefixLen bytes after start
// and decodes it according to tt. A backslash always consumes the byte
// after it so an escaped quote never terminates the literal.
func (l *Lexer) quoted(start int, tt TokenType, prefixLen int) (Token, error) {
	l.pos = start + prefixLen + 1
	for {
		if l.pos >= len(l.src) {
			return Token{}, &LexError{
				Pos:    positionAt(l.src, start),
				Reason: "unterminated " + tt.String() + " literal",
			}
		}
		c := l.src[l.pos]
		if c == '\\' {
			l.pos += 2
			continue
		}
		l.pos++
		if c == '\'' {
			break
		}
	}

	text := l.src[start:l.pos]
	tok := Token{Type: tt, Text: text, Offset: start, End: l.pos}
	var (
		value Constant
		fault *literalFault
		kind  ConstantKind
	)
	switch tt {
	case TokenTimestamp:
		kind = KindTimestamp
		value, fault = decodeTimestamp(text)
	case TokenHex:
		kind = KindHex
		value, fault = decodeHex(text)
	case TokenBinary:
		kind = KindBinary
		value, fault = decodeBinary(text)
	default:
		kind = KindString
		value, fault = decodeString(text)
	}
	if fault != nil {
		return Token{}, l.literalError(start, kind, text, fault)
	}
	tok.Value = value
	return tok, nil
}

func (l *Lexer) literalError(start int, kind ConstantKind, text string, f *literalFault) *LiteralError {
	return &LiteralError{
		Pos:     positionAt(l.src, start+f.at),
		Literal: kind,
		Text:    text,
		Reason:  f.reason,
		Err:     f.err,
	}
}

func indexFrom(s, substr string, from int) int {
	if from > len(s) {
		return -1
	}
	i := strings.Index(s[from:], substr)
	if i < 0 {
		return -1
	}
	return from + i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '-'
}

// isPropertyName reports whether s can be written as a bare property
// name. Keywords qualify, since property names may reuse keyword
// spellings. Hyphens are reserved for object types, so a property
// containing one is always quoted.
func isPropertyName(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] == '-' || !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}
