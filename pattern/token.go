package pattern

import (
	"fmt"
	"strings"
)

// TokenType is the lexical class of a Token.
type TokenType int

const (
	// TokenEOF marks the end of input
	TokenEOF TokenType = iota
	// TokenIdent is an object type or property name
	TokenIdent
	// TokenString is a quoted string literal
	TokenString
	// TokenInt is an integer literal
	TokenInt
	// TokenFloat is a floating point literal
	TokenFloat
	// TokenBool is true or false
	TokenBool
	// TokenTimestamp is a t'...' literal
	TokenTimestamp
	// TokenHex is an h'...' literal
	TokenHex
	// TokenBinary is a b'...' literal
	TokenBinary

	TokenLBracket
	TokenRBracket
	TokenLParen
	TokenRParen
	TokenColon
	TokenDot
	TokenComma
	TokenStar

	TokenEq
	TokenNeq
	TokenGt
	TokenLt
	TokenGe
	TokenLe

	TokenAnd
	TokenOr
	TokenNot
	TokenFollowedBy
	TokenIn
	TokenLike
	TokenMatches
	TokenIsSubset
	TokenIsSuperset
	TokenExists
	TokenRepeats
	TokenTimes
	TokenWithin
	TokenSeconds
	TokenStart
	TokenStop
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "end of input",
	TokenIdent:      "identifier",
	TokenString:     "string",
	TokenInt:        "integer",
	TokenFloat:      "float",
	TokenBool:       "boolean",
	TokenTimestamp:  "timestamp",
	TokenHex:        "hex string",
	TokenBinary:     "binary string",
	TokenLBracket:   "'['",
	TokenRBracket:   "']'",
	TokenLParen:     "'('",
	TokenRParen:     "')'",
	TokenColon:      "':'",
	TokenDot:        "'.'",
	TokenComma:      "','",
	TokenStar:       "'*'",
	TokenEq:         "'='",
	TokenNeq:        "'!='",
	TokenGt:         "'>'",
	TokenLt:         "'<'",
	TokenGe:         "'>='",
	TokenLe:         "'<='",
	TokenAnd:        "AND",
	TokenOr:         "OR",
	TokenNot:        "NOT",
	TokenFollowedBy: "FOLLOWEDBY",
	TokenIn:         "IN",
	TokenLike:       "LIKE",
	TokenMatches:    "MATCHES",
	TokenIsSubset:   "ISSUBSET",
	TokenIsSuperset: "ISSUPERSET",
	TokenExists:     "EXISTS",
	TokenRepeats:    "REPEATS",
	TokenTimes:      "TIMES",
	TokenWithin:     "WITHIN",
	TokenSeconds:    "SECONDS",
	TokenStart:      "START",
	TokenStop:       "STOP",
}

// String returns a human readable name for the token type.
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return "UNKNOWN"
}

// keywords maps upper-cased spellings to their token type. Keyword lookup
// is case-insensitive.
var keywords = map[string]TokenType{
	"AND":        TokenAnd,
	"OR":         TokenOr,
	"NOT":        TokenNot,
	"FOLLOWEDBY": TokenFollowedBy,
	"IN":         TokenIn,
	"LIKE":       TokenLike,
	"MATCHES":    TokenMatches,
	"ISSUBSET":   TokenIsSubset,
	"ISSUPERSET": TokenIsSuperset,
	"EXISTS":     TokenExists,
	"REPEATS":    TokenRepeats,
	"TIMES":      TokenTimes,
	"WITHIN":     TokenWithin,
	"SECONDS":    TokenSeconds,
	"START":      TokenStart,
	"STOP":       TokenStop,
	"TRUE":       TokenBool,
	"FALSE":      TokenBool,
}

// lookupKeyword returns the keyword token type for word, or TokenIdent.
func lookupKeyword(word string) TokenType {
	if tt, ok := keywords[strings.ToUpper(word)]; ok {
		return tt
	}
	return TokenIdent
}

// isKeyword reports whether word is reserved in any letter case.
func isKeyword(word string) bool {
	return lookupKeyword(word) != TokenIdent
}

// Token is one lexical unit of a pattern.
type Token struct {
	Type TokenType
	// Text is the token exactly as written in the source
	Text string
	// Value is the decoded constant for literal tokens, nil otherwise
	Value Constant
	// Offset is the byte offset of the first character of the token
	Offset int
	// End is the byte offset just past the token
	End int
}

// String returns a debugging representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at offset %d", t.Type, t.Text, t.Offset)
}

// describe returns the token as it should appear in "found ..." messages.
func (t Token) describe() string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenIdent:
		return fmt.Sprintf("identifier %q", t.Text)
	case TokenString, TokenInt, TokenFloat, TokenBool, TokenTimestamp, TokenHex, TokenBinary:
		return fmt.Sprintf("%s %s", t.Type, t.Text)
	default:
		return fmt.Sprintf("%q", t.Text)
	}
}

// isLiteral reports whether the token carries a constant value.
func (t Token) isLiteral() bool {
	return t.Value != nil
}

// comparisonOps maps operator tokens to comparison operators.
var comparisonOps = map[TokenType]ComparisonOp{
	TokenEq:         OpEqual,
	TokenNeq:        OpNotEqual,
	TokenGt:         OpGreater,
	TokenLt:         OpLess,
	TokenGe:         OpGreaterEqual,
	TokenLe:         OpLessEqual,
	TokenIn:         OpIn,
	TokenLike:       OpLike,
	TokenMatches:    OpMatches,
	TokenIsSubset:   OpIsSubset,
	TokenIsSuperset: OpIsSuperset,
}
