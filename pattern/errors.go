package pattern

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Sentinel errors matched by the concrete error types through errors.Is.
var (
	ErrLex     = errors.New("lex error")
	ErrLiteral = errors.New("literal error")
	ErrParse   = errors.New("parse error")
)

// ErrorKind classifies a parse failure.
type ErrorKind int

const (
	// ErrKindLex is a malformed token, e.g. an unterminated string
	ErrKindLex ErrorKind = iota + 1
	// ErrKindLiteral is a recognized token whose value is malformed
	ErrKindLiteral
	// ErrKindParse is a grammar violation between valid tokens
	ErrKindParse
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrKindLex:
		return "LexError"
	case ErrKindLiteral:
		return "LiteralError"
	case ErrKindParse:
		return "ParseError"
	default:
		return "UnknownError"
	}
}

// Position locates a byte in the pattern text. Offset is 0-based; Line and
// Column are 1-based, with Column counted in runes.
type Position struct {
	Offset int
	Line   int
	Column int
}

// String formats the position as "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// positionAt converts a byte offset of src into a Position.
func positionAt(src string, offset int) Position {
	if offset > len(src) {
		offset = len(src)
	}
	if offset < 0 {
		offset = 0
	}
	before := src[:offset]
	line := strings.Count(before, "\n") + 1
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return Position{
		Offset: offset,
		Line:   line,
		Column: utf8.RuneCountInString(before[lineStart:]) + 1,
	}
}

// Error is implemented by every error returned from Parse.
type Error interface {
	error
	Kind() ErrorKind
	Position() Position
}

// LexError reports text that cannot be split into tokens.
type LexError struct {
	// Pos is where the offending character or token starts
	Pos Position
	// Char is the offending character, zero for unterminated constructs
	Char rune
	// Reason describes the failure
	Reason string
}

// Error implements the error interface.
func (e *LexError) Error() string {
	if e.Char != 0 {
		return fmt.Sprintf("lex error at %s: %s %q", e.Pos, e.Reason, e.Char)
	}
	return fmt.Sprintf("lex error at %s: %s", e.Pos, e.Reason)
}

// Kind returns ErrKindLex.
func (e *LexError) Kind() ErrorKind { return ErrKindLex }

// Position returns where the error occurred.
func (e *LexError) Position() Position { return e.Pos }

// Is matches ErrLex and any LexError at the same offset.
func (e *LexError) Is(target error) bool {
	if target == ErrLex {
		return true
	}
	t, ok := target.(*LexError)
	return ok && t.Pos.Offset == e.Pos.Offset
}

// LiteralError reports a literal token whose value cannot be decoded.
type LiteralError struct {
	Pos Position
	// Literal is the kind of constant being decoded
	Literal ConstantKind
	// Text is the literal as written in the source
	Text string
	// Reason describes the failure
	Reason string
	// Err is the underlying conversion error, if any
	Err error
}

// Error implements the error interface.
func (e *LiteralError) Error() string {
	return fmt.Sprintf("literal error at %s: invalid %s %s: %s", e.Pos, e.Literal, e.Text, e.Reason)
}

// Kind returns ErrKindLiteral.
func (e *LiteralError) Kind() ErrorKind { return ErrKindLiteral }

// Position returns where the literal starts.
func (e *LiteralError) Position() Position { return e.Pos }

// Unwrap returns the underlying conversion error.
func (e *LiteralError) Unwrap() error { return e.Err }

// Is matches ErrLiteral and any LiteralError at the same offset.
func (e *LiteralError) Is(target error) bool {
	if target == ErrLiteral {
		return true
	}
	t, ok := target.(*LiteralError)
	return ok && t.Pos.Offset == e.Pos.Offset
}

// ParseError reports tokens that violate the grammar.
type ParseError struct {
	Pos Position
	// Found describes the token that was encountered
	Found string
	// Expected describes what the grammar required at this point
	Expected string
	// Context gives additional detail, may be empty
	Context string
	// Suggestion is an optional "did you mean" hint
	Suggestion string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "parse error at %s: expected %s but found %s", e.Pos, e.Expected, e.Found)
	if e.Context != "" {
		sb.WriteString(" - ")
		sb.WriteString(e.Context)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&sb, " (%s)", e.Suggestion)
	}
	return sb.String()
}

// Kind returns ErrKindParse.
func (e *ParseError) Kind() ErrorKind { return ErrKindParse }

// Position returns where the offending token starts.
func (e *ParseError) Position() Position { return e.Pos }

// Is matches ErrParse and any ParseError at the same offset.
func (e *ParseError) Is(target error) bool {
	if target == ErrParse {
		return true
	}
	t, ok := target.(*ParseError)
	return ok && t.Pos.Offset == e.Pos.Offset
}

// FormatError renders err with the line of src it points at and a caret
// under the offending column. Errors not produced by this package are
// returned as their plain message.
func FormatError(src string, err error) string {
	var perr Error
	if !errors.As(err, &perr) {
		return err.Error()
	}
	pos := perr.Position()
	lines := strings.Split(src, "\n")
	if pos.Line < 1 || pos.Line > len(lines) {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")
	lineNum := fmt.Sprintf("%d", pos.Line)
	fmt.Fprintf(&sb, "  %s | %s\n", lineNum, lines[pos.Line-1])
	fmt.Fprintf(&sb, "  %s | %s^\n", strings.Repeat(" ", len(lineNum)), strings.Repeat(" ", pos.Column-1))
	return sb.String()
}
