package pattern

import (
	"encoding/base64"
	"encoding/hex"
	"time"
)

// ConstantKind names the variant held by a Constant.
type ConstantKind int

const (
	KindString ConstantKind = iota + 1
	KindInt
	KindFloat
	KindBool
	KindTimestamp
	KindHex
	KindBinary
)

// String returns the human name used in error messages.
func (k ConstantKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "boolean"
	case KindTimestamp:
		return "timestamp"
	case KindHex:
		return "hex string"
	case KindBinary:
		return "binary string"
	default:
		return "unknown"
	}
}

// Operand is the right-hand side of a Comparison: a single Constant or,
// for IN, a ConstantList.
type Operand interface {
	operand()
}

// Constant is a typed literal value.
type Constant interface {
	Operand
	Kind() ConstantKind
	// String returns the literal in pattern syntax.
	String() string
}

// StringConstant is a quoted string literal with escapes decoded.
type StringConstant string

// IntConstant is a 64-bit signed integer literal.
type IntConstant int64

// FloatConstant is a double precision literal.
type FloatConstant float64

// BoolConstant is true or false.
type BoolConstant bool

// TimestampConstant is a t'...' literal, always in UTC.
type TimestampConstant time.Time

// HexConstant is an h'...' literal. It holds the validated hex digits.
type HexConstant string

// BinaryConstant is a b'...' literal. It holds the validated base64 text.
type BinaryConstant string

// ConstantList is the parenthesized operand of IN. It is never empty.
type ConstantList []Constant

// Time returns the timestamp as a time.Time.
func (t TimestampConstant) Time() time.Time { return time.Time(t) }

// Bytes decodes the hex digits.
func (h HexConstant) Bytes() []byte {
	b, _ := hex.DecodeString(string(h))
	return b
}

// Bytes decodes the base64 payload.
func (b BinaryConstant) Bytes() []byte {
	out, _ := base64.StdEncoding.DecodeString(string(b))
	return out
}

func (StringConstant) Kind() ConstantKind    { return KindString }
func (IntConstant) Kind() ConstantKind       { return KindInt }
func (FloatConstant) Kind() ConstantKind     { return KindFloat }
func (BoolConstant) Kind() ConstantKind      { return KindBool }
func (TimestampConstant) Kind() ConstantKind { return KindTimestamp }
func (HexConstant) Kind() ConstantKind       { return KindHex }
func (BinaryConstant) Kind() ConstantKind    { return KindBinary }

func (s StringConstant) String() string    { return formatConstant(s) }
func (i IntConstant) String() string       { return formatConstant(i) }
func (f FloatConstant) String() string     { return formatConstant(f) }
func (b BoolConstant) String() string      { return formatConstant(b) }
func (t TimestampConstant) String() string { return formatConstant(t) }
func (h HexConstant) String() string       { return formatConstant(h) }
func (b BinaryConstant) String() string    { return formatConstant(b) }

func (StringConstant) operand()    {}
func (IntConstant) operand()       {}
func (FloatConstant) operand()     {}
func (BoolConstant) operand()      {}
func (TimestampConstant) operand() {}
func (HexConstant) operand()       {}
func (BinaryConstant) operand()    {}
func (ConstantList) operand()      {}
