package pattern

import (
	"strconv"
	"strings"
	"time"
)

// timestampLayout renders timestamps in the only form the lexer accepts.
const timestampLayout = "2006-01-02T15:04:05.999999999Z"

// Format renders node as canonical pattern text: upper-case keywords,
// single spaces, and only the parentheses the precedence rules require.
// Parsing the result yields a tree equal to node.
func Format(node Node) string {
	var w printer
	switch n := node.(type) {
	case ComparisonExpression:
		// A bare comparison at the root is an observation expression.
		w.WriteByte('[')
		w.comparisonExpr(n, 0)
		w.WriteByte(']')
	case PatternExpression:
		w.patternExpr(n, 0)
	case nil:
		return ""
	}
	return w.String()
}

// printer accumulates canonical pattern text.
type printer struct {
	strings.Builder
}

// Binding strength of each operator. Higher binds tighter.
const (
	precOr = iota + 1
	precAnd
	precFollowedBy
)

func observationPrec(op ObservationOp) int {
	switch op {
	case ObsOr:
		return precOr
	case ObsAnd:
		return precAnd
	default:
		return precFollowedBy
	}
}

func booleanPrec(op BooleanOp) int {
	if op == BoolOr {
		return precOr
	}
	return precAnd
}

// patternExpr writes e, parenthesized when it binds looser than minPrec.
func (w *printer) patternExpr(e PatternExpression, minPrec int) {
	switch n := e.(type) {
	case ComparisonExpression:
		w.WriteByte('[')
		w.comparisonExpr(n, 0)
		w.WriteByte(']')
	case *CompositePattern:
		prec := observationPrec(n.Op)
		if prec < minPrec {
			w.WriteByte('(')
			defer w.WriteByte(')')
		}
		w.patternExpr(n.Left, prec)
		w.WriteByte(' ')
		w.WriteString(n.Op.String())
		w.WriteByte(' ')
		// Left-associative: an equal-precedence right operand needs parens.
		w.patternExpr(n.Right, prec+1)
	case *QualifiedPattern:
		w.qualified(n)
	}
}

// qualified writes a qualified unit. Qualifiers attach to the preceding
// bracket or group, so anything but a plain observation is parenthesized.
func (w *printer) qualified(q *QualifiedPattern) {
	switch inner := q.Pattern.(type) {
	case ComparisonExpression:
		w.patternExpr(inner, 0)
	default:
		w.WriteByte('(')
		w.patternExpr(inner, 0)
		w.WriteByte(')')
	}
	if q.HasRepeat() {
		w.WriteString(" REPEATS ")
		w.WriteString(strconv.Itoa(q.Repeat))
		w.WriteString(" TIMES")
	}
	if q.HasWithin() {
		w.WriteString(" WITHIN ")
		w.WriteString(formatFloat(q.Within))
		w.WriteString(" SECONDS")
	}
	if q.HasInterval() {
		w.WriteString(" START ")
		w.timestamp(q.Start)
		w.WriteString(" STOP ")
		w.timestamp(q.Stop)
	}
}

// comparisonExpr writes e, parenthesized when it binds looser than minPrec.
func (w *printer) comparisonExpr(e ComparisonExpression, minPrec int) {
	switch n := e.(type) {
	case *Comparison:
		w.comparison(n)
	case *CompositeComparison:
		prec := booleanPrec(n.Op)
		if prec < minPrec {
			w.WriteByte('(')
			defer w.WriteByte(')')
		}
		w.comparisonExpr(n.Left, prec)
		w.WriteByte(' ')
		w.WriteString(n.Op.String())
		w.WriteByte(' ')
		w.comparisonExpr(n.Right, prec+1)
	}
}

func (w *printer) comparison(c *Comparison) {
	if c.Negated {
		w.WriteString("NOT ")
	}
	w.path(c.Path)
	w.WriteByte(' ')
	w.WriteString(c.Op.String())
	if c.Operand != nil {
		w.WriteByte(' ')
		w.operand(c.Operand)
	}
}

// path writes "type:a.b[0].'c d'".
func (w *printer) path(p ObjectPath) {
	w.WriteString(p.ObjectType)
	w.WriteByte(':')
	for i, comp := range p.PropertyPath {
		if i > 0 {
			w.WriteByte('.')
		}
		if isPropertyName(comp.Property) {
			w.WriteString(comp.Property)
		} else {
			w.quote(comp.Property)
		}
		if comp.Index.IsSet() {
			w.WriteByte('[')
			w.WriteString(comp.Index.String())
			w.WriteByte(']')
		}
	}
}

func (w *printer) operand(o Operand) {
	switch v := o.(type) {
	case ConstantList:
		w.WriteByte('(')
		for i, c := range v {
			if i > 0 {
				w.WriteString(", ")
			}
			w.constant(c)
		}
		w.WriteByte(')')
	case Constant:
		w.constant(v)
	}
}

func (w *printer) constant(c Constant) {
	switch v := c.(type) {
	case StringConstant:
		w.quote(string(v))
	case IntConstant:
		w.WriteString(strconv.FormatInt(int64(v), 10))
	case FloatConstant:
		w.WriteString(formatFloat(float64(v)))
	case BoolConstant:
		w.WriteString(strconv.FormatBool(bool(v)))
	case TimestampConstant:
		w.timestamp(v.Time())
	case HexConstant:
		w.WriteString("h'")
		w.WriteString(string(v))
		w.WriteByte('\'')
	case BinaryConstant:
		w.WriteString("b'")
		w.WriteString(string(v))
		w.WriteByte('\'')
	}
}

// quote writes s as a single-quoted string literal.
func (w *printer) quote(s string) {
	w.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', '\'', '\n':
			w.WriteByte('\\')
			w.WriteByte(c)
		default:
			w.WriteByte(c)
		}
	}
	w.WriteByte('\'')
}

func (w *printer) timestamp(t time.Time) {
	w.WriteString("t'")
	w.WriteString(t.UTC().Format(timestampLayout))
	w.WriteByte('\'')
}

// formatFloat renders f so that it lexes back as a float, never an int.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// formatConstant renders a single constant in pattern syntax.
func formatConstant(c Constant) string {
	var w printer
	w.constant(c)
	return w.String()
}
