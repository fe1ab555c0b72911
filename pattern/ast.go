package pattern

import (
	"strconv"
	"time"
)

// Node is any node of a parsed STIX pattern tree.
// The set of implementations is closed: *Comparison, *CompositeComparison,
// *CompositePattern and *QualifiedPattern.
type Node interface {
	// String returns the canonical pattern text for the node.
	String() string
	node()
}

// PatternExpression is the root of a parsed pattern. It is one of
// *Comparison, *CompositeComparison, *CompositePattern or *QualifiedPattern.
type PatternExpression interface {
	Node
	patternExpression()
}

// ComparisonExpression is the content of a single bracketed observation
// expression: a *Comparison or a *CompositeComparison.
type ComparisonExpression interface {
	PatternExpression
	comparisonExpression()
}

// ComparisonOp enumerates the binary comparison operators.
type ComparisonOp int

const (
	// OpEqual is "=" (also written "==")
	OpEqual ComparisonOp = iota + 1
	// OpNotEqual is "!=" (also written "<>")
	OpNotEqual
	// OpGreater is ">"
	OpGreater
	// OpLess is "<"
	OpLess
	// OpGreaterEqual is ">="
	OpGreaterEqual
	// OpLessEqual is "<="
	OpLessEqual
	// OpIn is "IN" and always takes a ConstantList operand
	OpIn
	// OpLike is "LIKE"
	OpLike
	// OpMatches is "MATCHES"
	OpMatches
	// OpIsSubset is "ISSUBSET"
	OpIsSubset
	// OpIsSuperset is "ISSUPERSET"
	OpIsSuperset
)

// String returns the operator as it is written in pattern text.
func (op ComparisonOp) String() string {
	switch op {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpGreater:
		return ">"
	case OpLess:
		return "<"
	case OpGreaterEqual:
		return ">="
	case OpLessEqual:
		return "<="
	case OpIn:
		return "IN"
	case OpLike:
		return "LIKE"
	case OpMatches:
		return "MATCHES"
	case OpIsSubset:
		return "ISSUBSET"
	case OpIsSuperset:
		return "ISSUPERSET"
	default:
		return "UNKNOWN"
	}
}

// UnaryOp enumerates the unary comparison operators. EXISTS is the only one.
type UnaryOp int

const (
	// OpExists is "EXISTS"
	OpExists UnaryOp = iota + 1
)

// String returns the operator keyword.
func (op UnaryOp) String() string {
	if op == OpExists {
		return "EXISTS"
	}
	return "UNKNOWN"
}

// Operator is either a ComparisonOp or a UnaryOp.
type Operator interface {
	String() string
	operator()
}

func (ComparisonOp) operator() {}
func (UnaryOp) operator()      {}

// BooleanOp combines comparisons inside one observation expression.
type BooleanOp int

const (
	// BoolAnd is "AND"
	BoolAnd BooleanOp = iota + 1
	// BoolOr is "OR"
	BoolOr
)

// String returns the keyword for the operator.
func (op BooleanOp) String() string {
	switch op {
	case BoolAnd:
		return "AND"
	case BoolOr:
		return "OR"
	default:
		return "UNKNOWN"
	}
}

// ObservationOp combines whole observation expressions.
type ObservationOp int

const (
	// ObsAnd is "AND"
	ObsAnd ObservationOp = iota + 1
	// ObsOr is "OR"
	ObsOr
	// ObsFollowedBy is "FOLLOWEDBY"
	ObsFollowedBy
)

// String returns the keyword for the operator.
func (op ObservationOp) String() string {
	switch op {
	case ObsAnd:
		return "AND"
	case ObsOr:
		return "OR"
	case ObsFollowedBy:
		return "FOLLOWEDBY"
	default:
		return "UNKNOWN"
	}
}

// IndexKind tells which of the three index states a PathComponent is in.
type IndexKind int

const (
	// IndexNone means the component is not indexed
	IndexNone IndexKind = iota
	// IndexPosition means a fixed, non-negative list position
	IndexPosition
	// IndexWildcard means "[*]", any list position
	IndexWildcard
)

// Index is the optional list index of a PathComponent.
// The zero value is IndexNone.
type Index struct {
	Kind     IndexKind
	Position int
}

// PositionIndex returns an index selecting list element n.
func PositionIndex(n int) Index {
	return Index{Kind: IndexPosition, Position: n}
}

// WildcardIndex returns the "[*]" index.
func WildcardIndex() Index {
	return Index{Kind: IndexWildcard}
}

// IsSet reports whether the component carries any index.
func (i Index) IsSet() bool {
	return i.Kind != IndexNone
}

// String returns "*" for a wildcard, the decimal position for a fixed
// index and "" when no index is set.
func (i Index) String() string {
	switch i.Kind {
	case IndexPosition:
		return strconv.Itoa(i.Position)
	case IndexWildcard:
		return "*"
	default:
		return ""
	}
}

// PathComponent is one step of an object path: a property name with an
// optional list index.
type PathComponent struct {
	Property string
	Index    Index
}

// ObjectPath is "object_type:a.b[3].c". PropertyPath is never empty.
type ObjectPath struct {
	ObjectType   string
	PropertyPath []PathComponent
}

// String returns the path in canonical pattern syntax.
func (p ObjectPath) String() string {
	var w printer
	w.path(p)
	return w.String()
}

// Comparison is a single property test. Operand is nil iff Op is a
// UnaryOp, and is a ConstantList iff Op is OpIn.
type Comparison struct {
	Path    ObjectPath
	Op      Operator
	Operand Operand
	Negated bool
}

// CompositeComparison is a boolean combination of comparisons inside one
// pair of brackets.
type CompositeComparison struct {
	Left  ComparisonExpression
	Op    BooleanOp
	Right ComparisonExpression
}

// CompositePattern combines two observation expressions.
type CompositePattern struct {
	Left  PatternExpression
	Op    ObservationOp
	Right PatternExpression
}

// QualifiedPattern attaches REPEATS, WITHIN and START/STOP qualifiers to a
// pattern. A zero Repeat or Within means the qualifier is absent; Start and
// Stop are either both zero or both set with Start before Stop.
type QualifiedPattern struct {
	Pattern PatternExpression
	Repeat  int
	Within  float64
	Start   time.Time
	Stop    time.Time
}

// HasRepeat reports whether a REPEATS qualifier is present.
func (q *QualifiedPattern) HasRepeat() bool { return q.Repeat > 0 }

// HasWithin reports whether a WITHIN qualifier is present.
func (q *QualifiedPattern) HasWithin() bool { return q.Within > 0 }

// HasInterval reports whether a START/STOP qualifier is present.
func (q *QualifiedPattern) HasInterval() bool { return !q.Stop.IsZero() }

func (*Comparison) node()          {}
func (*CompositeComparison) node() {}
func (*CompositePattern) node()    {}
func (*QualifiedPattern) node()    {}

func (*Comparison) patternExpression()          {}
func (*CompositeComparison) patternExpression() {}
func (*CompositePattern) patternExpression()    {}
func (*QualifiedPattern) patternExpression()    {}

func (*Comparison) comparisonExpression()          {}
func (*CompositeComparison) comparisonExpression() {}

func (c *Comparison) String() string          { return Format(c) }
func (c *CompositeComparison) String() string { return Format(c) }
func (c *CompositePattern) String() string    { return Format(c) }
func (q *QualifiedPattern) String() string    { return Format(q) }
