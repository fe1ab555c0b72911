package semantic

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"stixpattern/metrics"
	"stixpattern/pattern"
)

// DefaultRegexTimeout bounds a single MATCHES evaluation.
const DefaultRegexTimeout = 100 * time.Millisecond

// Checker runs operand and vocabulary checks over parsed patterns. A
// Checker is immutable after construction and safe for concurrent use.
type Checker struct {
	knownTypesOnly bool
	regexTimeout   time.Duration
}

// Option configures a Checker.
type Option func(*Checker)

// WithKnownTypesOnly rejects object types outside the STIX 2.1 vocabulary.
func WithKnownTypesOnly() Option {
	return func(c *Checker) { c.knownTypesOnly = true }
}

// WithRegexTimeout sets the MatchTimeout of compiled MATCHES regexps.
// Non-positive values keep the default.
func WithRegexTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.regexTimeout = d
		}
	}
}

// NewChecker returns a Checker with the given options applied.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{regexTimeout: DefaultRegexTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check inspects every comparison in expr. It returns nil or a
// *ValidationError holding all issues found.
func (c *Checker) Check(expr pattern.PatternExpression) error {
	var issues []Issue
	for _, cmp := range pattern.Comparisons(expr) {
		issues = append(issues, c.checkComparison(cmp)...)
	}
	if len(issues) == 0 {
		return nil
	}
	for _, issue := range issues {
		metrics.RecordSemanticIssue(issue.Rule)
	}
	return &ValidationError{Issues: issues}
}

// Regex compiles the MATCHES operand of cmp with the checker's timeout.
func (c *Checker) Regex(cmp *pattern.Comparison) (*regexp2.Regexp, error) {
	if cmp.Op != pattern.OpMatches {
		return nil, fmt.Errorf("%s is not a MATCHES comparison", cmp.Path)
	}
	s, ok := cmp.Operand.(pattern.StringConstant)
	if !ok {
		return nil, fmt.Errorf("MATCHES operand must be a string, got %s", kindOf(cmp.Operand))
	}
	return c.compile(string(s))
}

func (c *Checker) compile(expr string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(expr, regexp2.None)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = c.regexTimeout
	return re, nil
}

// Match runs re against input, mapping a regexp2 timeout to ErrRegexTimeout.
func Match(re *regexp2.Regexp, input string) (bool, error) {
	ok, err := re.MatchString(input)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "timeout") {
			return false, ErrRegexTimeout
		}
		return false, fmt.Errorf("regex matching error: %w", err)
	}
	return ok, nil
}

func (c *Checker) checkComparison(cmp *pattern.Comparison) []Issue {
	var issues []Issue
	add := func(rule, format string, args ...interface{}) {
		issues = append(issues, Issue{
			Path:    cmp.Path.String(),
			Op:      cmp.Op.String(),
			Message: fmt.Sprintf(format, args...),
			Rule:    rule,
		})
	}

	if c.knownTypesOnly && !IsKnownObjectType(cmp.Path.ObjectType) {
		add(RuleObjectType, "unknown object type %q", cmp.Path.ObjectType)
	}

	op, ok := cmp.Op.(pattern.ComparisonOp)
	if !ok {
		return issues
	}

	switch op {
	case pattern.OpLike, pattern.OpMatches, pattern.OpIsSubset, pattern.OpIsSuperset:
		s, isString := cmp.Operand.(pattern.StringConstant)
		if !isString {
			add(RuleStringOperand, "operand must be a string, got %s", kindOf(cmp.Operand))
			break
		}
		switch op {
		case pattern.OpMatches:
			if _, err := c.compile(string(s)); err != nil {
				add(RuleRegex, "invalid regular expression: %v", err)
			} else if err := regexComplexity(string(s)); err != nil {
				add(RuleRegexComplexity, "%v", err)
			}
		case pattern.OpIsSubset, pattern.OpIsSuperset:
			if !isAddressOrPrefix(string(s)) {
				add(RuleAddress, "%q is not an IP address or CIDR block", string(s))
			}
		}
	case pattern.OpGreater, pattern.OpLess, pattern.OpGreaterEqual, pattern.OpLessEqual:
		if k, ok := cmp.Operand.(pattern.Constant); ok && !isOrdered(k.Kind()) {
			add(RuleOrdering, "%s values cannot be ordered", k.Kind())
		}
	case pattern.OpIn:
		list, _ := cmp.Operand.(pattern.ConstantList)
		if len(list) > 0 {
			first := numericClass(list[0].Kind())
			for _, item := range list[1:] {
				if numericClass(item.Kind()) != first {
					add(RuleListKind, "list mixes %s and %s values", list[0].Kind(), item.Kind())
					break
				}
			}
		}
	}
	return issues
}

func isOrdered(k pattern.ConstantKind) bool {
	switch k {
	case pattern.KindBool, pattern.KindHex, pattern.KindBinary:
		return false
	default:
		return true
	}
}

// numericClass folds int and float into one class for list homogeneity.
func numericClass(k pattern.ConstantKind) pattern.ConstantKind {
	if k == pattern.KindInt {
		return pattern.KindFloat
	}
	return k
}

func isAddressOrPrefix(s string) bool {
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

func kindOf(op pattern.Operand) string {
	switch v := op.(type) {
	case nil:
		return "nothing"
	case pattern.ConstantList:
		return "a list"
	case pattern.Constant:
		return v.Kind().String()
	default:
		return "unknown"
	}
}
