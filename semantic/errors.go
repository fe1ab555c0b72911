package semantic

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSemantic is matched by every *ValidationError through errors.Is.
var ErrSemantic = errors.New("semantic error")

// ErrRegexTimeout is returned by Match when a MATCHES regex runs longer
// than the checker's timeout.
var ErrRegexTimeout = errors.New("regex evaluation timeout")

// Rule names, also used as the "rule" metrics label.
const (
	RuleStringOperand   = "string_operand"
	RuleRegex           = "regex"
	RuleRegexComplexity = "regex_complexity"
	RuleAddress         = "address"
	RuleOrdering        = "ordering"
	RuleListKind        = "list_kind"
	RuleObjectType      = "object_type"
)

// Issue is one semantic problem found in a parsed pattern.
type Issue struct {
	Path    string `json:"path" yaml:"path"`
	Op      string `json:"op,omitempty" yaml:"op,omitempty"`
	Message string `json:"message" yaml:"message"`
	Rule    string `json:"rule" yaml:"rule"`
}

func (i Issue) String() string {
	if i.Op == "" {
		return fmt.Sprintf("%s: %s", i.Path, i.Message)
	}
	return fmt.Sprintf("%s %s: %s", i.Path, i.Op, i.Message)
}

// ValidationError lists every issue found by Check, in source order.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return "semantic error: " + e.Issues[0].String()
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("%d semantic errors: %s", len(e.Issues), strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrSemantic) work.
func (e *ValidationError) Is(target error) bool {
	return target == ErrSemantic
}
