package semantic

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Limits applied to MATCHES operands before they reach the regex engine.
const (
	// MaxRegexLength is the maximum allowed regex pattern length
	MaxRegexLength = 500
	// MaxRegexAlternations caps "|" branches
	MaxRegexAlternations = 50
	// MaxRegexRepetition caps the lower bound of a {n,m} quantifier
	MaxRegexRepetition = 1000
)

var repetitionRe = regexp.MustCompile(`\{(\d+)(?:,\d*)?\}`)

// regexComplexity flags regexes likely to backtrack catastrophically.
func regexComplexity(expr string) error {
	if len(expr) > MaxRegexLength {
		return fmt.Errorf("regex too long: %d characters (max %d)", len(expr), MaxRegexLength)
	}
	if n := strings.Count(expr, "|"); n > MaxRegexAlternations {
		return fmt.Errorf("too many alternations: %d (max %d)", n, MaxRegexAlternations)
	}
	for _, m := range repetitionRe.FindAllStringSubmatch(expr, -1) {
		if n, err := strconv.Atoi(m[1]); err != nil || n >= MaxRegexRepetition {
			return fmt.Errorf("excessive repetition: %s (max %d)", m[0], MaxRegexRepetition-1)
		}
	}
	return nestedQuantifier(expr)
}

// nestedQuantifier reports a repeated group whose body is itself repeated,
// such as (a+)+ or (\w*)*.
func nestedQuantifier(expr string) error {
	type group struct {
		start      int
		quantified bool
	}
	var stack []group
	markTop := func() {
		if len(stack) > 0 {
			stack[len(stack)-1].quantified = true
		}
	}

	inClass := false
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case c == '\\':
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
		case c == '(':
			stack = append(stack, group{start: i})
		case c == ')':
			if len(stack) == 0 {
				continue
			}
			g := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			repeated := unboundedAt(expr, i+1)
			if g.quantified && repeated {
				return fmt.Errorf("nested quantifier %q may cause catastrophic backtracking", expr[g.start:quantifierEnd(expr, i+1)])
			}
			if g.quantified || repeated {
				markTop()
			}
		case c == '*' || c == '+':
			markTop()
		case c == '{':
			if unboundedAt(expr, i) {
				markTop()
			}
		}
	}
	return nil
}

// unboundedAt reports whether expr[i:] starts with *, + or {n,}.
func unboundedAt(expr string, i int) bool {
	if i >= len(expr) {
		return false
	}
	switch expr[i] {
	case '*', '+':
		return true
	case '{':
		end := strings.IndexByte(expr[i:], '}')
		return end > 0 && strings.HasSuffix(expr[i:i+end], ",")
	}
	return false
}

func quantifierEnd(expr string, i int) int {
	if i < len(expr) && expr[i] == '{' {
		if end := strings.IndexByte(expr[i:], '}'); end > 0 {
			return i + end + 1
		}
	}
	return i + 1
}
