package pattern

// Pattern is a parsed pattern together with the text it was parsed from.
type Pattern struct {
	text string
	root PatternExpression
}

// Compile parses text and wraps the result in a Pattern.
func Compile(text string) (*Pattern, error) {
	root, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return &Pattern{text: text, root: root}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(text string) *Pattern {
	return &Pattern{text: text, root: MustParse(text)}
}

// Root returns the root node.
func (p *Pattern) Root() PatternExpression { return p.root }

// String returns the text the pattern was compiled from.
func (p *Pattern) String() string { return p.text }

// Canonical returns the canonical rendering of the pattern.
func (p *Pattern) Canonical() string { return Format(p.root) }

// Comparisons returns every comparison in source order.
func (p *Pattern) Comparisons() []*Comparison { return Comparisons(p.root) }

// ObjectTypes returns the distinct object types the pattern refers to.
func (p *Pattern) ObjectTypes() []string { return ObjectTypes(p.root) }

// IsQualified reports whether any unit of the pattern carries a qualifier.
func (p *Pattern) IsQualified() bool {
	found := false
	Walk(p.root, func(n Node) bool {
		if _, ok := n.(*QualifiedPattern); ok {
			found = true
		}
		return !found
	})
	return found
}

// ObservationCount returns the number of bracketed observation
// expressions in the pattern.
func (p *Pattern) ObservationCount() int {
	count := 0
	Walk(p.root, func(n Node) bool {
		if _, ok := n.(ComparisonExpression); ok {
			count++
			return false
		}
		return true
	})
	return count
}
