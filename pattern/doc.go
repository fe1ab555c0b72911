// Package pattern parses the STIX 2.1 Patterning Language into an
// immutable syntax tree.
//
// A pattern such as
//
//	[file:hashes.'SHA-256' = 'aec0...'] REPEATS 2 TIMES WITHIN 300 SECONDS
//
// is parsed by Parse into a PatternExpression. The tree is built from four
// node types: *Comparison and *CompositeComparison live inside one pair of
// brackets, *CompositePattern joins bracketed observations with AND, OR or
// FOLLOWEDBY, and *QualifiedPattern carries REPEATS, WITHIN and START/STOP.
//
// Observation operators bind FOLLOWEDBY tightest, then AND, then OR. Inside
// brackets AND binds tighter than OR. Qualifiers attach to the bracketed
// observation or parenthesized group written directly before them.
//
// Failures are reported as *LexError, *LiteralError or *ParseError, all of
// which implement Error and carry the Position of the offending text.
// Parse keeps no global state and may be called from many goroutines.
package pattern
