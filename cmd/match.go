package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"stixpattern/pattern"
	"stixpattern/semantic"
)

// matchResult is one MATCHES comparison tested against the sample value.
type matchResult struct {
	Path    string `json:"path" yaml:"path"`
	Regex   string `json:"regex" yaml:"regex"`
	Negated bool   `json:"negated,omitempty" yaml:"negated,omitempty"`
	Matched bool   `json:"matched" yaml:"matched"`
	Holds   bool   `json:"holds" yaml:"holds"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// newMatchCmd creates the 'match' subcommand
func newMatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "match <pattern> <value>",
		Short: "Test a sample value against the MATCHES regexes of a pattern",
		Long: `Run every MATCHES comparison of the pattern against value, using the
configured regex timeout (semantic.regex_timeout).

A comparison "holds" when the regex matches, or does not match for
NOT MATCHES. Regexes that fail to compile or time out are errors.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			expr, err := a.parse(ctx, args[0])
			if err != nil {
				return err
			}

			results := matchAll(a.checker, expr, args[1])
			if len(results) == 0 {
				return fmt.Errorf("pattern has no MATCHES comparisons")
			}

			failed := 0
			for _, r := range results {
				if r.Error != "" {
					failed++
					a.logger.Warnw("Regex evaluation failed", "path", r.Path, "error", r.Error)
				}
			}

			out := cmd.OutOrStdout()
			if a.flags.output != formatText {
				if err := render(out, a.flags.output, results); err != nil {
					return err
				}
			} else {
				renderMatchResults(out, results)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d regexes failed", failed, len(results))
			}
			return nil
		},
	}
}

// matchAll evaluates each MATCHES comparison of expr against value in
// source order.
func matchAll(checker *semantic.Checker, expr pattern.PatternExpression, value string) []matchResult {
	var results []matchResult
	for _, cmp := range pattern.Comparisons(expr) {
		if cmp.Op != pattern.OpMatches {
			continue
		}
		r := matchResult{Path: cmp.Path.String(), Negated: cmp.Negated}
		if s, ok := cmp.Operand.(pattern.StringConstant); ok {
			r.Regex = string(s)
		}

		re, err := checker.Regex(cmp)
		if err != nil {
			r.Error = err.Error()
			results = append(results, r)
			continue
		}
		matched, err := semantic.Match(re, value)
		if err != nil {
			r.Error = err.Error()
		} else {
			r.Matched = matched
			r.Holds = matched != cmp.Negated
		}
		results = append(results, r)
	}
	return results
}

func renderMatchResults(w io.Writer, results []matchResult) {
	for _, r := range results {
		op := "MATCHES"
		if r.Negated {
			op = "NOT MATCHES"
		}
		line := fmt.Sprintf("%s %s '%s'", r.Path, op, r.Regex)
		switch {
		case r.Error != "":
			errorColor.Fprintf(w, "✗ %s: %s\n", line, r.Error)
		case r.Holds:
			successColor.Fprintf(w, "✓ %s\n", line)
		default:
			warningColor.Fprintf(w, "- %s\n", line)
		}
	}
}
