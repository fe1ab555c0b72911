package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"stixpattern/pattern"
	"stixpattern/semantic"
)

// parseOutput is the JSON/YAML result of the parse command.
type parseOutput struct {
	Pattern   string           `json:"pattern" yaml:"pattern"`
	Canonical string           `json:"canonical" yaml:"canonical"`
	Tree      *nodeView        `json:"tree" yaml:"tree"`
	Issues    []semantic.Issue `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// newParseCmd creates the 'parse' subcommand
func newParseCmd(a *app) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "parse [pattern]",
		Short: "Parse a pattern and print its canonical form",
		Long: `Parse a single STIX pattern. The canonical text is printed by default;
--output json or yaml prints the full syntax tree instead.

With no argument the pattern is read from standard input.`,
		Example: `  stixpat parse "[file:hashes.'SHA-256' = 'aec0'] REPEATS 2 TIMES"
  echo "[ipv4-addr:value = '10.0.0.1']" | stixpat parse -o yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			text, err := patternArg(cmd, args)
			if err != nil {
				return err
			}

			expr, err := a.parse(ctx, text)
			if err != nil {
				return err
			}

			var issues []semantic.Issue
			checkErr := a.checker.Check(expr)
			var verr *semantic.ValidationError
			if errors.As(checkErr, &verr) {
				issues = verr.Issues
			}

			out := cmd.OutOrStdout()
			if a.flags.output != formatText {
				if err := render(out, a.flags.output, parseOutput{
					Pattern:   text,
					Canonical: pattern.Format(expr),
					Tree:      treeOf(expr),
					Issues:    issues,
				}); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, pattern.Format(expr))
				if !a.flags.quiet {
					for _, issue := range issues {
						warningColor.Fprintf(cmd.ErrOrStderr(), "⚠ %s\n", issue)
					}
				}
			}

			if strict && checkErr != nil {
				return checkErr
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when semantic checks report issues")

	return cmd
}

// patternArg joins the positional arguments into one pattern, or reads
// standard input when there are none.
func patternArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	in := cmd.InOrStdin()
	if in == os.Stdin && !stdinIsPipe() {
		return "", fmt.Errorf("no pattern given")
	}
	data, err := io.ReadAll(io.LimitReader(in, maxPatternSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read pattern: %w", err)
	}
	if len(data) > maxPatternSize {
		return "", fmt.Errorf("pattern exceeds %d bytes", maxPatternSize)
	}
	text := strings.TrimRight(string(data), "\r\n")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no pattern given")
	}
	return text, nil
}

// maxPatternSize bounds a pattern read from standard input.
const maxPatternSize = 1 << 20
