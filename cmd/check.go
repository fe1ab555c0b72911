package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"stixpattern/pattern"
	"stixpattern/semantic"
)

// checkResult is the outcome for one pattern of the check command.
type checkResult struct {
	Line      int              `json:"line,omitempty" yaml:"line,omitempty"`
	Name      string           `json:"name,omitempty" yaml:"name,omitempty"`
	Pattern   string           `json:"pattern" yaml:"pattern"`
	Valid     bool             `json:"valid" yaml:"valid"`
	Canonical string           `json:"canonical,omitempty" yaml:"canonical,omitempty"`
	Error     string           `json:"error,omitempty" yaml:"error,omitempty"`
	Issues    []semantic.Issue `json:"issues,omitempty" yaml:"issues,omitempty"`

	err error
}

// newCheckCmd creates the 'check' subcommand
func newCheckCmd(a *app) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Validate a list of patterns",
		Long: `Validate every pattern in a file: one pattern per line, or a YAML list
of strings or {name, pattern} entries when the file ends in .yaml or .yml.
Blank lines and lines starting with '#' are ignored.

Reads standard input when no file or "-" is given. Exits non-zero when any
pattern fails to parse, or with --strict when semantic checks report issues.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			filename := "-"
			if len(args) == 1 {
				filename = args[0]
			}
			data, err := readInputFile(cmd.InOrStdin(), filename, a.cfg.Bundle.MaxFileSize)
			if err != nil {
				return err
			}
			entries, err := parseEntries(filename, data)
			if err != nil {
				return err
			}

			results := make([]checkResult, 0, len(entries))
			failed := 0
			for _, entry := range entries {
				res := checkResult{Line: entry.Line, Name: entry.Name, Pattern: entry.Pattern}
				expr, err := a.parse(ctx, entry.Pattern)
				if err != nil {
					if ctx.Err() != nil {
						return err
					}
					res.err = err
					res.Error = err.Error()
				} else {
					res.Valid = true
					res.Canonical = pattern.Format(expr)
					var verr *semantic.ValidationError
					if errors.As(a.checker.Check(expr), &verr) {
						res.Issues = verr.Issues
						if strict {
							res.Valid = false
						}
					}
				}
				if !res.Valid {
					failed++
				}
				results = append(results, res)
			}

			out := cmd.OutOrStdout()
			if a.flags.output != formatText {
				if err := render(out, a.flags.output, results); err != nil {
					return err
				}
			} else {
				renderCheckResults(out, results, a.flags.quiet)
			}

			a.logger.Infow("Check finished",
				"file", filename,
				"patterns", len(results),
				"failed", failed,
				"cache", a.cache.Stats())

			if failed > 0 {
				return fmt.Errorf("%d of %d %s failed", failed, len(results), plural(len(results), "pattern", "patterns"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat semantic issues as failures")

	return cmd
}

// renderCheckResults prints one line per pattern and a summary.
func renderCheckResults(w io.Writer, results []checkResult, quiet bool) {
	valid, warned := 0, 0
	for _, res := range results {
		label := fmt.Sprintf("line %d", res.Line)
		if res.Name != "" {
			label = res.Name
		}

		switch {
		case res.err != nil:
			errorColor.Fprintf(w, "✗ %s\n", label)
			var srcErr *sourceError
			if errors.As(res.err, &srcErr) {
				fmt.Fprint(w, pattern.FormatError(srcErr.src, srcErr.err))
			} else {
				fmt.Fprintf(w, "  %v\n", res.err)
			}
		case len(res.Issues) > 0:
			warned++
			if res.Valid {
				valid++
				warningColor.Fprintf(w, "⚠ %s: %s\n", label, res.Canonical)
			} else {
				errorColor.Fprintf(w, "✗ %s: %s\n", label, res.Canonical)
			}
			for _, issue := range res.Issues {
				fmt.Fprintf(w, "    %s\n", issue)
			}
		default:
			valid++
			if !quiet {
				successColor.Fprintf(w, "✓ %s: ", label)
				fmt.Fprintln(w, res.Canonical)
			}
		}
	}

	if quiet {
		return
	}
	fmt.Fprintln(w)
	summary := fmt.Sprintf("%d %s checked, %d valid, %d invalid, %d with warnings",
		len(results), plural(len(results), "pattern", "patterns"), valid, len(results)-valid, warned)
	if valid == len(results) {
		successColor.Fprintln(w, summary)
	} else {
		warningColor.Fprintln(w, summary)
	}
}
