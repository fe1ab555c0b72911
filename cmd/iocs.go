package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"stixpattern/ioc"
)

// newIOCsCmd creates the 'iocs' subcommand
func newIOCsCmd(a *app) *cobra.Command {
	var types []string

	cmd := &cobra.Command{
		Use:     "iocs [pattern]",
		Aliases: []string{"ioc"},
		Short:   "List indicators of compromise tested by a pattern",
		Long: `Extract the observable values (IPs, domains, URLs, hashes, file names,
email addresses, registry keys) a pattern compares for equality.

With no argument the pattern is read from standard input.`,
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

			indicators := filterIndicators(ioc.Extract(expr), types)
			a.logger.Debugw("Indicators extracted", "count", len(indicators))

			out := cmd.OutOrStdout()
			if a.flags.output != formatText {
				return render(out, a.flags.output, indicators)
			}
			renderIndicatorsTable(out, indicators, a.flags.quiet)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&types, "type", nil, "Only list these indicator types (ip, cidr, domain, hash, url, email, filename, registry_key)")

	return cmd
}

// filterIndicators keeps the indicators whose type is listed. An empty
// list keeps everything. The result is never nil so JSON output is [].
func filterIndicators(in []ioc.Indicator, types []string) []ioc.Indicator {
	out := make([]ioc.Indicator, 0, len(in))
	for _, ind := range in {
		if len(types) == 0 || containsFold(types, string(ind.Type)) {
			out = append(out, ind)
		}
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), s) {
			return true
		}
	}
	return false
}

// renderIndicatorsTable displays indicators in a formatted table
func renderIndicatorsTable(w io.Writer, indicators []ioc.Indicator, quiet bool) {
	if len(indicators) == 0 {
		if !quiet {
			warningColor.Fprintln(w, "No indicators found")
		}
		return
	}

	if !quiet {
		headerColor.Fprintf(w, "%-14s %-50s %s\n", "TYPE", "VALUE", "PATH")
		fmt.Fprintln(w, strings.Repeat("-", 90))
	}
	for _, ind := range indicators {
		typ := string(ind.Type)
		if ind.Algorithm != "" {
			typ += "/" + ind.Algorithm
		}
		fmt.Fprintf(w, "%-14s %-50s %s\n", typ, truncate(ind.Value, 50), ind.Path)
	}
}
