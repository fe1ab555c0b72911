package cmd

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"stixpattern/bundle"
	"stixpattern/metrics"
	"stixpattern/pattern"
)

// bundleOutput is the JSON/YAML result of the bundle command.
type bundleOutput struct {
	BundleID   string            `json:"bundle_id" yaml:"bundle_id"`
	Objects    int               `json:"objects" yaml:"objects"`
	Parsed     int               `json:"parsed" yaml:"parsed"`
	Failed     int               `json:"failed" yaml:"failed"`
	Skipped    int               `json:"skipped" yaml:"skipped"`
	Indicators []indicatorOutput `json:"indicators" yaml:"indicators"`
}

type indicatorOutput struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	Status    string `json:"status" yaml:"status"`
	Canonical string `json:"canonical,omitempty" yaml:"canonical,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// newBundleCmd creates the 'bundle' subcommand
func newBundleCmd(a *app) *cobra.Command {
	var showProgress bool

	cmd := &cobra.Command{
		Use:   "bundle <file.json>",
		Short: "Parse every indicator pattern in a STIX bundle",
		Long: `Load a STIX 2.x bundle, validate it, and parse the pattern of every
indicator whose pattern_type is stix. Indicators of other pattern types are
skipped. Use "-" to read the bundle from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			data, err := readInputFile(cmd.InOrStdin(), args[0], a.cfg.Bundle.MaxFileSize)
			if err != nil {
				return err
			}

			loader, err := bundle.NewLoader(bundle.Config{
				Workers:     a.cfg.Bundle.Workers,
				MaxFileSize: a.cfg.Bundle.MaxFileSize,
				Parse:       a.cache.Parse,
			}, a.logger)
			if err != nil {
				return err
			}

			text := a.flags.output == formatText
			if text && !a.flags.quiet {
				infoColor.Fprintf(cmd.ErrOrStderr(), "Loading bundle: %s\n", args[0])
			}

			// Show progress spinner if requested
			var s *spinner.Spinner
			if showProgress && text && !a.flags.quiet {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
				s.Suffix = " Parsing indicators..."
				s.Start()
			}

			report, err := loader.Load(ctx, bytes.NewReader(data))

			if s != nil {
				s.Stop()
			}

			if err != nil {
				return fmt.Errorf("failed to load bundle: %w", err)
			}

			out := cmd.OutOrStdout()
			if !text {
				if err := render(out, a.flags.output, bundleView(report)); err != nil {
					return err
				}
			} else {
				renderBundleReport(out, report, a.flags.quiet)
			}

			if report.Failed > 0 {
				return fmt.Errorf("%d of %d %s failed", report.Failed, len(report.Results), plural(len(report.Results), "indicator", "indicators"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showProgress, "progress", true, "Show progress indicator")

	return cmd
}

func bundleView(report *bundle.Report) bundleOutput {
	view := bundleOutput{
		BundleID:   report.BundleID,
		Objects:    report.Objects,
		Parsed:     report.Parsed,
		Failed:     report.Failed,
		Skipped:    report.Skipped,
		Indicators: make([]indicatorOutput, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		item := indicatorOutput{ID: res.ID, Name: res.Name, Status: res.Status}
		if res.Expr != nil {
			item.Canonical = pattern.Format(res.Expr)
		}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		view.Indicators = append(view.Indicators, item)
	}
	return view
}

// renderBundleReport displays per-indicator results and a summary
func renderBundleReport(w io.Writer, report *bundle.Report, quiet bool) {
	if !quiet {
		printSection(w, "Bundle "+report.BundleID)
		printField(w, "Objects", fmt.Sprintf("%d", report.Objects))
		printField(w, "Indicators", fmt.Sprintf("%d", len(report.Results)))
		fmt.Fprintln(w)

		if len(report.Results) > 0 {
			headerColor.Fprintf(w, "%-46s %-30s %-14s\n", "ID", "NAME", "STATUS")
			fmt.Fprintln(w, strings.Repeat("-", 92))
		}
	}

	for _, res := range report.Results {
		if quiet && res.Err == nil {
			continue
		}
		fmt.Fprintf(w, "%-46s %-30s %s\n", res.ID, truncate(res.Name, 30), formatStatus(res.Status))
		if res.Err != nil {
			fmt.Fprintf(w, "    %v\n", res.Err)
		}
	}

	if quiet {
		return
	}
	fmt.Fprintln(w)
	summary := fmt.Sprintf("%d parsed, %d failed, %d skipped", report.Parsed, report.Failed, report.Skipped)
	if report.Failed == 0 {
		successColor.Fprintf(w, "✓ %s\n", summary)
	} else {
		warningColor.Fprintf(w, "⚠ %s\n", summary)
	}
}

// formatStatus returns a colored status string
func formatStatus(status string) string {
	switch status {
	case metrics.ResultOK:
		return successColor.Sprint(status)
	case metrics.ResultSkipped:
		return warningColor.Sprint(status)
	default:
		return errorColor.Sprint(status)
	}
}
