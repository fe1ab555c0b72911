package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// render writes data in the machine-readable format selected by --output.
func render(w io.Writer, format string, data interface{}) error {
	switch format {
	case formatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	case formatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(data); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// printSection prints a section header
func printSection(w io.Writer, title string) {
	headerColor.Fprintf(w, "%s\n", title)
	headerColor.Fprintln(w, strings.Repeat("─", len(title)))
}

// printField prints a key-value field
func printField(w io.Writer, key, value string) {
	if value == "" {
		value = "(not set)"
	}
	fmt.Fprintf(w, "  %-12s %s\n", key+":", value)
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// plural picks the singular or plural noun for n.
func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
