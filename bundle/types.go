package bundle

import (
	"encoding/json"

	"stixpattern/pattern"
)

// PatternTypeSTIX is the only pattern_type the loader parses.
const PatternTypeSTIX = "stix"

// envelope is the top level of a STIX bundle.
type envelope struct {
	Type    string            `json:"type"`
	ID      string            `json:"id"`
	Objects []json.RawMessage `json:"objects"`
}

// objectHeader is decoded first to find indicators among other objects.
type objectHeader struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Indicator is the subset of a STIX indicator SDO the loader reads.
// pattern_type is optional because STIX 2.0 indicators do not carry it.
type Indicator struct {
	Type        string   `json:"type" validate:"eq=indicator"`
	SpecVersion string   `json:"spec_version" validate:"omitempty,oneof=2.0 2.1"`
	ID          string   `json:"id" validate:"required,startswith=indicator--"`
	Name        string   `json:"name" validate:"max=1024"`
	Pattern     string   `json:"pattern" validate:"required"`
	PatternType string   `json:"pattern_type"`
	ValidFrom   string   `json:"valid_from" validate:"required"`
	Labels      []string `json:"labels,omitempty"`
}

// Result is the outcome for one indicator.
type Result struct {
	ID      string
	Name    string
	Pattern string
	// Status is one of the metrics result labels: ok, lex_error,
	// literal_error, parse_error, invalid, skipped or canceled.
	Status string
	Expr   pattern.PatternExpression
	Err    error
}

// OK reports whether the indicator's pattern parsed.
func (r Result) OK() bool { return r.Err == nil && r.Expr != nil }

// Report lists per-indicator results in bundle order.
type Report struct {
	BundleID string
	Objects  int
	Results  []Result

	Parsed  int
	Failed  int
	Skipped int
}

// Failures returns the results whose indicator was rejected or whose
// pattern failed to parse.
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}
