// Package ioc pulls indicators of compromise out of parsed STIX patterns.
package ioc

import (
	"net/url"
	"strings"

	"stixpattern/pattern"
)

// Type represents the type of indicator of compromise
type Type string

const (
	TypeIP       Type = "ip"
	TypeCIDR     Type = "cidr"
	TypeDomain   Type = "domain"
	TypeHash     Type = "hash" // any file:hashes algorithm
	TypeURL      Type = "url"
	TypeEmail    Type = "email"
	TypeFilename Type = "filename"
	TypeRegKey   Type = "registry_key"
)

// Indicator is one observable value a pattern tests for equality.
type Indicator struct {
	Type  Type   `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
	// Path is the object path the value was compared against.
	Path string `json:"path" yaml:"path"`
	// Algorithm is the hash name for TypeHash, e.g. "SHA-256".
	Algorithm string `json:"algorithm,omitempty" yaml:"algorithm,omitempty"`
}

// Extract returns the indicators found in expr, in order of first
// appearance with duplicates removed. Only non-negated "=" and IN
// comparisons with string operands on well-known observable paths count.
func Extract(expr pattern.PatternExpression) []Indicator {
	var out []Indicator
	seen := make(map[string]struct{})

	for _, cmp := range pattern.Comparisons(expr) {
		if cmp.Negated {
			continue
		}
		var values []pattern.Constant
		switch cmp.Op {
		case pattern.OpEqual:
			if c, ok := cmp.Operand.(pattern.Constant); ok {
				values = []pattern.Constant{c}
			}
		case pattern.OpIn:
			values, _ = cmp.Operand.(pattern.ConstantList)
		default:
			continue
		}

		iocType, algorithm, ok := classify(cmp.Path)
		if !ok {
			continue
		}
		for _, v := range values {
			s, isString := v.(pattern.StringConstant)
			if !isString || strings.TrimSpace(string(s)) == "" {
				continue
			}
			t := iocType
			if t == TypeIP && strings.Contains(string(s), "/") {
				t = TypeCIDR
			}
			value := Normalize(t, string(s))
			key := string(t) + "\x00" + value
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, Indicator{
				Type:      t,
				Value:     value,
				Path:      cmp.Path.String(),
				Algorithm: algorithm,
			})
		}
	}
	return out
}

// classify maps an object path onto an indicator type.
func classify(p pattern.ObjectPath) (Type, string, bool) {
	props := p.PropertyPath
	first := props[0].Property
	single := len(props) == 1 && !props[0].Index.IsSet()

	switch p.ObjectType {
	case "ipv4-addr", "ipv6-addr":
		if single && first == "value" {
			return TypeIP, "", true
		}
	case "domain-name":
		if single && first == "value" {
			return TypeDomain, "", true
		}
	case "url":
		if single && first == "value" {
			return TypeURL, "", true
		}
	case "email-addr":
		if single && first == "value" {
			return TypeEmail, "", true
		}
	case "windows-registry-key":
		if single && first == "key" {
			return TypeRegKey, "", true
		}
	case "file":
		if single && first == "name" {
			return TypeFilename, "", true
		}
		if len(props) == 2 && first == "hashes" && !props[0].Index.IsSet() && !props[1].Index.IsSet() {
			return TypeHash, props[1].Property, true
		}
	case "network-traffic":
		if len(props) == 2 && strings.HasSuffix(first, "_ref") && props[1].Property == "value" {
			return TypeIP, "", true
		}
	}
	return "", "", false
}

// Normalize normalizes an indicator value for consistent matching
func Normalize(t Type, value string) string {
	normalized := strings.TrimSpace(value)

	switch t {
	case TypeIP, TypeCIDR, TypeDomain, TypeHash:
		return strings.ToLower(normalized)
	case TypeURL:
		// Lowercase scheme and host only, paths are case-sensitive
		if parsed, err := url.Parse(normalized); err == nil && parsed.Host != "" {
			parsed.Scheme = strings.ToLower(parsed.Scheme)
			parsed.Host = strings.ToLower(parsed.Host)
			return parsed.String()
		}
		return normalized
	case TypeEmail:
		// Email local part is case-sensitive, domain is not
		if at := strings.LastIndex(normalized, "@"); at > 0 {
			return normalized[:at] + strings.ToLower(normalized[at:])
		}
		return normalized
	default:
		return normalized
	}
}
