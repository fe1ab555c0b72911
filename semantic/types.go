package semantic

import "strings"

// knownObjectTypes is the STIX 2.1 cyber-observable object vocabulary.
var knownObjectTypes = map[string]struct{}{
	"artifact":             {},
	"autonomous-system":    {},
	"directory":            {},
	"domain-name":          {},
	"email-addr":           {},
	"email-message":        {},
	"file":                 {},
	"ipv4-addr":            {},
	"ipv6-addr":            {},
	"mac-addr":             {},
	"mutex":                {},
	"network-traffic":      {},
	"process":              {},
	"software":             {},
	"url":                  {},
	"user-account":         {},
	"windows-registry-key": {},
	"x509-certificate":     {},
}

// IsKnownObjectType reports whether t is a STIX 2.1 observable type or a
// custom "x-" type.
func IsKnownObjectType(t string) bool {
	if strings.HasPrefix(t, "x-") {
		return true
	}
	_, ok := knownObjectTypes[t]
	return ok
}
