package policy

import "regexp"

// piiPattern pairs a compiled detector with the `[REDACTED_<kind>]` tag and
// the `pii_masked:<kind>` warning spec.md §4.4 requires. Compiled once at
// package init, in the style of the teacher's observability.redact.go
// compiled-key-list, generalized here from key-name matching to regex
// pattern matching over free text.
type piiPattern struct {
	kind string
	re   *regexp.Regexp
}

// piiPatterns is checked in order; earlier patterns mask first so a credit
// card digit run is not later mistaken for part of a phone number once
// partially redacted.
var piiPatterns = []piiPattern{
	{"SSN", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"CREDIT_CARD", regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`)},
	{"EMAIL", regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	// The trailing group is optional so a short local number like
	// "+1-555-1234" (country code + 3-digit exchange + 4-digit line, no
	// area code) matches, not just the longer area-code form. The word
	// boundary is an alternative to the "+<country code>" prefix, since no
	// boundary sits before a "+" that follows a space.
	{"PHONE", regexp.MustCompile(`(?:\+\d{1,3}[ -]?|\b)(?:\(\d{2,4}\)[ -]?)?\d{3}[ -]?\d{3,4}(?:[ -]?\d{3,4})?\b`)},
	{"IPV4", regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|1?\d?\d)\b`)},
	{"PASSPORT", regexp.MustCompile(`\b[A-Z]{1,2}\d{6,9}\b`)},
}

// maskPII replaces every PII pattern match in text with its redaction tag,
// returning the masked text and the distinct kinds it masked (for the
// `pii_masked:<kind>` warning tags).
func maskPII(text string) (string, []string) {
	if text == "" {
		return text, nil
	}
	var kinds []string
	seen := make(map[string]bool, len(piiPatterns))
	for _, p := range piiPatterns {
		if !p.re.MatchString(text) {
			continue
		}
		text = p.re.ReplaceAllString(text, "[REDACTED_"+p.kind+"]")
		if !seen[p.kind] {
			seen[p.kind] = true
			kinds = append(kinds, p.kind)
		}
	}
	return text, kinds
}
